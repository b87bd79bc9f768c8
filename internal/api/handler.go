package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/dewmini3/CakeCustomizing/internal/service"
	"github.com/dewmini3/CakeCustomizing/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Services bundles the domain services the handlers call
type Services struct {
	Inventory  *service.InventoryService
	Options    *service.OptionService
	Customizes *service.CustomizeService
	Products   *service.ProductService
	Orders     *service.OrderService
	Feedback   *service.FeedbackService
}

// ImageStorage persists uploaded product images and returns their public path
type ImageStorage interface {
	Save(ctx context.Context, originalName string, r io.Reader) (string, error)
	Remove(ctx context.Context, publicURL string) error
}

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
}

// Handler contains HTTP handlers
type Handler struct {
	svc         Services
	images      ImageStorage
	store       Pinger
	idempotency IdempotencyStore
	cfg         Config
	logger      *zap.Logger
}

// NewHandler creates a new HTTP handler. idempotency may be nil, in which case
// Idempotency-Key headers are ignored.
func NewHandler(svc Services, images ImageStorage, store Pinger, idempotency IdempotencyStore, cfg Config) *Handler {
	return &Handler{
		svc:         svc,
		images:      images,
		store:       store,
		idempotency: idempotency,
		cfg:         cfg,
		logger:      util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	idem := h.idempotent()
	api := router.Group("/api", timeoutMiddleware(h.cfg.RequestTimeout))

	option := api.Group("/option")
	{
		option.GET("", h.listOptions)
		option.POST("/add", idem, h.createOption)
		option.PUT("/update/:id", h.updateOption)
		option.DELETE("/delete/:id", h.deleteOption)
	}

	ingredient := api.Group("/ingredient2")
	{
		ingredient.GET("", h.listIngredients)
		ingredient.GET("/get/:id", h.getIngredient)
		ingredient.POST("/add", idem, h.createIngredient)
		ingredient.PUT("/update/:id", h.updateIngredient)
	}

	customize := api.Group("/customize")
	{
		customize.GET("", h.listCustomizes)
		customize.POST("/add", idem, h.createCustomize)
		customize.GET("/available-options", h.availableOptions)
	}

	product := api.Group("/product")
	{
		product.GET("", h.listProducts)
		product.GET("/get/:id", h.getProduct)
		product.GET("/search", h.searchProducts)
		product.POST("/add", idem, h.createProduct)
		product.PUT("/update/:id", h.updateProduct)
		product.DELETE("/delete/:id", h.discontinueProduct)
	}

	discontinued := api.Group("/discontinued_product")
	{
		discontinued.GET("", h.listDiscontinued)
		discontinued.GET("/get/:id", h.getDiscontinued)
		discontinued.DELETE("/delete/:id", h.deleteDiscontinued)
		discontinued.DELETE("/restore/:id", h.restoreProduct)
	}

	order := api.Group("/order")
	{
		order.GET("", h.listOrders)
		order.GET("/get/:id", h.getOrder)
		order.POST("/add", idem, h.createOrder)
		order.PUT("/update/:id", h.updateOrder)
		order.DELETE("/delete/:id", h.deleteOrder)
		order.DELETE("/completed/:id", h.completeOrder)
	}

	completed := api.Group("/completed_order")
	{
		completed.GET("", h.listCompleted)
		completed.GET("/get/:id", h.getCompleted)
		completed.DELETE("/delete/:id", h.deleteCompleted)
	}

	feedback := api.Group("/feedback")
	{
		feedback.GET("", h.listFeedback)
		feedback.POST("", idem, h.createFeedback)
		feedback.GET("/product/:productId", h.listProductFeedback)
		feedback.GET("/product/:productId/average", h.averageRating)
		feedback.PATCH("/:id", h.updateFeedback)
		feedback.DELETE("/:id", h.deleteFeedback)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports ready only while the document store answers
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warn("Readiness check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"time":   time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// bindJSON decodes the request body, answering 400 on malformed input
func (h *Handler) bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondMessage(c, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
