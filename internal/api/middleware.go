package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dewmini3/CakeCustomizing/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// IdempotencyHeader carries the client-chosen key of a retryable create
const IdempotencyHeader = "Idempotency-Key"

// IdempotencyStore remembers the first response for an idempotency key
type IdempotencyStore interface {
	ReserveIdempotencyKey(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	StoreIdempotentResponse(ctx context.Context, key, marker string, response []byte, ttl time.Duration) error
	ReleaseIdempotencyKey(ctx context.Context, key, marker string) error
	GetIdempotentResponse(ctx context.Context, key string) (response []byte, pending bool, err error)
}

type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// captureWriter keeps a copy of the body written by the handler
type captureWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			path,
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			path,
			status,
		).Inc()
	}
}

// timeoutMiddleware bounds the request context; services surface the
// deadline as a timeout error
func timeoutMiddleware(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// idempotent replays the first completed response for a repeated
// Idempotency-Key. Server errors release the key so the client can retry.
func (h *Handler) idempotent() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(IdempotencyHeader))
		if h.idempotency == nil || key == "" {
			c.Next()
			return
		}

		scoped := c.Request.Method + ":" + c.FullPath() + ":" + key
		ctx := c.Request.Context()

		if h.replay(c, scoped) {
			return
		}

		marker, reserved, err := h.idempotency.ReserveIdempotencyKey(ctx, scoped, h.cfg.IdempotencyTTL)
		if err != nil {
			h.logger.Warn("Idempotency store unavailable, serving without replay protection",
				zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}
		if !reserved {
			if !h.replay(c, scoped) {
				respondMessage(c, http.StatusConflict, "A request with this Idempotency-Key is already in progress")
			}
			return
		}

		w := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()

		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()

		if w.Status() >= http.StatusInternalServerError {
			if err := h.idempotency.ReleaseIdempotencyKey(saveCtx, scoped, marker); err != nil {
				h.logger.Warn("Failed to release idempotency key", zap.String("key", key), zap.Error(err))
			}
			return
		}

		payload, err := json.Marshal(storedResponse{
			Status:      w.Status(),
			ContentType: w.Header().Get("Content-Type"),
			Body:        w.body.Bytes(),
		})
		if err == nil {
			err = h.idempotency.StoreIdempotentResponse(saveCtx, scoped, marker, payload, h.cfg.IdempotencyTTL)
		}
		if err != nil {
			h.logger.Warn("Failed to store idempotent response", zap.String("key", key), zap.Error(err))
		}
	}
}

// replay answers from a stored response. It reports whether the request was handled.
func (h *Handler) replay(c *gin.Context, key string) bool {
	raw, pending, err := h.idempotency.GetIdempotentResponse(c.Request.Context(), key)
	if err != nil {
		h.logger.Warn("Failed to read idempotent response", zap.String("key", key), zap.Error(err))
		return false
	}
	if pending {
		respondMessage(c, http.StatusConflict, "A request with this Idempotency-Key is already in progress")
		return true
	}
	if raw == nil {
		return false
	}

	var stored storedResponse
	if err := json.Unmarshal(raw, &stored); err != nil {
		h.logger.Warn("Discarding unreadable idempotent response", zap.String("key", key), zap.Error(err))
		return false
	}

	util.IdempotentReplaysTotal.Inc()
	c.Header("Idempotent-Replayed", "true")
	c.Data(stored.Status, stored.ContentType, stored.Body)
	c.Abort()
	return true
}
