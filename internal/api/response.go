package api

import (
	"net/http"

	"github.com/dewmini3/CakeCustomizing/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	statusSuccess = "Success"
	statusError   = "Error"
)

// Response is the envelope every API route answers with
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func respond(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, Response{Status: statusSuccess, Message: message, Data: data})
}

func respondMessage(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, Response{Status: statusError, Message: message})
}

// statusFor maps a service error kind to an HTTP status
func statusFor(kind service.Kind) int {
	switch kind {
	case service.KindValidation, service.KindDuplicate, service.KindInsufficientStock:
		return http.StatusBadRequest
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) respondError(c *gin.Context, err error) {
	code := statusFor(service.KindOf(err))
	message := service.MessageOf(err)

	if code >= http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", code),
			zap.Error(err))
		if service.KindOf(err) == 0 {
			message = "Internal server error"
		}
	}

	respondMessage(c, code, message)
}
