package api

import (
	"net/http"

	"github.com/dewmini3/CakeCustomizing/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) listFeedback(c *gin.Context) {
	feedback, err := h.svc.Feedback.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", feedback)
}

func (h *Handler) listProductFeedback(c *gin.Context) {
	feedback, err := h.svc.Feedback.ListByProduct(c.Request.Context(), c.Param("productId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", feedback)
}

func (h *Handler) averageRating(c *gin.Context) {
	summary, err := h.svc.Feedback.AverageRating(c.Request.Context(), c.Param("productId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", summary)
}

func (h *Handler) createFeedback(c *gin.Context) {
	var in service.FeedbackInput
	if !h.bindJSON(c, &in) {
		return
	}

	feedback, err := h.svc.Feedback.Create(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Feedback submitted successfully", feedback)
}

func (h *Handler) updateFeedback(c *gin.Context) {
	var in service.FeedbackUpdate
	if !h.bindJSON(c, &in) {
		return
	}

	feedback, err := h.svc.Feedback.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Feedback updated successfully", feedback)
}

func (h *Handler) deleteFeedback(c *gin.Context) {
	if err := h.svc.Feedback.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Feedback deleted", nil)
}
