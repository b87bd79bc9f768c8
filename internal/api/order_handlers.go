package api

import (
	"net/http"

	"github.com/dewmini3/CakeCustomizing/internal/service"

	"github.com/gin-gonic/gin"
)

// createOrder handles order creation
func (h *Handler) createOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if !h.bindJSON(c, &req) {
		return
	}

	order, err := h.svc.Orders.CreateOrder(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Order placed successfully", order)
}

// getOrder handles get order by ID
func (h *Handler) getOrder(c *gin.Context) {
	order, err := h.svc.Orders.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", order)
}

func (h *Handler) listOrders(c *gin.Context) {
	orders, err := h.svc.Orders.ListOrders(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", orders)
}

func (h *Handler) updateOrder(c *gin.Context) {
	var req service.UpdateOrderRequest
	if !h.bindJSON(c, &req) {
		return
	}

	order, err := h.svc.Orders.UpdateOrder(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Order updated successfully", order)
}

func (h *Handler) deleteOrder(c *gin.Context) {
	if err := h.svc.Orders.DeleteOrder(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Order deleted", nil)
}

// completeOrder moves an order to the completed archive
func (h *Handler) completeOrder(c *gin.Context) {
	completed, err := h.svc.Orders.CompleteOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Order moved to completed orders", completed)
}

func (h *Handler) listCompleted(c *gin.Context) {
	orders, err := h.svc.Orders.ListCompleted(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", orders)
}

func (h *Handler) getCompleted(c *gin.Context) {
	order, err := h.svc.Orders.GetCompleted(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", order)
}

func (h *Handler) deleteCompleted(c *gin.Context) {
	if err := h.svc.Orders.DeleteCompleted(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Completed order deleted", nil)
}
