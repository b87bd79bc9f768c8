package api

import (
	"net/http"

	"github.com/dewmini3/CakeCustomizing/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) listOptions(c *gin.Context) {
	options, err := h.svc.Options.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", options)
}

func (h *Handler) createOption(c *gin.Context) {
	var in service.OptionInput
	if !h.bindJSON(c, &in) {
		return
	}

	option, err := h.svc.Options.Create(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Option added successfully", option)
}

func (h *Handler) updateOption(c *gin.Context) {
	var in service.OptionUpdate
	if !h.bindJSON(c, &in) {
		return
	}

	option, err := h.svc.Options.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Option updated successfully", option)
}

func (h *Handler) deleteOption(c *gin.Context) {
	if err := h.svc.Options.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Option deleted and inventory restored", nil)
}

func (h *Handler) listIngredients(c *gin.Context) {
	ingredients, err := h.svc.Inventory.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", ingredients)
}

func (h *Handler) getIngredient(c *gin.Context) {
	ingredient, err := h.svc.Inventory.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", ingredient)
}

func (h *Handler) createIngredient(c *gin.Context) {
	var in service.IngredientInput
	if !h.bindJSON(c, &in) {
		return
	}

	ingredient, err := h.svc.Inventory.Create(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Ingredient added successfully", ingredient)
}

func (h *Handler) updateIngredient(c *gin.Context) {
	var in service.IngredientUpdate
	if !h.bindJSON(c, &in) {
		return
	}

	ingredient, err := h.svc.Inventory.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Ingredient updated successfully", ingredient)
}

func (h *Handler) listCustomizes(c *gin.Context) {
	customizes, err := h.svc.Customizes.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", customizes)
}

func (h *Handler) createCustomize(c *gin.Context) {
	var in service.CustomizeInput
	if !h.bindJSON(c, &in) {
		return
	}

	customize, err := h.svc.Customizes.Create(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Customize created successfully", customize)
}

func (h *Handler) availableOptions(c *gin.Context) {
	available, err := h.svc.Customizes.AvailableOptions(c.Request.Context(), c.Query("size"), c.Query("shape"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", available)
}
