package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/dewmini3/CakeCustomizing/internal/media"
	"github.com/dewmini3/CakeCustomizing/internal/models"
	"github.com/dewmini3/CakeCustomizing/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// productForm is a product payload read from a multipart or urlencoded form.
// nil fields were not sent.
type productForm struct {
	name        *string
	weight      *string
	description *string
	price       *float64
	category    *models.ProductCategory
	image       *string
	ingredients []models.IngredientUse
	// uploaded is the stored file behind image when it came from this request
	uploaded string
}

func isForm(c *gin.Context) bool {
	ct := c.ContentType()
	return ct == gin.MIMEMultipartPOSTForm || ct == gin.MIMEPOSTForm
}

func splitTags(v string) []string {
	tags := []string{}
	for _, tag := range strings.Split(v, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

func optionalField(c *gin.Context, key string) *string {
	if v, ok := c.GetPostForm(key); ok {
		return &v
	}
	return nil
}

// readProductForm parses form fields and stores an uploaded image. A failed
// parse has already been answered when ok is false.
func (h *Handler) readProductForm(c *gin.Context) (form productForm, ok bool) {
	form.name = optionalField(c, "product_name")
	form.weight = optionalField(c, "product_weight")
	form.description = optionalField(c, "product_description")

	if raw := optionalField(c, "product_price"); raw != nil && strings.TrimSpace(*raw) != "" {
		price, err := strconv.ParseFloat(strings.TrimSpace(*raw), 64)
		if err != nil {
			respondMessage(c, http.StatusBadRequest, "Invalid price")
			return form, false
		}
		form.price = &price
	}

	flavor := optionalField(c, "flavor")
	occasion := optionalField(c, "occasion")
	specs := optionalField(c, "specifications")
	if flavor != nil || occasion != nil || specs != nil {
		category := models.ProductCategory{}
		if flavor != nil {
			category.Flavor = splitTags(*flavor)
		}
		if occasion != nil {
			category.Occasion = splitTags(*occasion)
		}
		if specs != nil {
			category.Specifications = splitTags(*specs)
		}
		form.category = &category
	}

	if raw := optionalField(c, "ingredients"); raw != nil && strings.TrimSpace(*raw) != "" {
		if err := json.Unmarshal([]byte(*raw), &form.ingredients); err != nil {
			respondMessage(c, http.StatusBadRequest, "Invalid ingredients format")
			return form, false
		}
	}

	form.image = optionalField(c, "product_image_url")
	if fh, err := c.FormFile("product_image"); err == nil {
		f, err := fh.Open()
		if err != nil {
			respondMessage(c, http.StatusBadRequest, "Invalid image upload")
			return form, false
		}
		defer f.Close()

		url, err := h.images.Save(c.Request.Context(), fh.Filename, f)
		if err != nil {
			if errors.Is(err, media.ErrUnsupportedType) {
				respondMessage(c, http.StatusBadRequest, "Only image files are allowed")
				return form, false
			}
			h.respondError(c, err)
			return form, false
		}
		form.image = &url
		form.uploaded = url
	}

	return form, true
}

// discardUpload removes an image stored for a request the service rejected
func (h *Handler) discardUpload(c *gin.Context, form productForm) {
	if form.uploaded == "" {
		return
	}
	if err := h.images.Remove(context.WithoutCancel(c.Request.Context()), form.uploaded); err != nil {
		h.logger.Warn("Failed to remove rejected product image", zap.String("image", form.uploaded), zap.Error(err))
	}
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func (h *Handler) listProducts(c *gin.Context) {
	products, err := h.svc.Products.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", products)
}

func (h *Handler) getProduct(c *gin.Context) {
	product, err := h.svc.Products.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", product)
}

func (h *Handler) searchProducts(c *gin.Context) {
	products, err := h.svc.Products.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", products)
}

func (h *Handler) createProduct(c *gin.Context) {
	var in service.ProductInput
	var form productForm
	if isForm(c) {
		var ok bool
		if form, ok = h.readProductForm(c); !ok {
			return
		}
		in = service.ProductInput{
			Name:        deref(form.name),
			Weight:      deref(form.weight),
			Description: deref(form.description),
			Price:       form.price,
			Image:       deref(form.image),
			Ingredients: form.ingredients,
		}
		if form.category != nil {
			in.Category = *form.category
		}
	} else if !h.bindJSON(c, &in) {
		return
	}

	product, err := h.svc.Products.Create(c.Request.Context(), in)
	if err != nil {
		h.discardUpload(c, form)
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Product added successfully", product)
}

func (h *Handler) updateProduct(c *gin.Context) {
	var in service.ProductUpdate
	var form productForm
	if isForm(c) {
		var ok bool
		if form, ok = h.readProductForm(c); !ok {
			return
		}
		in = service.ProductUpdate{
			Name:        form.name,
			Weight:      form.weight,
			Description: form.description,
			Price:       form.price,
			Category:    form.category,
			Image:       form.image,
			Ingredients: form.ingredients,
		}
	} else if !h.bindJSON(c, &in) {
		return
	}

	product, err := h.svc.Products.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.discardUpload(c, form)
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Product updated successfully", product)
}

func (h *Handler) discontinueProduct(c *gin.Context) {
	archived, err := h.svc.Products.Discontinue(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Product moved to discontinued products", archived)
}

func (h *Handler) listDiscontinued(c *gin.Context) {
	products, err := h.svc.Products.ListDiscontinued(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", products)
}

func (h *Handler) getDiscontinued(c *gin.Context) {
	product, err := h.svc.Products.GetDiscontinued(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", product)
}

func (h *Handler) deleteDiscontinued(c *gin.Context) {
	if err := h.svc.Products.DeleteDiscontinued(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Discontinued product deleted", nil)
}

func (h *Handler) restoreProduct(c *gin.Context) {
	product, err := h.svc.Products.Restore(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Product restored successfully", product)
}
