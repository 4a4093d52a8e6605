package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pakolx/market/internal/models"
	"pakolx/market/internal/services"
)

// RestCategoryHandler serves the ad taxonomy.
type RestCategoryHandler struct {
	categoryService services.ICategoryService
}

// NewRestCategoryHandler creates a new RestCategoryHandler.
func NewRestCategoryHandler(categoryService services.ICategoryService) *RestCategoryHandler {
	return &RestCategoryHandler{categoryService: categoryService}
}

// List handles GET /v1/categories
func (h *RestCategoryHandler) List(c *gin.Context) {
	categories, err := h.categoryService.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": categories})
}

// GetBySlug handles GET /v1/categories/:slug
func (h *RestCategoryHandler) GetBySlug(c *gin.Context) {
	category, err := h.categoryService.FindBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

type createCategoryBody struct {
	services.CategoryInput
	SubCategories []models.SubCategory `json:"sub_categories"`
}

// Create handles POST /v1/admin/categories
func (h *RestCategoryHandler) Create(c *gin.Context) {
	var body createCategoryBody
	if !bindJSON(c, &body) {
		return
	}
	category, err := h.categoryService.Create(c.Request.Context(), body.CategoryInput, body.SubCategories)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

// Update handles PUT /v1/admin/categories/:id
func (h *RestCategoryHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in services.CategoryInput
	if !bindJSON(c, &in) {
		return
	}
	category, err := h.categoryService.Update(c.Request.Context(), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

// Delete handles DELETE /v1/admin/categories/:id
func (h *RestCategoryHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.categoryService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddSubCategory handles POST /v1/admin/categories/:id/subcategories
func (h *RestCategoryHandler) AddSubCategory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var body models.SubCategory
	if !bindJSON(c, &body) {
		return
	}
	category, err := h.categoryService.AddSubCategory(c.Request.Context(), id, body.Name, body.Slug)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

// RemoveSubCategory handles DELETE /v1/admin/categories/:id/subcategories/:slug
func (h *RestCategoryHandler) RemoveSubCategory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	category, err := h.categoryService.RemoveSubCategory(c.Request.Context(), id, c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}
