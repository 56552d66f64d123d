package handler

import (
	"net/http"

	"yamdb/internal/http-api/dto"
	"yamdb/internal/http-api/middleware"
	"yamdb/internal/http-api/permission"
	"yamdb/internal/http-api/service"

	"github.com/gin-gonic/gin"
)

type CategoryHandler struct {
	categoryService service.CategoryService
	pageSize        int
}

func NewCategoryHandler(categoryService service.CategoryService, pageSize int) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService, pageSize: pageSize}
}

func (h *CategoryHandler) RegisterRoutes(router *gin.RouterGroup) {
	categories := router.Group("/categories", middleware.RequirePolicy(permission.CatalogWrite))
	{
		categories.GET("/", h.List)
		categories.POST("/", h.Create)
		categories.DELETE("/:slug/", h.Delete)
	}
}

// GET /v1/categories/
func (h *CategoryHandler) List(c *gin.Context) {
	p, ok := bindPage(c, h.pageSize)
	if !ok {
		return
	}
	var q dto.SearchQuery
	if !bindQuery(c, &q) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	categories, total, err := h.categoryService.List(ctx, q.Search, p.Page, p.PageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	data := make([]dto.CategoryResponse, 0, len(categories))
	for _, category := range categories {
		data = append(data, dto.CategoryFromModel(category))
	}
	c.JSON(http.StatusOK, dto.NewPage(data, total, p.Page, p.PageSize))
}

// POST /v1/categories/
func (h *CategoryHandler) Create(c *gin.Context) {
	var req dto.CreateCategoryDTO
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	category, err := h.categoryService.Create(ctx, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.CategoryFromModel(*category))
}

// DELETE /v1/categories/:slug/
func (h *CategoryHandler) Delete(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.categoryService.Delete(ctx, c.Param("slug")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
