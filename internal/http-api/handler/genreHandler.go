package handler

import (
	"net/http"

	"yamdb/internal/http-api/dto"
	"yamdb/internal/http-api/middleware"
	"yamdb/internal/http-api/permission"
	"yamdb/internal/http-api/service"

	"github.com/gin-gonic/gin"
)

type GenreHandler struct {
	genreService service.GenreService
	pageSize     int
}

func NewGenreHandler(genreService service.GenreService, pageSize int) *GenreHandler {
	return &GenreHandler{genreService: genreService, pageSize: pageSize}
}

func (h *GenreHandler) RegisterRoutes(router *gin.RouterGroup) {
	genres := router.Group("/genres", middleware.RequirePolicy(permission.CatalogWrite))
	{
		genres.GET("/", h.List)
		genres.POST("/", h.Create)
		genres.DELETE("/:slug/", h.Delete)
	}
}

// GET /v1/genres/
func (h *GenreHandler) List(c *gin.Context) {
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

	genres, total, err := h.genreService.List(ctx, q.Search, p.Page, p.PageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	data := make([]dto.GenreResponse, 0, len(genres))
	for _, genre := range genres {
		data = append(data, dto.GenreFromModel(genre))
	}
	c.JSON(http.StatusOK, dto.NewPage(data, total, p.Page, p.PageSize))
}

// POST /v1/genres/
func (h *GenreHandler) Create(c *gin.Context) {
	var req dto.CreateGenreDTO
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	genre, err := h.genreService.Create(ctx, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.GenreFromModel(*genre))
}

// DELETE /v1/genres/:slug/
func (h *GenreHandler) Delete(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.genreService.Delete(ctx, c.Param("slug")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
