package handler

import (
	"net/http"

	"yamdb/internal/http-api/dto"
	"yamdb/internal/http-api/middleware"
	"yamdb/internal/http-api/permission"
	"yamdb/internal/http-api/service"

	"github.com/gin-gonic/gin"
)

type TitleHandler struct {
	titleService service.TitleService
	pageSize     int
}

func NewTitleHandler(titleService service.TitleService, pageSize int) *TitleHandler {
	return &TitleHandler{titleService: titleService, pageSize: pageSize}
}

func (h *TitleHandler) RegisterRoutes(router *gin.RouterGroup) {
	titles := router.Group("/titles", middleware.RequirePolicy(permission.CatalogWrite))
	{
		titles.GET("/", h.List)
		titles.POST("/", h.Create)
		titles.GET("/:title_id/", h.Get)
		titles.PATCH("/:title_id/", h.Update)
		titles.DELETE("/:title_id/", h.Delete)
	}
}

// List supports ?genre=&category=&year=&name= filters
// GET /v1/titles/
func (h *TitleHandler) List(c *gin.Context) {
	p, ok := bindPage(c, h.pageSize)
	if !ok {
		return
	}
	var filter dto.TitleFilter
	if !bindQuery(c, &filter) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	titles, total, err := h.titleService.List(ctx, filter, p.Page, p.PageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	data := make([]dto.TitleReadResponse, 0, len(titles))
	for _, title := range titles {
		data = append(data, dto.FromModelToTitleRead(title))
	}
	c.JSON(http.StatusOK, dto.NewPage(data, total, p.Page, p.PageSize))
}

// GET /v1/titles/:title_id/
func (h *TitleHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "title_id")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	title, err := h.titleService.Get(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromModelToTitleRead(*title))
}

// POST /v1/titles/
func (h *TitleHandler) Create(c *gin.Context) {
	var req dto.CreateTitleDTO
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	title, err := h.titleService.Create(ctx, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromModelToTitleWrite(*title))
}

// PATCH /v1/titles/:title_id/
func (h *TitleHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "title_id")
	if !ok {
		return
	}
	var req dto.PatchTitleDTO
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	title, err := h.titleService.Update(ctx, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromModelToTitleWrite(*title))
}

// DELETE /v1/titles/:title_id/
func (h *TitleHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "title_id")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.titleService.Delete(ctx, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
