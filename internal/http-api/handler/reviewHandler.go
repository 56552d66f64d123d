package handler

import (
	"net/http"

	"yamdb/internal/http-api/dto"
	"yamdb/internal/http-api/middleware"
	"yamdb/internal/http-api/permission"
	"yamdb/internal/http-api/service"

	"github.com/gin-gonic/gin"
)

type ReviewHandler struct {
	reviewService service.ReviewService
	pageSize      int
}

func NewReviewHandler(reviewService service.ReviewService, pageSize int) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService, pageSize: pageSize}
}

// RegisterRoutes registers review routes nested under a title
func (h *ReviewHandler) RegisterRoutes(router *gin.RouterGroup) {
	reviews := router.Group("/titles/:title_id/reviews", middleware.RequirePolicy(permission.ContentWrite))
	{
		reviews.GET("/", h.List)
		reviews.POST("/", h.Create)
		reviews.GET("/:review_id/", h.Get)
		reviews.PATCH("/:review_id/", h.Update)
		reviews.DELETE("/:review_id/", h.Delete)
	}
}

// GET /v1/titles/:title_id/reviews/
func (h *ReviewHandler) List(c *gin.Context) {
	titleID, ok := parseID(c, "title_id")
	if !ok {
		return
	}
	p, ok := bindPage(c, h.pageSize)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	reviews, total, err := h.reviewService.List(ctx, titleID, p.Page, p.PageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	data := make([]dto.ReviewResponse, 0, len(reviews))
	for i := range reviews {
		data = append(data, dto.FromModelToReviewResponse(&reviews[i]))
	}
	c.JSON(http.StatusOK, dto.NewPage(data, total, p.Page, p.PageSize))
}

// GET /v1/titles/:title_id/reviews/:review_id/
func (h *ReviewHandler) Get(c *gin.Context) {
	titleID, ok := parseID(c, "title_id")
	if !ok {
		return
	}
	reviewID, ok := parseID(c, "review_id")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	review, err := h.reviewService.Get(ctx, titleID, reviewID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromModelToReviewResponse(review))
}

// POST /v1/titles/:title_id/reviews/
func (h *ReviewHandler) Create(c *gin.Context) {
	titleID, ok := parseID(c, "title_id")
	if !ok {
		return
	}
	var req dto.CreateReviewDTO
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	review, err := h.reviewService.Create(ctx, middleware.CurrentCaller(c), titleID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromModelToReviewResponse(review))
}

// PATCH /v1/titles/:title_id/reviews/:review_id/
func (h *ReviewHandler) Update(c *gin.Context) {
	titleID, ok := parseID(c, "title_id")
	if !ok {
		return
	}
	reviewID, ok := parseID(c, "review_id")
	if !ok {
		return
	}
	var req dto.PatchReviewDTO
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	review, err := h.reviewService.Update(ctx, middleware.CurrentCaller(c), titleID, reviewID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromModelToReviewResponse(review))
}

// DELETE /v1/titles/:title_id/reviews/:review_id/
func (h *ReviewHandler) Delete(c *gin.Context) {
	titleID, ok := parseID(c, "title_id")
	if !ok {
		return
	}
	reviewID, ok := parseID(c, "review_id")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.reviewService.Delete(ctx, middleware.CurrentCaller(c), titleID, reviewID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
