package handler

import (
	"net/http"

	"yamdb/internal/http-api/dto"
	"yamdb/internal/http-api/middleware"
	"yamdb/internal/http-api/permission"
	"yamdb/internal/http-api/service"

	"github.com/gin-gonic/gin"
)

type CommentHandler struct {
	commentService service.CommentService
	pageSize       int
}

func NewCommentHandler(commentService service.CommentService, pageSize int) *CommentHandler {
	return &CommentHandler{commentService: commentService, pageSize: pageSize}
}

// RegisterRoutes registers comment routes nested under a review
func (h *CommentHandler) RegisterRoutes(router *gin.RouterGroup) {
	comments := router.Group("/titles/:title_id/reviews/:review_id/comments", middleware.RequirePolicy(permission.ContentWrite))
	{
		comments.GET("/", h.List)
		comments.POST("/", h.Create)
		comments.GET("/:comment_id/", h.Get)
		comments.PATCH("/:comment_id/", h.Update)
		comments.DELETE("/:comment_id/", h.Delete)
	}
}

// commentPath extracts the ids of the review a comment hangs off.
func commentPath(c *gin.Context) (titleID, reviewID int64, ok bool) {
	if titleID, ok = parseID(c, "title_id"); !ok {
		return
	}
	reviewID, ok = parseID(c, "review_id")
	return
}

// GET /v1/titles/:title_id/reviews/:review_id/comments/
func (h *CommentHandler) List(c *gin.Context) {
	titleID, reviewID, ok := commentPath(c)
	if !ok {
		return
	}
	p, ok := bindPage(c, h.pageSize)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	comments, total, err := h.commentService.List(ctx, titleID, reviewID, p.Page, p.PageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	data := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		data = append(data, dto.FromModelToCommentResponse(&comments[i]))
	}
	c.JSON(http.StatusOK, dto.NewPage(data, total, p.Page, p.PageSize))
}

// GET /v1/titles/:title_id/reviews/:review_id/comments/:comment_id/
func (h *CommentHandler) Get(c *gin.Context) {
	titleID, reviewID, ok := commentPath(c)
	if !ok {
		return
	}
	commentID, ok := parseID(c, "comment_id")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	comment, err := h.commentService.Get(ctx, titleID, reviewID, commentID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromModelToCommentResponse(comment))
}

// Create creates a new comment on a review
// POST /v1/titles/:title_id/reviews/:review_id/comments/
func (h *CommentHandler) Create(c *gin.Context) {
	titleID, reviewID, ok := commentPath(c)
	if !ok {
		return
	}
	var req dto.CreateCommentDTO
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	comment, err := h.commentService.Create(ctx, middleware.CurrentCaller(c), titleID, reviewID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromModelToCommentResponse(comment))
}

// Update edits a comment (author or staff)
// PATCH /v1/titles/:title_id/reviews/:review_id/comments/:comment_id/
func (h *CommentHandler) Update(c *gin.Context) {
	titleID, reviewID, ok := commentPath(c)
	if !ok {
		return
	}
	commentID, ok := parseID(c, "comment_id")
	if !ok {
		return
	}
	var req dto.PatchCommentDTO
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	comment, err := h.commentService.Update(ctx, middleware.CurrentCaller(c), titleID, reviewID, commentID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromModelToCommentResponse(comment))
}

// Delete deletes a comment (author or staff)
// DELETE /v1/titles/:title_id/reviews/:review_id/comments/:comment_id/
func (h *CommentHandler) Delete(c *gin.Context) {
	titleID, reviewID, ok := commentPath(c)
	if !ok {
		return
	}
	commentID, ok := parseID(c, "comment_id")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.commentService.Delete(ctx, middleware.CurrentCaller(c), titleID, reviewID, commentID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
