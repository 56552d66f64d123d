package handler

import (
	"net/http"

	"yamdb/internal/http-api/dto"
	"yamdb/internal/http-api/middleware"
	"yamdb/internal/http-api/models"
	"yamdb/internal/http-api/permission"
	"yamdb/internal/http-api/service"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userService service.UserService
	pageSize    int
}

func NewUserHandler(userService service.UserService, pageSize int) *UserHandler {
	return &UserHandler{userService: userService, pageSize: pageSize}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	users := router.Group("/users")
	{
		// self-service
		self := middleware.RequirePolicy(permission.Authenticated)
		users.GET("/me/", self, h.Me)
		users.PATCH("/me/", self, h.UpdateMe)

		admin := middleware.RequirePolicy(permission.AdminOnly)
		users.GET("/", admin, h.List)
		users.POST("/", admin, h.Create)
		users.GET("/:username/", admin, h.Get)
		users.PATCH("/:username/", admin, h.Update)
		users.DELETE("/:username/", admin, h.Delete)
	}
}

func userPage(users []models.User, total int64, p dto.Pagination) dto.Page[dto.UserResponse] {
	data := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		data = append(data, dto.FromModelToUserResponse(&users[i]))
	}
	return dto.NewPage(data, total, p.Page, p.PageSize)
}

// Me returns the caller's own profile
// GET /v1/users/me/
func (h *UserHandler) Me(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.userService.Me(ctx, middleware.CurrentCaller(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromModelToUserResponse(user))
}

// UpdateMe edits the caller's own profile
// PATCH /v1/users/me/
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req dto.UpdateMeRequest
	if !bindJSON(c, &req) {
		return
	}

	// plain users cannot change their role; whatever they sent is dropped
	caller := middleware.CurrentCaller(c)
	patch, err := req.Patch(caller.Authenticated() && caller.Role != models.RoleUser)
	if err != nil {
		respondError(c, bindError(err))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.userService.UpdateMe(ctx, caller, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromModelToUserResponse(user))
}

// List returns users, optionally filtered by ?search=
// GET /v1/users/
func (h *UserHandler) List(c *gin.Context) {
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

	users, total, err := h.userService.List(ctx, q.Search, p.Page, p.PageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, userPage(users, total, p))
}

// Create adds a user on behalf of an admin
// POST /v1/users/
func (h *UserHandler) Create(c *gin.Context) {
	var req dto.CreateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.userService.Create(ctx, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromModelToUserResponse(user))
}

// GET /v1/users/:username/
func (h *UserHandler) Get(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.userService.Get(ctx, c.Param("username"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromModelToUserResponse(user))
}

// PATCH /v1/users/:username/
func (h *UserHandler) Update(c *gin.Context) {
	var req dto.PatchUserRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.userService.Update(ctx, c.Param("username"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromModelToUserResponse(user))
}

// DELETE /v1/users/:username/
func (h *UserHandler) Delete(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.userService.Delete(ctx, c.Param("username")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
