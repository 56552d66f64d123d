package middleware

import (
	"errors"
	"net/http"
	"strings"

	"yamdb/internal/http-api/dto"
	"yamdb/internal/http-api/permission"
	"yamdb/internal/http-api/service"

	"github.com/gin-gonic/gin"
)

const callerKey = "caller"

// Authenticate resolves an optional bearer token. Requests without an
// Authorization header continue anonymously; a bad token is rejected.
func Authenticate(authService service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		// Extract token (format: "Bearer <token>")
		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abort(c, http.StatusUnauthorized, "unauthorized", "invalid authorization header format")
			return
		}

		user, err := authService.Authenticate(c.Request.Context(), parts[1])
		if err != nil {
			if errors.Is(err, service.ErrInvalidToken) {
				abort(c, http.StatusUnauthorized, "unauthorized", "invalid token")
				return
			}
			c.Error(err)
			abort(c, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}

		c.Set(callerKey, permission.FromUser(user))
		c.Next()
	}
}

// CurrentCaller returns the request's caller, nil when anonymous.
func CurrentCaller(c *gin.Context) *permission.Caller {
	if v, ok := c.Get(callerKey); ok {
		if caller, ok := v.(*permission.Caller); ok {
			return caller
		}
	}
	return nil
}

// RequirePolicy applies the request-level check of p. Anonymous callers
// get 401, authenticated ones 403.
func RequirePolicy(p permission.Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := CurrentCaller(c)
		if p.HasPermission(caller, c.Request.Method) {
			c.Next()
			return
		}
		if !caller.Authenticated() {
			abort(c, http.StatusUnauthorized, "unauthorized", service.ErrUnauthorized.Error())
			return
		}
		abort(c, http.StatusForbidden, "forbidden", service.ErrForbidden.Error())
	}
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, dto.ErrorResponse{Error: code, Message: message})
}
