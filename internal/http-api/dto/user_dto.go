package dto

import (
	"encoding/json"

	"yamdb/internal/http-api/models"
)

// CreateUserRequest is used by admins on POST /v1/users/
type CreateUserRequest struct {
	Username  string       `json:"username" binding:"required,max=150,slug"`
	Email     string       `json:"email" binding:"required,email,max=254"`
	FirstName string       `json:"first_name" binding:"max=150"`
	LastName  string       `json:"last_name" binding:"max=150"`
	Bio       string       `json:"bio"`
	Role      *models.Role `json:"role" binding:"omitempty,role"`
}

// PatchUserRequest is a partial update; nil fields are left untouched.
type PatchUserRequest struct {
	Username  *string      `json:"username" binding:"omitempty,max=150,slug"`
	Email     *string      `json:"email" binding:"omitempty,email,max=254"`
	FirstName *string      `json:"first_name" binding:"omitempty,max=150"`
	LastName  *string      `json:"last_name" binding:"omitempty,max=150"`
	Bio       *string      `json:"bio"`
	Role      *models.Role `json:"role" binding:"omitempty,role"`
}

// UpdateMeRequest is the PATCH /v1/users/me/ body. Role is kept raw: plain
// users have it dropped unread, staff have it parsed by Patch.
type UpdateMeRequest struct {
	Username  *string         `json:"username" binding:"omitempty,max=150,slug"`
	Email     *string         `json:"email" binding:"omitempty,email,max=254"`
	FirstName *string         `json:"first_name" binding:"omitempty,max=150"`
	LastName  *string         `json:"last_name" binding:"omitempty,max=150"`
	Bio       *string         `json:"bio"`
	Role      json.RawMessage `json:"role"`
}

// Patch converts the body into a PatchUserRequest. The role is ignored
// unless keepRole is set; a kept role must be a known role string.
func (r UpdateMeRequest) Patch(keepRole bool) (PatchUserRequest, error) {
	p := PatchUserRequest{
		Username:  r.Username,
		Email:     r.Email,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Bio:       r.Bio,
	}
	if !keepRole || len(r.Role) == 0 || string(r.Role) == "null" {
		return p, nil
	}
	var role models.Role
	if err := json.Unmarshal(r.Role, &role); err != nil {
		return p, err
	}
	p.Role = &role
	return p, nil
}

// WithoutRole returns a copy with the role change dropped.
func (p PatchUserRequest) WithoutRole() PatchUserRequest {
	p.Role = nil
	return p
}

// ApplyTo merges the set fields into u.
func (p PatchUserRequest) ApplyTo(u *models.User) {
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
}

type UserResponse struct {
	Username  string      `json:"username"`
	Email     string      `json:"email"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	Bio       string      `json:"bio"`
	Role      models.Role `json:"role"`
}

func FromModelToUserResponse(u *models.User) UserResponse {
	return UserResponse{
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Bio:       u.Bio,
		Role:      u.Role,
	}
}
