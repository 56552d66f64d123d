// Package permission holds the request authorization rules. Policies are pure
// predicates over the caller and, for object checks, the object's author.
package permission

import (
	"net/http"

	"yamdb/internal/http-api/models"
)

// Caller is the authenticated principal of a request. A nil *Caller is an
// anonymous request.
type Caller struct {
	ID          int64
	Username    string
	Role        models.Role
	IsSuperuser bool
}

// FromUser builds a Caller; a nil user yields an anonymous (nil) caller.
func FromUser(u *models.User) *Caller {
	if u == nil {
		return nil
	}
	return &Caller{ID: u.ID, Username: u.Username, Role: u.Role, IsSuperuser: u.IsSuperuser}
}

func (c *Caller) Authenticated() bool {
	return c != nil
}

// IsAdmin reports admin role or the superuser flag.
func (c *Caller) IsAdmin() bool {
	if c == nil {
		return false
	}
	return c.IsSuperuser || c.Role == models.RoleAdmin
}

// IsStaff reports moderator, admin or superuser.
func (c *Caller) IsStaff() bool {
	if c == nil {
		return false
	}
	if c.IsSuperuser {
		return true
	}
	switch c.Role {
	case models.RoleModerator, models.RoleAdmin:
		return true
	case models.RoleUser:
		return false
	}
	return false
}

// Policy is one authorization rule. HasPermission runs before the handler;
// HasObjectPermission runs once the target object has been loaded.
type Policy interface {
	HasPermission(caller *Caller, method string) bool
	HasObjectPermission(caller *Caller, method string, authorID int64) bool
}

func IsSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

type catalogWrite struct{}

// CatalogWrite lets anyone read and only admins or superusers write.
var CatalogWrite Policy = catalogWrite{}

func (catalogWrite) HasPermission(c *Caller, method string) bool {
	if IsSafeMethod(method) {
		return true
	}
	return c.IsAdmin()
}

func (p catalogWrite) HasObjectPermission(c *Caller, method string, _ int64) bool {
	return p.HasPermission(c, method)
}

type contentWrite struct{}

// ContentWrite lets anyone read, any authenticated caller create, and only the
// author or staff modify. Anything not listed is denied.
var ContentWrite Policy = contentWrite{}

func (contentWrite) HasPermission(c *Caller, method string) bool {
	if method == http.MethodPost {
		return c.Authenticated()
	}
	return true
}

func (contentWrite) HasObjectPermission(c *Caller, method string, authorID int64) bool {
	if IsSafeMethod(method) {
		return true
	}
	if method != http.MethodPatch && method != http.MethodDelete {
		return false
	}
	if !c.Authenticated() {
		return false
	}
	return c.ID == authorID || c.IsStaff()
}

type adminOnly struct{}

// AdminOnly requires an admin or superuser for every method.
var AdminOnly Policy = adminOnly{}

func (adminOnly) HasPermission(c *Caller, _ string) bool {
	return c.IsAdmin()
}

func (adminOnly) HasObjectPermission(c *Caller, _ string, _ int64) bool {
	return c.IsAdmin()
}

type authenticated struct{}

// Authenticated only requires a caller; used by the self-service profile.
var Authenticated Policy = authenticated{}

func (authenticated) HasPermission(c *Caller, _ string) bool {
	return c.Authenticated()
}

func (authenticated) HasObjectPermission(c *Caller, _ string, _ int64) bool {
	return c.Authenticated()
}
