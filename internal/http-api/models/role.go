package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// Role is the closed set of account roles. The zero value is not a valid role.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// ErrInvalidRole is wrapped by every role parsing failure.
var ErrInvalidRole = errors.New("invalid role")

// Roles lists every valid role in ascending privilege order.
var Roles = []Role{RoleUser, RoleModerator, RoleAdmin}

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w %q", ErrInvalidRole, s)
	}
	return r, nil
}

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

// UnmarshalJSON rejects anything outside the enumeration.
func (r *Role) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: must be a string", ErrInvalidRole)
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Value implements driver.Valuer.
func (r Role) Value() (driver.Value, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w %q", ErrInvalidRole, string(r))
	}
	return string(r), nil
}

// Scan implements sql.Scanner.
func (r *Role) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("cannot scan %T into Role", src)
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
