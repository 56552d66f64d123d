package service

import (
	"context"
	"errors"
	"fmt"

	"yamdb/internal/http-api/dto"
	"yamdb/internal/http-api/models"
	"yamdb/internal/http-api/permission"
	"yamdb/internal/http-api/repository"

	"gorm.io/gorm"
)

type UserService interface {
	Me(ctx context.Context, caller *permission.Caller) (*models.User, error)
	UpdateMe(ctx context.Context, caller *permission.Caller, patch dto.PatchUserRequest) (*models.User, error)
	List(ctx context.Context, search string, page, pageSize int) ([]models.User, int64, error)
	Create(ctx context.Context, req dto.CreateUserRequest) (*models.User, error)
	Get(ctx context.Context, username string) (*models.User, error)
	Update(ctx context.Context, username string, patch dto.PatchUserRequest) (*models.User, error)
	Delete(ctx context.Context, username string) error
}

type userService struct {
	users repository.UserRepository
}

func NewUserService(users repository.UserRepository) UserService {
	return &userService{users: users}
}

func (s *userService) Me(ctx context.Context, caller *permission.Caller) (*models.User, error) {
	if !caller.Authenticated() {
		return nil, ErrUnauthorized
	}
	user, err := s.users.FindByID(ctx, caller.ID)
	if err != nil {
		return nil, notFoundOr(err, "user")
	}
	return user, nil
}

// UpdateMe applies a self-service edit. Plain users cannot change their
// own role; the field is dropped rather than rejected.
func (s *userService) UpdateMe(ctx context.Context, caller *permission.Caller, patch dto.PatchUserRequest) (*models.User, error) {
	user, err := s.Me(ctx, caller)
	if err != nil {
		return nil, err
	}
	if user.IsUser() {
		patch = patch.WithoutRole()
	}
	return s.apply(ctx, user, patch)
}

func (s *userService) List(ctx context.Context, search string, page, pageSize int) ([]models.User, int64, error) {
	return s.users.List(ctx, search, page, pageSize)
}

func (s *userService) Create(ctx context.Context, req dto.CreateUserRequest) (*models.User, error) {
	user := &models.User{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Bio:       req.Bio,
		Role:      models.RoleUser,
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if err := s.checkIdentity(ctx, user); err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyTaken
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) Get(ctx context.Context, username string) (*models.User, error) {
	if username == ReservedUsername {
		return nil, NotFound("user")
	}
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, notFoundOr(err, "user")
	}
	return user, nil
}

func (s *userService) Update(ctx context.Context, username string, patch dto.PatchUserRequest) (*models.User, error) {
	user, err := s.Get(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, user, patch)
}

func (s *userService) Delete(ctx context.Context, username string) error {
	user, err := s.Get(ctx, username)
	if err != nil {
		return err
	}
	return notFoundOr(s.users.Delete(ctx, user.ID), "user")
}

func (s *userService) apply(ctx context.Context, user *models.User, patch dto.PatchUserRequest) (*models.User, error) {
	updated := *user
	patch.ApplyTo(&updated)
	if err := s.checkIdentity(ctx, &updated); err != nil {
		return nil, err
	}
	if err := s.users.Update(ctx, &updated); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyTaken
		}
		return nil, err
	}
	return &updated, nil
}

// checkIdentity validates the reserved name and username/email uniqueness
// against other accounts.
func (s *userService) checkIdentity(ctx context.Context, u *models.User) error {
	fields := map[string]string{}
	if u.Username == ReservedUsername {
		fields["username"] = fmt.Sprintf("username %q is reserved", ReservedUsername)
	} else if other, err := s.users.FindByUsername(ctx, u.Username); err == nil && other.ID != u.ID {
		fields["username"] = "a user with this username already exists"
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if other, err := s.users.FindByEmail(ctx, u.Email); err == nil && other.ID != u.ID {
		fields["email"] = "a user with this email already exists"
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// notFoundOr maps gorm.ErrRecordNotFound to a named not-found error.
func notFoundOr(err error, resource string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFound(resource)
	}
	return err
}
