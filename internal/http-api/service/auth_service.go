package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"yamdb/internal/http-api/models"
	"yamdb/internal/http-api/repository"
	"yamdb/internal/mailer"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// ReservedUsername is the path alias of the self-service endpoint.
const ReservedUsername = "me"

var emailValidator = validator.New()

type AuthService interface {
	Signup(ctx context.Context, username, email string) (*models.User, error)
	ObtainToken(ctx context.Context, username, code string) (access, refresh string, err error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Authenticate(ctx context.Context, accessToken string) (*models.User, error)
}

type authService struct {
	users  repository.UserRepository
	codes  *CodeGenerator
	tokens *TokenIssuer
	mail   mailer.Mailer
	from   string
	logger *slog.Logger
}

func NewAuthService(users repository.UserRepository, codes *CodeGenerator, tokens *TokenIssuer, mail mailer.Mailer, from string, logger *slog.Logger) AuthService {
	return &authService{
		users:  users,
		codes:  codes,
		tokens: tokens,
		mail:   mail,
		from:   from,
		logger: logger,
	}
}

// Signup registers a new account and mails it a confirmation code. For an
// existing username the stored code is re-sent to the stored address and
// ErrCodeResent is returned.
func (s *authService) Signup(ctx context.Context, username, email string) (*models.User, error) {
	if username == ReservedUsername {
		return nil, NewValidationError("username", fmt.Sprintf("username %q is reserved", ReservedUsername))
	}

	existing, err := s.users.FindByUsername(ctx, username)
	if err == nil {
		if err := s.sendCode(ctx, existing.Email, existing.ConfirmationCode); err != nil {
			return nil, err
		}
		s.logger.InfoContext(ctx, "Confirmation code resent", "username", existing.Username)
		return nil, ErrCodeResent
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if email == "" {
		return nil, NewValidationError("email", "this field is required")
	}
	if err := emailValidator.Var(email, "email,max=254"); err != nil {
		return nil, NewValidationError("email", "enter a valid email address")
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, NewValidationError("email", "a user with this email already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user := &models.User{
		Username: username,
		Email:    email,
		Role:     models.RoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyTaken
		}
		return nil, err
	}

	code, err := s.codes.Make(user)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetConfirmationCode(ctx, user.ID, code); err != nil {
		return nil, err
	}
	user.ConfirmationCode = code

	if err := s.sendCode(ctx, email, code); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "User signed up", "username", user.Username)
	return user, nil
}

func (s *authService) sendCode(ctx context.Context, to, code string) error {
	err := s.mail.Send(ctx, mailer.Message{
		From:    s.from,
		To:      []string{to},
		Subject: "YaMDb confirmation code",
		Body:    "Your confirmation code: " + code,
	})
	if err != nil {
		return fmt.Errorf("send confirmation code: %w", err)
	}
	return nil
}

// ObtainToken exchanges a confirmation code for a token pair. Codes stay
// valid until they expire or the account changes.
func (s *authService) ObtainToken(ctx context.Context, username, code string) (string, string, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", "", NotFound("user")
		}
		return "", "", err
	}
	if !s.codes.Check(user, code) {
		return "", "", ErrInvalidCode
	}
	return s.tokens.IssuePair(user)
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.tokens.Parse(refreshToken, TokenTypeRefresh)
	if err != nil {
		return "", err
	}
	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrInvalidToken
		}
		return "", err
	}
	return s.tokens.IssueAccess(user)
}

// Authenticate resolves an access token to the current account row.
func (s *authService) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	claims, err := s.tokens.Parse(accessToken, TokenTypeAccess)
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return user, nil
}
