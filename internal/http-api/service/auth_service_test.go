package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"yamdb/internal/http-api/models"
	"yamdb/internal/mailer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type authFixture struct {
	users  *MockUserRepository
	mail   *MockMailer
	codes  *CodeGenerator
	tokens *TokenIssuer
	svc    AuthService
}

func newAuthFixture() *authFixture {
	f := &authFixture{
		users:  new(MockUserRepository),
		mail:   new(MockMailer),
		codes:  NewCodeGenerator(testSecret, 72*time.Hour),
		tokens: newTestTokens(),
	}
	f.svc = NewAuthService(f.users, f.codes, f.tokens, f.mail, "noreply@yamdb.local", slog.New(slog.DiscardHandler))
	return f
}

func TestSignup_NewUser(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	f.users.On("FindByUsername", ctx, "alice").Return(nil, gorm.ErrRecordNotFound)
	f.users.On("FindByEmail", ctx, "alice@example.com").Return(nil, gorm.ErrRecordNotFound)
	f.users.On("Create", ctx, mock.AnythingOfType("*models.User")).
		Run(func(args mock.Arguments) { args.Get(1).(*models.User).ID = 1 }).
		Return(nil)
	f.users.On("SetConfirmationCode", ctx, int64(1), mock.AnythingOfType("string")).Return(nil)
	f.mail.On("Send", ctx, mock.MatchedBy(func(m mailer.Message) bool {
		return len(m.To) == 1 && m.To[0] == "alice@example.com"
	})).Return(nil)

	user, err := f.svc.Signup(ctx, "alice", "alice@example.com")

	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.True(t, f.codes.Check(user, user.ConfirmationCode))
	f.users.AssertExpectations(t)
	f.mail.AssertExpectations(t)
}

func TestSignup_ExistingUsernameResendsStoredCode(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	existing := &models.User{ID: 1, Username: "alice", Email: "alice@example.com", ConfirmationCode: "stored-code"}

	f.users.On("FindByUsername", ctx, "alice").Return(existing, nil)
	f.mail.On("Send", ctx, mock.MatchedBy(func(m mailer.Message) bool {
		return m.To[0] == "alice@example.com" && m.Body == "Your confirmation code: stored-code"
	})).Return(nil)

	user, err := f.svc.Signup(ctx, "alice", "attacker@example.com")

	assert.ErrorIs(t, err, ErrCodeResent)
	assert.Nil(t, user)
	f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.mail.AssertExpectations(t)
}

func TestSignup_ReservedUsername(t *testing.T) {
	f := newAuthFixture()

	_, err := f.svc.Signup(context.Background(), "me", "me@example.com")

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "username")
	f.users.AssertNotCalled(t, "FindByUsername", mock.Anything, mock.Anything)
}

func TestSignup_ResendIgnoresEmail(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	existing := &models.User{ID: 1, Username: "alice", Email: "alice@example.com", ConfirmationCode: "stored-code"}

	f.users.On("FindByUsername", ctx, "alice").Return(existing, nil)
	f.mail.On("Send", ctx, mock.Anything).Return(nil)

	for _, email := range []string{"", "not-an-email"} {
		_, err := f.svc.Signup(ctx, "alice", email)
		assert.ErrorIs(t, err, ErrCodeResent)
	}
	f.mail.AssertNumberOfCalls(t, "Send", 2)
}

func TestSignup_NewUserNeedsValidEmail(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	f.users.On("FindByUsername", ctx, "bob").Return(nil, gorm.ErrRecordNotFound)

	for _, email := range []string{"", "nope", strings.Repeat("a", 250) + "@example.com"} {
		_, err := f.svc.Signup(ctx, "bob", email)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr, email)
		assert.Contains(t, verr.Fields, "email")
	}
	f.users.AssertNotCalled(t, "FindByEmail", mock.Anything, mock.Anything)
	f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.mail.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestSignup_EmailTaken(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	f.users.On("FindByUsername", ctx, "bob").Return(nil, gorm.ErrRecordNotFound)
	f.users.On("FindByEmail", ctx, "alice@example.com").Return(&models.User{ID: 1}, nil)

	_, err := f.svc.Signup(ctx, "bob", "alice@example.com")

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "email")
}

func TestSignup_InsertRace(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	f.users.On("FindByUsername", ctx, "alice").Return(nil, gorm.ErrRecordNotFound)
	f.users.On("FindByEmail", ctx, "alice@example.com").Return(nil, gorm.ErrRecordNotFound)
	f.users.On("Create", ctx, mock.Anything).Return(gorm.ErrDuplicatedKey)

	_, err := f.svc.Signup(ctx, "alice", "alice@example.com")

	assert.ErrorIs(t, err, ErrAlreadyTaken)
	f.mail.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestSignup_MailFailure(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	f.users.On("FindByUsername", ctx, "alice").Return(nil, gorm.ErrRecordNotFound)
	f.users.On("FindByEmail", ctx, "alice@example.com").Return(nil, gorm.ErrRecordNotFound)
	f.users.On("Create", ctx, mock.Anything).Return(nil)
	f.users.On("SetConfirmationCode", ctx, mock.Anything, mock.Anything).Return(nil)
	f.mail.On("Send", ctx, mock.Anything).Return(errors.New("smtp down"))

	_, err := f.svc.Signup(ctx, "alice", "alice@example.com")

	assert.ErrorContains(t, err, "smtp down")
}

func TestObtainToken(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	user := &models.User{ID: 3, Username: "alice", Email: "alice@example.com", Role: models.RoleUser}
	code, err := f.codes.Make(user)
	require.NoError(t, err)
	user.ConfirmationCode = code

	f.users.On("FindByUsername", ctx, "alice").Return(user, nil)
	f.users.On("FindByUsername", ctx, "ghost").Return(nil, gorm.ErrRecordNotFound)

	access, refresh, err := f.svc.ObtainToken(ctx, "alice", code)
	require.NoError(t, err)
	claims, err := f.tokens.Parse(access, TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, int64(3), claims.UserID)
	assert.NotEmpty(t, refresh)

	_, _, err = f.svc.ObtainToken(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCode)

	_, _, err = f.svc.ObtainToken(ctx, "ghost", code)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRefreshAndAuthenticate(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()
	user := &models.User{ID: 5, Username: "alice", Role: models.RoleUser}
	access, refresh, err := f.tokens.IssuePair(user)
	require.NoError(t, err)

	f.users.On("FindByID", ctx, int64(5)).Return(user, nil).Once()
	newAccess, err := f.svc.Refresh(ctx, refresh)
	require.NoError(t, err)
	_, err = f.tokens.Parse(newAccess, TokenTypeAccess)
	assert.NoError(t, err)

	_, err = f.svc.Refresh(ctx, access)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// deleted accounts lose access immediately
	f.users.On("FindByID", ctx, int64(5)).Return(nil, gorm.ErrRecordNotFound)
	_, err = f.svc.Authenticate(ctx, access)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
