package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	"tinyurl-be/internal/apperrors"
	"tinyurl-be/internal/cache"
	"tinyurl-be/internal/entities"
	"tinyurl-be/internal/logging"
	"tinyurl-be/internal/mailer"
	"tinyurl-be/internal/mocks"
	"tinyurl-be/internal/models"
	"tinyurl-be/internal/oauth"
	"tinyurl-be/internal/repository"
)

type authFixture struct {
	users  *mocks.MockUserRepository
	tokens *mocks.MockTokenService
	resets *mocks.MockCache
	mail   *mocks.MockMailQueue
	svc    AuthService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &authFixture{
		users:  mocks.NewMockUserRepository(ctrl),
		tokens: mocks.NewMockTokenService(ctrl),
		resets: mocks.NewMockCache(ctrl),
		mail:   mocks.NewMockMailQueue(ctrl),
	}
	f.svc = NewAuthService(f.users, f.tokens, f.resets, f.mail, AuthConfig{
		FrontendURL:      "http://localhost:5173",
		ResetTokenExpiry: 15 * time.Minute,
	}, logging.Discard())
	return f
}

func userWithPassword(t *testing.T, password string) *entities.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	h := string(hash)
	refresh := "stored-refresh"
	return &entities.User{
		ID:           uuid.NewString(),
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: &h,
		RefreshToken: &refresh,
	}
}

func statusOf(err error) int {
	return apperrors.From(err).HTTPStatus()
}

func TestAuthService_Register(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	f.users.EXPECT().ExistsByUsernameOrEmail(gomock.Any(), "alice", "alice@example.com").Return(false, nil)
	f.users.EXPECT().Create(gomock.Any(), "alice", "alice@example.com", gomock.Any()).
		DoAndReturn(func(_ context.Context, username, email string, hash *string) (*entities.User, error) {
			require.NotNil(t, hash)
			cost, err := bcrypt.Cost([]byte(*hash))
			require.NoError(t, err)
			assert.Equal(t, 10, cost)
			assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(*hash), []byte("secret123")))
			return &entities.User{ID: "u-1", Username: username, Email: email, PasswordHash: hash}, nil
		})

	user, err := f.svc.Register(ctx, &models.RegisterRequest{
		Username: "  Alice ",
		Email:    "alice@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Nil(t, user.PasswordHash)
	assert.Nil(t, user.RefreshToken)
}

func TestAuthService_Register_MissingFields(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Register(context.Background(), &models.RegisterRequest{Username: "alice", Email: " ", Password: "x"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Equal(t, http.StatusUnauthorized, statusOf(err))
}

func TestAuthService_Register_Duplicate(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	req := &models.RegisterRequest{Username: "bob", Email: "alice@example.com", Password: "secret123"}

	f.users.EXPECT().ExistsByUsernameOrEmail(gomock.Any(), "bob", "alice@example.com").Return(true, nil)
	_, err := f.svc.Register(ctx, req)
	assert.Equal(t, http.StatusConflict, statusOf(err))

	// Lost race between the existence check and the insert
	f.users.EXPECT().ExistsByUsernameOrEmail(gomock.Any(), "bob", "alice@example.com").Return(false, nil)
	f.users.EXPECT().Create(gomock.Any(), "bob", "alice@example.com", gomock.Any()).Return(nil, repository.ErrDuplicate)
	_, err = f.svc.Register(ctx, req)
	assert.Equal(t, http.StatusConflict, statusOf(err))
}

func TestAuthService_Login(t *testing.T) {
	f := newAuthFixture(t)
	user := userWithPassword(t, "secret123")
	pair := &models.TokenPair{AccessToken: "a", RefreshToken: "r"}

	f.users.EXPECT().FindByEmail(gomock.Any(), "alice@example.com").Return(user, nil)
	f.tokens.EXPECT().Issue(gomock.Any(), user.ID).Return(pair, nil)

	result, err := f.svc.Login(context.Background(), &models.LoginRequest{Email: "Alice@Example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, *pair, result.Tokens)
	assert.Equal(t, user.ID, result.User.ID)
	assert.Nil(t, result.User.PasswordHash)
	assert.Nil(t, result.User.RefreshToken)
}

func TestAuthService_Login_Failures(t *testing.T) {
	user := userWithPassword(t, "secret123")
	oauthOnly := &entities.User{ID: uuid.NewString(), Email: "g@example.com"}

	tests := []struct {
		name   string
		req    models.LoginRequest
		setup  func(f *authFixture)
		status int
	}{
		{
			name:   "missing password",
			req:    models.LoginRequest{Email: "alice@example.com"},
			setup:  func(f *authFixture) {},
			status: http.StatusBadRequest,
		},
		{
			name: "unknown email",
			req:  models.LoginRequest{Email: "nobody@example.com", Password: "secret123"},
			setup: func(f *authFixture) {
				f.users.EXPECT().FindByEmail(gomock.Any(), "nobody@example.com").Return(nil, repository.ErrNotFound)
			},
			status: http.StatusNotFound,
		},
		{
			name: "wrong password",
			req:  models.LoginRequest{Email: "alice@example.com", Password: "wrong-password"},
			setup: func(f *authFixture) {
				f.users.EXPECT().FindByEmail(gomock.Any(), "alice@example.com").Return(user, nil)
			},
			status: http.StatusUnauthorized,
		},
		{
			name: "account without password",
			req:  models.LoginRequest{Email: "g@example.com", Password: "anything"},
			setup: func(f *authFixture) {
				f.users.EXPECT().FindByEmail(gomock.Any(), "g@example.com").Return(oauthOnly, nil)
			},
			status: http.StatusUnauthorized,
		},
		{
			name: "store failure",
			req:  models.LoginRequest{Email: "alice@example.com", Password: "secret123"},
			setup: func(f *authFixture) {
				f.users.EXPECT().FindByEmail(gomock.Any(), "alice@example.com").Return(nil, errors.New("db down"))
			},
			status: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t)
			tt.setup(f)

			_, err := f.svc.Login(context.Background(), &tt.req)
			require.Error(t, err)
			assert.Equal(t, tt.status, statusOf(err))
		})
	}
}

func TestAuthService_Logout(t *testing.T) {
	f := newAuthFixture(t)
	f.tokens.EXPECT().Revoke(gomock.Any(), "u-1").Return(nil)

	assert.NoError(t, f.svc.Logout(context.Background(), "u-1"))
}

func TestAuthService_ForgotPassword(t *testing.T) {
	f := newAuthFixture(t)
	user := userWithPassword(t, "secret123")

	var key string
	f.users.EXPECT().FindByEmail(gomock.Any(), "alice@example.com").Return(user, nil)
	f.resets.EXPECT().Set(gomock.Any(), gomock.Any(), user.ID, 15*time.Minute).
		DoAndReturn(func(_ context.Context, k, _ string, _ time.Duration) error {
			key = k
			return nil
		})
	f.mail.EXPECT().Enqueue(gomock.Any()).DoAndReturn(func(msg mailer.Message) bool {
		token := strings.TrimPrefix(key, resetKeyPrefix)
		assert.Len(t, token, resetTokenLength)
		assert.Equal(t, "alice@example.com", msg.To)
		assert.Contains(t, msg.Body, "http://localhost:5173/resetPassword/"+user.ID+"?token=")
		assert.Contains(t, msg.Body, token)
		return true
	})

	require.NoError(t, f.svc.ForgotPassword(context.Background(), "alice@example.com"))
	assert.True(t, strings.HasPrefix(key, resetKeyPrefix))
}

func TestAuthService_ForgotPassword_UnknownEmailIsSilent(t *testing.T) {
	f := newAuthFixture(t)
	f.users.EXPECT().FindByEmail(gomock.Any(), "nobody@example.com").Return(nil, repository.ErrNotFound)

	assert.NoError(t, f.svc.ForgotPassword(context.Background(), "nobody@example.com"))
}

func TestAuthService_ForgotPassword_MissingEmail(t *testing.T) {
	f := newAuthFixture(t)

	err := f.svc.ForgotPassword(context.Background(), "")
	assert.Equal(t, http.StatusUnauthorized, statusOf(err))
}

func TestAuthService_ForgotPassword_QueueFullStillSucceeds(t *testing.T) {
	f := newAuthFixture(t)
	user := userWithPassword(t, "secret123")

	f.users.EXPECT().FindByEmail(gomock.Any(), "alice@example.com").Return(user, nil)
	f.resets.EXPECT().Set(gomock.Any(), gomock.Any(), user.ID, gomock.Any()).Return(nil)
	f.mail.EXPECT().Enqueue(gomock.Any()).Return(false)

	assert.NoError(t, f.svc.ForgotPassword(context.Background(), "alice@example.com"))
}

func TestAuthService_ResetPassword(t *testing.T) {
	f := newAuthFixture(t)
	user := userWithPassword(t, "secret123")

	f.users.EXPECT().FindByID(gomock.Any(), user.ID).Return(user, nil)
	f.resets.EXPECT().Take(gomock.Any(), resetKeyPrefix+"tok").Return(user.ID, nil)
	f.users.EXPECT().UpdatePassword(gomock.Any(), user.ID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, hash string) error {
			assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("new-password")))
			return nil
		})
	f.tokens.EXPECT().Revoke(gomock.Any(), user.ID).Return(nil)

	assert.NoError(t, f.svc.ResetPassword(context.Background(), user.ID, "tok", "new-password"))
}

func TestAuthService_ResetPassword_Rejections(t *testing.T) {
	user := userWithPassword(t, "secret123")

	tests := []struct {
		name     string
		id       string
		token    string
		password string
		setup    func(f *authFixture)
		status   int
	}{
		{
			name:     "short password",
			id:       user.ID,
			token:    "tok",
			password: "short",
			setup:    func(f *authFixture) {},
			status:   http.StatusBadRequest,
		},
		{
			name:     "malformed id",
			id:       "not-a-uuid",
			token:    "tok",
			password: "new-password",
			setup:    func(f *authFixture) {},
			status:   http.StatusNotFound,
		},
		{
			name:     "unknown user",
			id:       user.ID,
			token:    "tok",
			password: "new-password",
			setup: func(f *authFixture) {
				f.users.EXPECT().FindByID(gomock.Any(), user.ID).Return(nil, repository.ErrNotFound)
			},
			status: http.StatusNotFound,
		},
		{
			name:     "missing token",
			id:       user.ID,
			password: "new-password",
			setup: func(f *authFixture) {
				f.users.EXPECT().FindByID(gomock.Any(), user.ID).Return(user, nil)
			},
			status: http.StatusUnauthorized,
		},
		{
			name:     "expired or reused token",
			id:       user.ID,
			token:    "tok",
			password: "new-password",
			setup: func(f *authFixture) {
				f.users.EXPECT().FindByID(gomock.Any(), user.ID).Return(user, nil)
				f.resets.EXPECT().Take(gomock.Any(), resetKeyPrefix+"tok").Return("", cache.ErrKeyNotFound)
			},
			status: http.StatusUnauthorized,
		},
		{
			name:     "token issued for another account",
			id:       user.ID,
			token:    "tok",
			password: "new-password",
			setup: func(f *authFixture) {
				f.users.EXPECT().FindByID(gomock.Any(), user.ID).Return(user, nil)
				f.resets.EXPECT().Take(gomock.Any(), resetKeyPrefix+"tok").Return(uuid.NewString(), nil)
			},
			status: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t)
			tt.setup(f)

			err := f.svc.ResetPassword(context.Background(), tt.id, tt.token, tt.password)
			require.Error(t, err)
			assert.Equal(t, tt.status, statusOf(err))
		})
	}
}

func TestAuthService_SignInWithProvider_ExistingUser(t *testing.T) {
	f := newAuthFixture(t)
	user := userWithPassword(t, "secret123")
	pair := &models.TokenPair{AccessToken: "a", RefreshToken: "r"}

	f.users.EXPECT().FindByEmail(gomock.Any(), "alice@example.com").Return(user, nil)
	f.tokens.EXPECT().Issue(gomock.Any(), user.ID).Return(pair, nil)

	result, err := f.svc.SignInWithProvider(context.Background(), &oauth.Identity{Email: "alice@example.com", Name: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, result.User.ID)
	assert.Equal(t, *pair, result.Tokens)
}

func TestAuthService_SignInWithProvider_CreatesUser(t *testing.T) {
	f := newAuthFixture(t)
	created := &entities.User{ID: uuid.NewString(), Username: "alicel1234", Email: "new@example.com"}

	gomock.InOrder(
		f.users.EXPECT().FindByEmail(gomock.Any(), "new@example.com").Return(nil, repository.ErrNotFound),
		f.users.EXPECT().Create(gomock.Any(), "aliceliddell", "new@example.com", gomock.Nil()).Return(nil, repository.ErrDuplicate),
		f.users.EXPECT().FindByEmail(gomock.Any(), "new@example.com").Return(nil, repository.ErrNotFound),
		f.users.EXPECT().Create(gomock.Any(), gomock.Any(), "new@example.com", gomock.Nil()).
			DoAndReturn(func(_ context.Context, username, _ string, _ *string) (*entities.User, error) {
				assert.True(t, strings.HasPrefix(username, "aliceliddell"))
				assert.Len(t, username, len("aliceliddell")+4)
				return created, nil
			}),
	)
	f.tokens.EXPECT().Issue(gomock.Any(), created.ID).Return(&models.TokenPair{}, nil)

	result, err := f.svc.SignInWithProvider(context.Background(), &oauth.Identity{Email: "New@example.com", Name: "Alice Liddell"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, result.User.ID)
}

func TestUsernameFrom(t *testing.T) {
	assert.Equal(t, "aliceliddell", usernameFrom("Alice Liddell", "a@example.com"))
	assert.Equal(t, "bob.smith", usernameFrom("", " Bob.Smith@example.com"))
	assert.Equal(t, "bob", usernameFrom("!!!", "bob@example.com"))
}
