package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/counseling-api/internal/models"
	appErrors "github.com/noah-isme/counseling-api/pkg/errors"
)

type authUserStoreStub struct {
	user         *models.User
	lastLogin    *time.Time
	passwordHash string
}

func (s *authUserStoreStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, sql.ErrNoRows
	}
	return s.user, nil
}

func (s *authUserStoreStub) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	s.lastLogin = &at
	return nil
}

func (s *authUserStoreStub) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	s.passwordHash = passwordHash
	return nil
}

type codeStoreStub struct {
	codes map[string]string
}

func (s *codeStoreStub) Put(ctx context.Context, purpose, subject, code string) error {
	if s.codes == nil {
		s.codes = make(map[string]string)
	}
	s.codes[purpose+":"+subject] = code
	return nil
}

func (s *codeStoreStub) Consume(ctx context.Context, purpose, subject string) (string, error) {
	code, ok := s.codes[purpose+":"+subject]
	if !ok {
		return "", appErrors.ErrCacheMiss
	}
	delete(s.codes, purpose+":"+subject)
	return code, nil
}

func testUser(t *testing.T, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{
		ID:           "u1",
		Email:        "admin@example.com",
		PasswordHash: string(hash),
		FullName:     "Admin",
		Role:         models.RoleAdmin,
		BranchCode:   "GANGNAM",
		Active:       true,
	}
}

func newAuthService(users *authUserStoreStub, codes *codeStoreStub) *AuthService {
	if codes == nil {
		codes = &codeStoreStub{}
	}
	return NewAuthService(users, codes, &notifierStub{}, nil, nil, "test-secret", time.Hour)
}

func TestAuthServiceLogin(t *testing.T) {
	users := &authUserStoreStub{user: testUser(t, "s3cret-pass")}
	svc := newAuthService(users, nil)

	result, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@example.com",
		Password: "s3cret-pass",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
	assert.Equal(t, "u1", result.User.ID)
	assert.Equal(t, models.RoleAdmin, result.User.Role)
	assert.NotNil(t, users.lastLogin)

	claims, err := svc.ValidateToken(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, "GANGNAM", claims.BranchCode)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	users := &authUserStoreStub{user: testUser(t, "s3cret-pass")}
	svc := newAuthService(users, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@example.com",
		Password: "wrong",
	})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestAuthServiceLoginUnknownEmail(t *testing.T) {
	svc := newAuthService(&authUserStoreStub{}, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "nobody@example.com",
		Password: "whatever",
	})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	user := testUser(t, "s3cret-pass")
	user.Active = false
	svc := newAuthService(&authUserStoreStub{user: user}, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "admin@example.com",
		Password: "s3cret-pass",
	})
	assert.ErrorIs(t, err, appErrors.ErrInactiveAccount)
}

func TestAuthServiceValidateTokenRejectsGarbage(t *testing.T) {
	svc := newAuthService(&authUserStoreStub{}, nil)

	_, err := svc.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestAuthServiceValidateTokenRejectsForeignSecret(t *testing.T) {
	users := &authUserStoreStub{user: testUser(t, "s3cret-pass")}
	issuer := NewAuthService(users, &codeStoreStub{}, &notifierStub{}, nil, nil, "other-secret", time.Hour)
	verifier := newAuthService(users, nil)

	result, err := issuer.Login(context.Background(), models.LoginRequest{
		Email:    "admin@example.com",
		Password: "s3cret-pass",
	})
	require.NoError(t, err)

	_, err = verifier.ValidateToken(result.AccessToken)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestAuthServicePasswordResetFlow(t *testing.T) {
	users := &authUserStoreStub{user: testUser(t, "old-password")}
	codes := &codeStoreStub{}
	svc := newAuthService(users, codes)

	err := svc.RequestPasswordReset(context.Background(), models.RequestPasswordResetRequest{
		Email: "admin@example.com",
	})
	require.NoError(t, err)
	code := codes.codes[passwordResetPurpose+":admin@example.com"]
	require.Len(t, code, 6)

	err = svc.ResetPassword(context.Background(), models.ResetPasswordRequest{
		Email:       "admin@example.com",
		Code:        code,
		NewPassword: "brand-new-password",
	})
	require.NoError(t, err)
	require.NotEmpty(t, users.passwordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(users.passwordHash), []byte("brand-new-password")))
}

func TestAuthServiceResetPasswordWrongCode(t *testing.T) {
	users := &authUserStoreStub{user: testUser(t, "old-password")}
	codes := &codeStoreStub{}
	svc := newAuthService(users, codes)

	require.NoError(t, svc.RequestPasswordReset(context.Background(), models.RequestPasswordResetRequest{
		Email: "admin@example.com",
	}))

	err := svc.ResetPassword(context.Background(), models.ResetPasswordRequest{
		Email:       "admin@example.com",
		Code:        "000000x",
		NewPassword: "brand-new-password",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, users.passwordHash)
}

func TestAuthServiceRequestResetHidesUnknownEmails(t *testing.T) {
	codes := &codeStoreStub{}
	svc := newAuthService(&authUserStoreStub{}, codes)

	err := svc.RequestPasswordReset(context.Background(), models.RequestPasswordResetRequest{
		Email: "nobody@example.com",
	})
	assert.NoError(t, err)
	assert.Empty(t, codes.codes)
}
