package service

import (
	"context"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/config"
	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medpractice/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "correct-horse-battery"

func newAuthFixture(t *testing.T) (*fixture, *AuthService, *auth.JWTManager) {
	t.Helper()
	f := newFixture(t)

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	f.users = newMockUserRepo(
		&domain.User{ID: 1, Email: "admin@clinic.test", PasswordHash: string(hash), Role: domain.RoleAdmin, IsActive: true},
		&domain.User{ID: 2, Email: "ana.perez@clinic.test", PasswordHash: string(hash), Role: domain.RoleDoctor, DoctorID: int64Ptr(3), IsActive: true},
		&domain.User{ID: 3, Email: "old@clinic.test", PasswordHash: string(hash), Role: domain.RolePatient, IsActive: false},
	)

	jwt := auth.NewJWTManager(config.JWTConfig{
		Secret:          "test-secret-test-secret-test-secret",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
		Issuer:          "medpractice-test",
	})
	svc := NewAuthService(f.users, f.doctors, f.patients, jwt, f.auditSvc, zap.NewNop())
	return f, svc, jwt
}

func TestAuthService_LoginCarriesDoctorContext(t *testing.T) {
	_, svc, jwt := newAuthFixture(t)

	pair, err := svc.Login(context.Background(), " Ana.Perez@clinic.test", testPassword, "10.0.0.1")
	require.NoError(t, err)

	claims, err := jwt.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleDoctor, claims.Role)
	require.NotNil(t, claims.DoctorID)
	assert.Equal(t, int64(3), *claims.DoctorID)
	assert.Equal(t, "Ana Pérez", claims.DoctorName)

	s := domain.SessionFromClaims(claims)
	assert.True(t, s.IsDoctor())
	assert.Equal(t, "Ana Pérez", s.DoctorName)
}

func TestAuthService_LoginFailures(t *testing.T) {
	f, svc, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), "nobody@clinic.test", testPassword, "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), "old@clinic.test", testPassword, "")
	assert.ErrorIs(t, err, ErrAccountInactive)

	for i := 0; i < maxFailedAttempts; i++ {
		_, err = svc.Login(context.Background(), "admin@clinic.test", "wrong-password", "")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}
	_, err = svc.Login(context.Background(), "admin@clinic.test", testPassword, "")
	assert.ErrorIs(t, err, ErrAccountLocked)

	u, err := f.users.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, u.IsLocked())
}

func TestAuthService_Refresh(t *testing.T) {
	_, svc, _ := newAuthFixture(t)

	pair, err := svc.Login(context.Background(), "admin@clinic.test", testPassword, "")
	require.NoError(t, err)

	refreshed, err := svc.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)

	_, err = svc.Refresh(context.Background(), pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_ChangePassword(t *testing.T) {
	_, svc, _ := newAuthFixture(t)
	caller := adminSession()

	assert.ErrorIs(t, svc.ChangePassword(context.Background(), caller, "nope", "a-much-longer-password"), ErrInvalidCredentials)
	assert.ErrorIs(t, svc.ChangePassword(context.Background(), caller, testPassword, "short"), ErrWeakPassword)
	require.NoError(t, svc.ChangePassword(context.Background(), caller, testPassword, "a-much-longer-password"))

	_, err := svc.Login(context.Background(), "admin@clinic.test", "a-much-longer-password", "")
	assert.NoError(t, err)
}

func TestAuthService_Register(t *testing.T) {
	_, svc, _ := newAuthFixture(t)

	t.Run("admin only", func(t *testing.T) {
		r := svc.Register(context.Background(), &RegisterUserInput{}, doctorSession(3))
		assert.Equal(t, KindForbidden, r.Kind)
	})

	t.Run("doctor accounts need a doctor", func(t *testing.T) {
		r := svc.Register(context.Background(), &RegisterUserInput{
			Email:       "new@clinic.test",
			Password:    "long-enough-password",
			DisplayName: "Nuevo",
			Role:        domain.RoleDoctor,
		}, adminSession())
		assert.Equal(t, KindValidation, r.Kind)
		assert.Contains(t, r.Errors, "doctor accounts must be linked to a doctor")
	})

	t.Run("linked patient account", func(t *testing.T) {
		r := svc.Register(context.Background(), &RegisterUserInput{
			Email:       "Lucia@Mail.test",
			Password:    "long-enough-password",
			DisplayName: "Lucía Fernández",
			Role:        domain.RolePatient,
			PatientID:   int64Ptr(5),
		}, adminSession())
		require.True(t, r.IsSuccess(), r.Errors)
		assert.Equal(t, "lucia@mail.test", r.Value.Email)
		assert.Equal(t, int64(5), *r.Value.PatientID)
		assert.Nil(t, r.Value.DoctorID)
	})

	t.Run("email taken", func(t *testing.T) {
		r := svc.Register(context.Background(), &RegisterUserInput{
			Email:       "admin@clinic.test",
			Password:    "long-enough-password",
			DisplayName: "Dup",
			Role:        domain.RoleAdmin,
		}, adminSession())
		assert.Equal(t, KindConflict, r.Kind)
	})
}
