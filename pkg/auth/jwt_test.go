package auth

import (
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/config"
	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManager(accessTTL time.Duration) *JWTManager {
	return NewJWTManager(config.JWTConfig{
		Secret:          "0123456789abcdef0123456789abcdef",
		AccessTokenTTL:  accessTTL,
		RefreshTokenTTL: time.Hour,
		Issuer:          "medpractice-test",
	})
}

func TestJWTManager_RoundTripKeepsDoctorClaims(t *testing.T) {
	m := testManager(time.Minute)
	doctorID := int64(3)

	pair, err := m.GenerateTokenPair(&domain.Claims{
		UserID:     42,
		Email:      "house@clinic.test",
		Role:       domain.RoleDoctor,
		DoctorID:   &doctorID,
		DoctorName: "Gregory House",
	})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", pair.TokenType)

	claims, err := m.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, domain.RoleDoctor, claims.Role)
	require.NotNil(t, claims.DoctorID)
	assert.Equal(t, doctorID, *claims.DoctorID)
	assert.Equal(t, "Gregory House", claims.DoctorName)
	assert.Nil(t, claims.PatientID)
}

func TestJWTManager_RejectsWrongTokenType(t *testing.T) {
	m := testManager(time.Minute)
	pair, err := m.GenerateTokenPair(&domain.Claims{UserID: 1, Role: domain.RoleAdmin})
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenTypeMismatch)

	_, err = m.ValidateRefreshToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenTypeMismatch)
}

func TestJWTManager_ExpiredAndForeignTokens(t *testing.T) {
	expired := testManager(-time.Minute)
	pair, err := expired.GenerateTokenPair(&domain.Claims{UserID: 1, Role: domain.RolePatient})
	require.NoError(t, err)

	_, err = expired.ValidateAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenExpired)

	other := NewJWTManager(config.JWTConfig{
		Secret:          "another-secret-another-secret-xx",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
		Issuer:          "medpractice-test",
	})
	foreign, err := other.GenerateTokenPair(&domain.Claims{UserID: 1, Role: domain.RoleAdmin})
	require.NoError(t, err)

	_, err = testManager(time.Minute).ValidateAccessToken(foreign.AccessToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = testManager(time.Minute).ValidateAccessToken("not-a-token")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestJWTManager_ToleratesSmallClockSkew(t *testing.T) {
	ahead := testManager(time.Minute)
	ahead.now = func() time.Time { return time.Now().Add(5 * time.Second) }
	pair, err := ahead.GenerateTokenPair(&domain.Claims{UserID: 7, Role: domain.RoleDoctor})
	require.NoError(t, err)

	claims, err := testManager(time.Minute).ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)

	farAhead := testManager(time.Minute)
	farAhead.now = func() time.Time { return time.Now().Add(time.Minute) }
	pair, err = farAhead.GenerateTokenPair(&domain.Claims{UserID: 7, Role: domain.RoleDoctor})
	require.NoError(t, err)

	_, err = testManager(time.Minute).ValidateAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
