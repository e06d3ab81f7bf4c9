package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/config"
	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenExpired      = errors.New("token has expired")
	ErrTokenInvalid      = errors.New("token is invalid")
	ErrTokenTypeMismatch = errors.New("wrong token type")
)

// clockSkew is tolerated on exp, nbf and iat between API replicas.
const clockSkew = 10 * time.Second

// kind separates access from refresh tokens; a refresh token is never
// accepted as a bearer credential and vice versa.
type kind string

const (
	kindAccess  kind = "access"
	kindRefresh kind = "refresh"
)

// practiceClaims is the signed payload. It carries enough of the caller's
// identity to build a session without a database lookup.
type practiceClaims struct {
	jwt.RegisteredClaims
	Kind       kind   `json:"token_type"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	DoctorID   *int64 `json:"doctor_id,omitempty"`
	DoctorName string `json:"doctor_name,omitempty"`
	PatientID  *int64 `json:"patient_id,omitempty"`
}

func (c *practiceClaims) session() (*domain.Claims, error) {
	userID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return nil, ErrTokenInvalid
	}
	return &domain.Claims{
		UserID:     userID,
		Email:      c.Email,
		Role:       domain.Role(c.Role),
		DoctorID:   c.DoctorID,
		DoctorName: c.DoctorName,
		PatientID:  c.PatientID,
	}, nil
}

// JWTManager issues and verifies HS256 token pairs.
type JWTManager struct {
	key    []byte
	issuer string
	ttl    map[kind]time.Duration
	parser *jwt.Parser
	now    func() time.Time
}

func NewJWTManager(cfg config.JWTConfig) *JWTManager {
	return &JWTManager{
		key:    []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl: map[kind]time.Duration{
			kindAccess:  cfg.AccessTokenTTL,
			kindRefresh: cfg.RefreshTokenTTL,
		},
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(clockSkew),
		),
		now: time.Now,
	}
}

func (m *JWTManager) GenerateTokenPair(claims *domain.Claims) (*domain.TokenPair, error) {
	now := m.now()

	access, expiresAt, err := m.sign(kindAccess, claims, now)
	if err != nil {
		return nil, err
	}
	refresh, _, err := m.sign(kindRefresh, claims, now)
	if err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
		TokenType:    "Bearer",
	}, nil
}

func (m *JWTManager) ValidateAccessToken(token string) (*domain.Claims, error) {
	return m.verify(token, kindAccess)
}

func (m *JWTManager) ValidateRefreshToken(token string) (*domain.Claims, error) {
	return m.verify(token, kindRefresh)
}

func (m *JWTManager) sign(k kind, c *domain.Claims, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(m.ttl[k])
	payload := practiceClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    m.issuer,
			Subject:   strconv.FormatInt(c.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Kind:       k,
		Email:      c.Email,
		Role:       string(c.Role),
		DoctorID:   c.DoctorID,
		DoctorName: c.DoctorName,
		PatientID:  c.PatientID,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, payload).SignedString(m.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing %s token: %w", k, err)
	}
	return signed, expiresAt, nil
}

func (m *JWTManager) verify(token string, want kind) (*domain.Claims, error) {
	var payload practiceClaims
	_, err := m.parser.ParseWithClaims(token, &payload, func(*jwt.Token) (any, error) {
		return m.key, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case err != nil:
		return nil, ErrTokenInvalid
	case payload.Kind != want:
		return nil, ErrTokenTypeMismatch
	}
	return payload.session()
}
