package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain/doctor"
	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/medpractice/pkg/auth"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountLocked      = errors.New("account is temporarily locked due to multiple failed login attempts")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrEmailTaken         = errors.New("a user with that email already exists")
	ErrWeakPassword       = errors.New("password is too weak")
)

const (
	maxFailedAttempts = 5
	lockDuration      = 15 * time.Minute
	minPasswordLength = 12
)

type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	// RecordLogin resets the failure counter on success; on failure it
	// increments it and locks the account for lockFor once maxFailures is reached.
	RecordLogin(ctx context.Context, id int64, success bool, maxFailures int, lockFor time.Duration) error
	UpdatePassword(ctx context.Context, id int64, hash string) error
}

// RegisterUserInput is submitted by an administrator to create a login.
type RegisterUserInput struct {
	Email       string      `json:"email" validate:"required,email,max=255"`
	Password    string      `json:"password" validate:"required"`
	DisplayName string      `json:"display_name" validate:"required,max=200"`
	Role        domain.Role `json:"role" validate:"required,oneof=admin doctor patient"`
	DoctorID    *int64      `json:"doctor_id"`
	PatientID   *int64      `json:"patient_id"`
}

type AuthService struct {
	userRepo    UserRepository
	doctorRepo  doctor.Repository
	patientRepo patient.Repository
	jwtManager  *auth.JWTManager
	auditSvc    *AuditService
	log         *zap.Logger
}

func NewAuthService(
	userRepo UserRepository,
	doctorRepo doctor.Repository,
	patientRepo patient.Repository,
	jwtManager *auth.JWTManager,
	auditSvc *AuditService,
	log *zap.Logger,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		doctorRepo:  doctorRepo,
		patientRepo: patientRepo,
		jwtManager:  jwtManager,
		auditSvc:    auditSvc,
		log:         log,
	}
}

func (s *AuthService) Login(ctx context.Context, email, password, ip string) (*domain.TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		// Hash anyway so a missing account costs the same as a wrong password.
		_, _ = bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrAccountInactive
	}
	if user.IsLocked() {
		return nil, ErrAccountLocked
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		if err := s.userRepo.RecordLogin(ctx, user.ID, false, maxFailedAttempts, lockDuration); err != nil {
			s.log.Error("failed to record login attempt", zap.Int64("user_id", user.ID), zap.Error(err))
		}
		s.log.Warn("failed login attempt",
			zap.String("email", email),
			zap.String("ip", ip),
		)
		return nil, ErrInvalidCredentials
	}

	if err := s.userRepo.RecordLogin(ctx, user.ID, true, maxFailedAttempts, lockDuration); err != nil {
		s.log.Error("failed to record login", zap.Int64("user_id", user.ID), zap.Error(err))
	}

	pair, err := s.issue(ctx, user)
	if err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(AuditEntry{
		Session:      domain.Session{UserID: user.ID, Role: user.Role, IP: ip},
		Action:       domain.ActionLogin,
		ResourceType: "user",
		ResourceID:   user.ID,
	})
	s.log.Info("user logged in",
		zap.Int64("user_id", user.ID),
		zap.String("ip", ip),
	)

	return pair, nil
}

// Refresh issues a new token pair given a valid refresh token. Claims are
// rebuilt from the stored user so role or link changes take effect.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil || !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	return s.issue(ctx, user)
}

func (s *AuthService) ChangePassword(ctx context.Context, caller domain.Session, currentPassword, newPassword string) error {
	user, err := s.userRepo.GetByID(ctx, caller.UserID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return ErrInvalidCredentials
	}
	if err := validatePasswordStrength(newPassword); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	if err := s.userRepo.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return fmt.Errorf("updating password: %w", err)
	}

	s.auditSvc.LogAsync(AuditEntry{
		Session:      caller,
		Action:       domain.ActionUpdate,
		ResourceType: "user",
		ResourceID:   user.ID,
		Changes:      `{"password":"changed"}`,
	})
	return nil
}

// Register creates a login. Doctor accounts must link an existing doctor and
// patient accounts an existing patient.
func (s *AuthService) Register(ctx context.Context, in *RegisterUserInput, caller domain.Session) Result[*domain.User] {
	if !caller.IsAdmin() {
		return Fail[*domain.User](KindForbidden, ErrForbidden.Error())
	}

	v := &Validation{}
	if in == nil {
		return Fail[*domain.User](KindValidation, "user is required")
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	checkStruct(v, in, "")
	if err := validatePasswordStrength(in.Password); err != nil && in.Password != "" {
		v.Add(err.Error())
	}
	switch in.Role {
	case domain.RoleDoctor:
		v.Check(positive(in.DoctorID), "doctor accounts must be linked to a doctor")
	case domain.RolePatient:
		v.Check(positive(in.PatientID), "patient accounts must be linked to a patient")
	}
	if !v.Valid() {
		return Invalid[*domain.User](v)
	}

	if in.Role == domain.RoleDoctor {
		if _, err := s.doctorRepo.GetByID(ctx, *in.DoctorID); err != nil {
			return failWith[*domain.User](err, "the doctor could not be verified")
		}
	}
	if in.Role == domain.RolePatient {
		if _, err := s.patientRepo.GetByID(ctx, *in.PatientID); err != nil {
			return failWith[*domain.User](err, "the patient could not be verified")
		}
	}

	if _, err := s.userRepo.GetByEmail(ctx, in.Email); err == nil {
		return Fail[*domain.User](KindConflict, ErrEmailTaken.Error())
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		s.log.Error("failed to check email uniqueness", zap.Error(err))
		return Fail[*domain.User](KindPersistence, "the user could not be verified")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return Fail[*domain.User](KindPersistence, "the password could not be stored")
	}

	u := &domain.User{
		Email:             in.Email,
		PasswordHash:      string(hash),
		DisplayName:       strings.TrimSpace(in.DisplayName),
		Role:              in.Role,
		IsActive:          true,
		PasswordChangedAt: time.Now(),
	}
	switch in.Role {
	case domain.RoleDoctor:
		u.DoctorID = in.DoctorID
	case domain.RolePatient:
		u.PatientID = in.PatientID
	}

	if err := s.userRepo.Create(ctx, u); err != nil {
		s.log.Error("failed to create user", zap.Error(err))
		return Fail[*domain.User](KindPersistence, "the user could not be saved")
	}

	s.auditSvc.LogAsync(AuditEntry{
		Session:      caller,
		Action:       domain.ActionCreate,
		ResourceType: "user",
		ResourceID:   u.ID,
	})

	return Ok(u)
}

func (s *AuthService) issue(ctx context.Context, user *domain.User) (*domain.TokenPair, error) {
	claims := &domain.Claims{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		PatientID: user.PatientID,
	}
	if user.Role == domain.RoleDoctor && user.DoctorID != nil {
		claims.DoctorID = user.DoctorID
		if d, err := s.doctorRepo.GetByID(ctx, *user.DoctorID); err == nil {
			claims.DoctorName = d.FullName()
		} else {
			s.log.Warn("doctor linked to user not found", zap.Int64("user_id", user.ID), zap.Error(err))
		}
	}

	pair, err := s.jwtManager.GenerateTokenPair(claims)
	if err != nil {
		s.log.Error("failed to generate token pair", zap.Error(err))
		return nil, fmt.Errorf("generating tokens: %w", err)
	}
	return pair, nil
}

func validatePasswordStrength(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: it must be at least %d characters", ErrWeakPassword, minPasswordLength)
	}
	return nil
}
