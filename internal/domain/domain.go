package domain

import (
	"time"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RolePatient:
		return true
	}
	return false
}

type User struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	Email        string `gorm:"column:email;type:varchar(255);uniqueIndex;not null"`
	PasswordHash string `gorm:"column:password_hash;type:varchar(255);not null"`
	DisplayName  string `gorm:"column:display_name;type:varchar(200);not null"`
	Role         Role   `gorm:"column:role;type:varchar(20);not null;index"`

	// For the doctor role, links to their doctor record
	DoctorID *int64 `gorm:"column:doctor_id;index"`
	// For the patient role, links to their patient record
	PatientID *int64 `gorm:"column:patient_id;index"`

	IsActive          bool       `gorm:"column:is_active;default:true;index"`
	FailedLoginCount  int        `gorm:"column:failed_login_count;default:0"`
	LockedUntil       *time.Time `gorm:"column:locked_until"`
	LastLoginAt       *time.Time `gorm:"column:last_login_at"`
	PasswordChangedAt time.Time  `gorm:"column:password_changed_at"`
}

func (User) TableName() string {
	return "auth.users"
}

// IsLocked returns true if the account is temporarily locked due to failed logins.
func (u *User) IsLocked() bool {
	return u.LockedUntil != nil && time.Now().Before(*u.LockedUntil)
}

type AuditAction string

const (
	ActionCreate AuditAction = "create"
	ActionRead   AuditAction = "read"
	ActionUpdate AuditAction = "update"
	ActionDelete AuditAction = "delete"
	ActionLogin  AuditAction = "login"
)

type AuditLog struct {
	ID         int64     `gorm:"primaryKey;autoIncrement"`
	OccurredAt time.Time `gorm:"autoCreateTime;index"`

	// Who
	UserID    int64  `gorm:"column:user_id;not null;index"`
	UserRole  Role   `gorm:"column:user_role;type:varchar(20);not null"`
	IPAddress string `gorm:"column:ip_address;type:varchar(45)"`

	// What
	Action       AuditAction `gorm:"column:action;type:varchar(20);not null;index"`
	ResourceType string      `gorm:"column:resource_type;type:varchar(50);not null;index"`
	ResourceID   string      `gorm:"column:resource_id;type:varchar(50);index"`

	RequestID string `gorm:"column:request_id;type:varchar(50);index"`
	Changes   string `gorm:"column:changes;type:jsonb"`
}

func (AuditLog) TableName() string {
	return "audit.logs"
}

type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	TokenType    string    `json:"token_type"` // Always "Bearer"
}

type Claims struct {
	UserID     int64  `json:"sub"`
	Email      string `json:"email"`
	Role       Role   `json:"role"`
	DoctorID   *int64 `json:"doctor_id,omitempty"`
	DoctorName string `json:"doctor_name,omitempty"`
	PatientID  *int64 `json:"patient_id,omitempty"`
}

// Session is the per-request view of the caller. It is built fresh for every
// request and passed explicitly to the services that need it.
type Session struct {
	UserID     int64
	Role       Role
	DoctorID   *int64
	DoctorName string
	PatientID  *int64

	IP        string
	RequestID string
}

// SessionFromClaims builds a Session from validated token claims. Missing or
// unknown roles fall back to RolePatient, the least privileged view.
func SessionFromClaims(c *Claims) Session {
	if c == nil {
		return Session{Role: RolePatient}
	}
	role := c.Role
	if !role.IsValid() {
		role = RolePatient
	}
	s := Session{
		UserID:    c.UserID,
		Role:      role,
		PatientID: c.PatientID,
	}
	if role == RoleDoctor {
		s.DoctorID = c.DoctorID
		s.DoctorName = c.DoctorName
	}
	return s
}

func (s Session) IsAdmin() bool  { return s.Role == RoleAdmin }
func (s Session) IsDoctor() bool { return s.Role == RoleDoctor }

func (s Session) IsPatient() bool {
	return s.Role == RolePatient || !s.Role.IsValid()
}

// OwnsPatient reports whether a patient-role caller is linked to patientID.
func (s Session) OwnsPatient(patientID int64) bool {
	return s.PatientID != nil && *s.PatientID == patientID
}

// HasRole reports whether the caller holds any of the given roles.
func (s Session) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if s.Role == r {
			return true
		}
	}
	return false
}
