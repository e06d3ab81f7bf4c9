package appointment

import (
	"time"
)

// Status of an appointment. New appointments start as pending.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// OccupiesSlot reports whether an appointment in this status blocks the doctor's agenda.
func (s Status) OccupiesSlot() bool {
	return s != StatusCancelled && s != StatusNoShow
}

type Appointment struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	PatientID int64 `gorm:"column:patient_id;not null;index" json:"patient_id"`
	DoctorID  int64 `gorm:"column:doctor_id;not null;index" json:"doctor_id"`

	ScheduledAt time.Time `gorm:"column:scheduled_at;not null;index" json:"scheduled_at"`
	Status      Status    `gorm:"column:status;type:varchar(20);not null;default:'pending';index" json:"status"`

	Reason string `gorm:"column:reason;type:text" json:"reason"`
	Notes  string `gorm:"column:notes;type:text" json:"notes"`
}

func (Appointment) TableName() string {
	return "clinical.appointments"
}

// AppointmentInput is the transfer object for creating or modifying an
// appointment. Pointer fields distinguish "absent" from zero values.
type AppointmentInput struct {
	ID          *int64     `json:"id"`
	PatientID   *int64     `json:"patient_id"`
	DoctorID    *int64     `json:"doctor_id"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	Status      *Status    `json:"status"`
	Reason      string     `json:"reason"`
	Notes       string     `json:"notes"`
}

// ApplyTo overwrites every mutable field of a. A nil status leaves the current one.
func (in *AppointmentInput) ApplyTo(a *Appointment) {
	if in.PatientID != nil {
		a.PatientID = *in.PatientID
	}
	if in.DoctorID != nil {
		a.DoctorID = *in.DoctorID
	}
	if in.ScheduledAt != nil {
		a.ScheduledAt = *in.ScheduledAt
	}
	if in.Status != nil {
		a.Status = *in.Status
	}
	a.Reason = in.Reason
	a.Notes = in.Notes
}

func (in *AppointmentInput) ToEntity() *Appointment {
	a := &Appointment{}
	in.ApplyTo(a)
	return a
}

type ListAppointmentsQuery struct {
	PatientID *int64
	DoctorID  *int64
	Status    *Status
	DateFrom  *time.Time
	DateTo    *time.Time
}
