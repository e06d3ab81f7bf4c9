package order

import (
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain/doctor"
	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain/patient"
)

// LineStatus is the treatment state of a single order line.
//
//	not_started → in_treatment → completed
//
// Transitions never skip a state and are not reversible.
type LineStatus string

const (
	LineNotStarted  LineStatus = "not_started"
	LineInTreatment LineStatus = "in_treatment"
	LineCompleted   LineStatus = "completed"
)

func (s LineStatus) IsValid() bool {
	switch s {
	case LineNotStarted, LineInTreatment, LineCompleted:
		return true
	}
	return false
}

var lineTransitions = map[LineStatus]LineStatus{
	LineNotStarted:  LineInTreatment,
	LineInTreatment: LineCompleted,
}

type MedicalOrder struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	IssuedAt  time.Time `gorm:"column:issued_at;not null;index" json:"issued_at"`
	PatientID int64     `gorm:"column:patient_id;not null;index" json:"patient_id"`

	// Nil until a doctor claims the order.
	DoctorID  *int64     `gorm:"column:doctor_id;index" json:"doctor_id,omitempty"`
	ClaimedAt *time.Time `gorm:"column:claimed_at" json:"claimed_at,omitempty"`

	Diagnosis string `gorm:"column:diagnosis;type:text" json:"diagnosis"`
	Notes     string `gorm:"column:notes;type:text" json:"notes"`

	Lines []OrderLine `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"lines"`

	Patient *patient.Patient `gorm:"foreignKey:PatientID;constraint:OnDelete:RESTRICT" json:"patient,omitempty"`
	Doctor  *doctor.Doctor   `gorm:"foreignKey:DoctorID;constraint:OnDelete:SET NULL" json:"doctor,omitempty"`
}

func (MedicalOrder) TableName() string {
	return "clinical.medical_orders"
}

func (o *MedicalOrder) IsClaimed() bool {
	return o.DoctorID != nil
}

// Claim assigns the order to doctorID. An order can be claimed once.
func (o *MedicalOrder) Claim(doctorID int64, at time.Time) error {
	if o.IsClaimed() {
		return ErrAlreadyClaimed
	}
	o.DoctorID = &doctorID
	o.ClaimedAt = &at
	return nil
}

// Line returns the line with the given id, or nil.
func (o *MedicalOrder) Line(id int64) *OrderLine {
	for i := range o.Lines {
		if o.Lines[i].ID == id {
			return &o.Lines[i]
		}
	}
	return nil
}

type OrderLine struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	OrderID  int64 `gorm:"column:order_id;not null;index" json:"order_id"`
	Position int   `gorm:"column:position;not null;default:0" json:"position"`

	RegistrationNumber string `gorm:"column:registration_number;type:varchar(50);not null" json:"registration_number"`
	Description        string `gorm:"column:description;type:varchar(255)" json:"description"`
	Sessions           int    `gorm:"column:sessions;not null;default:1" json:"sessions"`

	Status      LineStatus `gorm:"column:status;type:varchar(20);not null;default:'not_started';index" json:"status"`
	StartedAt   *time.Time `gorm:"column:started_at" json:"started_at,omitempty"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
}

func (OrderLine) TableName() string {
	return "clinical.medical_order_lines"
}

func (l *OrderLine) CanTransitionTo(next LineStatus) bool {
	return lineTransitions[l.Status] == next
}

// BeginTreatment moves a not-started line into treatment.
func (l *OrderLine) BeginTreatment(at time.Time) error {
	if !l.CanTransitionTo(LineInTreatment) {
		return ErrInvalidLineTransition
	}
	l.Status = LineInTreatment
	l.StartedAt = &at
	return nil
}

// CompleteTreatment closes a line that is in treatment.
func (l *OrderLine) CompleteTreatment(at time.Time) error {
	if !l.CanTransitionTo(LineCompleted) {
		return ErrInvalidLineTransition
	}
	l.Status = LineCompleted
	l.CompletedAt = &at
	return nil
}

// OrderInput is the transfer object submitted to create or modify an order.
type OrderInput struct {
	ID        *int64       `json:"id"`
	IssuedAt  time.Time    `json:"-"`
	PatientID *int64       `json:"patient_id"`
	DoctorID  *int64       `json:"doctor_id"`
	Diagnosis string       `json:"diagnosis" validate:"max=2000"`
	Notes     string       `json:"notes" validate:"max=2000"`
	Lines     []*LineInput `json:"lines"`
}

type LineInput struct {
	ID                 *int64 `json:"id"`
	RegistrationNumber string `json:"registration_number" validate:"max=50"`
	Description        string `json:"description" validate:"max=255"`
	Sessions           int    `json:"sessions" validate:"gte=0,lte=100"`
}

// IsBlank reports whether the line carries no registration number.
func (l *LineInput) IsBlank() bool {
	return l == nil || strings.TrimSpace(l.RegistrationNumber) == ""
}

// ToEntity maps the input onto a new, unclaimed order whose lines have not started.
func (in *OrderInput) ToEntity() *MedicalOrder {
	o := &MedicalOrder{
		IssuedAt:  in.IssuedAt,
		Diagnosis: strings.TrimSpace(in.Diagnosis),
		Notes:     in.Notes,
	}
	if in.PatientID != nil {
		o.PatientID = *in.PatientID
	}
	if in.DoctorID != nil {
		id := *in.DoctorID
		o.DoctorID = &id
		claimedAt := in.IssuedAt
		o.ClaimedAt = &claimedAt
	}
	o.Lines = make([]OrderLine, 0, len(in.Lines))
	for i, l := range in.Lines {
		o.Lines = append(o.Lines, l.toLine(i))
	}
	return o
}

// ApplyTo overwrites the mutable fields of an existing order. Claim state and
// issue date are preserved. Lines matching an existing line id keep their
// treatment progress; any other line starts over as a new line.
func (in *OrderInput) ApplyTo(o *MedicalOrder) {
	if in.PatientID != nil {
		o.PatientID = *in.PatientID
	}
	o.Diagnosis = strings.TrimSpace(in.Diagnosis)
	o.Notes = in.Notes

	lines := make([]OrderLine, 0, len(in.Lines))
	for i, l := range in.Lines {
		next := l.toLine(i)
		if l.ID != nil {
			if existing := o.Line(*l.ID); existing != nil {
				next.ID = existing.ID
				next.CreatedAt = existing.CreatedAt
				next.Status = existing.Status
				next.StartedAt = existing.StartedAt
				next.CompletedAt = existing.CompletedAt
			}
		}
		next.OrderID = o.ID
		lines = append(lines, next)
	}
	o.Lines = lines
	// Associations are reloaded by the store.
	o.Patient = nil
	o.Doctor = nil
}

func (l *LineInput) toLine(position int) OrderLine {
	sessions := l.Sessions
	if sessions == 0 {
		sessions = 1
	}
	return OrderLine{
		Position:           position,
		RegistrationNumber: strings.TrimSpace(l.RegistrationNumber),
		Description:        strings.TrimSpace(l.Description),
		Sessions:           sessions,
		Status:             LineNotStarted,
	}
}

type ListOrdersQuery struct {
	// NameFilter is a case-insensitive substring of the patient's full name.
	NameFilter string
	PatientID  *int64
	DoctorID   *int64
}
