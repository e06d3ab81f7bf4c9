package patient

import (
	"strings"
	"time"
)

type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderOther   Gender = "other"
	GenderUnknown Gender = "unknown"
)

func (g Gender) IsValid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther, GenderUnknown:
		return true
	}
	return false
}

// HealthInsurer identifies the patient's coverage (obra social or prepaid plan).
type HealthInsurer string

const (
	InsurerNone      HealthInsurer = "none"
	InsurerOSDE      HealthInsurer = "osde"
	InsurerSwissMed  HealthInsurer = "swiss_medical"
	InsurerGaleno    HealthInsurer = "galeno"
	InsurerMedife    HealthInsurer = "medife"
	InsurerPAMI      HealthInsurer = "pami"
	InsurerIOMA      HealthInsurer = "ioma"
	InsurerOSECAC    HealthInsurer = "osecac"
	InsurerSancorSal HealthInsurer = "sancor_salud"
)

var insurerNames = map[HealthInsurer]string{
	InsurerNone:      "Sin cobertura",
	InsurerOSDE:      "OSDE",
	InsurerSwissMed:  "Swiss Medical",
	InsurerGaleno:    "Galeno",
	InsurerMedife:    "Medifé",
	InsurerPAMI:      "PAMI",
	InsurerIOMA:      "IOMA",
	InsurerOSECAC:    "OSECAC",
	InsurerSancorSal: "Sancor Salud",
}

func (h HealthInsurer) IsValid() bool {
	_, ok := insurerNames[h]
	return ok
}

func (h HealthInsurer) DisplayName() string {
	return insurerNames[h]
}

type InsurerOption struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// HealthInsurers returns the insurer catalogue ordered by display name, with
// "no coverage" first.
func HealthInsurers() []InsurerOption {
	order := []HealthInsurer{
		InsurerNone, InsurerGaleno, InsurerIOMA, InsurerMedife, InsurerOSDE,
		InsurerOSECAC, InsurerPAMI, InsurerSancorSal, InsurerSwissMed,
	}
	out := make([]InsurerOption, 0, len(order))
	for _, h := range order {
		out = append(out, InsurerOption{Code: string(h), Name: h.DisplayName()})
	}
	return out
}

type ContactInfo struct {
	Phone   string `gorm:"column:phone;type:varchar(30)" json:"phone"`
	Email   string `gorm:"column:email;type:varchar(255)" json:"email"`
	Address string `gorm:"column:address;type:text" json:"address"`
	City    string `gorm:"column:city;type:varchar(100)" json:"city"`
}

type Patient struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	FirstName      string     `gorm:"column:first_name;type:varchar(100);not null" json:"first_name"`
	LastName       string     `gorm:"column:last_name;type:varchar(100);not null" json:"last_name"`
	DocumentNumber string     `gorm:"column:document_number;type:varchar(20);uniqueIndex;not null" json:"document_number"`
	BirthDate      *time.Time `gorm:"column:birth_date" json:"birth_date,omitempty"`
	Gender         Gender     `gorm:"column:gender;type:varchar(20);not null;default:'unknown'" json:"gender"`

	ContactInfo

	HealthInsurer HealthInsurer `gorm:"column:health_insurer;type:varchar(30);not null;default:'none'" json:"health_insurer"`
	MemberNumber  string        `gorm:"column:member_number;type:varchar(50)" json:"member_number"`

	Notes string `gorm:"column:notes;type:text" json:"notes"`
}

func (Patient) TableName() string {
	return "clinical.patients"
}

func (p *Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

func (p *Patient) Age() int {
	if p.BirthDate == nil {
		return 0
	}
	now := time.Now()
	years := now.Year() - p.BirthDate.Year()
	if now.Month() < p.BirthDate.Month() ||
		(now.Month() == p.BirthDate.Month() && now.Day() < p.BirthDate.Day()) {
		years--
	}
	return years
}

// PatientInput is the transfer object submitted to create or modify a patient.
type PatientInput struct {
	ID             *int64        `json:"id"`
	FirstName      string        `json:"first_name" validate:"required,max=100"`
	LastName       string        `json:"last_name" validate:"required,max=100"`
	DocumentNumber string        `json:"document_number" validate:"required,number,min=7,max=9"`
	BirthDate      *time.Time    `json:"birth_date"`
	Gender         Gender        `json:"gender"`
	Phone          string        `json:"phone" validate:"omitempty,max=30"`
	Email          string        `json:"email" validate:"omitempty,email,max=255"`
	Address        string        `json:"address"`
	City           string        `json:"city" validate:"omitempty,max=100"`
	HealthInsurer  HealthInsurer `json:"health_insurer"`
	MemberNumber   string        `json:"member_number" validate:"omitempty,max=50"`
	Notes          string        `json:"notes"`
}

// ApplyTo copies every mutable field of the input onto p.
func (in *PatientInput) ApplyTo(p *Patient) {
	p.FirstName = strings.TrimSpace(in.FirstName)
	p.LastName = strings.TrimSpace(in.LastName)
	p.DocumentNumber = strings.TrimSpace(in.DocumentNumber)
	p.BirthDate = in.BirthDate
	p.Gender = in.Gender
	if p.Gender == "" {
		p.Gender = GenderUnknown
	}
	p.ContactInfo = ContactInfo{
		Phone:   strings.TrimSpace(in.Phone),
		Email:   strings.ToLower(strings.TrimSpace(in.Email)),
		Address: in.Address,
		City:    in.City,
	}
	p.HealthInsurer = in.HealthInsurer
	if p.HealthInsurer == "" {
		p.HealthInsurer = InsurerNone
	}
	p.MemberNumber = strings.TrimSpace(in.MemberNumber)
	p.Notes = in.Notes
}

// ToEntity maps the input onto a new Patient.
func (in *PatientInput) ToEntity() *Patient {
	p := &Patient{}
	in.ApplyTo(p)
	return p
}

// ListPatientsQuery filters patient lists. Search matches name or document.
type ListPatientsQuery struct {
	Search string
	// When set, only patients with at least one appointment with this doctor.
	DoctorID *int64
	// When set, only this patient.
	PatientID *int64
}
