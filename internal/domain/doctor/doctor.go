package doctor

import (
	"strings"
	"time"
)

type Doctor struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	FirstName     string `gorm:"column:first_name;type:varchar(100);not null" json:"first_name"`
	LastName      string `gorm:"column:last_name;type:varchar(100);not null" json:"last_name"`
	LicenseNumber string `gorm:"column:license_number;type:varchar(30);uniqueIndex;not null" json:"license_number"`
	Specialty     string `gorm:"column:specialty;type:varchar(100)" json:"specialty"`
	Phone         string `gorm:"column:phone;type:varchar(30)" json:"phone"`
	Email         string `gorm:"column:email;type:varchar(255)" json:"email"`
}

func (Doctor) TableName() string {
	return "clinical.doctors"
}

// FullName is the display name shown to patients and carried in doctor sessions.
func (d *Doctor) FullName() string {
	return strings.TrimSpace(d.FirstName + " " + d.LastName)
}

type DoctorInput struct {
	ID            *int64 `json:"id"`
	FirstName     string `json:"first_name" validate:"required,max=100"`
	LastName      string `json:"last_name" validate:"required,max=100"`
	LicenseNumber string `json:"license_number" validate:"required,max=30"`
	Specialty     string `json:"specialty" validate:"omitempty,max=100"`
	Phone         string `json:"phone" validate:"omitempty,max=30"`
	Email         string `json:"email" validate:"omitempty,email,max=255"`
}

func (in *DoctorInput) ApplyTo(d *Doctor) {
	d.FirstName = strings.TrimSpace(in.FirstName)
	d.LastName = strings.TrimSpace(in.LastName)
	d.LicenseNumber = strings.ToUpper(strings.TrimSpace(in.LicenseNumber))
	d.Specialty = strings.TrimSpace(in.Specialty)
	d.Phone = strings.TrimSpace(in.Phone)
	d.Email = strings.ToLower(strings.TrimSpace(in.Email))
}

func (in *DoctorInput) ToEntity() *Doctor {
	d := &Doctor{}
	in.ApplyTo(d)
	return d
}
