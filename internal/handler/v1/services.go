package v1

import (
	"context"

	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain/doctor"
	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain/order"
	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/service"
)

// The handlers depend on these narrow views of the services so they can be
// exercised with fakes.

type OrderService interface {
	GetByID(ctx context.Context, id int64, caller domain.Session) (*order.MedicalOrder, error)
	List(ctx context.Context, q order.ListOrdersQuery, caller domain.Session) ([]*order.MedicalOrder, error)
	ListByPatientDocument(ctx context.Context, document string, caller domain.Session) ([]*order.MedicalOrder, error)
	Add(ctx context.Context, in *order.OrderInput, caller domain.Session) service.Result[*order.MedicalOrder]
	Modify(ctx context.Context, in *order.OrderInput, caller domain.Session) service.Result[*order.MedicalOrder]
	Delete(ctx context.Context, id int64, caller domain.Session) service.Result[int64]
	Claim(ctx context.Context, orderID int64, doctorID *int64, caller domain.Session) service.Result[*order.MedicalOrder]
	BeginTreatment(ctx context.Context, lineID int64, caller domain.Session) service.Result[*order.OrderLine]
	CompleteTreatment(ctx context.Context, lineID int64, caller domain.Session) service.Result[*order.OrderLine]
}

type AppointmentService interface {
	GetByID(ctx context.Context, id int64, caller domain.Session) (*appointment.Appointment, error)
	List(ctx context.Context, q appointment.ListAppointmentsQuery, caller domain.Session) ([]*appointment.Appointment, error)
	ListByPatient(ctx context.Context, patientID int64, caller domain.Session) ([]*appointment.Appointment, error)
	ListByDoctor(ctx context.Context, doctorID int64, caller domain.Session) ([]*appointment.Appointment, error)
	Add(ctx context.Context, in *appointment.AppointmentInput, caller domain.Session) service.Result[*appointment.Appointment]
	Modify(ctx context.Context, in *appointment.AppointmentInput, caller domain.Session) service.Result[*appointment.Appointment]
	Delete(ctx context.Context, id int64, caller domain.Session) service.Result[int64]
}

type PatientService interface {
	GetByID(ctx context.Context, id int64, caller domain.Session) (*patient.Patient, error)
	List(ctx context.Context, search string, caller domain.Session) ([]*patient.Patient, error)
	HealthInsurers() []patient.InsurerOption
	Add(ctx context.Context, in *patient.PatientInput, caller domain.Session) service.Result[*patient.Patient]
	Modify(ctx context.Context, in *patient.PatientInput, caller domain.Session) service.Result[*patient.Patient]
	Delete(ctx context.Context, id int64, caller domain.Session) service.Result[int64]
}

type DoctorService interface {
	GetByID(ctx context.Context, id int64) (*doctor.Doctor, error)
	List(ctx context.Context, nameFilter string) ([]*doctor.Doctor, error)
	Add(ctx context.Context, in *doctor.DoctorInput, caller domain.Session) service.Result[*doctor.Doctor]
	Modify(ctx context.Context, in *doctor.DoctorInput, caller domain.Session) service.Result[*doctor.Doctor]
	Delete(ctx context.Context, id int64, caller domain.Session) service.Result[int64]
}

type AuthService interface {
	Login(ctx context.Context, email, password, ip string) (*domain.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
	ChangePassword(ctx context.Context, caller domain.Session, currentPassword, newPassword string) error
	Register(ctx context.Context, in *service.RegisterUserInput, caller domain.Session) service.Result[*domain.User]
}
