package service

import (
	"errors"

	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain/doctor"
	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain/order"
	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain/patient"
)

var ErrForbidden = errors.New("forbidden: insufficient permissions")

// kindOf maps domain errors onto result kinds. Anything unrecognised is a
// persistence failure.
func kindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, order.ErrLineNotFound),
		errors.Is(err, appointment.ErrAppointmentNotFound),
		errors.Is(err, patient.ErrPatientNotFound),
		errors.Is(err, doctor.ErrDoctorNotFound):
		return KindNotFound
	case errors.Is(err, order.ErrAlreadyClaimed),
		errors.Is(err, order.ErrInvalidLineTransition):
		return KindInvalidState
	case errors.Is(err, appointment.ErrAppointmentConflict),
		errors.Is(err, patient.ErrPatientAlreadyExists),
		errors.Is(err, doctor.ErrLicenseTaken):
		return KindConflict
	case errors.Is(err, appointment.ErrScheduledInPast),
		errors.Is(err, appointment.ErrInvalidStatus):
		return KindValidation
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	}
	return KindPersistence
}

// failWith converts err into a failed Result. Known domain errors keep their
// message; store faults are replaced by fallback so internals never leak.
func failWith[T any](err error, fallback string) Result[T] {
	kind := kindOf(err)
	if kind == KindPersistence {
		return Fail[T](kind, fallback)
	}
	return Fail[T](kind, err.Error())
}
