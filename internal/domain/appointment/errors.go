package appointment

import "errors"

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrAppointmentConflict = errors.New("the doctor already has an appointment at that time")
	ErrScheduledInPast     = errors.New("appointment date must be later than the current date and time")
	ErrInvalidStatus       = errors.New("invalid appointment status")
)
