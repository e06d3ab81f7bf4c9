package doctor

import "errors"

var (
	ErrDoctorNotFound = errors.New("doctor not found")
	ErrLicenseTaken   = errors.New("a doctor with this license number already exists")
)
