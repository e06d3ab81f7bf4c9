package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain/doctor"
	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain/order"
	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain/patient"
	"github.com/go-playground/validator/v10"
)

const (
	msgPatientRequired  = "a valid patient must be selected"
	msgDoctorRequired   = "a valid doctor must be selected"
	msgDateRequired     = "an appointment date must be selected"
	msgOrderLinesNeeded = "the order must contain at least one line with a registration number"
)

var structValidator = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON name so messages match what clients submit.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// checkStruct runs struct-tag rules and records one message per failing field.
func checkStruct(v *Validation, s any, prefix string) {
	err := structValidator.Struct(s)
	if err == nil {
		return
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		v.Add(err.Error())
		return
	}
	for _, fe := range fieldErrs {
		v.Add(prefix + fieldMessage(fe))
	}
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "number", "numeric":
		return field + " must contain only digits"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	}
	return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
}

func positive(id *int64) bool {
	return id != nil && *id > 0
}

// PrepareOrder drops nil lines and lines without a registration number. Blank
// lines are how forms submit unused rows, so they are never an error.
func PrepareOrder(in *order.OrderInput) {
	if in == nil {
		return
	}
	kept := in.Lines[:0]
	for _, l := range in.Lines {
		if !l.IsBlank() {
			kept = append(kept, l)
		}
	}
	for i := len(kept); i < len(in.Lines); i++ {
		in.Lines[i] = nil
	}
	in.Lines = kept
}

// ValidateOrder checks a submitted order after PrepareOrder has run.
func ValidateOrder(in *order.OrderInput) *Validation {
	v := &Validation{}
	if in == nil {
		return v.Add("order is required")
	}
	v.Check(positive(in.PatientID), msgPatientRequired)
	if in.DoctorID != nil {
		v.Check(*in.DoctorID > 0, msgDoctorRequired)
	}
	checkStruct(v, in, "")
	v.Check(len(in.Lines) > 0, msgOrderLinesNeeded)
	for i, l := range in.Lines {
		if l == nil {
			continue
		}
		checkStruct(v, l, fmt.Sprintf("line %d: ", i+1))
	}
	return v
}

// ValidateAppointment checks the fields every appointment needs, with
// scheduling measured against now.
func ValidateAppointment(in *appointment.AppointmentInput, now time.Time) *Validation {
	v := &Validation{}
	if in == nil {
		return v.Add("appointment is required")
	}
	v.Check(positive(in.PatientID), msgPatientRequired)
	v.Check(positive(in.DoctorID), msgDoctorRequired)
	if in.ScheduledAt == nil || in.ScheduledAt.IsZero() {
		v.Add(msgDateRequired)
	} else {
		v.Check(in.ScheduledAt.After(now), appointment.ErrScheduledInPast.Error())
	}
	if in.Status != nil {
		v.Check(in.Status.IsValid(), appointment.ErrInvalidStatus.Error())
	}
	return v
}

func ValidatePatient(in *patient.PatientInput) *Validation {
	v := &Validation{}
	if in == nil {
		return v.Add("patient is required")
	}
	checkStruct(v, in, "")
	if in.Gender != "" {
		v.Check(in.Gender.IsValid(), "gender is invalid")
	}
	if in.HealthInsurer != "" {
		v.Check(in.HealthInsurer.IsValid(), "health_insurer is not in the catalogue")
	}
	if in.BirthDate != nil {
		v.Check(!in.BirthDate.After(time.Now()), "birth_date cannot be in the future")
	}
	return v
}

func ValidateDoctor(in *doctor.DoctorInput) *Validation {
	v := &Validation{}
	if in == nil {
		return v.Add("doctor is required")
	}
	checkStruct(v, in, "")
	return v
}
