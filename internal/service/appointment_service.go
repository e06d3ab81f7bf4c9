package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain/doctor"
	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/medpractice/pkg/metrics"
	"go.uber.org/zap"
)

const DefaultAppointmentSlot = 30 * time.Minute

type AppointmentService struct {
	repo        appointment.Repository
	patientRepo patient.Repository
	doctorRepo  doctor.Repository
	auditSvc    *AuditService
	metrics     *metrics.Collector
	log         *zap.Logger
	slot        time.Duration
}

func NewAppointmentService(
	repo appointment.Repository,
	patientRepo patient.Repository,
	doctorRepo doctor.Repository,
	auditSvc *AuditService,
	m *metrics.Collector,
	log *zap.Logger,
	slot time.Duration,
) *AppointmentService {
	if slot <= 0 {
		slot = DefaultAppointmentSlot
	}
	return &AppointmentService{
		repo:        repo,
		patientRepo: patientRepo,
		doctorRepo:  doctorRepo,
		auditSvc:    auditSvc,
		metrics:     m,
		log:         log,
		slot:        slot,
	}
}

func (s *AppointmentService) GetByID(ctx context.Context, id int64, caller domain.Session) (*appointment.Appointment, error) {
	ctx, span := startSpan(ctx, "AppointmentService.GetByID", caller)
	defer span.End()

	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canSee(caller, a) {
		return nil, ErrForbidden
	}
	return a, nil
}

// List returns the appointments matching q that caller may see: patients and
// doctors see their own, administrators see everything.
func (s *AppointmentService) List(ctx context.Context, q appointment.ListAppointmentsQuery, caller domain.Session) ([]*appointment.Appointment, error) {
	ctx, span := startSpan(ctx, "AppointmentService.List", caller)
	defer span.End()

	switch {
	case caller.IsAdmin():
	case caller.IsDoctor():
		if caller.DoctorID == nil {
			return []*appointment.Appointment{}, nil
		}
		q.DoctorID = caller.DoctorID
	default:
		if caller.PatientID == nil {
			return []*appointment.Appointment{}, nil
		}
		q.PatientID = caller.PatientID
	}
	return s.repo.List(ctx, &q)
}

func (s *AppointmentService) ListByPatient(ctx context.Context, patientID int64, caller domain.Session) ([]*appointment.Appointment, error) {
	ctx, span := startSpan(ctx, "AppointmentService.ListByPatient", caller)
	defer span.End()

	if caller.IsPatient() && !caller.OwnsPatient(patientID) {
		return nil, ErrForbidden
	}
	q := &appointment.ListAppointmentsQuery{PatientID: &patientID}
	if caller.IsDoctor() {
		q.DoctorID = caller.DoctorID
	}
	return s.repo.List(ctx, q)
}

func (s *AppointmentService) ListByDoctor(ctx context.Context, doctorID int64, caller domain.Session) ([]*appointment.Appointment, error) {
	ctx, span := startSpan(ctx, "AppointmentService.ListByDoctor", caller)
	defer span.End()

	q := &appointment.ListAppointmentsQuery{DoctorID: &doctorID}
	if caller.IsPatient() {
		if caller.PatientID == nil {
			return []*appointment.Appointment{}, nil
		}
		q.PatientID = caller.PatientID
	}
	return s.repo.List(ctx, q)
}

func (s *AppointmentService) Add(ctx context.Context, in *appointment.AppointmentInput, caller domain.Session) Result[*appointment.Appointment] {
	ctx, span := startSpan(ctx, "AppointmentService.Add", caller)
	defer span.End()
	return observe(span, s.metrics, "appointment.add", s.add(ctx, in, caller))
}

func (s *AppointmentService) add(ctx context.Context, in *appointment.AppointmentInput, caller domain.Session) Result[*appointment.Appointment] {
	if in == nil {
		return Fail[*appointment.Appointment](KindValidation, "appointment is required")
	}
	applySessionDefaults(in, caller)

	if v := ValidateAppointment(in, time.Now()); !v.Valid() {
		return Invalid[*appointment.Appointment](v)
	}
	if r := checkParticipants(in, caller); !r.IsSuccess() {
		return Fail[*appointment.Appointment](r.Kind, r.Errors...)
	}
	if in.Status == nil {
		pending := appointment.StatusPending
		in.Status = &pending
	}
	if r := s.checkReferences(ctx, in); !r.IsSuccess() {
		return Fail[*appointment.Appointment](r.Kind, r.Errors...)
	}
	if r := s.checkSlot(ctx, in, nil); !r.IsSuccess() {
		return Fail[*appointment.Appointment](r.Kind, r.Errors...)
	}

	a := in.ToEntity()
	if err := s.repo.Create(ctx, a); err != nil {
		s.log.Error("failed to create appointment", zap.Error(err))
		return failWith[*appointment.Appointment](err, "the appointment could not be saved")
	}

	s.metrics.AppointmentsTotal.WithLabelValues(string(a.Status)).Inc()
	s.auditSvc.LogAsync(AuditEntry{
		Session:      caller,
		Action:       domain.ActionCreate,
		ResourceType: "appointment",
		ResourceID:   a.ID,
	})
	s.log.Info("appointment scheduled",
		zap.Int64("appointment_id", a.ID),
		zap.Int64("doctor_id", a.DoctorID),
		zap.Time("scheduled_at", a.ScheduledAt),
	)

	return Ok(a)
}

func (s *AppointmentService) Modify(ctx context.Context, in *appointment.AppointmentInput, caller domain.Session) Result[*appointment.Appointment] {
	ctx, span := startSpan(ctx, "AppointmentService.Modify", caller)
	defer span.End()
	return observe(span, s.metrics, "appointment.modify", s.modify(ctx, in, caller))
}

func (s *AppointmentService) modify(ctx context.Context, in *appointment.AppointmentInput, caller domain.Session) Result[*appointment.Appointment] {
	if in == nil || !positive(in.ID) {
		return Fail[*appointment.Appointment](KindValidation, "appointment id is required")
	}

	existing, err := s.repo.GetByID(ctx, *in.ID)
	if err != nil {
		return s.lookupFailed(err, *in.ID)
	}
	if !canSee(caller, existing) {
		return Fail[*appointment.Appointment](KindForbidden, ErrForbidden.Error())
	}

	applySessionDefaults(in, caller)
	if v := ValidateAppointment(in, time.Now()); !v.Valid() {
		return Invalid[*appointment.Appointment](v)
	}
	if r := checkParticipants(in, caller); !r.IsSuccess() {
		return Fail[*appointment.Appointment](r.Kind, r.Errors...)
	}
	if r := s.checkReferences(ctx, in); !r.IsSuccess() {
		return Fail[*appointment.Appointment](r.Kind, r.Errors...)
	}

	status := existing.Status
	if in.Status != nil {
		status = *in.Status
	}
	if status.OccupiesSlot() {
		if r := s.checkSlot(ctx, in, &existing.ID); !r.IsSuccess() {
			return Fail[*appointment.Appointment](r.Kind, r.Errors...)
		}
	}

	in.ApplyTo(existing)
	if err := s.repo.Update(ctx, existing); err != nil {
		s.log.Error("failed to update appointment", zap.Int64("appointment_id", existing.ID), zap.Error(err))
		return failWith[*appointment.Appointment](err, "the appointment could not be saved")
	}

	s.metrics.AppointmentsTotal.WithLabelValues(string(existing.Status)).Inc()
	s.auditSvc.LogAsync(AuditEntry{
		Session:      caller,
		Action:       domain.ActionUpdate,
		ResourceType: "appointment",
		ResourceID:   existing.ID,
	})

	return Ok(existing)
}

func (s *AppointmentService) Delete(ctx context.Context, id int64, caller domain.Session) Result[int64] {
	ctx, span := startSpan(ctx, "AppointmentService.Delete", caller)
	defer span.End()
	return observe(span, s.metrics, "appointment.delete", s.delete(ctx, id, caller))
}

func (s *AppointmentService) delete(ctx context.Context, id int64, caller domain.Session) Result[int64] {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		r := s.lookupFailed(err, id)
		return Fail[int64](r.Kind, r.Errors...)
	}
	if !canSee(caller, existing) {
		return Fail[int64](KindForbidden, ErrForbidden.Error())
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.log.Error("failed to delete appointment", zap.Int64("appointment_id", id), zap.Error(err))
		return failWith[int64](err, "the appointment could not be deleted")
	}

	s.auditSvc.LogAsync(AuditEntry{
		Session:      caller,
		Action:       domain.ActionDelete,
		ResourceType: "appointment",
		ResourceID:   id,
	})

	return Ok(id)
}

// checkParticipants keeps patients on their own appointments and doctors on
// their own agenda.
func checkParticipants(in *appointment.AppointmentInput, caller domain.Session) Result[struct{}] {
	switch {
	case caller.IsPatient() && !caller.OwnsPatient(*in.PatientID):
		return Fail[struct{}](KindForbidden, "patients can only book appointments for themselves")
	case caller.IsDoctor() && (caller.DoctorID == nil || *caller.DoctorID != *in.DoctorID):
		return Fail[struct{}](KindForbidden, "doctors can only schedule appointments on their own agenda")
	}
	return Ok(struct{}{})
}

// checkReferences verifies the referenced patient and doctor exist.
func (s *AppointmentService) checkReferences(ctx context.Context, in *appointment.AppointmentInput) Result[struct{}] {
	v := &Validation{}
	if _, err := s.patientRepo.GetByID(ctx, *in.PatientID); err != nil {
		if !errors.Is(err, patient.ErrPatientNotFound) {
			return failWith[struct{}](err, "the patient could not be verified")
		}
		v.Add(fmt.Sprintf("patient with ID %d does not exist", *in.PatientID))
	}
	if _, err := s.doctorRepo.GetByID(ctx, *in.DoctorID); err != nil {
		if !errors.Is(err, doctor.ErrDoctorNotFound) {
			return failWith[struct{}](err, "the doctor could not be verified")
		}
		v.Add(fmt.Sprintf("doctor with ID %d does not exist", *in.DoctorID))
	}
	if !v.Valid() {
		return Invalid[struct{}](v)
	}
	return Ok(struct{}{})
}

// checkSlot verifies the doctor is free for one slot around the requested time.
func (s *AppointmentService) checkSlot(ctx context.Context, in *appointment.AppointmentInput, excludeID *int64) Result[struct{}] {
	at := *in.ScheduledAt
	conflict, err := s.repo.HasConflict(ctx, *in.DoctorID, at.Add(-s.slot), at.Add(s.slot), excludeID)
	if err != nil {
		s.log.Error("failed to check appointment conflicts", zap.Error(err))
		return failWith[struct{}](err, "the doctor's schedule could not be checked")
	}
	if conflict {
		return Fail[struct{}](KindConflict, appointment.ErrAppointmentConflict.Error())
	}
	return Ok(struct{}{})
}

func (s *AppointmentService) lookupFailed(err error, id int64) Result[*appointment.Appointment] {
	if errors.Is(err, appointment.ErrAppointmentNotFound) {
		return Fail[*appointment.Appointment](KindNotFound, fmt.Sprintf("appointment with ID %d does not exist", id))
	}
	s.log.Error("failed to load appointment", zap.Int64("appointment_id", id), zap.Error(err))
	return failWith[*appointment.Appointment](err, "the appointment could not be loaded")
}

// applySessionDefaults fills the caller's own patient or doctor id when the
// input leaves it out.
func applySessionDefaults(in *appointment.AppointmentInput, caller domain.Session) {
	switch {
	case caller.IsPatient() && in.PatientID == nil && caller.PatientID != nil:
		id := *caller.PatientID
		in.PatientID = &id
	case caller.IsDoctor() && in.DoctorID == nil && caller.DoctorID != nil:
		id := *caller.DoctorID
		in.DoctorID = &id
	}
}

func canSee(caller domain.Session, a *appointment.Appointment) bool {
	switch {
	case caller.IsAdmin():
		return true
	case caller.IsDoctor():
		return caller.DoctorID != nil && *caller.DoctorID == a.DoctorID
	default:
		return caller.OwnsPatient(a.PatientID)
	}
}
