package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/medpractice/pkg/metrics"
	"go.uber.org/zap"
)

type PatientService struct {
	repo     patient.Repository
	auditSvc *AuditService
	metrics  *metrics.Collector
	log      *zap.Logger
}

func NewPatientService(repo patient.Repository, auditSvc *AuditService, m *metrics.Collector, log *zap.Logger) *PatientService {
	return &PatientService{
		repo:     repo,
		auditSvc: auditSvc,
		metrics:  m,
		log:      log,
	}
}

func (s *PatientService) GetByID(ctx context.Context, id int64, caller domain.Session) (*patient.Patient, error) {
	ctx, span := startSpan(ctx, "PatientService.GetByID", caller)
	defer span.End()

	if caller.IsPatient() && !caller.OwnsPatient(id) {
		return nil, ErrForbidden
	}
	return s.repo.GetByID(ctx, id)
}

// List returns patients matching search. Doctors only see patients that have
// at least one appointment with them; patients only see themselves.
func (s *PatientService) List(ctx context.Context, search string, caller domain.Session) ([]*patient.Patient, error) {
	ctx, span := startSpan(ctx, "PatientService.List", caller)
	defer span.End()

	q := &patient.ListPatientsQuery{Search: strings.TrimSpace(search)}
	switch {
	case caller.IsAdmin():
	case caller.IsDoctor():
		if caller.DoctorID == nil {
			return []*patient.Patient{}, nil
		}
		q.DoctorID = caller.DoctorID
	default:
		if caller.PatientID == nil {
			return []*patient.Patient{}, nil
		}
		q.PatientID = caller.PatientID
	}
	return s.repo.List(ctx, q)
}

func (s *PatientService) HealthInsurers() []patient.InsurerOption {
	return patient.HealthInsurers()
}

func (s *PatientService) Add(ctx context.Context, in *patient.PatientInput, caller domain.Session) Result[*patient.Patient] {
	ctx, span := startSpan(ctx, "PatientService.Add", caller)
	defer span.End()
	return observe(span, s.metrics, "patient.add", s.add(ctx, in, caller))
}

func (s *PatientService) add(ctx context.Context, in *patient.PatientInput, caller domain.Session) Result[*patient.Patient] {
	if !caller.HasRole(domain.RoleAdmin, domain.RoleDoctor) {
		return Fail[*patient.Patient](KindForbidden, ErrForbidden.Error())
	}
	if v := ValidatePatient(in); !v.Valid() {
		return Invalid[*patient.Patient](v)
	}
	if r := s.checkDocument(ctx, in.DocumentNumber, nil); !r.IsSuccess() {
		return Fail[*patient.Patient](r.Kind, r.Errors...)
	}

	p := in.ToEntity()
	if err := s.repo.Create(ctx, p); err != nil {
		s.log.Error("failed to create patient", zap.Error(err))
		return failWith[*patient.Patient](err, "the patient could not be saved")
	}

	s.metrics.PatientsCreatedTotal.Inc()
	s.auditSvc.LogAsync(AuditEntry{
		Session:      caller,
		Action:       domain.ActionCreate,
		ResourceType: "patient",
		ResourceID:   p.ID,
	})
	s.log.Info("patient created", zap.Int64("patient_id", p.ID))

	return Ok(p)
}

func (s *PatientService) Modify(ctx context.Context, in *patient.PatientInput, caller domain.Session) Result[*patient.Patient] {
	ctx, span := startSpan(ctx, "PatientService.Modify", caller)
	defer span.End()
	return observe(span, s.metrics, "patient.modify", s.modify(ctx, in, caller))
}

func (s *PatientService) modify(ctx context.Context, in *patient.PatientInput, caller domain.Session) Result[*patient.Patient] {
	if !caller.HasRole(domain.RoleAdmin, domain.RoleDoctor) {
		return Fail[*patient.Patient](KindForbidden, ErrForbidden.Error())
	}
	if in == nil || !positive(in.ID) {
		return Fail[*patient.Patient](KindValidation, "patient id is required")
	}

	existing, err := s.repo.GetByID(ctx, *in.ID)
	if err != nil {
		return s.lookupFailed(err, *in.ID)
	}
	if v := ValidatePatient(in); !v.Valid() {
		return Invalid[*patient.Patient](v)
	}
	if r := s.checkDocument(ctx, in.DocumentNumber, &existing.ID); !r.IsSuccess() {
		return Fail[*patient.Patient](r.Kind, r.Errors...)
	}

	in.ApplyTo(existing)
	if err := s.repo.Update(ctx, existing); err != nil {
		s.log.Error("failed to update patient", zap.Int64("patient_id", existing.ID), zap.Error(err))
		return failWith[*patient.Patient](err, "the patient could not be saved")
	}

	s.auditSvc.LogAsync(AuditEntry{
		Session:      caller,
		Action:       domain.ActionUpdate,
		ResourceType: "patient",
		ResourceID:   existing.ID,
	})

	return Ok(existing)
}

func (s *PatientService) Delete(ctx context.Context, id int64, caller domain.Session) Result[int64] {
	ctx, span := startSpan(ctx, "PatientService.Delete", caller)
	defer span.End()
	return observe(span, s.metrics, "patient.delete", s.delete(ctx, id, caller))
}

func (s *PatientService) delete(ctx context.Context, id int64, caller domain.Session) Result[int64] {
	if !caller.IsAdmin() {
		return Fail[int64](KindForbidden, ErrForbidden.Error())
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		r := s.lookupFailed(err, id)
		return Fail[int64](r.Kind, r.Errors...)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.log.Error("failed to delete patient", zap.Int64("patient_id", id), zap.Error(err))
		return failWith[int64](err, "the patient could not be deleted; it may still have orders or appointments")
	}

	s.auditSvc.LogAsync(AuditEntry{
		Session:      caller,
		Action:       domain.ActionDelete,
		ResourceType: "patient",
		ResourceID:   id,
	})

	return Ok(id)
}

func (s *PatientService) checkDocument(ctx context.Context, document string, excludeID *int64) Result[struct{}] {
	document = strings.TrimSpace(document)
	exists, err := s.repo.ExistsByDocument(ctx, document, excludeID)
	if err != nil {
		s.log.Error("failed to check document uniqueness", zap.Error(err))
		return failWith[struct{}](err, "the patient could not be verified")
	}
	if exists {
		return Fail[struct{}](KindConflict, fmt.Sprintf("a patient with document number %s already exists", document))
	}
	return Ok(struct{}{})
}

func (s *PatientService) lookupFailed(err error, id int64) Result[*patient.Patient] {
	if errors.Is(err, patient.ErrPatientNotFound) {
		return Fail[*patient.Patient](KindNotFound, fmt.Sprintf("patient with ID %d does not exist", id))
	}
	s.log.Error("failed to load patient", zap.Int64("patient_id", id), zap.Error(err))
	return failWith[*patient.Patient](err, "the patient could not be loaded")
}
