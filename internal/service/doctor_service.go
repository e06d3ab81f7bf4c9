package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain/doctor"
	"github.com/dmehra2102/prod-golang-projects/medpractice/pkg/metrics"
	"go.uber.org/zap"
)

type DoctorService struct {
	repo     doctor.Repository
	auditSvc *AuditService
	metrics  *metrics.Collector
	log      *zap.Logger
}

func NewDoctorService(repo doctor.Repository, auditSvc *AuditService, m *metrics.Collector, log *zap.Logger) *DoctorService {
	return &DoctorService{repo: repo, auditSvc: auditSvc, metrics: m, log: log}
}

func (s *DoctorService) GetByID(ctx context.Context, id int64) (*doctor.Doctor, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *DoctorService) List(ctx context.Context, nameFilter string) ([]*doctor.Doctor, error) {
	return s.repo.List(ctx, strings.TrimSpace(nameFilter))
}

func (s *DoctorService) Add(ctx context.Context, in *doctor.DoctorInput, caller domain.Session) Result[*doctor.Doctor] {
	ctx, span := startSpan(ctx, "DoctorService.Add", caller)
	defer span.End()

	r := func() Result[*doctor.Doctor] {
		if !caller.IsAdmin() {
			return Fail[*doctor.Doctor](KindForbidden, ErrForbidden.Error())
		}
		if v := ValidateDoctor(in); !v.Valid() {
			return Invalid[*doctor.Doctor](v)
		}
		if r := s.checkLicense(ctx, in.LicenseNumber, nil); !r.IsSuccess() {
			return Fail[*doctor.Doctor](r.Kind, r.Errors...)
		}

		d := in.ToEntity()
		if err := s.repo.Create(ctx, d); err != nil {
			s.log.Error("failed to create doctor", zap.Error(err))
			return failWith[*doctor.Doctor](err, "the doctor could not be saved")
		}
		s.auditSvc.LogAsync(AuditEntry{Session: caller, Action: domain.ActionCreate, ResourceType: "doctor", ResourceID: d.ID})
		return Ok(d)
	}()
	return observe(span, s.metrics, "doctor.add", r)
}

func (s *DoctorService) Modify(ctx context.Context, in *doctor.DoctorInput, caller domain.Session) Result[*doctor.Doctor] {
	ctx, span := startSpan(ctx, "DoctorService.Modify", caller)
	defer span.End()

	r := func() Result[*doctor.Doctor] {
		if !caller.IsAdmin() {
			return Fail[*doctor.Doctor](KindForbidden, ErrForbidden.Error())
		}
		if in == nil || !positive(in.ID) {
			return Fail[*doctor.Doctor](KindValidation, "doctor id is required")
		}
		existing, err := s.repo.GetByID(ctx, *in.ID)
		if err != nil {
			return s.lookupFailed(err, *in.ID)
		}
		if v := ValidateDoctor(in); !v.Valid() {
			return Invalid[*doctor.Doctor](v)
		}
		if r := s.checkLicense(ctx, in.LicenseNumber, &existing.ID); !r.IsSuccess() {
			return Fail[*doctor.Doctor](r.Kind, r.Errors...)
		}

		in.ApplyTo(existing)
		if err := s.repo.Update(ctx, existing); err != nil {
			s.log.Error("failed to update doctor", zap.Int64("doctor_id", existing.ID), zap.Error(err))
			return failWith[*doctor.Doctor](err, "the doctor could not be saved")
		}
		s.auditSvc.LogAsync(AuditEntry{Session: caller, Action: domain.ActionUpdate, ResourceType: "doctor", ResourceID: existing.ID})
		return Ok(existing)
	}()
	return observe(span, s.metrics, "doctor.modify", r)
}

func (s *DoctorService) Delete(ctx context.Context, id int64, caller domain.Session) Result[int64] {
	ctx, span := startSpan(ctx, "DoctorService.Delete", caller)
	defer span.End()

	r := func() Result[int64] {
		if !caller.IsAdmin() {
			return Fail[int64](KindForbidden, ErrForbidden.Error())
		}
		if _, err := s.repo.GetByID(ctx, id); err != nil {
			r := s.lookupFailed(err, id)
			return Fail[int64](r.Kind, r.Errors...)
		}
		if err := s.repo.Delete(ctx, id); err != nil {
			s.log.Error("failed to delete doctor", zap.Int64("doctor_id", id), zap.Error(err))
			return failWith[int64](err, "the doctor could not be deleted; it may still have orders or appointments")
		}
		s.auditSvc.LogAsync(AuditEntry{Session: caller, Action: domain.ActionDelete, ResourceType: "doctor", ResourceID: id})
		return Ok(id)
	}()
	return observe(span, s.metrics, "doctor.delete", r)
}

func (s *DoctorService) checkLicense(ctx context.Context, license string, excludeID *int64) Result[struct{}] {
	license = strings.ToUpper(strings.TrimSpace(license))
	taken, err := s.repo.ExistsByLicense(ctx, license, excludeID)
	if err != nil {
		s.log.Error("failed to check license uniqueness", zap.Error(err))
		return failWith[struct{}](err, "the doctor could not be verified")
	}
	if taken {
		return Fail[struct{}](KindConflict, fmt.Sprintf("license number %s is already registered", license))
	}
	return Ok(struct{}{})
}

func (s *DoctorService) lookupFailed(err error, id int64) Result[*doctor.Doctor] {
	if errors.Is(err, doctor.ErrDoctorNotFound) {
		return Fail[*doctor.Doctor](KindNotFound, fmt.Sprintf("doctor with ID %d does not exist", id))
	}
	s.log.Error("failed to load doctor", zap.Int64("doctor_id", id), zap.Error(err))
	return failWith[*doctor.Doctor](err, "the doctor could not be loaded")
}
