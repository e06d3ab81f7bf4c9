package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain/doctor"
	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain/order"
	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/medpractice/pkg/metrics"
	"go.uber.org/zap"
)

type OrderService struct {
	repo        order.Repository
	patientRepo patient.Repository
	doctorRepo  doctor.Repository
	auditSvc    *AuditService
	metrics     *metrics.Collector
	log         *zap.Logger
}

func NewOrderService(
	repo order.Repository,
	patientRepo patient.Repository,
	doctorRepo doctor.Repository,
	auditSvc *AuditService,
	m *metrics.Collector,
	log *zap.Logger,
) *OrderService {
	return &OrderService{
		repo:        repo,
		patientRepo: patientRepo,
		doctorRepo:  doctorRepo,
		auditSvc:    auditSvc,
		metrics:     m,
		log:         log,
	}
}

func (s *OrderService) GetByID(ctx context.Context, id int64, caller domain.Session) (*order.MedicalOrder, error) {
	ctx, span := startSpan(ctx, "OrderService.GetByID", caller)
	defer span.End()

	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	// RBAC: patients can only read their own orders
	if caller.IsPatient() && !caller.OwnsPatient(o.PatientID) {
		return nil, ErrForbidden
	}
	return o, nil
}

// List returns orders whose patient name contains nameFilter. Patients only
// ever see their own orders.
// List returns the orders matching q. Patients are always narrowed to their
// own orders whatever q asks for.
func (s *OrderService) List(ctx context.Context, q order.ListOrdersQuery, caller domain.Session) ([]*order.MedicalOrder, error) {
	ctx, span := startSpan(ctx, "OrderService.List", caller)
	defer span.End()

	q.NameFilter = strings.TrimSpace(q.NameFilter)
	if caller.IsPatient() {
		if caller.PatientID == nil {
			return []*order.MedicalOrder{}, nil
		}
		q.PatientID = caller.PatientID
	}
	return s.repo.List(ctx, &q)
}

func (s *OrderService) ListByPatientDocument(ctx context.Context, document string, caller domain.Session) ([]*order.MedicalOrder, error) {
	ctx, span := startSpan(ctx, "OrderService.ListByPatientDocument", caller)
	defer span.End()

	orders, err := s.repo.ListByPatientDocument(ctx, strings.TrimSpace(document))
	if err != nil {
		return nil, err
	}
	if !caller.IsPatient() {
		return orders, nil
	}
	own := make([]*order.MedicalOrder, 0, len(orders))
	for _, o := range orders {
		if caller.OwnsPatient(o.PatientID) {
			own = append(own, o)
		}
	}
	return own, nil
}

func (s *OrderService) Add(ctx context.Context, in *order.OrderInput, caller domain.Session) Result[*order.MedicalOrder] {
	ctx, span := startSpan(ctx, "OrderService.Add", caller)
	defer span.End()
	return observe(span, s.metrics, "order.add", s.add(ctx, in, caller))
}

func (s *OrderService) add(ctx context.Context, in *order.OrderInput, caller domain.Session) Result[*order.MedicalOrder] {
	if !caller.HasRole(domain.RoleAdmin, domain.RoleDoctor) {
		return Fail[*order.MedicalOrder](KindForbidden, ErrForbidden.Error())
	}

	PrepareOrder(in)
	if v := ValidateOrder(in); !v.Valid() {
		return Invalid[*order.MedicalOrder](v)
	}
	if r := s.checkReferences(ctx, *in.PatientID, in.DoctorID); !r.IsSuccess() {
		return Fail[*order.MedicalOrder](r.Kind, r.Errors...)
	}

	if in.IssuedAt.IsZero() {
		in.IssuedAt = time.Now()
	}
	o := in.ToEntity()

	if err := s.repo.Create(ctx, o); err != nil {
		s.log.Error("failed to create medical order", zap.Error(err))
		return failWith[*order.MedicalOrder](err, "the medical order could not be saved")
	}

	s.metrics.OrdersCreatedTotal.Inc()
	s.auditSvc.LogAsync(AuditEntry{
		Session:      caller,
		Action:       domain.ActionCreate,
		ResourceType: "medical_order",
		ResourceID:   o.ID,
	})
	s.log.Info("medical order created",
		zap.Int64("order_id", o.ID),
		zap.Int64("patient_id", o.PatientID),
		zap.Int("lines", len(o.Lines)),
	)

	return Ok(o)
}

func (s *OrderService) Modify(ctx context.Context, in *order.OrderInput, caller domain.Session) Result[*order.MedicalOrder] {
	ctx, span := startSpan(ctx, "OrderService.Modify", caller)
	defer span.End()
	return observe(span, s.metrics, "order.modify", s.modify(ctx, in, caller))
}

func (s *OrderService) modify(ctx context.Context, in *order.OrderInput, caller domain.Session) Result[*order.MedicalOrder] {
	if !caller.HasRole(domain.RoleAdmin, domain.RoleDoctor) {
		return Fail[*order.MedicalOrder](KindForbidden, ErrForbidden.Error())
	}
	if in == nil || !positive(in.ID) {
		return Fail[*order.MedicalOrder](KindValidation, "medical order id is required")
	}

	existing, err := s.repo.GetByID(ctx, *in.ID)
	if err != nil {
		return s.lookupFailed(err, *in.ID)
	}

	PrepareOrder(in)
	if v := ValidateOrder(in); !v.Valid() {
		return Invalid[*order.MedicalOrder](v)
	}
	if r := s.checkReferences(ctx, *in.PatientID, nil); !r.IsSuccess() {
		return Fail[*order.MedicalOrder](r.Kind, r.Errors...)
	}

	in.ApplyTo(existing)
	if err := s.repo.Update(ctx, existing); err != nil {
		s.log.Error("failed to update medical order", zap.Int64("order_id", existing.ID), zap.Error(err))
		return failWith[*order.MedicalOrder](err, "the medical order could not be saved")
	}

	s.auditSvc.LogAsync(AuditEntry{
		Session:      caller,
		Action:       domain.ActionUpdate,
		ResourceType: "medical_order",
		ResourceID:   existing.ID,
	})

	// A claim or line transition may have landed since the load.
	if fresh, err := s.repo.GetByID(ctx, existing.ID); err == nil {
		return Ok(fresh)
	}
	return Ok(existing)
}

func (s *OrderService) Delete(ctx context.Context, id int64, caller domain.Session) Result[int64] {
	ctx, span := startSpan(ctx, "OrderService.Delete", caller)
	defer span.End()
	return observe(span, s.metrics, "order.delete", s.delete(ctx, id, caller))
}

func (s *OrderService) delete(ctx context.Context, id int64, caller domain.Session) Result[int64] {
	if !caller.HasRole(domain.RoleAdmin, domain.RoleDoctor) {
		return Fail[int64](KindForbidden, ErrForbidden.Error())
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		r := s.lookupFailed(err, id)
		return Fail[int64](r.Kind, r.Errors...)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.log.Error("failed to delete medical order", zap.Int64("order_id", id), zap.Error(err))
		return failWith[int64](err, "the medical order could not be deleted")
	}

	s.auditSvc.LogAsync(AuditEntry{
		Session:      caller,
		Action:       domain.ActionDelete,
		ResourceType: "medical_order",
		ResourceID:   id,
	})

	return Ok(id)
}

// Claim assigns an unclaimed order to a doctor. Doctors always claim for
// themselves; administrators must name the doctor. Any second claim fails.
func (s *OrderService) Claim(ctx context.Context, orderID int64, doctorID *int64, caller domain.Session) Result[*order.MedicalOrder] {
	ctx, span := startSpan(ctx, "OrderService.Claim", caller)
	defer span.End()
	return observe(span, s.metrics, "order.claim", s.claim(ctx, orderID, doctorID, caller))
}

func (s *OrderService) claim(ctx context.Context, orderID int64, doctorID *int64, caller domain.Session) Result[*order.MedicalOrder] {
	var claimant int64
	switch {
	case caller.IsDoctor():
		if !positive(caller.DoctorID) {
			return Fail[*order.MedicalOrder](KindForbidden, "the current user is not linked to a doctor")
		}
		claimant = *caller.DoctorID
	case caller.IsAdmin():
		if !positive(doctorID) {
			return Fail[*order.MedicalOrder](KindValidation, msgDoctorRequired)
		}
		claimant = *doctorID
	default:
		return Fail[*order.MedicalOrder](KindForbidden, ErrForbidden.Error())
	}

	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return s.lookupFailed(err, orderID)
	}

	if caller.IsAdmin() {
		if r := s.checkReferences(ctx, o.PatientID, &claimant); !r.IsSuccess() {
			return Fail[*order.MedicalOrder](r.Kind, r.Errors...)
		}
	}

	now := time.Now()
	if err := o.Claim(claimant, now); err != nil {
		return Fail[*order.MedicalOrder](KindInvalidState,
			fmt.Sprintf("medical order %d has already been claimed by doctor %d", o.ID, *o.DoctorID))
	}

	claimed, err := s.repo.Claim(ctx, o.ID, claimant, now)
	if err != nil {
		s.log.Error("failed to claim medical order", zap.Int64("order_id", o.ID), zap.Error(err))
		return failWith[*order.MedicalOrder](err, "the medical order could not be claimed")
	}
	if !claimed {
		return Fail[*order.MedicalOrder](KindInvalidState,
			fmt.Sprintf("medical order %d has already been claimed", o.ID))
	}

	s.metrics.OrdersClaimedTotal.Inc()
	s.auditSvc.LogAsync(AuditEntry{
		Session:      caller,
		Action:       domain.ActionUpdate,
		ResourceType: "medical_order",
		ResourceID:   o.ID,
		Changes:      fmt.Sprintf(`{"action":"claim","doctor_id":%d}`, claimant),
	})
	s.log.Info("medical order claimed", zap.Int64("order_id", o.ID), zap.Int64("doctor_id", claimant))

	return Ok(o)
}

// BeginTreatment moves one order line from not started to in treatment.
func (s *OrderService) BeginTreatment(ctx context.Context, lineID int64, caller domain.Session) Result[*order.OrderLine] {
	ctx, span := startSpan(ctx, "OrderService.BeginTreatment", caller)
	defer span.End()
	return observe(span, s.metrics, "order.begin_treatment",
		s.transitionLine(ctx, lineID, caller, order.LineInTreatment, (*order.OrderLine).BeginTreatment))
}

// CompleteTreatment moves one order line from in treatment to completed.
func (s *OrderService) CompleteTreatment(ctx context.Context, lineID int64, caller domain.Session) Result[*order.OrderLine] {
	ctx, span := startSpan(ctx, "OrderService.CompleteTreatment", caller)
	defer span.End()
	return observe(span, s.metrics, "order.complete_treatment",
		s.transitionLine(ctx, lineID, caller, order.LineCompleted, (*order.OrderLine).CompleteTreatment))
}

func (s *OrderService) transitionLine(
	ctx context.Context,
	lineID int64,
	caller domain.Session,
	target order.LineStatus,
	apply func(*order.OrderLine, time.Time) error,
) Result[*order.OrderLine] {
	if !caller.HasRole(domain.RoleAdmin, domain.RoleDoctor) {
		return Fail[*order.OrderLine](KindForbidden, ErrForbidden.Error())
	}

	line, err := s.repo.GetLine(ctx, lineID)
	if err != nil {
		if errors.Is(err, order.ErrLineNotFound) {
			return Fail[*order.OrderLine](KindNotFound,
				fmt.Sprintf("medical order line with ID %d does not exist", lineID))
		}
		s.log.Error("failed to load order line", zap.Int64("line_id", lineID), zap.Error(err))
		return failWith[*order.OrderLine](err, "the order line could not be loaded")
	}

	from := line.Status
	if err := apply(line, time.Now()); err != nil {
		return Fail[*order.OrderLine](KindInvalidState,
			fmt.Sprintf("order line %d is %s and cannot move to %s", lineID, from, target))
	}

	updated, err := s.repo.UpdateLineStatus(ctx, line, from)
	if err != nil {
		s.log.Error("failed to update order line", zap.Int64("line_id", lineID), zap.Error(err))
		return failWith[*order.OrderLine](err, "the order line could not be saved")
	}
	if !updated {
		return Fail[*order.OrderLine](KindInvalidState,
			fmt.Sprintf("order line %d changed status concurrently", lineID))
	}

	s.metrics.OrderLineTransitions.WithLabelValues(string(target)).Inc()
	s.auditSvc.LogAsync(AuditEntry{
		Session:      caller,
		Action:       domain.ActionUpdate,
		ResourceType: "medical_order_line",
		ResourceID:   lineID,
		Changes:      fmt.Sprintf(`{"status":{"from":%q,"to":%q}}`, from, target),
	})

	return Ok(line)
}

// checkReferences confirms that the referenced patient and, when given, doctor exist.
func (s *OrderService) checkReferences(ctx context.Context, patientID int64, doctorID *int64) Result[struct{}] {
	v := &Validation{}
	if _, err := s.patientRepo.GetByID(ctx, patientID); err != nil {
		if !errors.Is(err, patient.ErrPatientNotFound) {
			return failWith[struct{}](err, "the patient could not be verified")
		}
		v.Add(fmt.Sprintf("patient with ID %d does not exist", patientID))
	}
	if doctorID != nil {
		if _, err := s.doctorRepo.GetByID(ctx, *doctorID); err != nil {
			if !errors.Is(err, doctor.ErrDoctorNotFound) {
				return failWith[struct{}](err, "the doctor could not be verified")
			}
			v.Add(fmt.Sprintf("doctor with ID %d does not exist", *doctorID))
		}
	}
	if !v.Valid() {
		return Invalid[struct{}](v)
	}
	return Ok(struct{}{})
}

func (s *OrderService) lookupFailed(err error, id int64) Result[*order.MedicalOrder] {
	if errors.Is(err, order.ErrOrderNotFound) {
		return Fail[*order.MedicalOrder](KindNotFound, fmt.Sprintf("medical order with ID %d does not exist", id))
	}
	s.log.Error("failed to load medical order", zap.Int64("order_id", id), zap.Error(err))
	return failWith[*order.MedicalOrder](err, "the medical order could not be loaded")
}
