package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain/order"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func orderInput(patientID int64, regs ...string) *order.OrderInput {
	in := &order.OrderInput{PatientID: int64Ptr(patientID), Diagnosis: "lumbalgia"}
	for _, r := range regs {
		in.Lines = append(in.Lines, &order.LineInput{RegistrationNumber: r, Description: "kinesiología"})
	}
	return in
}

func seedOrder(t *testing.T, f *fixture, regs ...string) *order.MedicalOrder {
	t.Helper()
	r := f.orderService().Add(context.Background(), orderInput(5, regs...), adminSession())
	require.True(t, r.IsSuccess(), r.Errors)
	return r.Value
}

func TestOrderService_AddDropsBlankLines(t *testing.T) {
	f := newFixture(t)
	in := orderInput(5, "250101", "   ", "", "250102")
	in.Lines = append(in.Lines, nil)

	r := f.orderService().Add(context.Background(), in, doctorSession(3))

	require.True(t, r.IsSuccess(), r.Errors)
	stored, err := f.orders.GetByID(context.Background(), r.Value.ID)
	require.NoError(t, err)
	require.Len(t, stored.Lines, 2)
	for _, l := range stored.Lines {
		assert.NotEmpty(t, l.RegistrationNumber)
		assert.Equal(t, order.LineNotStarted, l.Status)
	}
	assert.False(t, stored.IssuedAt.IsZero())
	assert.False(t, stored.IsClaimed())
}

func TestOrderService_AddRejectsOrderWithOnlyBlankLines(t *testing.T) {
	f := newFixture(t)

	r := f.orderService().Add(context.Background(), orderInput(5, " ", ""), adminSession())

	assert.False(t, r.IsSuccess())
	assert.Equal(t, KindValidation, r.Kind)
	assert.Contains(t, r.Errors, msgOrderLinesNeeded)
	assert.Zero(t, f.orders.count())
}

func TestOrderService_AddAccumulatesValidationMessages(t *testing.T) {
	f := newFixture(t)
	in := &order.OrderInput{DoctorID: int64Ptr(0)}

	r := f.orderService().Add(context.Background(), in, adminSession())

	assert.Equal(t, KindValidation, r.Kind)
	assert.Equal(t, []string{msgPatientRequired, msgDoctorRequired, msgOrderLinesNeeded}, r.Errors)
}

func TestOrderService_AddUnknownPatient(t *testing.T) {
	f := newFixture(t)

	r := f.orderService().Add(context.Background(), orderInput(99, "250101"), adminSession())

	assert.Equal(t, KindValidation, r.Kind)
	assert.Equal(t, []string{"patient with ID 99 does not exist"}, r.Errors)
	assert.Zero(t, f.orders.count())
}

func TestOrderService_AddForbiddenForPatients(t *testing.T) {
	f := newFixture(t)

	r := f.orderService().Add(context.Background(), orderInput(5, "250101"), patientSession(5))

	assert.Equal(t, KindForbidden, r.Kind)
	assert.Zero(t, f.orders.count())
}

func TestOrderService_AddHidesStoreFaults(t *testing.T) {
	f := newFixture(t)
	f.orders.failWrites = true

	r := f.orderService().Add(context.Background(), orderInput(5, "250101"), adminSession())

	assert.Equal(t, KindPersistence, r.Kind)
	assert.Equal(t, []string{"the medical order could not be saved"}, r.Errors)
	assert.NotContains(t, r.Errors[0], errStoreDown.Error())
}

func TestOrderService_ClaimOnce(t *testing.T) {
	f := newFixture(t)
	svc := f.orderService()
	o := seedOrder(t, f, "250101")

	first := svc.Claim(context.Background(), o.ID, nil, doctorSession(3))
	require.True(t, first.IsSuccess(), first.Errors)
	require.NotNil(t, first.Value.DoctorID)
	assert.Equal(t, int64(3), *first.Value.DoctorID)

	other := svc.Claim(context.Background(), o.ID, nil, doctorSession(4))
	assert.Equal(t, KindInvalidState, other.Kind)

	again := svc.Claim(context.Background(), o.ID, nil, doctorSession(3))
	assert.Equal(t, KindInvalidState, again.Kind)

	stored, err := f.orders.GetByID(context.Background(), o.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.DoctorID)
	assert.Equal(t, int64(3), *stored.DoctorID)
}

func TestOrderService_ClaimRules(t *testing.T) {
	f := newFixture(t)
	svc := f.orderService()
	o := seedOrder(t, f, "250101")

	t.Run("admin must name a doctor", func(t *testing.T) {
		r := svc.Claim(context.Background(), o.ID, nil, adminSession())
		assert.Equal(t, KindValidation, r.Kind)
		assert.Equal(t, []string{msgDoctorRequired}, r.Errors)
	})

	t.Run("admin names an unknown doctor", func(t *testing.T) {
		r := svc.Claim(context.Background(), o.ID, int64Ptr(77), adminSession())
		assert.Equal(t, KindValidation, r.Kind)
	})

	t.Run("patients cannot claim", func(t *testing.T) {
		r := svc.Claim(context.Background(), o.ID, int64Ptr(3), patientSession(5))
		assert.Equal(t, KindForbidden, r.Kind)
	})

	t.Run("missing order", func(t *testing.T) {
		r := svc.Claim(context.Background(), 404, nil, doctorSession(3))
		assert.Equal(t, KindNotFound, r.Kind)
		assert.Equal(t, []string{"medical order with ID 404 does not exist"}, r.Errors)
	})

	t.Run("admin assigns a doctor", func(t *testing.T) {
		r := svc.Claim(context.Background(), o.ID, int64Ptr(4), adminSession())
		require.True(t, r.IsSuccess(), r.Errors)
		assert.Equal(t, int64(4), *r.Value.DoctorID)
	})
}

func TestOrderService_ConcurrentClaimsHaveOneWinner(t *testing.T) {
	f := newFixture(t)
	svc := f.orderService()
	o := seedOrder(t, f, "250101")

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 16; i++ {
		doctorID := int64(3 + i%2)
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := svc.Claim(context.Background(), o.ID, nil, doctorSession(doctorID))
			if r.IsSuccess() {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}

func TestOrderService_TreatmentTransitions(t *testing.T) {
	f := newFixture(t)
	svc := f.orderService()
	o := seedOrder(t, f, "250101")
	lineID := o.Lines[0].ID

	early := svc.CompleteTreatment(context.Background(), lineID, doctorSession(3))
	assert.Equal(t, KindInvalidState, early.Kind)

	begun := svc.BeginTreatment(context.Background(), lineID, doctorSession(3))
	require.True(t, begun.IsSuccess(), begun.Errors)
	assert.Equal(t, order.LineInTreatment, begun.Value.Status)
	assert.NotNil(t, begun.Value.StartedAt)

	twice := svc.BeginTreatment(context.Background(), lineID, doctorSession(3))
	assert.Equal(t, KindInvalidState, twice.Kind)
	line, err := f.orders.GetLine(context.Background(), lineID)
	require.NoError(t, err)
	assert.Equal(t, order.LineInTreatment, line.Status)

	done := svc.CompleteTreatment(context.Background(), lineID, doctorSession(3))
	require.True(t, done.IsSuccess(), done.Errors)
	assert.Equal(t, order.LineCompleted, done.Value.Status)

	after := svc.BeginTreatment(context.Background(), lineID, doctorSession(3))
	assert.Equal(t, KindInvalidState, after.Kind)
	line, err = f.orders.GetLine(context.Background(), lineID)
	require.NoError(t, err)
	assert.Equal(t, order.LineCompleted, line.Status)
}

func TestOrderService_BeginTreatmentMissingLine(t *testing.T) {
	f := newFixture(t)

	r := f.orderService().BeginTreatment(context.Background(), 4242, doctorSession(3))

	assert.Equal(t, KindNotFound, r.Kind)
	assert.Equal(t, []string{"medical order line with ID 4242 does not exist"}, r.Errors)
}

func TestOrderService_ModifyKeepsLineProgress(t *testing.T) {
	f := newFixture(t)
	svc := f.orderService()
	o := seedOrder(t, f, "250101", "250102")
	kept := o.Lines[0].ID
	require.True(t, svc.BeginTreatment(context.Background(), kept, doctorSession(3)).IsSuccess())

	in := orderInput(6)
	in.ID = int64Ptr(o.ID)
	in.Diagnosis = "cervicalgia"
	in.Lines = []*order.LineInput{
		{ID: int64Ptr(kept), RegistrationNumber: "250101", Sessions: 10},
		{RegistrationNumber: "250199"},
		{RegistrationNumber: "  "},
	}

	r := svc.Modify(context.Background(), in, doctorSession(3))
	require.True(t, r.IsSuccess(), r.Errors)

	stored, err := f.orders.GetByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(6), stored.PatientID)
	assert.Equal(t, "cervicalgia", stored.Diagnosis)
	require.Len(t, stored.Lines, 2)
	assert.Equal(t, kept, stored.Lines[0].ID)
	assert.Equal(t, order.LineInTreatment, stored.Lines[0].Status)
	assert.Equal(t, 10, stored.Lines[0].Sessions)
	assert.Equal(t, "250199", stored.Lines[1].RegistrationNumber)
	assert.Equal(t, order.LineNotStarted, stored.Lines[1].Status)
}

func TestOrderService_ModifyMissingOrder(t *testing.T) {
	f := newFixture(t)
	in := orderInput(5, "250101")
	in.ID = int64Ptr(31)

	r := f.orderService().Modify(context.Background(), in, adminSession())

	assert.Equal(t, KindNotFound, r.Kind)
	assert.Zero(t, f.orders.count())
}

func TestOrderService_Delete(t *testing.T) {
	f := newFixture(t)
	svc := f.orderService()
	keep := seedOrder(t, f, "250101")
	drop := seedOrder(t, f, "250102")

	missing := svc.Delete(context.Background(), 999, adminSession())
	assert.Equal(t, KindNotFound, missing.Kind)
	assert.Equal(t, 2, f.orders.count())

	r := svc.Delete(context.Background(), drop.ID, adminSession())
	require.True(t, r.IsSuccess(), r.Errors)
	assert.Equal(t, 1, f.orders.count())
	_, err := f.orders.GetByID(context.Background(), keep.ID)
	assert.NoError(t, err)
}

func TestOrderService_PatientsOnlySeeTheirOrders(t *testing.T) {
	f := newFixture(t)
	svc := f.orderService()
	mine := seedOrder(t, f, "250101")
	other := svc.Add(context.Background(), orderInput(6, "250102"), adminSession())
	require.True(t, other.IsSuccess())

	list, err := svc.List(context.Background(), order.ListOrdersQuery{}, patientSession(5))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, mine.ID, list[0].ID)

	_, err = svc.GetByID(context.Background(), other.Value.ID, patientSession(5))
	assert.ErrorIs(t, err, ErrForbidden)

	byDoc, err := svc.ListByPatientDocument(context.Background(), "28999111", patientSession(5))
	require.NoError(t, err)
	assert.Empty(t, byDoc)

	byDoc, err = svc.ListByPatientDocument(context.Background(), " 28999111 ", adminSession())
	require.NoError(t, err)
	assert.Len(t, byDoc, 1)

	all, err := svc.List(context.Background(), order.ListOrdersQuery{}, adminSession())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

// interleavingOrderRepo runs beforeUpdate just ahead of the store write, the
// window in which another request can claim the order or move a line.
type interleavingOrderRepo struct {
	*mockOrderRepo
	beforeUpdate func()
}

func (r *interleavingOrderRepo) Update(ctx context.Context, o *order.MedicalOrder) error {
	r.beforeUpdate()
	return r.mockOrderRepo.Update(ctx, o)
}

func TestOrderService_ModifyDoesNotUndoConcurrentClaimOrTreatment(t *testing.T) {
	f := newFixture(t)
	o := seedOrder(t, f, "250101")
	line := o.Lines[0]

	repo := &interleavingOrderRepo{mockOrderRepo: f.orders, beforeUpdate: func() {
		now := time.Now()
		claimed, err := f.orders.Claim(context.Background(), o.ID, 4, now)
		require.NoError(t, err)
		require.True(t, claimed)

		started := line
		started.Status = order.LineInTreatment
		started.StartedAt = &now
		moved, err := f.orders.UpdateLineStatus(context.Background(), &started, order.LineNotStarted)
		require.NoError(t, err)
		require.True(t, moved)
	}}
	svc := NewOrderService(repo, f.patients, f.doctors, f.auditSvc, f.metrics, zap.NewNop())

	in := orderInput(5)
	in.ID = int64Ptr(o.ID)
	in.Diagnosis = "cervicalgia"
	in.Lines = []*order.LineInput{{ID: int64Ptr(line.ID), RegistrationNumber: "250101", Sessions: 5}}

	r := svc.Modify(context.Background(), in, adminSession())
	require.True(t, r.IsSuccess(), r.Errors)

	require.NotNil(t, r.Value.DoctorID)
	assert.Equal(t, int64(4), *r.Value.DoctorID)
	require.Len(t, r.Value.Lines, 1)
	assert.Equal(t, order.LineInTreatment, r.Value.Lines[0].Status)
	assert.Equal(t, 5, r.Value.Lines[0].Sessions)
	assert.Equal(t, "cervicalgia", r.Value.Diagnosis)

	again := f.orderService().Claim(context.Background(), o.ID, nil, doctorSession(3))
	assert.False(t, again.IsSuccess(), "a claimed order cannot be claimed again")
}
