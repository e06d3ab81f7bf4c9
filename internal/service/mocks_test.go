package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain/doctor"
	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain/order"
	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/medpractice/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var errStoreDown = errors.New("connection refused")

// ---- patients ----

type mockPatientRepo struct {
	mu       sync.Mutex
	patients map[int64]*patient.Patient
	nextID   int64
}

func newMockPatientRepo(ps ...*patient.Patient) *mockPatientRepo {
	r := &mockPatientRepo{patients: make(map[int64]*patient.Patient), nextID: 1}
	for _, p := range ps {
		r.patients[p.ID] = p
		if p.ID >= r.nextID {
			r.nextID = p.ID + 1
		}
	}
	return r
}

func (r *mockPatientRepo) Create(_ context.Context, p *patient.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = r.nextID
	r.nextID++
	cp := *p
	r.patients[p.ID] = &cp
	return nil
}

func (r *mockPatientRepo) GetByID(_ context.Context, id int64) (*patient.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patients[id]
	if !ok {
		return nil, patient.ErrPatientNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *mockPatientRepo) GetByDocument(_ context.Context, document string) (*patient.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.patients {
		if p.DocumentNumber == document {
			cp := *p
			return &cp, nil
		}
	}
	return nil, patient.ErrPatientNotFound
}

func (r *mockPatientRepo) Update(_ context.Context, p *patient.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.patients[p.ID]; !ok {
		return patient.ErrPatientNotFound
	}
	cp := *p
	r.patients[p.ID] = &cp
	return nil
}

func (r *mockPatientRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.patients, id)
	return nil
}

func (r *mockPatientRepo) List(_ context.Context, q *patient.ListPatientsQuery) ([]*patient.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*patient.Patient
	for _, p := range r.patients {
		if q.PatientID != nil && p.ID != *q.PatientID {
			continue
		}
		if q.Search != "" && !strings.Contains(strings.ToLower(p.FullName()), strings.ToLower(q.Search)) {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *mockPatientRepo) ExistsByDocument(_ context.Context, document string, excludeID *int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.patients {
		if p.DocumentNumber == document && (excludeID == nil || p.ID != *excludeID) {
			return true, nil
		}
	}
	return false, nil
}

// ---- doctors ----

type mockDoctorRepo struct {
	mu      sync.Mutex
	doctors map[int64]*doctor.Doctor
	nextID  int64
}

func newMockDoctorRepo(ds ...*doctor.Doctor) *mockDoctorRepo {
	r := &mockDoctorRepo{doctors: make(map[int64]*doctor.Doctor), nextID: 1}
	for _, d := range ds {
		r.doctors[d.ID] = d
		if d.ID >= r.nextID {
			r.nextID = d.ID + 1
		}
	}
	return r
}

func (r *mockDoctorRepo) Create(_ context.Context, d *doctor.Doctor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d.ID = r.nextID
	r.nextID++
	cp := *d
	r.doctors[d.ID] = &cp
	return nil
}

func (r *mockDoctorRepo) GetByID(_ context.Context, id int64) (*doctor.Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.doctors[id]
	if !ok {
		return nil, doctor.ErrDoctorNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *mockDoctorRepo) Update(_ context.Context, d *doctor.Doctor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *d
	r.doctors[d.ID] = &cp
	return nil
}

func (r *mockDoctorRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.doctors, id)
	return nil
}

func (r *mockDoctorRepo) List(_ context.Context, nameFilter string) ([]*doctor.Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*doctor.Doctor
	for _, d := range r.doctors {
		if nameFilter == "" || strings.Contains(strings.ToLower(d.FullName()), strings.ToLower(nameFilter)) {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *mockDoctorRepo) ExistsByLicense(_ context.Context, license string, excludeID *int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.doctors {
		if d.LicenseNumber == license && (excludeID == nil || d.ID != *excludeID) {
			return true, nil
		}
	}
	return false, nil
}

// ---- orders ----

type mockOrderRepo struct {
	mu         sync.Mutex
	orders     map[int64]*order.MedicalOrder
	patients   *mockPatientRepo
	nextID     int64
	nextLineID int64
	failWrites bool
}

func newMockOrderRepo(patients *mockPatientRepo) *mockOrderRepo {
	return &mockOrderRepo{
		orders:     make(map[int64]*order.MedicalOrder),
		patients:   patients,
		nextID:     1,
		nextLineID: 1,
	}
}

func cloneOrder(o *order.MedicalOrder) *order.MedicalOrder {
	cp := *o
	cp.Lines = append([]order.OrderLine(nil), o.Lines...)
	if o.DoctorID != nil {
		id := *o.DoctorID
		cp.DoctorID = &id
	}
	return &cp
}

func (r *mockOrderRepo) Create(_ context.Context, o *order.MedicalOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrites {
		return errStoreDown
	}
	o.ID = r.nextID
	r.nextID++
	for i := range o.Lines {
		o.Lines[i].ID = r.nextLineID
		o.Lines[i].OrderID = o.ID
		r.nextLineID++
	}
	r.orders[o.ID] = cloneOrder(o)
	return nil
}

func (r *mockOrderRepo) GetByID(_ context.Context, id int64) (*order.MedicalOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (r *mockOrderRepo) List(_ context.Context, q *order.ListOrdersQuery) ([]*order.MedicalOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*order.MedicalOrder
	for _, o := range r.orders {
		if q.PatientID != nil && o.PatientID != *q.PatientID {
			continue
		}
		if q.DoctorID != nil && (o.DoctorID == nil || *o.DoctorID != *q.DoctorID) {
			continue
		}
		out = append(out, cloneOrder(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *mockOrderRepo) ListByPatientDocument(ctx context.Context, document string) ([]*order.MedicalOrder, error) {
	p, err := r.patients.GetByDocument(ctx, document)
	if errors.Is(err, patient.ErrPatientNotFound) {
		return []*order.MedicalOrder{}, nil
	}
	if err != nil {
		return nil, err
	}
	return r.List(ctx, &order.ListOrdersQuery{PatientID: &p.ID})
}

func (r *mockOrderRepo) Update(_ context.Context, o *order.MedicalOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrites {
		return errStoreDown
	}
	stored, ok := r.orders[o.ID]
	if !ok {
		return order.ErrOrderNotFound
	}
	// Like the store, only editable columns are written: claim state and
	// line progress stay as stored.
	next := cloneOrder(o)
	next.IssuedAt = stored.IssuedAt
	next.DoctorID = stored.DoctorID
	next.ClaimedAt = stored.ClaimedAt
	for i := range next.Lines {
		l := &next.Lines[i]
		l.OrderID = o.ID
		if l.ID == 0 {
			l.ID = r.nextLineID
			r.nextLineID++
			o.Lines[i].ID = l.ID
			continue
		}
		if prev := stored.Line(l.ID); prev != nil {
			l.Status = prev.Status
			l.StartedAt = prev.StartedAt
			l.CompletedAt = prev.CompletedAt
		}
	}
	r.orders[o.ID] = next
	return nil
}

func (r *mockOrderRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrites {
		return errStoreDown
	}
	delete(r.orders, id)
	return nil
}

func (r *mockOrderRepo) Claim(_ context.Context, id, doctorID int64, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return false, order.ErrOrderNotFound
	}
	if o.DoctorID != nil {
		return false, nil
	}
	o.DoctorID = &doctorID
	o.ClaimedAt = &at
	return true, nil
}

func (r *mockOrderRepo) GetLine(_ context.Context, lineID int64) (*order.OrderLine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if l := o.Line(lineID); l != nil {
			cp := *l
			return &cp, nil
		}
	}
	return nil, order.ErrLineNotFound
}

func (r *mockOrderRepo) UpdateLineStatus(_ context.Context, l *order.OrderLine, from order.LineStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[l.OrderID]
	if !ok {
		return false, order.ErrLineNotFound
	}
	stored := o.Line(l.ID)
	if stored == nil {
		return false, order.ErrLineNotFound
	}
	if stored.Status != from {
		return false, nil
	}
	stored.Status = l.Status
	stored.StartedAt = l.StartedAt
	stored.CompletedAt = l.CompletedAt
	return true, nil
}

func (r *mockOrderRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}

// ---- appointments ----

type mockAppointmentRepo struct {
	mu           sync.Mutex
	appointments map[int64]*appointment.Appointment
	nextID       int64
}

func newMockAppointmentRepo(as ...*appointment.Appointment) *mockAppointmentRepo {
	r := &mockAppointmentRepo{appointments: make(map[int64]*appointment.Appointment), nextID: 1}
	for _, a := range as {
		r.appointments[a.ID] = a
		if a.ID >= r.nextID {
			r.nextID = a.ID + 1
		}
	}
	return r
}

func (r *mockAppointmentRepo) Create(_ context.Context, a *appointment.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a.ID = r.nextID
	r.nextID++
	cp := *a
	r.appointments[a.ID] = &cp
	return nil
}

func (r *mockAppointmentRepo) GetByID(_ context.Context, id int64) (*appointment.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *mockAppointmentRepo) Update(_ context.Context, a *appointment.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.appointments[a.ID] = &cp
	return nil
}

func (r *mockAppointmentRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.appointments, id)
	return nil
}

func (r *mockAppointmentRepo) List(_ context.Context, q *appointment.ListAppointmentsQuery) ([]*appointment.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*appointment.Appointment
	for _, a := range r.appointments {
		if q.PatientID != nil && a.PatientID != *q.PatientID {
			continue
		}
		if q.DoctorID != nil && a.DoctorID != *q.DoctorID {
			continue
		}
		if q.Status != nil && a.Status != *q.Status {
			continue
		}
		if q.DateFrom != nil && a.ScheduledAt.Before(*q.DateFrom) {
			continue
		}
		if q.DateTo != nil && !a.ScheduledAt.Before(*q.DateTo) {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

func (r *mockAppointmentRepo) HasConflict(_ context.Context, doctorID int64, from, to time.Time, excludeID *int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.appointments {
		if a.DoctorID != doctorID || !a.Status.OccupiesSlot() {
			continue
		}
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		if a.ScheduledAt.After(from) && a.ScheduledAt.Before(to) {
			return true, nil
		}
	}
	return false, nil
}

func (r *mockAppointmentRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.appointments)
}

// ---- users and audit ----

type mockUserRepo struct {
	mu     sync.Mutex
	users  map[int64]*domain.User
	nextID int64
}

func newMockUserRepo(us ...*domain.User) *mockUserRepo {
	r := &mockUserRepo{users: make(map[int64]*domain.User), nextID: 1}
	for _, u := range us {
		r.users[u.ID] = u
		if u.ID >= r.nextID {
			r.nextID = u.ID + 1
		}
	}
	return r
}

func (r *mockUserRepo) Create(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u.ID = r.nextID
	r.nextID++
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *mockUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *mockUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *mockUserRepo) RecordLogin(_ context.Context, id int64, success bool, maxFailures int, lockFor time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	if success {
		now := time.Now()
		u.FailedLoginCount = 0
		u.LockedUntil = nil
		u.LastLoginAt = &now
		return nil
	}
	u.FailedLoginCount++
	if u.FailedLoginCount >= maxFailures {
		until := time.Now().Add(lockFor)
		u.LockedUntil = &until
	}
	return nil
}

func (r *mockUserRepo) UpdatePassword(_ context.Context, id int64, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordHash = hash
	u.PasswordChangedAt = time.Now()
	return nil
}

type mockAuditRepo struct {
	mu      sync.Mutex
	entries []*domain.AuditLog
}

func (r *mockAuditRepo) Create(_ context.Context, e *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return nil
}

func (r *mockAuditRepo) snapshot() []*domain.AuditLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*domain.AuditLog(nil), r.entries...)
}

// ---- fixtures ----

type fixture struct {
	patients     *mockPatientRepo
	doctors      *mockDoctorRepo
	orders       *mockOrderRepo
	appointments *mockAppointmentRepo
	users        *mockUserRepo
	audit        *mockAuditRepo
	auditSvc     *AuditService
	metrics      *metrics.Collector
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		patients: newMockPatientRepo(
			&patient.Patient{ID: 5, FirstName: "Lucía", LastName: "Fernández", DocumentNumber: "30111222"},
			&patient.Patient{ID: 6, FirstName: "Martín", LastName: "Gómez", DocumentNumber: "28999111"},
		),
		doctors: newMockDoctorRepo(
			&doctor.Doctor{ID: 3, FirstName: "Ana", LastName: "Pérez", LicenseNumber: "MN-1234"},
			&doctor.Doctor{ID: 4, FirstName: "Raúl", LastName: "Sosa", LicenseNumber: "MN-5678"},
		),
		appointments: newMockAppointmentRepo(),
		users:        newMockUserRepo(),
		audit:        &mockAuditRepo{},
		metrics:      metrics.NewCollector("medpractice_test", prometheus.NewRegistry()),
	}
	f.orders = newMockOrderRepo(f.patients)
	f.auditSvc = newAuditService(f.audit, f.metrics, zap.NewNop(), 64)
	t.Cleanup(f.auditSvc.Shutdown)
	return f
}

func (f *fixture) orderService() *OrderService {
	return NewOrderService(f.orders, f.patients, f.doctors, f.auditSvc, f.metrics, zap.NewNop())
}

func (f *fixture) appointmentService() *AppointmentService {
	return NewAppointmentService(f.appointments, f.patients, f.doctors, f.auditSvc, f.metrics, zap.NewNop(), 30*time.Minute)
}

func (f *fixture) patientService() *PatientService {
	return NewPatientService(f.patients, f.auditSvc, f.metrics, zap.NewNop())
}

func (f *fixture) doctorService() *DoctorService {
	return NewDoctorService(f.doctors, f.auditSvc, f.metrics, zap.NewNop())
}

func int64Ptr(v int64) *int64 { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func adminSession() domain.Session {
	return domain.Session{UserID: 1, Role: domain.RoleAdmin}
}

func doctorSession(doctorID int64) domain.Session {
	return domain.Session{UserID: 100 + doctorID, Role: domain.RoleDoctor, DoctorID: int64Ptr(doctorID), DoctorName: "Dr"}
}

func patientSession(patientID int64) domain.Session {
	return domain.Session{UserID: 200 + patientID, Role: domain.RolePatient, PatientID: int64Ptr(patientID)}
}
