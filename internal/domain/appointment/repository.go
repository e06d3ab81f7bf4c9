package appointment

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id int64) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	Delete(ctx context.Context, id int64) error

	// List returns appointments ordered by scheduled time.
	List(ctx context.Context, q *ListAppointmentsQuery) ([]*Appointment, error)

	// HasConflict reports whether the doctor has an active appointment
	// starting strictly between from and to.
	HasConflict(ctx context.Context, doctorID int64, from, to time.Time, excludeID *int64) (bool, error)
}
