package order

import (
	"context"
	"time"
)

type Repository interface {
	// Create persists the order together with its lines.
	Create(ctx context.Context, o *MedicalOrder) error

	// GetByID loads the order with lines, patient and doctor. Returns ErrOrderNotFound.
	GetByID(ctx context.Context, id int64) (*MedicalOrder, error)

	List(ctx context.Context, q *ListOrdersQuery) ([]*MedicalOrder, error)
	ListByPatientDocument(ctx context.Context, document string) ([]*MedicalOrder, error)

	// Update overwrites the order and replaces its set of lines.
	Update(ctx context.Context, o *MedicalOrder) error

	Delete(ctx context.Context, id int64) error

	// Claim assigns doctorID only while the order is unclaimed. It reports
	// whether this call performed the assignment.
	Claim(ctx context.Context, id, doctorID int64, at time.Time) (bool, error)

	// GetLine returns a single line. Returns ErrLineNotFound.
	GetLine(ctx context.Context, lineID int64) (*OrderLine, error)

	// UpdateLineStatus persists l's status and timestamps only if the stored
	// status still equals from. It reports whether the row changed.
	UpdateLineStatus(ctx context.Context, l *OrderLine, from LineStatus) (bool, error)
}
