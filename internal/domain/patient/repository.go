package patient

import (
	"context"
)

type Repository interface {
	// Create persists a new patient. Returns ErrPatientAlreadyExists on duplicate document number.
	Create(ctx context.Context, p *Patient) error

	// GetByID retrieves a patient by primary key. Returns ErrPatientNotFound if not found.
	GetByID(ctx context.Context, id int64) (*Patient, error)

	// GetByDocument retrieves a patient by document number.
	GetByDocument(ctx context.Context, document string) (*Patient, error)

	// Update overwrites an existing patient record.
	Update(ctx context.Context, p *Patient) error

	Delete(ctx context.Context, id int64) error

	// List returns patients ordered by last name, then first name.
	List(ctx context.Context, q *ListPatientsQuery) ([]*Patient, error)

	// ExistsByDocument checks for uniqueness without fetching the full record.
	ExistsByDocument(ctx context.Context, document string, excludeID *int64) (bool, error)
}
