package doctor

import "context"

type Repository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id int64) (*Doctor, error)
	Update(ctx context.Context, d *Doctor) error
	Delete(ctx context.Context, id int64) error

	// List returns doctors whose full name contains nameFilter (case-insensitive).
	// An empty filter returns every doctor.
	List(ctx context.Context, nameFilter string) ([]*Doctor, error)

	ExistsByLicense(ctx context.Context, license string, excludeID *int64) (bool, error)
}
