package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain/doctor"
	"gorm.io/gorm"
)

type DoctorRepository struct {
	db *gorm.DB
}

func NewDoctorRepository(db *gorm.DB) *DoctorRepository {
	return &DoctorRepository{db: db}
}

func (r *DoctorRepository) Create(ctx context.Context, d *doctor.Doctor) error {
	if err := r.db.WithContext(ctx).Create(d).Error; err != nil {
		if isUniqueViolation(err) {
			return doctor.ErrLicenseTaken
		}
		return fmt.Errorf("creating doctor: %w", err)
	}
	return nil
}

func (r *DoctorRepository) GetByID(ctx context.Context, id int64) (*doctor.Doctor, error) {
	var d doctor.Doctor
	if err := r.db.WithContext(ctx).First(&d, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, doctor.ErrDoctorNotFound
		}
		return nil, fmt.Errorf("getting doctor %d: %w", id, err)
	}
	return &d, nil
}

func (r *DoctorRepository) Update(ctx context.Context, d *doctor.Doctor) error {
	if err := r.db.WithContext(ctx).Save(d).Error; err != nil {
		if isUniqueViolation(err) {
			return doctor.ErrLicenseTaken
		}
		return fmt.Errorf("updating doctor %d: %w", d.ID, err)
	}
	return nil
}

func (r *DoctorRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&doctor.Doctor{}, id)
	if res.Error != nil {
		return fmt.Errorf("deleting doctor %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return doctor.ErrDoctorNotFound
	}
	return nil
}

func (r *DoctorRepository) List(ctx context.Context, nameFilter string) ([]*doctor.Doctor, error) {
	tx := r.db.WithContext(ctx).Model(&doctor.Doctor{})
	if nameFilter != "" {
		tx = tx.Where("LOWER(first_name || ' ' || last_name) LIKE ?", containsPattern(nameFilter))
	}

	var doctors []*doctor.Doctor
	if err := tx.Order("last_name, first_name").Find(&doctors).Error; err != nil {
		return nil, fmt.Errorf("listing doctors: %w", err)
	}
	return doctors, nil
}

func (r *DoctorRepository) ExistsByLicense(ctx context.Context, license string, excludeID *int64) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&doctor.Doctor{}).Where("license_number = ?", license)
	if excludeID != nil {
		tx = tx.Where("id <> ?", *excludeID)
	}
	var n int64
	if err := tx.Count(&n).Error; err != nil {
		return false, fmt.Errorf("checking license uniqueness: %w", err)
	}
	return n > 0, nil
}
