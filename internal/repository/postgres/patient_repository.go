package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain/patient"
	"gorm.io/gorm"
)

type PatientRepository struct {
	db *gorm.DB
}

func NewPatientRepository(db *gorm.DB) *PatientRepository {
	return &PatientRepository{db: db}
}

func (r *PatientRepository) Create(ctx context.Context, p *patient.Patient) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		if isUniqueViolation(err) {
			return patient.ErrPatientAlreadyExists
		}
		return fmt.Errorf("creating patient: %w", err)
	}
	return nil
}

func (r *PatientRepository) GetByID(ctx context.Context, id int64) (*patient.Patient, error) {
	var p patient.Patient
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, patient.ErrPatientNotFound
		}
		return nil, fmt.Errorf("getting patient %d: %w", id, err)
	}
	return &p, nil
}

func (r *PatientRepository) GetByDocument(ctx context.Context, document string) (*patient.Patient, error) {
	var p patient.Patient
	err := r.db.WithContext(ctx).Where("document_number = ?", document).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, patient.ErrPatientNotFound
		}
		return nil, fmt.Errorf("getting patient by document: %w", err)
	}
	return &p, nil
}

func (r *PatientRepository) Update(ctx context.Context, p *patient.Patient) error {
	if err := r.db.WithContext(ctx).Save(p).Error; err != nil {
		if isUniqueViolation(err) {
			return patient.ErrPatientAlreadyExists
		}
		return fmt.Errorf("updating patient %d: %w", p.ID, err)
	}
	return nil
}

func (r *PatientRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&patient.Patient{}, id)
	if res.Error != nil {
		if isForeignKeyViolation(res.Error) {
			return fmt.Errorf("patient %d is still referenced: %w", id, res.Error)
		}
		return fmt.Errorf("deleting patient %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return patient.ErrPatientNotFound
	}
	return nil
}

func (r *PatientRepository) List(ctx context.Context, q *patient.ListPatientsQuery) ([]*patient.Patient, error) {
	tx := r.db.WithContext(ctx).Model(&patient.Patient{})

	if q.Search != "" {
		tx = tx.Where("(LOWER(first_name || ' ' || last_name) LIKE ? OR document_number LIKE ?)",
			containsPattern(q.Search), containsPattern(q.Search))
	}
	if q.DoctorID != nil {
		tx = tx.Where("id IN (SELECT patient_id FROM clinical.appointments WHERE doctor_id = ?)", *q.DoctorID)
	}
	if q.PatientID != nil {
		tx = tx.Where("id = ?", *q.PatientID)
	}

	var patients []*patient.Patient
	if err := tx.Order("last_name, first_name").Find(&patients).Error; err != nil {
		return nil, fmt.Errorf("listing patients: %w", err)
	}
	return patients, nil
}

func (r *PatientRepository) ExistsByDocument(ctx context.Context, document string, excludeID *int64) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&patient.Patient{}).Where("document_number = ?", document)
	if excludeID != nil {
		tx = tx.Where("id <> ?", *excludeID)
	}
	var n int64
	if err := tx.Count(&n).Error; err != nil {
		return false, fmt.Errorf("checking document uniqueness: %w", err)
	}
	return n > 0, nil
}
