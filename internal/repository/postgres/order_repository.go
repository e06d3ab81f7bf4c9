package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain/order"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// withDetails preloads lines in position order plus the patient and doctor.
func withDetails(tx *gorm.DB) *gorm.DB {
	return tx.
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position, id") }).
		Preload("Patient").
		Preload("Doctor")
}

func (r *OrderRepository) Create(ctx context.Context, o *order.MedicalOrder) error {
	// Lines are inserted with the order; patient and doctor are references only.
	if err := r.db.WithContext(ctx).Omit("Patient", "Doctor").Create(o).Error; err != nil {
		return fmt.Errorf("creating medical order: %w", err)
	}
	return nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*order.MedicalOrder, error) {
	var o order.MedicalOrder
	if err := withDetails(r.db.WithContext(ctx)).First(&o, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.ErrOrderNotFound
		}
		return nil, fmt.Errorf("getting medical order %d: %w", id, err)
	}
	return &o, nil
}

func (r *OrderRepository) List(ctx context.Context, q *order.ListOrdersQuery) ([]*order.MedicalOrder, error) {
	tx := withDetails(r.db.WithContext(ctx).Model(&order.MedicalOrder{}))

	if q.NameFilter != "" {
		tx = tx.Where("patient_id IN (SELECT id FROM clinical.patients WHERE LOWER(first_name || ' ' || last_name) LIKE ?)",
			containsPattern(q.NameFilter))
	}
	if q.PatientID != nil {
		tx = tx.Where("patient_id = ?", *q.PatientID)
	}
	if q.DoctorID != nil {
		tx = tx.Where("doctor_id = ?", *q.DoctorID)
	}

	var orders []*order.MedicalOrder
	if err := tx.Order("issued_at DESC, id DESC").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("listing medical orders: %w", err)
	}
	return orders, nil
}

func (r *OrderRepository) ListByPatientDocument(ctx context.Context, document string) ([]*order.MedicalOrder, error) {
	var orders []*order.MedicalOrder
	err := withDetails(r.db.WithContext(ctx)).
		Where("patient_id IN (SELECT id FROM clinical.patients WHERE document_number = ?)", document).
		Order("issued_at DESC, id DESC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("listing medical orders by document: %w", err)
	}
	return orders, nil
}

// Columns Modify may write. Claim state, issue date and line progress change
// only through Claim and UpdateLineStatus, whose conditional updates would be
// undone by writing back a copy loaded earlier.
var (
	orderEditableColumns = []string{"patient_id", "diagnosis", "notes", "updated_at"}
	lineEditableColumns  = []string{"position", "registration_number", "description", "sessions", "updated_at"}
)

// Update rewrites the editable fields of the order and replaces its lines:
// lines that kept their id are updated in place, new lines are inserted,
// missing ones are removed.
func (r *OrderRepository) Update(ctx context.Context, o *order.MedicalOrder) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(o).
			Select(orderEditableColumns).
			Omit(clause.Associations).
			Updates(o)
		if res.Error != nil {
			return fmt.Errorf("updating medical order %d: %w", o.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return order.ErrOrderNotFound
		}

		keep := make([]int64, 0, len(o.Lines))
		for _, l := range o.Lines {
			if l.ID != 0 {
				keep = append(keep, l.ID)
			}
		}
		stale := tx.Where("order_id = ?", o.ID)
		if len(keep) > 0 {
			stale = stale.Where("id NOT IN ?", keep)
		}
		if err := stale.Delete(&order.OrderLine{}).Error; err != nil {
			return fmt.Errorf("removing dropped order lines: %w", err)
		}

		for i := range o.Lines {
			l := &o.Lines[i]
			l.OrderID = o.ID
			if l.ID == 0 {
				if err := tx.Create(l).Error; err != nil {
					return fmt.Errorf("adding order line: %w", err)
				}
				continue
			}
			err := tx.Model(l).
				Where("order_id = ?", o.ID).
				Select(lineEditableColumns).
				Updates(l).Error
			if err != nil {
				return fmt.Errorf("updating order line %d: %w", l.ID, err)
			}
		}
		return nil
	})
}

func (r *OrderRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&order.OrderLine{}).Error; err != nil {
			return fmt.Errorf("deleting order lines: %w", err)
		}
		res := tx.Delete(&order.MedicalOrder{}, id)
		if res.Error != nil {
			return fmt.Errorf("deleting medical order %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return order.ErrOrderNotFound
		}
		return nil
	})
}

// Claim assigns doctorID only while the order is still unclaimed. It reports
// false when another claim got there first.
func (r *OrderRepository) Claim(ctx context.Context, id, doctorID int64, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&order.MedicalOrder{}).
		Where("id = ? AND doctor_id IS NULL", id).
		Updates(map[string]any{"doctor_id": doctorID, "claimed_at": at})
	if res.Error != nil {
		return false, fmt.Errorf("claiming medical order %d: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *OrderRepository) GetLine(ctx context.Context, lineID int64) (*order.OrderLine, error) {
	var l order.OrderLine
	if err := r.db.WithContext(ctx).First(&l, lineID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.ErrLineNotFound
		}
		return nil, fmt.Errorf("getting order line %d: %w", lineID, err)
	}
	return &l, nil
}

// UpdateLineStatus persists l's status only if the stored status is still from.
func (r *OrderRepository) UpdateLineStatus(ctx context.Context, l *order.OrderLine, from order.LineStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&order.OrderLine{}).
		Where("id = ? AND status = ?", l.ID, from).
		Updates(map[string]any{
			"status":       l.Status,
			"started_at":   l.StartedAt,
			"completed_at": l.CompletedAt,
		})
	if res.Error != nil {
		return false, fmt.Errorf("updating order line %d: %w", l.ID, res.Error)
	}
	return res.RowsAffected == 1, nil
}
