package database

import (
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/config"
	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain/doctor"
	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain/order"
	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/medpractice/pkg/metrics"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(cfg config.DatabaseConfig, m *metrics.Collector, log *zap.Logger) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger:      NewGormLogger(log, cfg.SlowQueryThreshold),
		PrepareStmt: true,
	}

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: cfg.DSN(),
	}), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if m != nil {
		if err := RegisterMetrics(db, m); err != nil {
			return nil, fmt.Errorf("registering query metrics: %w", err)
		}
	}

	return db, nil
}

// Models lists every table owned by the application, parents first.
func Models() []any {
	return []any{
		&patient.Patient{},
		&doctor.Doctor{},
		&order.MedicalOrder{},
		&order.OrderLine{},
		&appointment.Appointment{},
		&domain.User{},
		&domain.AuditLog{},
	}
}

func Migrate(db *gorm.DB, log *zap.Logger) error {
	log.Info("running database migrations")
	start := time.Now()

	for _, schema := range []string{"clinical", "auth", "audit"} {
		if err := db.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema)).Error; err != nil {
			return fmt.Errorf("creating schema %s: %w", schema, err)
		}
	}

	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto-migrating models: %w", err)
	}

	if err := createIndexes(db, log); err != nil {
		return fmt.Errorf("creating indexes: %w", err)
	}

	log.Info("migrations completed", zap.Duration("duration", time.Since(start)))
	return nil
}

func createIndexes(db *gorm.DB, log *zap.Logger) error {
	// Trigram search is optional; managed databases may not allow the extension.
	trigram := db.Exec("CREATE EXTENSION IF NOT EXISTS pg_trgm").Error == nil
	if !trigram {
		log.Warn("pg_trgm unavailable; name search falls back to sequential scans")
	}

	indexes := []struct {
		name    string
		query   string
		trigram bool
	}{
		{
			name:  "idx_appointments_doctor_active",
			query: `CREATE INDEX IF NOT EXISTS idx_appointments_doctor_active ON clinical.appointments (doctor_id, scheduled_at) WHERE status NOT IN ('cancelled', 'no_show')`,
		},
		{
			name:  "idx_order_lines_order_position",
			query: `CREATE INDEX IF NOT EXISTS idx_order_lines_order_position ON clinical.medical_order_lines (order_id, position)`,
		},
		{
			name:  "idx_orders_unclaimed",
			query: `CREATE INDEX IF NOT EXISTS idx_orders_unclaimed ON clinical.medical_orders (issued_at DESC) WHERE doctor_id IS NULL`,
		},
		{
			name:    "idx_patients_name_trgm",
			query:   `CREATE INDEX IF NOT EXISTS idx_patients_name_trgm ON clinical.patients USING gin (LOWER(first_name || ' ' || last_name) gin_trgm_ops)`,
			trigram: true,
		},
	}

	for _, idx := range indexes {
		if idx.trigram && !trigram {
			continue
		}
		if err := db.Exec(idx.query).Error; err != nil {
			return fmt.Errorf("%s: %w", idx.name, err)
		}
	}
	return nil
}
