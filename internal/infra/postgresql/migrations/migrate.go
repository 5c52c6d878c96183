package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/ndr-engine/internal/repository"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "000001_create_ndrs",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.NDRModel{}); err != nil {
					return err
				}
				indexes := []string{
					`CREATE UNIQUE INDEX IF NOT EXISTS idx_ndrs_delivery_attempt ON ndrs (delivery_id, attempt_number)`,
					`CREATE INDEX IF NOT EXISTS idx_ndrs_status_priority ON ndrs (status, priority)`,
					`CREATE INDEX IF NOT EXISTS idx_ndrs_company_created ON ndrs (company_id, created_at)`,
				}
				for _, sql := range indexes {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.NDRModel{})
			},
		},
		{
			ID: "000002_create_outreach_attempts",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.OutreachAttemptModel{}); err != nil {
					return err
				}
				return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_outreach_attempts_ndr_id ON outreach_attempts (ndr_id, attempt_number)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.OutreachAttemptModel{})
			},
		},
		{
			ID: "000003_create_audit_logs",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.AuditLogModel{}); err != nil {
					return err
				}
				indexes := []string{
					`CREATE INDEX IF NOT EXISTS idx_audit_logs_action_type ON audit_logs (action_type)`,
					`CREATE INDEX IF NOT EXISTS idx_audit_logs_created_at ON audit_logs (created_at)`,
				}
				for _, sql := range indexes {
					if err := tx.Exec(sql).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&repository.AuditLogModel{})
			},
		},
		{
			// Deliveries and orders are owned upstream; these tables
			// exist here for local and test deployments only.
			ID: "000004_create_delivery_projection",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&repository.DeliveryModel{}); err != nil {
					return err
				}
				if err := tx.AutoMigrate(&repository.OrderModel{}); err != nil {
					return err
				}
				return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_deliveries_awb_number ON deliveries (awb_number)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				if err := tx.Migrator().DropTable(&repository.OrderModel{}); err != nil {
					return err
				}
				return tx.Migrator().DropTable(&repository.DeliveryModel{})
			},
		},
	})

	return m.Migrate()
}
