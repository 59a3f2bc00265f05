package db

import (
	"fmt"

	"github.com/yungbote/wastecollect-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(domain.Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return EnsureIndexes(db)
}

// EnsureIndexes adds composite indexes the struct tags cannot express.
func EnsureIndexes(db *gorm.DB) error {
	stmts := []struct{ name, sql string }{
		{"idx_service_request_municipality_status", `CREATE INDEX IF NOT EXISTS idx_service_request_municipality_status ON service_request(municipality_id, status);`},
		{"idx_service_request_collector_status", `CREATE INDEX IF NOT EXISTS idx_service_request_collector_status ON service_request(collector_id, status);`},
		{"idx_waste_collection_household_date", `CREATE INDEX IF NOT EXISTS idx_waste_collection_household_date ON waste_collection(household_id, collection_date);`},
		{"idx_notification_recipient_read", `CREATE INDEX IF NOT EXISTS idx_notification_recipient_read ON notification(recipient_id, is_read, created_at);`},
	}
	for _, s := range stmts {
		if err := db.Exec(s.sql).Error; err != nil {
			return fmt.Errorf("create %s: %w", s.name, err)
		}
	}
	return nil
}
