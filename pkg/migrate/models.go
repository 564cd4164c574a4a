package migrate

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/travelmarket/tourism-backend/pkg/db/models"
)

// Models lists every persisted model in creation order.
func Models() []any {
	return []any{
		&models.ActivityAvailability{},
		&models.TransportationAvailability{},
		&models.RoomAvailability{},
		&models.Flight{},
		&models.StockAuditLog{},
		&models.StockChangeHistory{},
		&models.StockMetrics{},
		&models.Order{},
		&models.OrderDetail{},
	}
}

// AutoMigrate builds the schema from the GORM models. It backs SQLite
// databases (local runs and tests) where the postgres SQL files do not apply.
func AutoMigrate(ctx context.Context, conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db is required")
	}
	if err := conn.WithContext(ctx).AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
