package stock

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/travelmarket/tourism-backend/internal/stockmetrics"
	"github.com/travelmarket/tourism-backend/pkg/enums"
	pkgerrors "github.com/travelmarket/tourism-backend/pkg/errors"
)

// StockSummary is the live capacity picture of one availability.
type StockSummary struct {
	ProductType enums.ProductType       `json:"product_type"`
	ID          uuid.UUID               `json:"id"`
	Total       int                     `json:"total"`
	Reserved    int                     `json:"reserved"`
	Available   int                     `json:"available"`
	Utilization decimal.Decimal         `json:"utilization"`
	UnitPrice   decimal.Decimal         `json:"unit_price"`
	Currency    string                  `json:"currency"`
	State       enums.AvailabilityState `json:"state"`
}

func (s *service) GetStockSummary(ctx context.Context, productType enums.ProductType, availabilityID uuid.UUID) (*StockSummary, error) {
	l, err := s.ledger(productType)
	if err != nil {
		return nil, err
	}
	if availabilityID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "availability id is required")
	}
	rec, err := l.Load(ctx, s.db.DB(), availabilityID, false)
	if err != nil {
		return nil, err
	}
	return &StockSummary{
		ProductType: productType,
		ID:          rec.ID,
		Total:       rec.Total,
		Reserved:    rec.Reserved,
		Available:   rec.Remaining(),
		Utilization: stockmetrics.UtilizationRate(rec.Total, rec.Reserved),
		UnitPrice:   rec.UnitPrice,
		Currency:    rec.Currency,
		State:       rec.State,
	}, nil
}
