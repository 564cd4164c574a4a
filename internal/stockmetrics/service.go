package stockmetrics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/travelmarket/tourism-backend/pkg/db/models"
	"github.com/travelmarket/tourism-backend/pkg/enums"
	pkgerrors "github.com/travelmarket/tourism-backend/pkg/errors"
)

var hundred = decimal.NewFromInt(100)

// Observation is the ledger state seen by one stock operation.
type Observation struct {
	ProductType     enums.ProductType
	ProductID       uuid.UUID
	TotalCapacity   int
	CurrentReserved int
	Operation       enums.StockOperationType
	Success         bool
	At              time.Time
}

// Service maintains the rolling utilization summary per product.
type Service interface {
	Record(ctx context.Context, tx *gorm.DB, obs Observation) (*models.StockMetrics, error)
	Snapshot(ctx context.Context, tx *gorm.DB, productType enums.ProductType, productID uuid.UUID, total, reserved int) (*models.StockMetrics, error)
	Find(ctx context.Context, productType enums.ProductType, productID uuid.UUID) (*models.StockMetrics, error)
	List(ctx context.Context, filter ListFilter) ([]models.StockMetrics, error)
}

type service struct {
	repo Repository
}

// NewService wires a metrics service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("stock metrics repository required")
	}
	return &service{repo: repo}, nil
}

// UtilizationRate returns reserved/total as a percentage rounded to two
// places. Zero capacity yields zero.
func UtilizationRate(total, reserved int) decimal.Decimal {
	if total <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(reserved)).
		Mul(hundred).
		Div(decimal.NewFromInt(int64(total))).
		Round(2)
}

// IncrementsFor maps an operation outcome onto counter deltas.
func IncrementsFor(op enums.StockOperationType, success bool) Increments {
	if !success {
		return Increments{Failures: 1}
	}
	switch op {
	case enums.StockOperationReserve:
		return Increments{Reservations: 1}
	case enums.StockOperationRelease:
		return Increments{Releases: 1}
	default:
		return Increments{}
	}
}

func (s *service) Record(ctx context.Context, tx *gorm.DB, obs Observation) (*models.StockMetrics, error) {
	if err := validateKey(obs.ProductType, obs.ProductID); err != nil {
		return nil, err
	}
	at := obs.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	row := snapshotRow(obs.ProductType, obs.ProductID, obs.TotalCapacity, obs.CurrentReserved)
	row.LastOperationAt = &at

	repo := s.repo.WithTx(tx)
	if err := repo.Upsert(ctx, row, IncrementsFor(obs.Operation, obs.Success)); err != nil {
		return nil, fmt.Errorf("upsert stock metrics: %w", err)
	}
	return repo.Find(ctx, obs.ProductType, obs.ProductID)
}

func (s *service) Snapshot(ctx context.Context, tx *gorm.DB, productType enums.ProductType, productID uuid.UUID, total, reserved int) (*models.StockMetrics, error) {
	if err := validateKey(productType, productID); err != nil {
		return nil, err
	}
	repo := s.repo.WithTx(tx)
	if err := repo.Upsert(ctx, snapshotRow(productType, productID, total, reserved), Increments{}); err != nil {
		return nil, fmt.Errorf("upsert stock metrics snapshot: %w", err)
	}
	return repo.Find(ctx, productType, productID)
}

func (s *service) Find(ctx context.Context, productType enums.ProductType, productID uuid.UUID) (*models.StockMetrics, error) {
	if err := validateKey(productType, productID); err != nil {
		return nil, err
	}
	row, err := s.repo.Find(ctx, productType, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "stock metrics not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load stock metrics")
	}
	return row, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]models.StockMetrics, error) {
	if filter.ProductType != "" && !filter.ProductType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid product type %q", filter.ProductType))
	}
	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list stock metrics")
	}
	return rows, nil
}

func snapshotRow(productType enums.ProductType, productID uuid.UUID, total, reserved int) *models.StockMetrics {
	return &models.StockMetrics{
		ProductType:      productType,
		ProductID:        productID,
		TotalCapacity:    total,
		CurrentReserved:  reserved,
		CurrentAvailable: total - reserved,
		UtilizationRate:  UtilizationRate(total, reserved),
	}
}

func validateKey(productType enums.ProductType, productID uuid.UUID) error {
	if !productType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid product type %q", productType))
	}
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	return nil
}
