package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/travelmarket/tourism-backend/internal/stockmetrics"
	"github.com/travelmarket/tourism-backend/pkg/db/models"
	"github.com/travelmarket/tourism-backend/pkg/enums"
	pkgerrors "github.com/travelmarket/tourism-backend/pkg/errors"
	"github.com/travelmarket/tourism-backend/pkg/pagination"
)

var filterValidator = validator.New()

// LogFilter combines the audit log filters. Zero values mean "any".
type LogFilter struct {
	ProductType   enums.ProductType        `validate:"omitempty,oneof=activity transportation room flight"`
	ProductID     *uuid.UUID               `validate:"omitempty"`
	OperationType enums.StockOperationType `validate:"omitempty,oneof=reserve release check modify create delete"`
	UserID        *uuid.UUID               `validate:"omitempty"`
	Success       *bool                    `validate:"omitempty"`
	From          *time.Time               `validate:"omitempty"`
	To            *time.Time               `validate:"omitempty"`
	Limit         int                      `validate:"gte=0"`
	Cursor        string                   `validate:"omitempty,base64"`
}

// LogPage is one newest-first page of audit logs.
type LogPage struct {
	Items      []models.StockAuditLog `json:"items"`
	NextCursor string                 `json:"next_cursor,omitempty"`
}

// ChangeFilter narrows change records.
type ChangeFilter struct {
	AuditLogID  *uuid.UUID
	ProductType enums.ProductType     `validate:"omitempty,oneof=activity transportation room flight"`
	ProductID   *uuid.UUID
	FieldName   string
	ChangeType  enums.StockChangeType `validate:"omitempty,oneof=increase decrease set reset"`
	From        *time.Time
	To          *time.Time
	Limit       int `validate:"gte=0"`
}

// OperationSummary is the operational view of one product, read from its
// metrics row.
type OperationSummary struct {
	ProductType       enums.ProductType `json:"product_type"`
	ProductID         uuid.UUID         `json:"product_id"`
	TotalOperations   int               `json:"total_operations"`
	TotalReservations int               `json:"total_reservations"`
	TotalReleases     int               `json:"total_releases"`
	FailedOperations  int               `json:"failed_operations"`
	SuccessRate       decimal.Decimal   `json:"success_rate"`
	TotalCapacity     int               `json:"total_capacity"`
	CurrentReserved   int               `json:"current_reserved"`
	CurrentAvailable  int               `json:"current_available"`
	UtilizationRate   decimal.Decimal   `json:"utilization_rate"`
	LastOperationAt   *time.Time        `json:"last_operation_at,omitempty"`
}

// QueryService is the read side over the audit log and stock metrics.
type QueryService interface {
	Logs(ctx context.Context, filter LogFilter) (*LogPage, error)
	ProductHistory(ctx context.Context, productType enums.ProductType, productID uuid.UUID, limit int) (*LogPage, error)
	UserOperations(ctx context.Context, userID uuid.UUID, limit int) (*LogPage, error)
	FailedOperations(ctx context.Context, from, to *time.Time, limit int) (*LogPage, error)
	Changes(ctx context.Context, filter ChangeFilter) ([]models.StockChangeHistory, error)
	OperationSummary(ctx context.Context, productType enums.ProductType, productID uuid.UUID) (*OperationSummary, error)
	Metrics(ctx context.Context, filter stockmetrics.ListFilter) ([]models.StockMetrics, error)
}

type queryService struct {
	repo    Repository
	metrics stockmetrics.Service
}

// NewQueryService wires the audit read side.
func NewQueryService(repo Repository, metrics stockmetrics.Service) (QueryService, error) {
	if repo == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	if metrics == nil {
		return nil, fmt.Errorf("stock metrics service required")
	}
	return &queryService{repo: repo, metrics: metrics}, nil
}

func (q *queryService) Logs(ctx context.Context, filter LogFilter) (*LogPage, error) {
	if err := validateFilter(filter); err != nil {
		return nil, err
	}
	if err := validateRange(filter.From, filter.To); err != nil {
		return nil, err
	}
	cursor, err := pagination.ParseCursor(filter.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(filter.Limit)
	logs, err := q.repo.ListLogs(ctx, logQuery{
		ProductType:   filter.ProductType,
		ProductID:     filter.ProductID,
		OperationType: filter.OperationType,
		UserID:        filter.UserID,
		Success:       filter.Success,
		From:          utc(filter.From),
		To:            utc(filter.To),
		Cursor:        cursor,
		Limit:         pagination.LimitWithBuffer(filter.Limit),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list stock audit logs")
	}

	page := &LogPage{Items: logs}
	if len(logs) > limit {
		page.Items = logs[:limit]
		last := page.Items[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return page, nil
}

func (q *queryService) ProductHistory(ctx context.Context, productType enums.ProductType, productID uuid.UUID, limit int) (*LogPage, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	return q.Logs(ctx, LogFilter{ProductType: productType, ProductID: &productID, Limit: limit})
}

func (q *queryService) UserOperations(ctx context.Context, userID uuid.UUID, limit int) (*LogPage, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	return q.Logs(ctx, LogFilter{UserID: &userID, Limit: limit})
}

func (q *queryService) FailedOperations(ctx context.Context, from, to *time.Time, limit int) (*LogPage, error) {
	failed := false
	return q.Logs(ctx, LogFilter{Success: &failed, From: from, To: to, Limit: limit})
}

func (q *queryService) Changes(ctx context.Context, filter ChangeFilter) ([]models.StockChangeHistory, error) {
	if err := validateFilter(filter); err != nil {
		return nil, err
	}
	if err := validateRange(filter.From, filter.To); err != nil {
		return nil, err
	}
	changes, err := q.repo.ListChanges(ctx, changeQuery{
		AuditLogID:  filter.AuditLogID,
		ProductType: filter.ProductType,
		ProductID:   filter.ProductID,
		FieldName:   filter.FieldName,
		ChangeType:  filter.ChangeType,
		From:        utc(filter.From),
		To:          utc(filter.To),
		Limit:       pagination.NormalizeLimit(filter.Limit),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list stock change histories")
	}
	return changes, nil
}

func (q *queryService) OperationSummary(ctx context.Context, productType enums.ProductType, productID uuid.UUID) (*OperationSummary, error) {
	row, err := q.metrics.Find(ctx, productType, productID)
	if err != nil {
		return nil, err
	}

	successes := row.TotalReservations + row.TotalReleases
	total := successes + row.FailedOperations
	rate := decimal.Zero
	if total > 0 {
		rate = decimal.NewFromInt(int64(successes)).
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(int64(total))).
			Round(2)
	}

	return &OperationSummary{
		ProductType:       row.ProductType,
		ProductID:         row.ProductID,
		TotalOperations:   total,
		TotalReservations: row.TotalReservations,
		TotalReleases:     row.TotalReleases,
		FailedOperations:  row.FailedOperations,
		SuccessRate:       rate,
		TotalCapacity:     row.TotalCapacity,
		CurrentReserved:   row.CurrentReserved,
		CurrentAvailable:  row.CurrentAvailable,
		UtilizationRate:   row.UtilizationRate,
		LastOperationAt:   row.LastOperationAt,
	}, nil
}

func (q *queryService) Metrics(ctx context.Context, filter stockmetrics.ListFilter) ([]models.StockMetrics, error) {
	return q.metrics.List(ctx, filter)
}

func validateFilter(filter any) error {
	if err := filterValidator.Struct(filter); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			details := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				details[fe.Field()] = fe.Tag()
			}
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid filter").WithDetails(details)
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid filter")
	}
	return nil
}

func validateRange(from, to *time.Time) error {
	if from != nil && to != nil && to.Before(*from) {
		return pkgerrors.New(pkgerrors.CodeValidation, "date range end precedes start")
	}
	return nil
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
