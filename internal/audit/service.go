package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/travelmarket/tourism-backend/pkg/db/models"
	"github.com/travelmarket/tourism-backend/pkg/enums"
	pkgerrors "github.com/travelmarket/tourism-backend/pkg/errors"
)

// Actor identifies who triggered a stock operation. Every field is optional.
type Actor struct {
	UserID    *uuid.UUID
	SessionID string
	RequestID string
}

// LogOperationInput captures one attempted stock operation.
type LogOperationInput struct {
	OperationType enums.StockOperationType
	ProductType   enums.ProductType
	ProductID     uuid.UUID
	Quantity      int
	PreviousStock *int
	NewStock      *int
	Actor         Actor
	Success       bool
	ErrorMessage  string
	Metadata      map[string]any
}

// Service appends audit records. Both methods write through the supplied
// transaction so the record commits or rolls back with the caller's work.
type Service interface {
	LogOperation(ctx context.Context, tx *gorm.DB, input LogOperationInput) (*models.StockAuditLog, error)
	LogChange(ctx context.Context, tx *gorm.DB, entry *models.StockAuditLog, field string, oldValue, newValue *int) (*models.StockChangeHistory, error)
}

type service struct {
	repo Repository
}

// NewService wires an audit service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) LogOperation(ctx context.Context, tx *gorm.DB, input LogOperationInput) (*models.StockAuditLog, error) {
	if !input.OperationType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid operation type %q", input.OperationType))
	}
	if !input.ProductType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid product type %q", input.ProductType))
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	entry := &models.StockAuditLog{
		OperationType: input.OperationType,
		ProductType:   input.ProductType,
		ProductID:     input.ProductID,
		Quantity:      input.Quantity,
		PreviousStock: input.PreviousStock,
		NewStock:      input.NewStock,
		UserID:        input.Actor.UserID,
		SessionID:     optionalString(input.Actor.SessionID),
		RequestID:     optionalString(input.Actor.RequestID),
		Metadata:      datatypes.JSONMap(input.Metadata),
		Success:       input.Success,
	}
	if entry.Metadata == nil {
		entry.Metadata = datatypes.JSONMap{}
	}
	if !input.Success {
		msg := input.ErrorMessage
		if msg == "" {
			msg = "operation failed"
		}
		entry.ErrorMessage = &msg
	}

	if err := s.repo.WithTx(tx).CreateLog(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeAuditLogging, err, "create stock audit log")
	}
	return entry, nil
}

func (s *service) LogChange(ctx context.Context, tx *gorm.DB, entry *models.StockAuditLog, field string, oldValue, newValue *int) (*models.StockChangeHistory, error) {
	if entry == nil || entry.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "audit log is required")
	}
	if strings.TrimSpace(field) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "field name is required")
	}
	if oldValue != nil && newValue != nil && *oldValue == *newValue {
		return nil, nil
	}

	change := &models.StockChangeHistory{
		AuditLogID:   entry.ID,
		ChangeType:   ClassifyChange(entry.OperationType, oldValue, newValue),
		FieldName:    field,
		OldValue:     oldValue,
		NewValue:     newValue,
		ChangeAmount: changeAmount(oldValue, newValue),
	}
	if err := s.repo.WithTx(tx).CreateChange(ctx, change); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeAuditLogging, err, "create stock change history")
	}
	return change, nil
}

// ClassifyChange derives the change type of a field delta. A release that
// drains a counter to zero is a reset.
func ClassifyChange(op enums.StockOperationType, oldValue, newValue *int) enums.StockChangeType {
	if oldValue == nil || newValue == nil {
		return enums.StockChangeSet
	}
	switch {
	case op == enums.StockOperationRelease && *newValue == 0 && *oldValue > 0:
		return enums.StockChangeReset
	case *newValue > *oldValue:
		return enums.StockChangeIncrease
	case *newValue < *oldValue:
		return enums.StockChangeDecrease
	default:
		return enums.StockChangeSet
	}
}

func changeAmount(oldValue, newValue *int) int {
	if oldValue == nil || newValue == nil {
		return 0
	}
	return *newValue - *oldValue
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
