package stock

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/travelmarket/tourism-backend/internal/audit"
	"github.com/travelmarket/tourism-backend/internal/stockmetrics"
	"github.com/travelmarket/tourism-backend/pkg/db/models"
	"github.com/travelmarket/tourism-backend/pkg/enums"
	pkgerrors "github.com/travelmarket/tourism-backend/pkg/errors"
	"github.com/travelmarket/tourism-backend/pkg/logger"
	"github.com/travelmarket/tourism-backend/pkg/metrics"
)

// Actor is the optional caller context recorded on every audited operation.
type Actor = audit.Actor

type dbRunner interface {
	DB() *gorm.DB
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// AuditLogger appends audit records inside the caller's transaction.
type AuditLogger interface {
	LogOperation(ctx context.Context, tx *gorm.DB, input audit.LogOperationInput) (*models.StockAuditLog, error)
	LogChange(ctx context.Context, tx *gorm.DB, entry *models.StockAuditLog, field string, oldValue, newValue *int) (*models.StockChangeHistory, error)
}

// MetricsRecorder folds an operation into the per-product metrics row.
type MetricsRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, obs stockmetrics.Observation) (*models.StockMetrics, error)
}

// CheckResult answers whether an availability can cover a quantity.
type CheckResult struct {
	AvailabilityID uuid.UUID       `json:"availability_id"`
	Remaining      int             `json:"remaining"`
	Enough         bool            `json:"enough"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Currency       string          `json:"currency"`
	Total          int             `json:"total"`
	Reserved       int             `json:"reserved"`
	Active         bool            `json:"active"`
}

// Handle binds the check/reserve/release contract to one product type.
type Handle interface {
	ProductType() enums.ProductType
	Check(ctx context.Context, availabilityID uuid.UUID, qty int) (*CheckResult, error)
	Reserve(ctx context.Context, availabilityID uuid.UUID, qty int, actor Actor) (int, error)
	Release(ctx context.Context, availabilityID uuid.UUID, qty int, actor Actor) (int, error)
}

// Service checks, reserves and releases stock across every product type.
//
// Reserve and Release run in their own transaction and return the new
// reserved count. The *Tx variants join a caller transaction instead; a
// rejected operation leaves the caller's transaction usable so its failure
// audit can commit.
type Service interface {
	Check(ctx context.Context, productType enums.ProductType, availabilityID uuid.UUID, qty int) (*CheckResult, error)
	Reserve(ctx context.Context, productType enums.ProductType, availabilityID uuid.UUID, qty int, actor Actor) (int, error)
	Release(ctx context.Context, productType enums.ProductType, availabilityID uuid.UUID, qty int, actor Actor) (int, error)
	ReserveTx(ctx context.Context, tx *gorm.DB, productType enums.ProductType, availabilityID uuid.UUID, qty int, actor Actor) (int, error)
	ReleaseTx(ctx context.Context, tx *gorm.DB, productType enums.ProductType, availabilityID uuid.UUID, qty int, actor Actor) (int, error)

	Activity() Handle
	Transportation() Handle
	Room() Handle
	Flight() Handle

	ValidateBulk(ctx context.Context, items []BulkItem) (*BulkValidation, error)
	GetStockSummary(ctx context.Context, productType enums.ProductType, availabilityID uuid.UUID) (*StockSummary, error)
	Ledgers() []Ledger
}

// ServiceParams wires the reservation service.
type ServiceParams struct {
	DB       dbRunner
	Audit    AuditLogger
	Metrics  MetricsRecorder
	Logger   *logger.Logger
	Counters *metrics.StockMetrics

	AuditEnabled   bool
	MetricsEnabled bool
}

type service struct {
	db       dbRunner
	audit    AuditLogger
	metrics  MetricsRecorder
	logg     *logger.Logger
	counters *metrics.StockMetrics

	auditEnabled   bool
	metricsEnabled bool

	ledgers map[enums.ProductType]Ledger
}

// NewService builds the reservation service with one ledger per product type.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.AuditEnabled && params.Audit == nil {
		return nil, fmt.Errorf("audit logger required")
	}
	if params.MetricsEnabled && params.Metrics == nil {
		return nil, fmt.Errorf("metrics recorder required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}

	ledgers := map[enums.ProductType]Ledger{}
	for _, l := range []Ledger{
		newActivityLedger(),
		newTransportationLedger(),
		newRoomLedger(),
		newFlightLedger(),
	} {
		ledgers[l.ProductType()] = l
	}

	return &service{
		db:             params.DB,
		audit:          params.Audit,
		metrics:        params.Metrics,
		logg:           logg,
		counters:       params.Counters,
		auditEnabled:   params.AuditEnabled,
		metricsEnabled: params.MetricsEnabled,
		ledgers:        ledgers,
	}, nil
}

func (s *service) Ledgers() []Ledger {
	out := make([]Ledger, 0, len(s.ledgers))
	for _, pt := range enums.ProductTypes() {
		out = append(out, s.ledgers[pt])
	}
	return out
}

func (s *service) ledger(productType enums.ProductType) (Ledger, error) {
	l, ok := s.ledgers[productType]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported product type %q", productType))
	}
	return l, nil
}

func (s *service) resolve(productType enums.ProductType, availabilityID uuid.UUID, qty int) (Ledger, error) {
	l, err := s.ledger(productType)
	if err != nil {
		return nil, err
	}
	if availabilityID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "availability id is required")
	}
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero")
	}
	return l, nil
}

func (s *service) Check(ctx context.Context, productType enums.ProductType, availabilityID uuid.UUID, qty int) (*CheckResult, error) {
	l, err := s.resolve(productType, availabilityID, qty)
	if err != nil {
		return nil, err
	}
	rec, err := l.Load(ctx, s.db.DB(), availabilityID, false)
	if err != nil {
		return nil, err
	}
	s.counters.IncOperation(productType.String(), enums.StockOperationCheck.String(), metrics.OutcomeSuccess)

	remaining := rec.Remaining()
	return &CheckResult{
		AvailabilityID: rec.ID,
		Remaining:      remaining,
		Enough:         remaining >= qty,
		UnitPrice:      rec.UnitPrice,
		Currency:       rec.Currency,
		Total:          rec.Total,
		Reserved:       rec.Reserved,
		Active:         rec.Active(),
	}, nil
}

func (s *service) Reserve(ctx context.Context, productType enums.ProductType, availabilityID uuid.UUID, qty int, actor Actor) (int, error) {
	return s.inTx(ctx, func(tx *gorm.DB) (int, error) {
		return s.ReserveTx(ctx, tx, productType, availabilityID, qty, actor)
	})
}

func (s *service) Release(ctx context.Context, productType enums.ProductType, availabilityID uuid.UUID, qty int, actor Actor) (int, error) {
	return s.inTx(ctx, func(tx *gorm.DB) (int, error) {
		return s.ReleaseTx(ctx, tx, productType, availabilityID, qty, actor)
	})
}

func (s *service) ReserveTx(ctx context.Context, tx *gorm.DB, productType enums.ProductType, availabilityID uuid.UUID, qty int, actor Actor) (int, error) {
	return s.mutate(ctx, tx, mutation{
		op:          enums.StockOperationReserve,
		productType: productType,
		id:          availabilityID,
		qty:         qty,
		actor:       actor,
	})
}

func (s *service) ReleaseTx(ctx context.Context, tx *gorm.DB, productType enums.ProductType, availabilityID uuid.UUID, qty int, actor Actor) (int, error) {
	return s.mutate(ctx, tx, mutation{
		op:          enums.StockOperationRelease,
		productType: productType,
		id:          availabilityID,
		qty:         qty,
		actor:       actor,
	})
}

// inTx commits rejected operations too, so their failure audit persists.
func (s *service) inTx(ctx context.Context, fn func(tx *gorm.DB) (int, error)) (int, error) {
	var (
		reserved int
		opErr    error
	)
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		reserved, opErr = fn(tx)
		if opErr != nil && !IsRejection(opErr) {
			return opErr
		}
		return nil
	})
	if opErr != nil {
		return 0, opErr
	}
	if err != nil {
		if pkgerrors.As(err) != nil {
			return 0, err
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "commit stock operation")
	}
	return reserved, nil
}

// IsRejection reports whether err is a business rejection of a resolved
// availability: insufficient stock, an inactive row or a lost update.
func IsRejection(err error) bool {
	return pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock, pkgerrors.CodeStateConflict, pkgerrors.CodeConflict)
}

type mutation struct {
	op          enums.StockOperationType
	productType enums.ProductType
	id          uuid.UUID
	qty         int
	actor       Actor
}

// outcome is what a mutation did to the ledger row.
type outcome struct {
	before  *Record
	after   int
	applied int
	err     error
}

func (s *service) mutate(ctx context.Context, tx *gorm.DB, m mutation) (int, error) {
	l, err := s.resolve(m.productType, m.id, m.qty)
	if err != nil {
		return 0, err
	}
	if tx == nil {
		return 0, pkgerrors.New(pkgerrors.CodeInternal, "transaction required for stock mutation")
	}

	rec, err := l.Load(ctx, tx, m.id, true)
	if err != nil {
		s.counters.IncOperation(m.productType.String(), m.op.String(), metrics.OutcomeError)
		return 0, err
	}

	res := plan(m, rec)
	if res.err == nil && res.after != rec.Reserved {
		res.err = tx.Transaction(func(wtx *gorm.DB) error {
			return l.SetReserved(ctx, wtx, rec, res.after)
		})
	}

	s.record(ctx, tx, l, m, res)

	if res.err != nil {
		s.counters.IncOperation(m.productType.String(), m.op.String(), metrics.OutcomeRejected)
		return 0, res.err
	}
	s.counters.IncOperation(m.productType.String(), m.op.String(), metrics.OutcomeSuccess)
	return res.after, nil
}

// plan computes the target reserved count. Releases clamp to what is held.
func plan(m mutation, rec *Record) outcome {
	out := outcome{before: rec, after: rec.Reserved}
	switch m.op {
	case enums.StockOperationReserve:
		if !rec.Active() {
			out.err = pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("%s availability is not active", rec.ProductType)).
				WithDetails(map[string]any{"state": rec.State})
			return out
		}
		if remaining := rec.Remaining(); remaining < m.qty {
			out.err = pkgerrors.New(pkgerrors.CodeInsufficientStock, fmt.Sprintf("only %d units remaining", remaining)).
				WithDetails(map[string]any{"remaining": remaining, "requested": m.qty})
			return out
		}
		out.applied = m.qty
		out.after = rec.Reserved + m.qty
	case enums.StockOperationRelease:
		out.applied = min(m.qty, rec.Reserved)
		out.after = rec.Reserved - out.applied
	}
	return out
}

// record writes the audit entry, its change record and the metrics upsert in
// a savepoint. A failure there is logged and counted but never returned.
func (s *service) record(ctx context.Context, tx *gorm.DB, l Ledger, m mutation, res outcome) {
	if !s.auditEnabled && !s.metricsEnabled {
		return
	}

	success := res.err == nil
	rec := res.before
	reservedAfter := rec.Reserved
	if success {
		reservedAfter = res.after
	}
	previousStock := l.CounterValue(rec.Total, rec.Reserved)
	newStock := l.CounterValue(rec.Total, reservedAfter)

	metadata := map[string]any{
		"field":     l.CounterField(),
		"total":     rec.Total,
		"reserved":  reservedAfter,
		"remaining": rec.Total - reservedAfter,
	}
	if m.op == enums.StockOperationRelease {
		metadata["released"] = res.applied
	}
	var errMsg string
	if te := pkgerrors.As(res.err); te != nil {
		errMsg = te.Message()
		metadata["error_code"] = string(te.Code())
	} else if res.err != nil {
		errMsg = res.err.Error()
	}

	err := tx.Transaction(func(atx *gorm.DB) error {
		if s.auditEnabled {
			entry, err := s.audit.LogOperation(ctx, atx, audit.LogOperationInput{
				OperationType: m.op,
				ProductType:   m.productType,
				ProductID:     m.id,
				Quantity:      m.qty,
				PreviousStock: &previousStock,
				NewStock:      &newStock,
				Actor:         m.actor,
				Success:       success,
				ErrorMessage:  errMsg,
				Metadata:      metadata,
			})
			if err != nil {
				return err
			}
			if success {
				oldValue, newValue := previousStock, newStock
				if _, err := s.audit.LogChange(ctx, atx, entry, l.CounterField(), &oldValue, &newValue); err != nil {
					return err
				}
			}
		}
		if s.metricsEnabled {
			if _, err := s.metrics.Record(ctx, atx, stockmetrics.Observation{
				ProductType:     m.productType,
				ProductID:       m.id,
				TotalCapacity:   rec.Total,
				CurrentReserved: reservedAfter,
				Operation:       m.op,
				Success:         success,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil {
		return
	}

	wrapped := pkgerrors.Wrap(pkgerrors.CodeAuditLogging, err, "record stock operation")
	dump := pkgerrors.Dump(err)
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"product_type": m.productType,
		"product_id":   m.id.String(),
		"operation":    m.op,
		"pg_code":      dump.PGCode,
		"error_chain":  dump.Chain,
	})
	s.logg.Error(logCtx, "stock audit write failed", wrapped)
	s.counters.IncAuditFailure(m.productType.String())
}

type handle struct {
	svc         *service
	productType enums.ProductType
}

func (s *service) Activity() Handle {
	return handle{svc: s, productType: enums.ProductTypeActivity}
}

func (s *service) Transportation() Handle {
	return handle{svc: s, productType: enums.ProductTypeTransportation}
}

func (s *service) Room() Handle {
	return handle{svc: s, productType: enums.ProductTypeRoom}
}

func (s *service) Flight() Handle {
	return handle{svc: s, productType: enums.ProductTypeFlight}
}

func (h handle) ProductType() enums.ProductType { return h.productType }

func (h handle) Check(ctx context.Context, availabilityID uuid.UUID, qty int) (*CheckResult, error) {
	return h.svc.Check(ctx, h.productType, availabilityID, qty)
}

func (h handle) Reserve(ctx context.Context, availabilityID uuid.UUID, qty int, actor Actor) (int, error) {
	return h.svc.Reserve(ctx, h.productType, availabilityID, qty, actor)
}

func (h handle) Release(ctx context.Context, availabilityID uuid.UUID, qty int, actor Actor) (int, error) {
	return h.svc.Release(ctx, h.productType, availabilityID, qty, actor)
}
