package stock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/travelmarket/tourism-backend/pkg/db"
	"github.com/travelmarket/tourism-backend/pkg/enums"
	pkgerrors "github.com/travelmarket/tourism-backend/pkg/errors"
)

// Record is the product-agnostic view of one availability row. Reserved is
// always expressed as units held, whatever the table stores.
type Record struct {
	ID          uuid.UUID
	ProductType enums.ProductType
	Total       int
	Reserved    int
	UnitPrice   decimal.Decimal
	Currency    string
	State       enums.AvailabilityState
}

// Remaining is the number of units still bookable.
func (r Record) Remaining() int {
	return r.Total - r.Reserved
}

// Active reports whether the availability accepts new reservations.
func (r Record) Active() bool {
	return r.State == enums.AvailabilityStateActive
}

// Ledger is implemented once per product type. Adapters translate between
// Record and the table's own columns.
type Ledger interface {
	ProductType() enums.ProductType
	// CounterField names the column that reserve/release mutate.
	CounterField() string
	// CounterValue is what CounterField holds for the given record state.
	CounterValue(total, reserved int) int
	Load(ctx context.Context, tx *gorm.DB, id uuid.UUID, forUpdate bool) (*Record, error)
	// SetReserved moves the row from rec.Reserved to reserved. The write only
	// lands if the counter still holds the value rec was read with.
	SetReserved(ctx context.Context, tx *gorm.DB, rec *Record, reserved int) error
	Each(ctx context.Context, tx *gorm.DB, batchSize int, fn func([]Record) error) error
}

type counterMode int

const (
	// countsReserved tables store units held.
	countsReserved counterMode = iota
	// countsAvailable tables store units still free.
	countsAvailable
)

// columnLedger maps a Record onto one availability table.
type columnLedger struct {
	productType enums.ProductType
	table       string
	totalCol    string
	counterCol  string
	mode        counterMode
}

type ledgerRow struct {
	ID        uuid.UUID
	Total     int
	Counter   int
	UnitPrice decimal.Decimal
	Currency  string
	State     enums.AvailabilityState
}

func (l *columnLedger) ProductType() enums.ProductType { return l.productType }

func (l *columnLedger) CounterField() string { return l.counterCol }

func (l *columnLedger) CounterValue(total, reserved int) int {
	if l.mode == countsAvailable {
		return total - reserved
	}
	return reserved
}

func (l *columnLedger) selectColumns() string {
	return fmt.Sprintf("id, %s AS total, %s AS counter, unit_price, currency, state", l.totalCol, l.counterCol)
}

func (l *columnLedger) toRecord(row ledgerRow) *Record {
	reserved := row.Counter
	if l.mode == countsAvailable {
		reserved = row.Total - row.Counter
	}
	return &Record{
		ID:          row.ID,
		ProductType: l.productType,
		Total:       row.Total,
		Reserved:    reserved,
		UnitPrice:   row.UnitPrice,
		Currency:    row.Currency,
		State:       row.State,
	}
}

func (l *columnLedger) Load(ctx context.Context, tx *gorm.DB, id uuid.UUID, forUpdate bool) (*Record, error) {
	query := tx.WithContext(ctx).Table(l.table).Select(l.selectColumns()).Where("id = ?", id)
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var row ledgerRow
	if err := query.Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("%s availability not found", l.productType))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("load %s availability", l.productType))
	}
	return l.toRecord(row), nil
}

func (l *columnLedger) SetReserved(ctx context.Context, tx *gorm.DB, rec *Record, reserved int) error {
	if reserved < 0 || reserved > rec.Total {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "reserved count out of range").
			WithDetails(map[string]any{"total": rec.Total, "reserved": reserved})
	}

	previous := l.CounterValue(rec.Total, rec.Reserved)
	next := l.CounterValue(rec.Total, reserved)

	res := tx.WithContext(ctx).
		Table(l.table).
		Where(fmt.Sprintf("id = ? AND %s = ?", l.counterCol), rec.ID, previous).
		Updates(map[string]any{
			l.counterCol: next,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		if db.IsCheckViolation(res.Error) {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, res.Error, "stock constraint rejected update")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, fmt.Sprintf("update %s availability", l.productType))
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "availability changed concurrently")
	}
	return nil
}

func (l *columnLedger) Each(ctx context.Context, tx *gorm.DB, batchSize int, fn func([]Record) error) error {
	if batchSize <= 0 {
		batchSize = 200
	}
	last := uuid.Nil
	for {
		query := tx.WithContext(ctx).Table(l.table).Select(l.selectColumns())
		if last != uuid.Nil {
			query = query.Where("id > ?", last)
		}
		var rows []ledgerRow
		if err := query.Order("id").Limit(batchSize).Find(&rows).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("scan %s availabilities", l.productType))
		}
		if len(rows) == 0 {
			return nil
		}

		records := make([]Record, 0, len(rows))
		for _, row := range rows {
			records = append(records, *l.toRecord(row))
		}
		if err := fn(records); err != nil {
			return err
		}
		if len(rows) < batchSize {
			return nil
		}
		last = rows[len(rows)-1].ID
	}
}
