package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/travelmarket/tourism-backend/api/responses"
	"github.com/travelmarket/tourism-backend/api/validators"
	"github.com/travelmarket/tourism-backend/internal/audit"
	"github.com/travelmarket/tourism-backend/internal/stockmetrics"
	"github.com/travelmarket/tourism-backend/pkg/db/models"
	"github.com/travelmarket/tourism-backend/pkg/enums"
	"github.com/travelmarket/tourism-backend/pkg/logger"
	"github.com/travelmarket/tourism-backend/pkg/pagination"
)

// AuditReader is the audit query surface used by the HTTP handlers.
type AuditReader interface {
	Logs(ctx context.Context, filter audit.LogFilter) (*audit.LogPage, error)
	Changes(ctx context.Context, filter audit.ChangeFilter) ([]models.StockChangeHistory, error)
	OperationSummary(ctx context.Context, productType enums.ProductType, productID uuid.UUID) (*audit.OperationSummary, error)
	Metrics(ctx context.Context, filter stockmetrics.ListFilter) ([]models.StockMetrics, error)
}

// AuditLogs handles GET /api/audit/logs.
func AuditLogs(svc AuditReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		filter, err := parseLogFilter(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		page, err := svc.Logs(ctx, filter)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// AuditChanges handles GET /api/audit/changes.
func AuditChanges(svc AuditReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		filter, err := parseChangeFilter(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		changes, err := svc.Changes(ctx, filter)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": changes})
	}
}

// AuditProductSummary handles GET /api/audit/{type}/{id}/summary.
func AuditProductSummary(svc AuditReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		productType, id, err := productRef(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		summary, err := svc.OperationSummary(ctx, productType, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// StockMetrics handles GET /api/stock/metrics.
func StockMetrics(svc AuditReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		productID, err := validators.ParseQueryUUID(r, "product_id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		rows, err := svc.Metrics(ctx, stockmetrics.ListFilter{
			ProductType: enums.ProductType(queryValue(r, "product_type")),
			ProductID:   productID,
			Limit:       limit,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": rows})
	}
}

func parseLogFilter(r *http.Request) (audit.LogFilter, error) {
	var filter audit.LogFilter
	var err error
	if filter.ProductID, err = validators.ParseQueryUUID(r, "product_id"); err != nil {
		return filter, err
	}
	if filter.UserID, err = validators.ParseQueryUUID(r, "user_id"); err != nil {
		return filter, err
	}
	if filter.Success, err = validators.ParseQueryBool(r, "success"); err != nil {
		return filter, err
	}
	if filter.From, err = validators.ParseQueryTime(r, "from"); err != nil {
		return filter, err
	}
	if filter.To, err = validators.ParseQueryTime(r, "to"); err != nil {
		return filter, err
	}
	if filter.Limit, err = validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit); err != nil {
		return filter, err
	}
	filter.ProductType = enums.ProductType(queryValue(r, "product_type"))
	filter.OperationType = enums.StockOperationType(queryValue(r, "operation_type"))
	filter.Cursor = strings.TrimSpace(r.URL.Query().Get("cursor"))
	return filter, nil
}

func parseChangeFilter(r *http.Request) (audit.ChangeFilter, error) {
	var filter audit.ChangeFilter
	var err error
	if filter.AuditLogID, err = validators.ParseQueryUUID(r, "audit_log_id"); err != nil {
		return filter, err
	}
	if filter.ProductID, err = validators.ParseQueryUUID(r, "product_id"); err != nil {
		return filter, err
	}
	if filter.From, err = validators.ParseQueryTime(r, "from"); err != nil {
		return filter, err
	}
	if filter.To, err = validators.ParseQueryTime(r, "to"); err != nil {
		return filter, err
	}
	if filter.Limit, err = validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit); err != nil {
		return filter, err
	}
	filter.ProductType = enums.ProductType(queryValue(r, "product_type"))
	filter.ChangeType = enums.StockChangeType(queryValue(r, "change_type"))
	filter.FieldName = strings.TrimSpace(r.URL.Query().Get("field_name"))
	return filter, nil
}

func queryValue(r *http.Request, key string) string {
	return strings.ToLower(strings.TrimSpace(r.URL.Query().Get(key)))
}
