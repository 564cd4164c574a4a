package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/travelmarket/tourism-backend/api/responses"
	"github.com/travelmarket/tourism-backend/api/validators"
	"github.com/travelmarket/tourism-backend/internal/stock"
	"github.com/travelmarket/tourism-backend/pkg/enums"
	"github.com/travelmarket/tourism-backend/pkg/logger"
)

// StockReader is the read-only slice of the reservation service exposed over HTTP.
type StockReader interface {
	Check(ctx context.Context, productType enums.ProductType, availabilityID uuid.UUID, qty int) (*stock.CheckResult, error)
	ValidateBulk(ctx context.Context, items []stock.BulkItem) (*stock.BulkValidation, error)
	GetStockSummary(ctx context.Context, productType enums.ProductType, availabilityID uuid.UUID) (*stock.StockSummary, error)
}

type bulkValidateRequest struct {
	Items []stock.BulkItem `json:"items" validate:"required,min=1,max=100"`
}

// StockSummary handles GET /api/stock/{type}/{id}/summary.
func StockSummary(svc StockReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		productType, id, err := productRef(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		summary, err := svc.GetStockSummary(ctx, productType, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// StockCheck handles GET /api/stock/{type}/{id}/check?quantity=N.
func StockCheck(svc StockReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		productType, id, err := productRef(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		qty, err := validators.ParseQueryInt(r, "quantity", 1, 1, 10000)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		result, err := svc.Check(ctx, productType, id, qty)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// StockValidateBulk handles POST /api/stock/validate. Nothing is reserved.
func StockValidateBulk(svc StockReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var body bulkValidateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		result, err := svc.ValidateBulk(ctx, body.Items)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func productRef(r *http.Request) (enums.ProductType, uuid.UUID, error) {
	productType, err := validators.ParseURLProductType(r, "type")
	if err != nil {
		return "", uuid.Nil, err
	}
	id, err := validators.ParseURLUUID(r, "id")
	if err != nil {
		return "", uuid.Nil, err
	}
	return productType, id, nil
}
