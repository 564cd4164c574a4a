package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/travelmarket/tourism-backend/api/middleware"
	"github.com/travelmarket/tourism-backend/api/responses"
	"github.com/travelmarket/tourism-backend/api/validators"
	"github.com/travelmarket/tourism-backend/internal/orders"
	"github.com/travelmarket/tourism-backend/internal/stock"
	"github.com/travelmarket/tourism-backend/pkg/enums"
	"github.com/travelmarket/tourism-backend/pkg/logger"
)

// OrderTransitioner moves an order between lifecycle states.
type OrderTransitioner interface {
	TransitionState(ctx context.Context, orderID uuid.UUID, next enums.OrderState, actor stock.Actor) (*orders.TransitionResult, error)
}

type orderStateRequest struct {
	State string `json:"state" validate:"required,oneof=Pending Confirmed Upcoming 'In Progress' Completed Cancelled Refunded"`
}

// OrderTransition handles POST /api/orders/{id}/state. Moving an order to
// Cancelled or Refunded releases its stock in the same transaction.
func OrderTransition(svc OrderTransitioner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		orderID, err := validators.ParseURLUUID(r, "id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var body orderStateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.TransitionState(ctx, orderID, enums.OrderState(body.State), middleware.ActorFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
