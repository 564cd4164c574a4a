package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/travelmarket/tourism-backend/internal/stock"
	"github.com/travelmarket/tourism-backend/pkg/db/models"
	"github.com/travelmarket/tourism-backend/pkg/enums"
	pkgerrors "github.com/travelmarket/tourism-backend/pkg/errors"
	"github.com/travelmarket/tourism-backend/pkg/logger"
)

func TestTransitionStateCancelReleasesEveryLine(t *testing.T) {
	f := newOrdersFixture(t)
	ctx := context.Background()

	activityID := f.seedActivity(t, 10, 3)
	roomID := f.seedRoom(t, 5, 3)
	order := f.seedOrder(t, enums.OrderStatePending,
		orderLine{productType: enums.OrderLineActivity, availabilityID: activityID, qty: 3},
		orderLine{productType: enums.OrderLineLodgment, availabilityID: roomID, qty: 2},
	)

	userID := uuid.New()
	res, err := f.svc.TransitionState(ctx, order.ID, enums.OrderStateCancelled, stock.Actor{UserID: &userID, RequestID: "req-cancel"})
	require.NoError(t, err)
	require.True(t, res.Changed)
	require.Equal(t, enums.OrderStatePending, res.Previous)
	require.NotNil(t, res.Release)
	require.Len(t, res.Release.Released, 2)
	require.Empty(t, res.Release.Skipped)

	activity := f.summary(t, enums.ProductTypeActivity, activityID)
	assert.Equal(t, 0, activity.Reserved)
	room := f.summary(t, enums.ProductTypeRoom, roomID)
	assert.Equal(t, 0, room.Reserved)
	assert.Equal(t, 5, room.Available)

	stored, err := f.repo.Find(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStateCancelled, stored.State)

	logs := f.releaseLogs(t)
	require.Len(t, logs, 2)
	for _, log := range logs {
		assert.True(t, log.Success)
		require.NotNil(t, log.UserID)
		assert.Equal(t, userID, *log.UserID)
		require.NotNil(t, log.RequestID)
		assert.Equal(t, "req-cancel", *log.RequestID)
	}
}

func TestTransitionStateSecondCancelIsNoop(t *testing.T) {
	f := newOrdersFixture(t)
	ctx := context.Background()

	activityID := f.seedActivity(t, 10, 4)
	order := f.seedOrder(t, enums.OrderStateConfirmed,
		orderLine{productType: enums.OrderLineActivity, availabilityID: activityID, qty: 3},
	)

	_, err := f.svc.TransitionState(ctx, order.ID, enums.OrderStateCancelled, stock.Actor{})
	require.NoError(t, err)
	require.Equal(t, 1, f.summary(t, enums.ProductTypeActivity, activityID).Reserved)

	res, err := f.svc.TransitionState(ctx, order.ID, enums.OrderStateCancelled, stock.Actor{})
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Nil(t, res.Release)

	res, err = f.svc.TransitionState(ctx, order.ID, enums.OrderStateRefunded, stock.Actor{})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Nil(t, res.Release)

	assert.Equal(t, 1, f.summary(t, enums.ProductTypeActivity, activityID).Reserved)
	assert.Len(t, f.releaseLogs(t), 1)
}

func TestTransitionStateSkipsUnsupportedAndMissingLines(t *testing.T) {
	f := newOrdersFixture(t)
	ctx := context.Background()

	activityID := f.seedActivity(t, 6, 2)
	order := f.seedOrder(t, enums.OrderStateUpcoming,
		orderLine{productType: enums.OrderLineProductType("package"), availabilityID: uuid.New(), qty: 1},
		orderLine{productType: enums.OrderLineFlight, availabilityID: uuid.New(), qty: 2},
		orderLine{productType: enums.OrderLineActivity, availabilityID: activityID, qty: 2},
	)

	res, err := f.svc.TransitionState(ctx, order.ID, enums.OrderStateRefunded, stock.Actor{})
	require.NoError(t, err)
	require.NotNil(t, res.Release)
	assert.Equal(t, 1, res.Release.Unsupported)
	require.Len(t, res.Release.Skipped, 1)
	assert.Equal(t, pkgerrors.CodeNotFound, res.Release.Skipped[0].Code)
	require.Len(t, res.Release.Released, 1)
	assert.Equal(t, activityID, res.Release.Released[0].AvailabilityID)
	assert.Equal(t, 0, res.Release.Released[0].ReservedAfter)

	stored, err := f.repo.Find(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStateRefunded, stored.State)
}

func TestTransitionStateLiveTransitionLeavesStock(t *testing.T) {
	f := newOrdersFixture(t)
	ctx := context.Background()

	activityID := f.seedActivity(t, 10, 3)
	order := f.seedOrder(t, enums.OrderStatePending,
		orderLine{productType: enums.OrderLineActivity, availabilityID: activityID, qty: 3},
	)

	res, err := f.svc.TransitionState(ctx, order.ID, enums.OrderStateConfirmed, stock.Actor{})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Nil(t, res.Release)
	assert.Equal(t, 3, f.summary(t, enums.ProductTypeActivity, activityID).Reserved)
	assert.Empty(t, f.releaseLogs(t))
}

func TestTransitionStateRejectsLeavingTerminalState(t *testing.T) {
	f := newOrdersFixture(t)
	order := f.seedOrder(t, enums.OrderStateCancelled)

	_, err := f.svc.TransitionState(context.Background(), order.ID, enums.OrderStateConfirmed, stock.Actor{})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestTransitionStateValidation(t *testing.T) {
	f := newOrdersFixture(t)
	ctx := context.Background()

	_, err := f.svc.TransitionState(ctx, uuid.Nil, enums.OrderStateCancelled, stock.Actor{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.TransitionState(ctx, uuid.New(), enums.OrderState("Shipped"), stock.Actor{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.TransitionState(ctx, uuid.New(), enums.OrderStateCancelled, stock.Actor{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

type stubReleaser struct {
	err   error
	calls int
}

func (s *stubReleaser) ReleaseTx(ctx context.Context, tx *gorm.DB, productType enums.ProductType, availabilityID uuid.UUID, qty int, actor stock.Actor) (int, error) {
	s.calls++
	return 0, s.err
}

func TestTransitionStateAbortsOnReleaseFailure(t *testing.T) {
	f := newOrdersFixture(t)
	ctx := context.Background()

	releaser := &stubReleaser{err: pkgerrors.New(pkgerrors.CodeInternal, "ledger unavailable")}
	hook, err := NewCancellationHook(f.repo, releaser, logger.Nop())
	require.NoError(t, err)
	svc, err := NewService(f.repo, f.client, hook, logger.Nop())
	require.NoError(t, err)

	order := f.seedOrder(t, enums.OrderStatePending,
		orderLine{productType: enums.OrderLineActivity, availabilityID: uuid.New(), qty: 1},
		orderLine{productType: enums.OrderLineActivity, availabilityID: uuid.New(), qty: 1},
	)

	_, err = svc.TransitionState(ctx, order.ID, enums.OrderStateCancelled, stock.Actor{})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInternal))
	assert.Equal(t, 1, releaser.calls)

	stored, err := f.repo.Find(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatePending, stored.State)
}

func TestTransitionStateToleratesInsufficientStock(t *testing.T) {
	f := newOrdersFixture(t)
	ctx := context.Background()

	releaser := &stubReleaser{err: pkgerrors.New(pkgerrors.CodeInsufficientStock, "nothing to release")}
	hook, err := NewCancellationHook(f.repo, releaser, logger.Nop())
	require.NoError(t, err)
	svc, err := NewService(f.repo, f.client, hook, logger.Nop())
	require.NoError(t, err)

	order := f.seedOrder(t, enums.OrderStatePending,
		orderLine{productType: enums.OrderLineFlight, availabilityID: uuid.New(), qty: 2},
	)

	res, err := svc.TransitionState(ctx, order.ID, enums.OrderStateCancelled, stock.Actor{})
	require.NoError(t, err)
	require.Len(t, res.Release.Skipped, 1)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, res.Release.Skipped[0].Code)
	assert.Equal(t, "nothing to release", res.Release.Skipped[0].Reason)
}

func TestOnOrderStateChangeIgnoresNonReleasingTransitions(t *testing.T) {
	f := newOrdersFixture(t)
	releaser := &stubReleaser{}
	hook, err := NewCancellationHook(f.repo, releaser, logger.Nop())
	require.NoError(t, err)

	order := &models.Order{ID: uuid.New()}
	cases := []struct {
		previous enums.OrderState
		next     enums.OrderState
	}{
		{enums.OrderStatePending, enums.OrderStateConfirmed},
		{enums.OrderStateCancelled, enums.OrderStateRefunded},
		{enums.OrderStateRefunded, enums.OrderStateCancelled},
	}
	for _, tc := range cases {
		report, err := hook.OnOrderStateChange(context.Background(), nil, order, tc.previous, tc.next, stock.Actor{})
		require.NoError(t, err)
		assert.False(t, report.Triggered)
	}
	assert.Zero(t, releaser.calls)
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	repo := NewRepository(nil)
	_, err := NewService(nil, nil, nil, nil)
	require.Error(t, err)
	_, err = NewCancellationHook(repo, nil, nil)
	require.Error(t, err)
	_, err = NewCancellationHook(nil, &stubReleaser{}, nil)
	require.Error(t, err)
}
