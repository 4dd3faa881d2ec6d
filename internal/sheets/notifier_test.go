package sheets

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/giftledger-backend/pkg/config"
	"github.com/angelmondragon/giftledger-backend/pkg/db/models"
	"github.com/angelmondragon/giftledger-backend/pkg/enums"
	"github.com/angelmondragon/giftledger-backend/pkg/logger"
	"github.com/angelmondragon/giftledger-backend/pkg/metrics"
)

type fakeMirror struct {
	mu      sync.Mutex
	appends []OrderRow
	updates []string
	err     error
	block   chan struct{}
}

func (f *fakeMirror) AppendRow(_ context.Context, sheetID string, row OrderRow) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appends = append(f.appends, row)
	return f.err
}

func (f *fakeMirror) UpdateStatusCell(_ context.Context, sheetID, orderID, label string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, sheetID+"|"+orderID+"|"+label)
	return f.err
}

func syncedOrder(status enums.OrderStatus) *models.Order {
	sheet := "sheet-1"
	return &models.Order{
		ID:           uuid.New(),
		AccountID:    "123",
		ServerID:     "45",
		InGameName:   "Gifted",
		SkinName:     "Aurora",
		DiamondPrice: 500,
		Status:       status,
		CreatedAt:    time.Date(2026, 4, 2, 23, 0, 0, 0, time.UTC),
		Supplier:     &models.Supplier{GoogleSheetID: &sheet, GoogleSyncEnabled: true},
	}
}

func TestNotifierMirrorsAfterEnqueue(t *testing.T) {
	mirror := &fakeMirror{}
	reg := prometheus.NewRegistry()
	m := metrics.NewLedgerMetrics(reg)
	n, err := NewNotifier(mirror, config.SheetsConfig{QueueSize: 4}, logger.Nop(), m)
	require.NoError(t, err)

	order := syncedOrder(enums.OrderStatusPending)
	n.OrderCreated(context.Background(), order)
	order.Status = enums.OrderStatusReadyForGifting
	n.OrderStatusChanged(context.Background(), order)
	require.NoError(t, n.Close(context.Background()))

	require.Len(t, mirror.appends, 1)
	assert.Equal(t, "PENDING", mirror.appends[0].Status)
	assert.Equal(t, []any{order.ID.String(), "2026-04-02", "123", "45", "Gifted", "Aurora", int64(500), "PENDING"}, mirror.appends[0].values())
	assert.Equal(t, []string{"sheet-1|" + order.ID.String() + "|Ready For Gifting"}, mirror.updates)
	assert.Equal(t, 2, testutil.CollectAndCount(reg, "giftledger_sheet_sync_total"))
}

func TestNotifierSkipsSuppliersWithoutSync(t *testing.T) {
	mirror := &fakeMirror{}
	n, err := NewNotifier(mirror, config.SheetsConfig{}, logger.Nop(), nil)
	require.NoError(t, err)

	disabled := syncedOrder(enums.OrderStatusPending)
	disabled.Supplier.GoogleSyncEnabled = false
	n.OrderCreated(context.Background(), disabled)

	noSupplier := syncedOrder(enums.OrderStatusPending)
	noSupplier.Supplier = nil
	n.OrderStatusChanged(context.Background(), noSupplier)
	n.OrderCreated(context.Background(), nil)

	require.NoError(t, n.Close(context.Background()))
	assert.Empty(t, mirror.appends)
	assert.Empty(t, mirror.updates)
}

func TestNotifierSwallowsMirrorFailures(t *testing.T) {
	mirror := &fakeMirror{err: errors.New("quota exceeded")}
	n, err := NewNotifier(mirror, config.SheetsConfig{}, logger.Nop(), nil)
	require.NoError(t, err)

	n.OrderCreated(context.Background(), syncedOrder(enums.OrderStatusPending))
	require.NoError(t, n.Close(context.Background()))
	assert.Len(t, mirror.appends, 1)
}

func TestNotifierDropsWhenQueueFullOrClosed(t *testing.T) {
	mirror := &fakeMirror{block: make(chan struct{})}
	n, err := NewNotifier(mirror, config.SheetsConfig{QueueSize: 1}, logger.Nop(), nil)
	require.NoError(t, err)

	// the first event occupies the worker, the second fills the queue
	for i := 0; i < 5; i++ {
		n.OrderCreated(context.Background(), syncedOrder(enums.OrderStatusPending))
	}
	close(mirror.block)
	require.NoError(t, n.Close(context.Background()))
	assert.LessOrEqual(t, len(mirror.appends), 2)
	assert.GreaterOrEqual(t, len(mirror.appends), 1)

	n.OrderCreated(context.Background(), syncedOrder(enums.OrderStatusPending))
	assert.LessOrEqual(t, len(mirror.appends), 2)
	assert.NoError(t, n.Close(context.Background()), "close is idempotent")
}

func TestNewNotifierValidation(t *testing.T) {
	_, err := NewNotifier(nil, config.SheetsConfig{}, logger.Nop(), nil)
	assert.Error(t, err)
	_, err = NewNotifier(&fakeMirror{}, config.SheetsConfig{}, nil, nil)
	assert.Error(t, err)
}
