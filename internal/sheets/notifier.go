package sheets

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/angelmondragon/giftledger-backend/pkg/config"
	"github.com/angelmondragon/giftledger-backend/pkg/db/models"
	"github.com/angelmondragon/giftledger-backend/pkg/logger"
	"github.com/angelmondragon/giftledger-backend/pkg/metrics"
)

const (
	opAppend       = "append"
	opUpdateStatus = "update_status"

	defaultQueueSize   = 256
	defaultCallTimeout = 10 * time.Second
)

type job struct {
	op      string
	sheetID string
	row     OrderRow
	orderID string
	label   string
	logCtx  context.Context
}

// Notifier queues mirror calls after a commit and drains them on one worker
// goroutine. A full queue drops the event with a warning; there is no retry.
type Notifier struct {
	mirror  Mirror
	logg    *logger.Logger
	metrics *metrics.LedgerMetrics
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	jobs   chan job
	done   chan struct{}
}

// NewNotifier starts the worker. Call Close to drain and stop it.
func NewNotifier(mirror Mirror, cfg config.SheetsConfig, logg *logger.Logger, m *metrics.LedgerMetrics) (*Notifier, error) {
	if mirror == nil {
		return nil, errors.New("sheets mirror required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	size := cfg.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	n := &Notifier{
		mirror:  mirror,
		logg:    logg,
		metrics: m,
		timeout: timeout,
		jobs:    make(chan job, size),
		done:    make(chan struct{}),
	}
	go n.run()
	return n, nil
}

// OrderCreated appends the order's row when its supplier mirrors to a sheet.
// order must carry its Supplier.
func (n *Notifier) OrderCreated(ctx context.Context, order *models.Order) {
	sheetID, ok := sheetFor(order)
	if !ok {
		return
	}
	n.enqueue(ctx, job{
		op:      opAppend,
		sheetID: sheetID,
		orderID: order.ID.String(),
		row: OrderRow{
			OrderID:      order.ID.String(),
			CreatedAt:    order.CreatedAt,
			AccountID:    order.AccountID,
			ServerID:     order.ServerID,
			InGameName:   order.InGameName,
			SkinName:     order.SkinName,
			DiamondPrice: order.DiamondPrice,
			Status:       order.Status.String(),
		},
	})
}

// OrderStatusChanged rewrites the status cell of the order's row.
func (n *Notifier) OrderStatusChanged(ctx context.Context, order *models.Order) {
	sheetID, ok := sheetFor(order)
	if !ok {
		return
	}
	n.enqueue(ctx, job{
		op:      opUpdateStatus,
		sheetID: sheetID,
		orderID: order.ID.String(),
		label:   order.Status.Label(),
	})
}

func sheetFor(order *models.Order) (string, bool) {
	if order == nil {
		return "", false
	}
	return order.Supplier.SheetTarget()
}

func (n *Notifier) enqueue(ctx context.Context, j job) {
	// keep request-scoped log fields but not the request's cancellation
	j.logCtx = n.logg.WithFields(context.WithoutCancel(ctx), map[string]any{
		"sheet_op": j.op,
		"order_id": j.orderID,
	})

	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		n.logg.Warn(j.logCtx, "sheets notifier closed; event dropped")
		n.metrics.IncSheetSync(j.op, "dropped")
		return
	}
	select {
	case n.jobs <- j:
	default:
		n.logg.Warn(j.logCtx, "sheets queue full; event dropped")
		n.metrics.IncSheetSync(j.op, "dropped")
	}
}

func (n *Notifier) run() {
	defer close(n.done)
	for j := range n.jobs {
		n.process(j)
	}
}

func (n *Notifier) process(j job) {
	ctx, cancel := context.WithTimeout(j.logCtx, n.timeout)
	defer cancel()

	var err error
	switch j.op {
	case opAppend:
		err = n.mirror.AppendRow(ctx, j.sheetID, j.row)
	case opUpdateStatus:
		err = n.mirror.UpdateStatusCell(ctx, j.sheetID, j.orderID, j.label)
	}
	if err != nil {
		n.logg.Error(j.logCtx, "sheet sync failed", err)
		n.metrics.IncSheetSync(j.op, "failed")
		return
	}
	n.metrics.IncSheetSync(j.op, "ok")
}

// Close stops accepting events and waits for queued ones until ctx expires.
func (n *Notifier) Close(ctx context.Context) error {
	n.mu.Lock()
	if !n.closed {
		n.closed = true
		close(n.jobs)
	}
	n.mu.Unlock()

	select {
	case <-n.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
