package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftledger-backend/internal/access"
	"github.com/angelmondragon/giftledger-backend/internal/ledger"
	"github.com/angelmondragon/giftledger-backend/pkg/db"
	"github.com/angelmondragon/giftledger-backend/pkg/db/models"
	"github.com/angelmondragon/giftledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/giftledger-backend/pkg/errors"
	"github.com/angelmondragon/giftledger-backend/pkg/logger"
)

// DefaultReadyAfter is how long an order stays FOLLOWED before it becomes ready for gifting.
const DefaultReadyAfter = 7 * 24 * time.Hour

// Service runs the order lifecycle. Every mutation that moves diamonds does so in
// the same transaction as the order write.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	Update(ctx context.Context, input UpdateOrderInput) (*models.Order, error)
	Delete(ctx context.Context, actor access.Subject, orderID uuid.UUID) error
	Get(ctx context.Context, actor access.Subject, orderID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, actor access.Subject, filter ListFilter) ([]models.Order, error)
	Stats(ctx context.Context, actor access.Subject) (Stats, error)
	// SweepReadyForGifting promotes stale FOLLOWED orders and returns how many moved.
	SweepReadyForGifting(ctx context.Context) (int64, error)
}

// ServiceParams wires the order service.
type ServiceParams struct {
	Repo        Repository
	Ledger      ledger.Service
	Tx          txRunner
	Logger      *logger.Logger
	Sheets      SheetNotifier
	ReadyAfter  time.Duration
	SweepOnList bool
	Now         func() time.Time
}

type service struct {
	repo        Repository
	ledger      ledger.Service
	tx          txRunner
	logg        *logger.Logger
	sheets      SheetNotifier
	readyAfter  time.Duration
	sweepOnList bool
	now         func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	svc := &service{
		repo:        params.Repo,
		ledger:      params.Ledger,
		tx:          params.Tx,
		logg:        params.Logger,
		sheets:      params.Sheets,
		readyAfter:  params.ReadyAfter,
		sweepOnList: params.SweepOnList,
		now:         params.Now,
	}
	if svc.sheets == nil {
		svc.sheets = noopNotifier{}
	}
	if svc.readyAfter <= 0 {
		svc.readyAfter = DefaultReadyAfter
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc, nil
}

func (s *service) Create(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if err := access.Authorize(&input.Actor, access.OpOrderCreate, access.Resource{}).Err(); err != nil {
		return nil, err
	}
	status, err := validateCreate(&input)
	if err != nil {
		return nil, err
	}

	ctx = context.WithoutCancel(s.logg.WithSupplierID(ctx, input.SupplierID.String()))
	var created *models.Order
	err = s.tx.WithTxRetry(ctx, func(tx *gorm.DB) error {
		if _, err := s.ledger.LockSuppliers(ctx, tx, input.SupplierID); err != nil {
			return err
		}

		now := s.now().UTC()
		order := &models.Order{
			ID:              uuid.New(),
			AccountID:       strings.TrimSpace(input.AccountID),
			ServerID:        strings.TrimSpace(input.ServerID),
			InGameName:      strings.TrimSpace(input.InGameName),
			SkinName:        strings.TrimSpace(input.SkinName),
			DiamondPrice:    input.DiamondPrice,
			SupplierID:      input.SupplierID,
			AssignedByID:    input.Actor.UserID,
			Status:          status,
			ReadyForGifting: status.ForcesReady(),
			Notes:           input.Notes,
			ReleaseDate:     input.ReleaseDate,
		}
		stampMilestones(order, now)
		deduct := !status.ReleasesBalance()
		if deduct {
			order.BalanceDeductedAt = &now
		}

		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		if deduct {
			if _, err := s.ledger.ApplyDelta(ctx, tx, ledger.DeltaInput{
				SupplierID: order.SupplierID,
				Amount:     -order.DiamondPrice,
				Reason:     reasonAssigned(order.SkinName),
				OrderID:    &order.ID,
				Kind:       ledger.KindDeduct,
			}); err != nil {
				return err
			}
		}

		detail, err := repo.FindDetail(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		created = detail
		return nil
	})
	if err != nil {
		return nil, db.TxError(err, "create order")
	}

	s.logg.Info(s.logg.WithOrderID(ctx, created.ID.String()), "order created")
	s.sheets.OrderCreated(ctx, created)
	return created, nil
}

func validateCreate(input *CreateOrderInput) (enums.OrderStatus, error) {
	missing := []string{}
	for field, value := range map[string]string{
		"account_id":   input.AccountID,
		"server_id":    input.ServerID,
		"in_game_name": input.InGameName,
		"skin_name":    input.SkinName,
	} {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "required fields missing").
			WithDetails(map[string]any{"fields": missing})
	}
	if input.DiamondPrice <= 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "diamond price must be positive")
	}
	if input.SupplierID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "supplier id is required")
	}

	status := enums.OrderStatusPending
	if input.Status != nil {
		if !input.Status.IsValid() {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
		}
		status = *input.Status
	}
	return status, nil
}

// Update applies a status, assignment or metadata change together with its
// balance effect:
//
//	deduct   next status keeps the order live and nothing is debited yet
//	refund   next status is FAILED/REFUNDED and the price is debited
//	transfer supplier changes while debited and not refunding
func (s *service) Update(ctx context.Context, input UpdateOrderInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	ctx = context.WithoutCancel(s.logg.WithOrderID(ctx, input.OrderID.String()))
	var (
		updated       *models.Order
		statusChanged bool
	)
	err := s.tx.WithTxRetry(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.LockByID(ctx, input.OrderID)
		if err != nil {
			return orderLookupError(err)
		}

		if err := s.authorizeUpdate(input, order); err != nil {
			return err
		}

		next, changed, err := s.applyUpdate(ctx, tx, order, input)
		if err != nil {
			return err
		}
		statusChanged = next.Status != order.Status
		if changed {
			if err := repo.Save(ctx, next); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save order")
			}
		}

		detail, err := repo.FindDetail(ctx, input.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		updated = detail
		return nil
	})
	if err != nil {
		return nil, db.TxError(err, "update order")
	}

	if statusChanged {
		s.logg.Info(s.logg.WithField(ctx, "status", updated.Status), "order status changed")
		s.sheets.OrderStatusChanged(ctx, updated)
	}
	return updated, nil
}

func (s *service) authorizeUpdate(input UpdateOrderInput, order *models.Order) error {
	res := access.Resource{SupplierID: &order.SupplierID, TargetStatus: input.Status}
	if err := access.Authorize(&input.Actor, access.OpOrderUpdate, res).Err(); err != nil {
		return err
	}
	if input.SupplierID != nil && *input.SupplierID != order.SupplierID {
		return access.Authorize(&input.Actor, access.OpOrderReassign, res).Err()
	}
	return nil
}

func (s *service) applyUpdate(ctx context.Context, tx *gorm.DB, current *models.Order, input UpdateOrderInput) (*models.Order, bool, error) {
	next := *current
	next.Supplier, next.AssignedBy = nil, nil

	if input.Status != nil {
		next.Status = *input.Status
	}
	if input.SupplierID != nil {
		next.SupplierID = *input.SupplierID
	}
	switch {
	case input.ReadyForGifting != nil:
		next.ReadyForGifting = *input.ReadyForGifting
	case next.Status == enums.OrderStatusReadyForGifting:
		next.ReadyForGifting = true
	case next.Status != current.Status && next.Status.ForcesReady():
		next.ReadyForGifting = true
	}
	if input.Notes != nil {
		next.Notes = input.Notes
	}
	if input.ReleaseDate != nil {
		next.ReleaseDate = input.ReleaseDate
	}

	now := s.now().UTC()
	stampMilestones(&next, now)

	wasDeducted := current.Deducted()
	reassigning := next.SupplierID != current.SupplierID
	shouldDeduct := !next.Status.ReleasesBalance() && !wasDeducted
	shouldRefund := next.Status.ReleasesBalance() && wasDeducted

	if reassigning || shouldDeduct || shouldRefund {
		if _, err := s.ledger.LockSuppliers(ctx, tx, current.SupplierID, next.SupplierID); err != nil {
			return nil, false, err
		}
	}

	var deltas []ledger.DeltaInput
	switch {
	case shouldDeduct:
		deltas = append(deltas, ledger.DeltaInput{
			SupplierID: next.SupplierID, Amount: -current.DiamondPrice,
			Reason: reasonAssigned(current.SkinName), Kind: ledger.KindDeduct,
		})
		next.BalanceDeductedAt = &now
	case shouldRefund:
		deltas = append(deltas, ledger.DeltaInput{
			SupplierID: current.SupplierID, Amount: current.DiamondPrice,
			Reason: reasonRefunded(current.SkinName), Kind: ledger.KindRefund,
		})
		next.BalanceDeductedAt = nil
	case reassigning && wasDeducted:
		deltas = append(deltas,
			ledger.DeltaInput{
				SupplierID: current.SupplierID, Amount: current.DiamondPrice,
				Reason: reasonTransferOut(current.SkinName), Kind: ledger.KindTransferOut,
			},
			ledger.DeltaInput{
				SupplierID: next.SupplierID, Amount: -current.DiamondPrice,
				Reason: reasonTransferIn(current.SkinName), Kind: ledger.KindTransferIn,
			},
		)
	}
	for _, delta := range deltas {
		delta.OrderID = &current.ID
		if _, err := s.ledger.ApplyDelta(ctx, tx, delta); err != nil {
			return nil, false, err
		}
	}

	return &next, len(deltas) > 0 || !sameState(current, &next), nil
}

func stampMilestones(order *models.Order, now time.Time) {
	switch order.Status {
	case enums.OrderStatusFollowed:
		if order.FollowedAt == nil {
			order.FollowedAt = &now
		}
	case enums.OrderStatusCompleted:
		if order.CompletedAt == nil {
			order.CompletedAt = &now
		}
	}
}

func sameState(a, b *models.Order) bool {
	return a.Status == b.Status &&
		a.SupplierID == b.SupplierID &&
		a.ReadyForGifting == b.ReadyForGifting &&
		equalString(a.Notes, b.Notes) &&
		equalTime(a.ReleaseDate, b.ReleaseDate) &&
		equalTime(a.FollowedAt, b.FollowedAt) &&
		equalTime(a.CompletedAt, b.CompletedAt) &&
		equalTime(a.BalanceDeductedAt, b.BalanceDeductedAt)
}

func equalString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func (s *service) Delete(ctx context.Context, actor access.Subject, orderID uuid.UUID) error {
	if err := access.Authorize(&actor, access.OpOrderDelete, access.Resource{}).Err(); err != nil {
		return err
	}

	ctx = context.WithoutCancel(s.logg.WithOrderID(ctx, orderID.String()))
	var refunded int64
	err := s.tx.WithTxRetry(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.LockByID(ctx, orderID)
		if err != nil {
			return orderLookupError(err)
		}

		refunded = 0
		if order.Deducted() {
			// the order row is about to disappear, so the log keeps no reference
			if _, err := s.ledger.ApplyDelta(ctx, tx, ledger.DeltaInput{
				SupplierID: order.SupplierID,
				Amount:     order.DiamondPrice,
				Reason:     reasonDeleted(order.SkinName),
				Kind:       ledger.KindDelete,
			}); err != nil {
				return err
			}
			refunded = order.DiamondPrice
		}
		if err := s.ledger.DetachOrder(ctx, tx, order.ID); err != nil {
			return err
		}
		if err := repo.Delete(ctx, order.ID); err != nil {
			return orderLookupError(err)
		}
		return nil
	})
	if err != nil {
		return db.TxError(err, "delete order")
	}

	s.logg.Info(s.logg.WithField(ctx, "refunded", refunded), "order deleted")
	return nil
}

func (s *service) Get(ctx context.Context, actor access.Subject, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindDetail(ctx, orderID)
	if err != nil {
		return nil, orderLookupError(err)
	}
	if err := access.Authorize(&actor, access.OpOrderRead, access.Resource{SupplierID: &order.SupplierID}).Err(); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) List(ctx context.Context, actor access.Subject, filter ListFilter) ([]models.Order, error) {
	if err := access.Authorize(&actor, access.OpOrderRead, access.Resource{}).Err(); err != nil {
		return nil, err
	}
	if scope := access.Scope(&actor); scope != nil {
		filter.SupplierID = scope
	}

	if s.sweepOnList {
		if _, err := s.SweepReadyForGifting(ctx); err != nil {
			s.logg.Error(ctx, "ready-for-gifting sweep before list failed", err)
		}
	}

	orders, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return orders, nil
}

func (s *service) Stats(ctx context.Context, actor access.Subject) (Stats, error) {
	if err := access.Authorize(&actor, access.OpStatsRead, access.Resource{}).Err(); err != nil {
		return Stats{}, err
	}
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return Stats{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order stats")
	}
	return stats, nil
}

func (s *service) SweepReadyForGifting(ctx context.Context) (int64, error) {
	cutoff := s.now().UTC().Add(-s.readyAfter)
	promoted, err := s.repo.PromoteStaleFollowed(ctx, cutoff)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "promote followed orders")
	}
	if promoted > 0 {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"promoted": promoted,
			"cutoff":   cutoff,
		}), "orders marked ready for gifting")
	}
	return promoted, nil
}

func orderLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}
