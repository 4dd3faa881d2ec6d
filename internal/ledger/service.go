package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftledger-backend/pkg/db"
	"github.com/angelmondragon/giftledger-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/giftledger-backend/pkg/errors"
	"github.com/angelmondragon/giftledger-backend/pkg/logger"
	"github.com/angelmondragon/giftledger-backend/pkg/metrics"
	"github.com/angelmondragon/giftledger-backend/pkg/pagination"
)

const minReasonLength = 2

// Service owns every mutation of a supplier balance.
type Service interface {
	// ApplyDelta changes a balance and appends the matching log row inside tx.
	// A zero amount is a no-op and returns a nil log.
	ApplyDelta(ctx context.Context, tx *gorm.DB, input DeltaInput) (*models.BalanceLog, error)
	// LockSuppliers row-locks the given suppliers in a stable order inside tx.
	LockSuppliers(ctx context.Context, tx *gorm.DB, ids ...uuid.UUID) (map[uuid.UUID]*models.Supplier, error)
	// DetachOrder nulls the order reference on the order's log rows inside tx.
	DetachOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
	Adjust(ctx context.Context, input AdjustInput) (*models.Supplier, error)
	List(ctx context.Context, input ListInput) (*ListResult, error)
	Totals(ctx context.Context) ([]SupplierTotal, error)
}

type txRunner interface {
	WithTxRetry(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo    Repository
	tx      txRunner
	logg    *logger.Logger
	metrics *metrics.LedgerMetrics
}

// NewService wires the ledger service. metrics may be nil.
func NewService(repo Repository, tx txRunner, logg *logger.Logger, m *metrics.LedgerMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, logg: logg, metrics: m}, nil
}

func (s *service) ApplyDelta(ctx context.Context, tx *gorm.DB, input DeltaInput) (*models.BalanceLog, error) {
	if input.Amount == 0 {
		return nil, nil
	}
	if input.SupplierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier id is required")
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reason is required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "balance changes require a transaction")
	}

	repo := s.repo.WithTx(tx)
	if _, err := repo.LockSupplier(ctx, input.SupplierID); err != nil {
		return nil, supplierLookupError(err)
	}
	if err := repo.IncrementBalance(ctx, input.SupplierID, input.Amount); err != nil {
		return nil, supplierLookupError(err)
	}

	entry := &models.BalanceLog{
		SupplierID:   input.SupplierID,
		ChangeAmount: input.Amount,
		Reason:       reason,
		OrderID:      input.OrderID,
	}
	if err := repo.CreateLog(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append balance log")
	}

	s.metrics.ObserveEntry(string(input.Kind), input.Amount)
	return entry, nil
}

func (s *service) LockSuppliers(ctx context.Context, tx *gorm.DB, ids ...uuid.UUID) (map[uuid.UUID]*models.Supplier, error) {
	unique := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == uuid.Nil {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	rows, err := s.repo.WithTx(tx).LockSuppliers(ctx, unique)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock suppliers")
	}
	out := make(map[uuid.UUID]*models.Supplier, len(rows))
	for i := range rows {
		out[rows[i].ID] = &rows[i]
	}
	for _, id := range unique {
		if _, ok := out[id]; !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found").
				WithDetails(map[string]any{"supplier_id": id.String()})
		}
	}
	return out, nil
}

func (s *service) DetachOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	if err := s.repo.WithTx(tx).DetachOrder(ctx, orderID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "detach balance logs from order")
	}
	return nil
}

func (s *service) Adjust(ctx context.Context, input AdjustInput) (*models.Supplier, error) {
	if err := validateAdjust(input); err != nil {
		return nil, err
	}

	// a client disconnect must not cut the transaction short
	ctx = context.WithoutCancel(s.logg.WithSupplierID(ctx, input.SupplierID.String()))
	var (
		updated *models.Supplier
		delta   int64
	)
	err := s.tx.WithTxRetry(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		supplier, err := repo.LockSupplier(ctx, input.SupplierID)
		if err != nil {
			return supplierLookupError(err)
		}

		delta = 0
		if input.NewBalance != nil {
			delta = *input.NewBalance - supplier.DiamondBalance
		} else {
			delta = *input.ChangeAmount
		}
		if delta == 0 {
			updated = supplier
			return nil
		}

		if _, err := s.ApplyDelta(ctx, tx, DeltaInput{
			SupplierID: input.SupplierID,
			Amount:     delta,
			Reason:     input.Reason,
			Kind:       KindAdjust,
		}); err != nil {
			return err
		}

		updated, err = repo.LockSupplier(ctx, input.SupplierID)
		if err != nil {
			return supplierLookupError(err)
		}
		return nil
	})
	if err != nil {
		return nil, db.TxError(err, "adjust supplier balance")
	}

	if delta != 0 {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"change_amount": delta,
			"balance":       updated.DiamondBalance,
		}), "supplier balance adjusted")
	}
	return updated, nil
}

func validateAdjust(input AdjustInput) error {
	if input.SupplierID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "supplier id is required")
	}
	switch {
	case input.NewBalance == nil && input.ChangeAmount == nil:
		return pkgerrors.New(pkgerrors.CodeValidation, "either newBalance or changeAmount is required")
	case input.NewBalance != nil && input.ChangeAmount != nil:
		return pkgerrors.New(pkgerrors.CodeValidation, "provide newBalance or changeAmount, not both")
	case input.NewBalance != nil && *input.NewBalance < 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "newBalance cannot be negative")
	}
	if len([]rune(strings.TrimSpace(input.Reason))) < minReasonLength {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("reason must be at least %d characters", minReasonLength))
	}
	return nil
}

func (s *service) List(ctx context.Context, input ListInput) (*ListResult, error) {
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.Listing.Normalize(input.Limit)
	logs, err := s.repo.List(ctx, ListFilter{SupplierID: input.SupplierID, OrderID: input.OrderID}, cursor, limit+1)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list balance logs")
	}

	result := &ListResult{Logs: logs}
	if len(logs) > limit {
		last := logs[limit-1]
		result.Logs = logs[:limit]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return result, nil
}

func (s *service) Totals(ctx context.Context) ([]SupplierTotal, error) {
	totals, err := s.repo.Totals(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ledger totals")
	}
	return totals, nil
}

func supplierLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load supplier")
}
