package suppliers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftledger-backend/internal/access"
	"github.com/angelmondragon/giftledger-backend/internal/ledger"
	"github.com/angelmondragon/giftledger-backend/internal/users"
	"github.com/angelmondragon/giftledger-backend/pkg/config"
	"github.com/angelmondragon/giftledger-backend/pkg/db"
	"github.com/angelmondragon/giftledger-backend/pkg/db/models"
	"github.com/angelmondragon/giftledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/giftledger-backend/pkg/errors"
	"github.com/angelmondragon/giftledger-backend/pkg/logger"
	"github.com/angelmondragon/giftledger-backend/pkg/security"
)

const (
	minNameLength        = 2
	initialBalanceReason = "Initial balance"
)

var validate = validator.New()

type Service interface {
	Create(ctx context.Context, input CreateSupplierInput) (*SupplierView, error)
	Update(ctx context.Context, input UpdateSupplierInput) (*SupplierView, error)
	Get(ctx context.Context, actor access.Subject, id uuid.UUID) (*SupplierView, error)
	List(ctx context.Context, actor access.Subject, filter ListFilter) ([]SupplierView, error)
	// AdjustBalance authorizes and applies a manual balance correction.
	AdjustBalance(ctx context.Context, actor access.Subject, input ledger.AdjustInput) (*SupplierView, error)
	// BalanceLogs pages through the ledger, scoped to the actor.
	BalanceLogs(ctx context.Context, actor access.Subject, input ledger.ListInput) (*ledger.ListResult, error)
}

type txRunner interface {
	WithTxRetry(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ServiceParams struct {
	Repo     Repository
	Users    users.Repository
	Ledger   ledger.Service
	Tx       txRunner
	Password config.PasswordConfig
	Logger   *logger.Logger
}

type service struct {
	repo     Repository
	users    users.Repository
	ledger   ledger.Service
	tx       txRunner
	password config.PasswordConfig
	logg     *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("supplier repository required")
	case params.Users == nil:
		return nil, fmt.Errorf("users repository required")
	case params.Ledger == nil:
		return nil, fmt.Errorf("ledger service required")
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     params.Repo,
		users:    params.Users,
		ledger:   params.Ledger,
		tx:       params.Tx,
		password: params.Password,
		logg:     params.Logger,
	}, nil
}

// Create registers the SUPPLIER user, its supplier record and the opening
// balance log in a single transaction.
func (s *service) Create(ctx context.Context, input CreateSupplierInput) (*SupplierView, error) {
	if err := access.Authorize(&input.Actor, access.OpSupplierCreate, access.Resource{}).Err(); err != nil {
		return nil, err
	}
	if err := validateCreate(input); err != nil {
		return nil, err
	}
	hash, err := security.HashPassword(input.Password, s.password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	threshold := models.DefaultLowBalanceThreshold
	if input.LowBalanceThreshold != nil {
		threshold = *input.LowBalanceThreshold
	}
	name := strings.TrimSpace(input.Name)

	ctx = context.WithoutCancel(ctx)
	var created *models.Supplier
	err = s.tx.WithTxRetry(ctx, func(tx *gorm.DB) error {
		user := &models.User{
			Email:        input.Email,
			Name:         name,
			PasswordHash: hash,
			Role:         enums.RoleSupplier,
		}
		if err := s.users.WithTx(tx).Create(ctx, user); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "email already exists").
					WithDetails(map[string]any{"field": "email"})
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
		}

		supplier := &models.Supplier{
			Name:                name,
			UserID:              user.ID,
			LowBalanceThreshold: threshold,
			GoogleSheetID:       trimmedOrNil(input.GoogleSheetID),
			GoogleSyncEnabled:   input.GoogleSyncEnabled,
		}
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, supplier); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create supplier")
		}
		if _, err := s.ledger.ApplyDelta(ctx, tx, ledger.DeltaInput{
			SupplierID: supplier.ID,
			Amount:     input.InitialBalance,
			Reason:     initialBalanceReason,
			Kind:       ledger.KindInitial,
		}); err != nil {
			return err
		}

		loaded, err := repo.FindByID(ctx, supplier.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload supplier")
		}
		created = loaded
		return nil
	})
	if err != nil {
		return nil, db.TxError(err, "create supplier")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"supplier_id":     created.ID.String(),
		"initial_balance": input.InitialBalance,
	}), "supplier created")
	view := ViewOf(created, nil)
	return &view, nil
}

func validateCreate(input CreateSupplierInput) error {
	fields := map[string]string{}
	if len([]rune(strings.TrimSpace(input.Name))) < minNameLength {
		fields["name"] = "must be at least 2 characters"
	}
	if err := validate.Var(strings.TrimSpace(input.Email), "required,email"); err != nil {
		fields["email"] = "must be a valid email address"
	}
	if len([]rune(input.Password)) < security.MinPasswordLength {
		fields["password"] = "must be at least 6 characters"
	}
	if input.InitialBalance < 0 {
		fields["diamond_balance"] = "must not be negative"
	}
	if input.LowBalanceThreshold != nil && *input.LowBalanceThreshold < 0 {
		fields["low_balance_threshold"] = "must not be negative"
	}
	if len(fields) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid supplier").WithDetails(fields)
	}
	return nil
}

func (s *service) Update(ctx context.Context, input UpdateSupplierInput) (*SupplierView, error) {
	if err := access.Authorize(&input.Actor, access.OpSupplierUpdate, access.Resource{SupplierID: &input.SupplierID}).Err(); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if len([]rune(name)) < minNameLength {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name must be at least 2 characters")
		}
		updates["name"] = name
	}
	if input.LowBalanceThreshold != nil {
		if *input.LowBalanceThreshold < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "low balance threshold must not be negative")
		}
		updates["low_balance_threshold"] = *input.LowBalanceThreshold
	}
	if input.GoogleSheetID != nil {
		updates["google_sheet_id"] = trimmedOrNil(input.GoogleSheetID)
	}
	if input.GoogleSyncEnabled != nil {
		updates["google_sync_enabled"] = *input.GoogleSyncEnabled
	}

	ctx = s.logg.WithSupplierID(ctx, input.SupplierID.String())
	if len(updates) > 0 {
		if err := s.repo.UpdateProfile(ctx, input.SupplierID, updates); err != nil {
			return nil, supplierLookupError(err)
		}
		s.logg.Info(s.logg.WithField(ctx, "fields", len(updates)), "supplier updated")
	}

	supplier, err := s.repo.FindByID(ctx, input.SupplierID)
	if err != nil {
		return nil, supplierLookupError(err)
	}
	view := ViewOf(supplier, nil)
	return &view, nil
}

func (s *service) Get(ctx context.Context, actor access.Subject, id uuid.UUID) (*SupplierView, error) {
	if err := access.Authorize(&actor, access.OpSupplierRead, access.Resource{SupplierID: &id}).Err(); err != nil {
		return nil, err
	}
	supplier, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, supplierLookupError(err)
	}
	view := ViewOf(supplier, nil)
	return &view, nil
}

func (s *service) List(ctx context.Context, actor access.Subject, filter ListFilter) ([]SupplierView, error) {
	if err := access.Authorize(&actor, access.OpSupplierRead, access.Resource{}).Err(); err != nil {
		return nil, err
	}
	if scope := access.Scope(&actor); scope != nil {
		filter.SupplierID = scope
		filter.Search = ""
	}

	suppliers, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list suppliers")
	}

	var recent map[uuid.UUID][]models.Order
	if filter.IncludeOrders && len(suppliers) > 0 {
		ids := make([]uuid.UUID, 0, len(suppliers))
		for _, supplier := range suppliers {
			ids = append(ids, supplier.ID)
		}
		recent, err = s.repo.RecentOrders(ctx, ids, recentOrdersLimit)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load recent orders")
		}
	}

	views := make([]SupplierView, 0, len(suppliers))
	for i := range suppliers {
		views = append(views, ViewOf(&suppliers[i], recent[suppliers[i].ID]))
	}
	return views, nil
}

func (s *service) AdjustBalance(ctx context.Context, actor access.Subject, input ledger.AdjustInput) (*SupplierView, error) {
	if err := access.Authorize(&actor, access.OpBalanceAdjust, access.Resource{SupplierID: &input.SupplierID}).Err(); err != nil {
		return nil, err
	}
	ctx = s.logg.WithUserID(ctx, actor.UserID.String())
	if _, err := s.ledger.Adjust(ctx, input); err != nil {
		return nil, err
	}
	supplier, err := s.repo.FindByID(ctx, input.SupplierID)
	if err != nil {
		return nil, supplierLookupError(err)
	}
	view := ViewOf(supplier, nil)
	return &view, nil
}

func (s *service) BalanceLogs(ctx context.Context, actor access.Subject, input ledger.ListInput) (*ledger.ListResult, error) {
	if err := access.Authorize(&actor, access.OpBalanceLogRead, access.Resource{}).Err(); err != nil {
		return nil, err
	}
	if scope := access.Scope(&actor); scope != nil {
		input.SupplierID = scope
	}
	return s.ledger.List(ctx, input)
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func supplierLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "supplier not found")
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load supplier")
}
