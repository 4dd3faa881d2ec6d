package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/giftledger-backend/pkg/db/models"
	"github.com/angelmondragon/giftledger-backend/pkg/pagination"
)

// Repository persists supplier balances and their append-only balance log.
// There is deliberately no update or delete for log rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	LockSupplier(ctx context.Context, id uuid.UUID) (*models.Supplier, error)
	LockSuppliers(ctx context.Context, ids []uuid.UUID) ([]models.Supplier, error)
	IncrementBalance(ctx context.Context, supplierID uuid.UUID, delta int64) error
	CreateLog(ctx context.Context, entry *models.BalanceLog) error
	DetachOrder(ctx context.Context, orderID uuid.UUID) error
	List(ctx context.Context, filter ListFilter, cursor *pagination.Cursor, limit int) ([]models.BalanceLog, error)
	Totals(ctx context.Context) ([]SupplierTotal, error)
}

// ListFilter narrows balance log listings.
type ListFilter struct {
	SupplierID *uuid.UUID
	OrderID    *uuid.UUID
}

// SupplierTotal pairs a supplier's cached balance with the sum of its log.
type SupplierTotal struct {
	SupplierID          uuid.UUID `gorm:"column:supplier_id"`
	Name                string    `gorm:"column:name"`
	DiamondBalance      int64     `gorm:"column:diamond_balance"`
	LowBalanceThreshold int64     `gorm:"column:low_balance_threshold"`
	LedgerSum           int64     `gorm:"column:ledger_sum"`
}

// Drifted reports whether the cached balance disagrees with the log.
func (t SupplierTotal) Drifted() bool {
	return t.DiamondBalance != t.LedgerSum
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) LockSupplier(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	var supplier models.Supplier
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&supplier).Error; err != nil {
		return nil, err
	}
	return &supplier, nil
}

// LockSuppliers locks rows in id order so concurrent transfers cannot deadlock.
func (r *repository) LockSuppliers(ctx context.Context, ids []uuid.UUID) ([]models.Supplier, error) {
	var suppliers []models.Supplier
	if len(ids) == 0 {
		return suppliers, nil
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&suppliers).Error; err != nil {
		return nil, err
	}
	return suppliers, nil
}

func (r *repository) IncrementBalance(ctx context.Context, supplierID uuid.UUID, delta int64) error {
	res := r.db.WithContext(ctx).
		Model(&models.Supplier{}).
		Where("id = ?", supplierID).
		UpdateColumns(map[string]any{
			"diamond_balance": gorm.Expr("diamond_balance + ?", delta),
			"updated_at":      time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) CreateLog(ctx context.Context, entry *models.BalanceLog) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(entry).Error
}

// DetachOrder clears the order reference of every log row pointing at orderID.
func (r *repository) DetachOrder(ctx context.Context, orderID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.BalanceLog{}).
		Where("order_id = ?", orderID).
		UpdateColumn("order_id", nil).Error
}

func (r *repository) List(ctx context.Context, filter ListFilter, cursor *pagination.Cursor, limit int) ([]models.BalanceLog, error) {
	query := r.db.WithContext(ctx).
		Model(&models.BalanceLog{}).
		Preload("Supplier", func(db *gorm.DB) *gorm.DB { return db.Select("id", "name") }).
		Preload("Order", func(db *gorm.DB) *gorm.DB { return db.Select("id", "skin_name") })

	if filter.SupplierID != nil {
		query = query.Where("supplier_id = ?", *filter.SupplierID)
	}
	if filter.OrderID != nil {
		query = query.Where("order_id = ?", *filter.OrderID)
	}
	if cursor != nil {
		query = query.Where("((created_at < ?) OR (created_at = ? AND id < ?))", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var logs []models.BalanceLog
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *repository) Totals(ctx context.Context) ([]SupplierTotal, error) {
	var totals []SupplierTotal
	if err := r.db.WithContext(ctx).
		Table("suppliers AS s").
		Select("s.id AS supplier_id, s.name, s.diamond_balance, s.low_balance_threshold, COALESCE(SUM(l.change_amount), 0) AS ledger_sum").
		Joins("LEFT JOIN balance_logs l ON l.supplier_id = s.id").
		Group("s.id, s.name, s.diamond_balance, s.low_balance_threshold").
		Order("s.name ASC").
		Scan(&totals).Error; err != nil {
		return nil, err
	}
	return totals, nil
}
