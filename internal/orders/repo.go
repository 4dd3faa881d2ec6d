package orders

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/giftledger-backend/pkg/db/models"
	"github.com/angelmondragon/giftledger-backend/pkg/enums"
	"github.com/angelmondragon/giftledger-backend/pkg/pagination"
)

// Repository exposes persistence for orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	LockByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindDetail(ctx context.Context, id uuid.UUID) (*models.Order, error)
	Save(ctx context.Context, order *models.Order) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter ListFilter) ([]models.Order, error)
	PromoteStaleFollowed(ctx context.Context, cutoff time.Time) (int64, error)
	Stats(ctx context.Context) (Stats, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds a repository to the provided GORM connection.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(order).Error
}

func (r *repository) LockByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindDetail(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.withProjections(r.db.WithContext(ctx)).
		Where("orders.id = ?", id).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// Save writes every mutable column, including ones being cleared.
func (r *repository) Save(ctx context.Context, order *models.Order) error {
	order.UpdatedAt = time.Now().UTC()
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", order.ID).
		UpdateColumns(map[string]any{
			"status":              order.Status,
			"supplier_id":         order.SupplierID,
			"ready_for_gifting":   order.ReadyForGifting,
			"notes":               order.Notes,
			"release_date":        order.ReleaseDate,
			"followed_at":         order.FollowedAt,
			"completed_at":        order.CompletedAt,
			"balance_deducted_at": order.BalanceDeductedAt,
			"updated_at":          order.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Order{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.Order, error) {
	query := r.withProjections(r.db.WithContext(ctx).Model(&models.Order{}))

	if filter.Status != nil {
		query = query.Where("orders.status = ?", *filter.Status)
	}
	if filter.ExcludeStatus != nil {
		query = query.Where("orders.status <> ?", *filter.ExcludeStatus)
	}
	if filter.SupplierID != nil {
		query = query.Where("orders.supplier_id = ?", *filter.SupplierID)
	}
	if term := strings.ToLower(strings.TrimSpace(filter.Search)); term != "" {
		pattern := "%" + escapeLike(term) + "%"
		query = query.Where(
			"(LOWER(orders.account_id) LIKE ? ESCAPE '\\' OR LOWER(orders.in_game_name) LIKE ? ESCAPE '\\' OR LOWER(orders.skin_name) LIKE ? ESCAPE '\\' OR LOWER(orders.server_id) LIKE ? ESCAPE '\\')",
			pattern, pattern, pattern, pattern,
		)
	}

	column, ok := sortColumns[filter.Sort]
	if !ok {
		column = sortColumns[SortCreatedAt]
	}
	if filter.Sort == SortSupplier {
		query = query.Joins("JOIN suppliers ON suppliers.id = orders.supplier_id")
	}
	direction := "ASC"
	if filter.Desc {
		direction = "DESC"
	}

	var orders []models.Order
	if err := query.
		Order(column + " " + direction).
		Order("orders.id " + direction).
		Limit(pagination.Listing.Normalize(filter.Limit)).
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// PromoteStaleFollowed moves FOLLOWED orders followed at or before cutoff to
// READY_FOR_GIFTING in one conditional statement. Re-running it is harmless.
func (r *repository) PromoteStaleFollowed(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("status = ? AND followed_at IS NOT NULL AND followed_at <= ?", enums.OrderStatusFollowed, cutoff).
		UpdateColumns(map[string]any{
			"status":            enums.OrderStatusReadyForGifting,
			"ready_for_gifting": true,
			"updated_at":        time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

func (r *repository) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	base := r.db.WithContext(ctx).Model(&models.Order{})
	if err := base.Session(&gorm.Session{}).Count(&stats.TotalOrders).Error; err != nil {
		return Stats{}, err
	}
	if err := base.Session(&gorm.Session{}).
		Where("status = ?", enums.OrderStatusPending).
		Count(&stats.PendingOrders).Error; err != nil {
		return Stats{}, err
	}
	if err := base.Session(&gorm.Session{}).
		Where("ready_for_gifting = ? AND status <> ?", true, enums.OrderStatusCompleted).
		Count(&stats.ReadyOrders).Error; err != nil {
		return Stats{}, err
	}
	return stats, nil
}

func (r *repository) withProjections(query *gorm.DB) *gorm.DB {
	return query.
		Preload("Supplier").
		Preload("AssignedBy", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "name", "email", "role")
		})
}

func escapeLike(term string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(term)
}
