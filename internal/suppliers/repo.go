package suppliers

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftledger-backend/pkg/db/models"
)

// Repository reads and writes supplier profiles. Balances are owned by the ledger
// and never written here.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, supplier *models.Supplier) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Supplier, error)
	List(ctx context.Context, filter ListFilter) ([]models.Supplier, error)
	RecentOrders(ctx context.Context, supplierIDs []uuid.UUID, perSupplier int) (map[uuid.UUID][]models.Order, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, updates map[string]any) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, supplier *models.Supplier) error {
	return r.db.WithContext(ctx).Omit("User").Create(supplier).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	var supplier models.Supplier
	if err := withUser(r.db.WithContext(ctx)).First(&supplier, "suppliers.id = ?", id).Error; err != nil {
		return nil, err
	}
	return &supplier, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.Supplier, error) {
	query := withUser(r.db.WithContext(ctx).Model(&models.Supplier{})).
		Joins("JOIN users ON users.id = suppliers.user_id")

	if filter.SupplierID != nil {
		query = query.Where("suppliers.id = ?", *filter.SupplierID)
	}
	if term := strings.ToLower(strings.TrimSpace(filter.Search)); term != "" {
		pattern := "%" + strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(term) + "%"
		query = query.Where("(LOWER(suppliers.name) LIKE ? ESCAPE '\\' OR LOWER(users.email) LIKE ? ESCAPE '\\')", pattern, pattern)
	}

	column, ok := sortColumns[filter.Sort]
	if !ok {
		column = sortColumns[SortCreatedAt]
	}
	direction := "ASC"
	if filter.Desc {
		direction = "DESC"
	}

	var suppliers []models.Supplier
	if err := query.Order(column + " " + direction).Order("suppliers.id " + direction).Find(&suppliers).Error; err != nil {
		return nil, err
	}
	return suppliers, nil
}

// RecentOrders returns up to perSupplier newest orders for each supplier.
func (r *repository) RecentOrders(ctx context.Context, supplierIDs []uuid.UUID, perSupplier int) (map[uuid.UUID][]models.Order, error) {
	out := make(map[uuid.UUID][]models.Order, len(supplierIDs))
	for _, id := range supplierIDs {
		var orders []models.Order
		if err := r.db.WithContext(ctx).
			Where("supplier_id = ?", id).
			Order("created_at DESC").
			Order("id DESC").
			Limit(perSupplier).
			Find(&orders).Error; err != nil {
			return nil, err
		}
		out[id] = orders
	}
	return out, nil
}

func (r *repository) UpdateProfile(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.Supplier{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func withUser(query *gorm.DB) *gorm.DB {
	return query.Preload("User", func(db *gorm.DB) *gorm.DB {
		return db.Select("id", "name", "email", "role")
	})
}
