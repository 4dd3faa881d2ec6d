package suppliers

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/giftledger-backend/internal/access"
	"github.com/angelmondragon/giftledger-backend/pkg/db/models"
	"github.com/angelmondragon/giftledger-backend/pkg/enums"
)

// recentOrdersLimit caps the orders embedded in a supplier listing.
const recentOrdersLimit = 20

// CreateSupplierInput creates a SUPPLIER login together with its supplier record.
type CreateSupplierInput struct {
	Actor               access.Subject
	Name                string
	Email               string
	Password            string
	InitialBalance      int64
	LowBalanceThreshold *int64
	GoogleSheetID       *string
	GoogleSyncEnabled   bool
}

// UpdateSupplierInput is a partial update; nil fields are left unchanged.
type UpdateSupplierInput struct {
	Actor               access.Subject
	SupplierID          uuid.UUID
	Name                *string
	LowBalanceThreshold *int64
	GoogleSheetID       *string
	GoogleSyncEnabled   *bool
}

type SortField string

const (
	SortCreatedAt SortField = "createdAt"
	SortName      SortField = "name"
	SortBalance   SortField = "diamondBalance"
	SortUser      SortField = "user"
)

var sortColumns = map[SortField]string{
	SortCreatedAt: "suppliers.created_at",
	SortName:      "suppliers.name",
	SortBalance:   "suppliers.diamond_balance",
	SortUser:      "users.email",
}

// ParseSortField maps a query value onto a sort field, defaulting to createdAt.
func ParseSortField(value string) (SortField, bool) {
	if value == "" {
		return SortCreatedAt, true
	}
	field := SortField(value)
	_, ok := sortColumns[field]
	return field, ok
}

type ListFilter struct {
	SupplierID    *uuid.UUID
	Search        string
	Sort          SortField
	Desc          bool
	IncludeOrders bool
}

type UserSummary struct {
	ID    uuid.UUID  `json:"id"`
	Name  string     `json:"name"`
	Email string     `json:"email"`
	Role  enums.Role `json:"role"`
}

// OrderSummary is the short order line shown under a supplier.
type OrderSummary struct {
	ID           uuid.UUID         `json:"id"`
	InGameName   string            `json:"in_game_name"`
	SkinName     string            `json:"skin_name"`
	DiamondPrice int64             `json:"diamond_price"`
	Status       enums.OrderStatus `json:"status"`
	CreatedAt    time.Time         `json:"created_at"`
}

// SupplierView is the API projection of a supplier with its balance health.
type SupplierView struct {
	ID                  uuid.UUID           `json:"id"`
	Name                string              `json:"name"`
	DiamondBalance      int64               `json:"diamond_balance"`
	LowBalanceThreshold int64               `json:"low_balance_threshold"`
	Health              enums.BalanceHealth `json:"health"`
	GoogleSheetID       *string             `json:"google_sheet_id,omitempty"`
	GoogleSyncEnabled   bool                `json:"google_sync_enabled"`
	User                *UserSummary        `json:"user,omitempty"`
	Orders              []OrderSummary      `json:"orders,omitempty"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

// ViewOf projects a supplier with its summarized orders.
func ViewOf(s *models.Supplier, orders []models.Order) SupplierView {
	view := SupplierView{
		ID:                  s.ID,
		Name:                s.Name,
		DiamondBalance:      s.DiamondBalance,
		LowBalanceThreshold: s.LowBalanceThreshold,
		Health:              enums.ClassifyBalance(s.DiamondBalance, s.LowBalanceThreshold),
		GoogleSheetID:       s.GoogleSheetID,
		GoogleSyncEnabled:   s.GoogleSyncEnabled,
		CreatedAt:           s.CreatedAt,
		UpdatedAt:           s.UpdatedAt,
	}
	for _, o := range orders {
		view.Orders = append(view.Orders, OrderSummary{
			ID:           o.ID,
			InGameName:   o.InGameName,
			SkinName:     o.SkinName,
			DiamondPrice: o.DiamondPrice,
			Status:       o.Status,
			CreatedAt:    o.CreatedAt,
		})
	}
	if s.User != nil {
		view.User = &UserSummary{ID: s.User.ID, Name: s.User.Name, Email: s.User.Email, Role: s.User.Role}
	}
	return view
}
