package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/giftledger-backend/internal/access"
	"github.com/angelmondragon/giftledger-backend/pkg/enums"
)

// CreateOrderInput carries a new order assigned by an admin.
type CreateOrderInput struct {
	Actor        access.Subject
	AccountID    string
	ServerID     string
	InGameName   string
	SkinName     string
	DiamondPrice int64
	SupplierID   uuid.UUID
	Status       *enums.OrderStatus
	Notes        *string
	ReleaseDate  *time.Time
}

// UpdateOrderInput is a partial update; nil fields are left unchanged.
type UpdateOrderInput struct {
	Actor           access.Subject
	OrderID         uuid.UUID
	Status          *enums.OrderStatus
	SupplierID      *uuid.UUID
	ReadyForGifting *bool
	Notes           *string
	ReleaseDate     *time.Time
}

// ListFilter narrows order listings.
type ListFilter struct {
	Status        *enums.OrderStatus
	ExcludeStatus *enums.OrderStatus
	SupplierID    *uuid.UUID
	Search        string
	Sort          SortField
	Desc          bool
	Limit         int
}

type SortField string

const (
	SortCreatedAt    SortField = "createdAt"
	SortUpdatedAt    SortField = "updatedAt"
	SortDiamondPrice SortField = "diamondPrice"
	SortStatus       SortField = "status"
	SortSkinName     SortField = "skinName"
	SortReleaseDate  SortField = "releaseDate"
	SortSupplier     SortField = "supplier"
)

var sortColumns = map[SortField]string{
	SortCreatedAt:    "orders.created_at",
	SortUpdatedAt:    "orders.updated_at",
	SortDiamondPrice: "orders.diamond_price",
	SortStatus:       "orders.status",
	SortSkinName:     "orders.skin_name",
	SortReleaseDate:  "orders.release_date",
	SortSupplier:     "suppliers.name",
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

// Stats feeds the admin dashboard.
type Stats struct {
	TotalOrders   int64 `json:"total_orders"`
	PendingOrders int64 `json:"pending_orders"`
	ReadyOrders   int64 `json:"ready_orders"`
}
