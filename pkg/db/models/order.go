package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftledger-backend/pkg/enums"
)

// Order is a gifting request debited against its supplier. BalanceDeductedAt is set
// exactly while the price is debited from the current supplier.
type Order struct {
	ID                uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID         string            `gorm:"column:account_id;not null"`
	ServerID          string            `gorm:"column:server_id;not null"`
	InGameName        string            `gorm:"column:in_game_name;not null"`
	SkinName          string            `gorm:"column:skin_name;not null"`
	DiamondPrice      int64             `gorm:"column:diamond_price;not null"`
	SupplierID        uuid.UUID         `gorm:"column:supplier_id;type:uuid;not null"`
	AssignedByID      uuid.UUID         `gorm:"column:assigned_by_id;type:uuid;not null"`
	Status            enums.OrderStatus `gorm:"column:status;type:text;not null;default:PENDING"`
	ReadyForGifting   bool              `gorm:"column:ready_for_gifting;not null;default:false"`
	Notes             *string           `gorm:"column:notes"`
	ReleaseDate       *time.Time        `gorm:"column:release_date"`
	FollowedAt        *time.Time        `gorm:"column:followed_at"`
	CompletedAt       *time.Time        `gorm:"column:completed_at"`
	BalanceDeductedAt *time.Time        `gorm:"column:balance_deducted_at"`
	CreatedAt         time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time         `gorm:"column:updated_at;autoUpdateTime"`

	Supplier   *Supplier `gorm:"foreignKey:SupplierID;references:ID"`
	AssignedBy *User     `gorm:"foreignKey:AssignedByID;references:ID"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// Deducted reports whether the price is currently debited.
func (o *Order) Deducted() bool {
	return o.BalanceDeductedAt != nil
}
