package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BalanceLog is an append-only record of one supplier balance change. OrderID is
// nulled when the order is deleted.
type BalanceLog struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SupplierID   uuid.UUID  `gorm:"column:supplier_id;type:uuid;not null;index"`
	ChangeAmount int64      `gorm:"column:change_amount;not null"`
	Reason       string     `gorm:"column:reason;not null"`
	OrderID      *uuid.UUID `gorm:"column:order_id;type:uuid"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`

	Supplier *Supplier `gorm:"foreignKey:SupplierID;references:ID"`
	Order    *Order    `gorm:"foreignKey:OrderID;references:ID"`
}

func (BalanceLog) TableName() string {
	return "balance_logs"
}

func (l *BalanceLog) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
