package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultLowBalanceThreshold applies when a supplier is created without one.
const DefaultLowBalanceThreshold int64 = 1000

// Supplier holds the cached diamond balance. DiamondBalance always equals the sum of
// the supplier's balance_logs and is only written together with a new log row.
type Supplier struct {
	ID                  uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name                string    `gorm:"column:name;not null"`
	UserID              uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	DiamondBalance      int64     `gorm:"column:diamond_balance;not null;default:0"`
	LowBalanceThreshold int64     `gorm:"column:low_balance_threshold;not null;default:1000"`
	GoogleSheetID       *string   `gorm:"column:google_sheet_id"`
	GoogleSyncEnabled   bool      `gorm:"column:google_sync_enabled;not null;default:false"`
	CreatedAt           time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time `gorm:"column:updated_at;autoUpdateTime"`

	User *User `gorm:"foreignKey:UserID;references:ID"`
}

func (s *Supplier) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// SheetTarget returns the spreadsheet id when mirroring is enabled for the supplier.
func (s *Supplier) SheetTarget() (string, bool) {
	if s == nil || !s.GoogleSyncEnabled || s.GoogleSheetID == nil || *s.GoogleSheetID == "" {
		return "", false
	}
	return *s.GoogleSheetID, true
}
