package ledger

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/giftledger-backend/pkg/db/models"
)

// Kind labels why a balance changed. It feeds metrics and logs only; the
// persisted record is the reason text.
type Kind string

const (
	KindInitial     Kind = "initial"
	KindDeduct      Kind = "deduct"
	KindRefund      Kind = "refund"
	KindTransferOut Kind = "transfer_out"
	KindTransferIn  Kind = "transfer_in"
	KindDelete      Kind = "delete"
	KindAdjust      Kind = "adjust"
)

// DeltaInput describes one balance change plus its log row.
type DeltaInput struct {
	SupplierID uuid.UUID
	Amount     int64
	Reason     string
	OrderID    *uuid.UUID
	Kind       Kind
}

// AdjustInput is a manual balance correction. Exactly one of NewBalance and
// ChangeAmount must be set.
type AdjustInput struct {
	SupplierID   uuid.UUID
	NewBalance   *int64
	ChangeAmount *int64
	Reason       string
}

// ListInput pages through balance logs newest first.
type ListInput struct {
	SupplierID *uuid.UUID
	OrderID    *uuid.UUID
	Cursor     string
	Limit      int
}

type ListResult struct {
	Logs       []models.BalanceLog
	NextCursor string
}
