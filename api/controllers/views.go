package controllers

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/giftledger-backend/pkg/db/models"
	"github.com/angelmondragon/giftledger-backend/pkg/enums"
)

type PartyView struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// OrderView is the API projection of an order.
type OrderView struct {
	ID                uuid.UUID         `json:"id"`
	AccountID         string            `json:"account_id"`
	ServerID          string            `json:"server_id"`
	InGameName        string            `json:"in_game_name"`
	SkinName          string            `json:"skin_name"`
	DiamondPrice      int64             `json:"diamond_price"`
	Status            enums.OrderStatus `json:"status"`
	StatusLabel       string            `json:"status_label"`
	ReadyForGifting   bool              `json:"ready_for_gifting"`
	Notes             *string           `json:"notes,omitempty"`
	ReleaseDate       *time.Time        `json:"release_date,omitempty"`
	FollowedAt        *time.Time        `json:"followed_at,omitempty"`
	CompletedAt       *time.Time        `json:"completed_at,omitempty"`
	BalanceDeductedAt *time.Time        `json:"balance_deducted_at,omitempty"`
	Supplier          *PartyView        `json:"supplier,omitempty"`
	AssignedBy        *PartyView        `json:"assigned_by,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

func orderView(o *models.Order) OrderView {
	view := OrderView{
		ID:                o.ID,
		AccountID:         o.AccountID,
		ServerID:          o.ServerID,
		InGameName:        o.InGameName,
		SkinName:          o.SkinName,
		DiamondPrice:      o.DiamondPrice,
		Status:            o.Status,
		StatusLabel:       o.Status.Label(),
		ReadyForGifting:   o.ReadyForGifting,
		Notes:             o.Notes,
		ReleaseDate:       o.ReleaseDate,
		FollowedAt:        o.FollowedAt,
		CompletedAt:       o.CompletedAt,
		BalanceDeductedAt: o.BalanceDeductedAt,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
	if o.Supplier != nil {
		view.Supplier = &PartyView{ID: o.Supplier.ID, Name: o.Supplier.Name}
	}
	if o.AssignedBy != nil {
		view.AssignedBy = &PartyView{ID: o.AssignedBy.ID, Name: o.AssignedBy.Name}
	}
	return view
}

func orderViews(orders []models.Order) []OrderView {
	out := make([]OrderView, 0, len(orders))
	for i := range orders {
		out = append(out, orderView(&orders[i]))
	}
	return out
}

type BalanceLogView struct {
	ID           uuid.UUID  `json:"id"`
	SupplierID   uuid.UUID  `json:"supplier_id"`
	SupplierName string     `json:"supplier_name,omitempty"`
	ChangeAmount int64      `json:"change_amount"`
	Reason       string     `json:"reason"`
	OrderID      *uuid.UUID `json:"order_id,omitempty"`
	SkinName     string     `json:"skin_name,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func balanceLogViews(logs []models.BalanceLog) []BalanceLogView {
	out := make([]BalanceLogView, 0, len(logs))
	for _, l := range logs {
		view := BalanceLogView{
			ID:           l.ID,
			SupplierID:   l.SupplierID,
			ChangeAmount: l.ChangeAmount,
			Reason:       l.Reason,
			OrderID:      l.OrderID,
			CreatedAt:    l.CreatedAt,
		}
		if l.Supplier != nil {
			view.SupplierName = l.Supplier.Name
		}
		if l.Order != nil {
			view.SkinName = l.Order.SkinName
		}
		out = append(out, view)
	}
	return out
}
