package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/giftledger-backend/api/responses"
	"github.com/angelmondragon/giftledger-backend/api/validators"
	"github.com/angelmondragon/giftledger-backend/internal/orders"
	"github.com/angelmondragon/giftledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/giftledger-backend/pkg/errors"
	"github.com/angelmondragon/giftledger-backend/pkg/logger"
	"github.com/angelmondragon/giftledger-backend/pkg/pagination"
)

const maxSearchLength = 100

type createOrderRequest struct {
	AccountID    string     `json:"account_id" validate:"required"`
	ServerID     string     `json:"server_id" validate:"required"`
	InGameName   string     `json:"in_game_name" validate:"required"`
	SkinName     string     `json:"skin_name" validate:"required"`
	DiamondPrice int64      `json:"diamond_price" validate:"gte=0"`
	SupplierID   uuid.UUID  `json:"supplier_id" validate:"required"`
	Status       *string    `json:"status"`
	Notes        *string    `json:"notes"`
	ReleaseDate  *time.Time `json:"release_date"`
}

type updateOrderRequest struct {
	Status          *string    `json:"status"`
	SupplierID      *uuid.UUID `json:"supplier_id"`
	ReadyForGifting *bool      `json:"ready_for_gifting"`
	Notes           *string    `json:"notes"`
	ReleaseDate     *time.Time `json:"release_date"`
}

func parseStatus(raw *string, field string) (*enums.OrderStatus, error) {
	if raw == nil {
		return nil, nil
	}
	status, err := enums.ParseOrderStatus(*raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status").
			WithDetails(map[string]string{field: "must be one of PENDING, FOLLOWED, READY_FOR_GIFTING, COMPLETED, FAILED, REFUNDED"})
	}
	return &status, nil
}

// OrdersList lists orders; supplier callers only ever see their own.
func OrdersList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subject, err := requireSubject(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter, err := buildOrderFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), subject, filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orderViews(list))
	}
}

func buildOrderFilter(r *http.Request) (orders.ListFilter, error) {
	q := r.URL.Query()
	var filter orders.ListFilter

	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		status, err := parseStatus(&raw, "status")
		if err != nil {
			return filter, err
		}
		filter.Status = status
	}
	if raw := strings.TrimSpace(q.Get("exclude_status")); raw != "" {
		status, err := parseStatus(&raw, "exclude_status")
		if err != nil {
			return filter, err
		}
		filter.ExcludeStatus = status
	}

	supplierID, err := validators.ParseQueryUUID(r, "supplier_id")
	if err != nil {
		return filter, err
	}
	filter.SupplierID = supplierID

	sort, ok := orders.ParseSortField(strings.TrimSpace(q.Get("sort")))
	if !ok {
		return filter, pkgerrors.New(pkgerrors.CodeValidation, "unsupported sort field").WithDetails(map[string]string{"field": "sort"})
	}
	filter.Sort = sort

	if filter.Desc, err = validators.ParseSortOrder(r); err != nil {
		return filter, err
	}
	if filter.Limit, err = validators.ParseQueryInt(r, "limit", pagination.Listing.Default, 1, pagination.Listing.Max); err != nil {
		return filter, err
	}
	filter.Search = validators.SanitizeString(q.Get("search"), maxSearchLength)
	return filter, nil
}

func OrderCreate(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subject, err := requireSubject(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := parseStatus(body.Status, "status")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Create(r.Context(), orders.CreateOrderInput{
			Actor:        subject,
			AccountID:    body.AccountID,
			ServerID:     body.ServerID,
			InGameName:   body.InGameName,
			SkinName:     body.SkinName,
			DiamondPrice: body.DiamondPrice,
			SupplierID:   body.SupplierID,
			Status:       status,
			Notes:        body.Notes,
			ReleaseDate:  body.ReleaseDate,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, orderView(order))
	}
}

func OrderGet(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subject, err := requireSubject(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Get(r.Context(), subject, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orderView(order))
	}
}

// OrderUpdate applies a partial update. Balance effects of the status or
// supplier change happen inside the same transaction.
func OrderUpdate(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subject, err := requireSubject(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := parseStatus(body.Status, "status")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := logg.WithOrderID(r.Context(), orderID.String())
		order, err := svc.Update(ctx, orders.UpdateOrderInput{
			Actor:           subject,
			OrderID:         orderID,
			Status:          status,
			SupplierID:      body.SupplierID,
			ReadyForGifting: body.ReadyForGifting,
			Notes:           body.Notes,
			ReleaseDate:     body.ReleaseDate,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, orderView(order))
	}
}

func OrderDelete(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subject, err := requireSubject(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := logg.WithOrderID(r.Context(), orderID.String())
		if err := svc.Delete(ctx, subject, orderID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// AdminStats returns dashboard order counts.
func AdminStats(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subject, err := requireSubject(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		stats, err := svc.Stats(r.Context(), subject)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}
