package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/giftledger-backend/api/responses"
	"github.com/angelmondragon/giftledger-backend/api/validators"
	"github.com/angelmondragon/giftledger-backend/internal/ledger"
	"github.com/angelmondragon/giftledger-backend/internal/suppliers"
	pkgerrors "github.com/angelmondragon/giftledger-backend/pkg/errors"
	"github.com/angelmondragon/giftledger-backend/pkg/logger"
	"github.com/angelmondragon/giftledger-backend/pkg/pagination"
	"github.com/angelmondragon/giftledger-backend/pkg/types"
)

type createSupplierRequest struct {
	Name                string  `json:"name" validate:"required,min=2"`
	Email               string  `json:"email" validate:"required,email"`
	Password            string  `json:"password" validate:"required,min=6"`
	InitialBalance      int64   `json:"initial_balance" validate:"gte=0"`
	LowBalanceThreshold *int64  `json:"low_balance_threshold" validate:"omitempty,gte=0"`
	GoogleSheetID       *string `json:"google_sheet_id"`
	GoogleSyncEnabled   bool    `json:"google_sync_enabled"`
}

type updateSupplierRequest struct {
	Name                *string `json:"name" validate:"omitempty,min=2"`
	LowBalanceThreshold *int64  `json:"low_balance_threshold" validate:"omitempty,gte=0"`
	GoogleSheetID       *string `json:"google_sheet_id"`
	GoogleSyncEnabled   *bool   `json:"google_sync_enabled"`
}

// adjustBalanceRequest sets the balance outright or moves it by a signed
// amount; exactly one of the two is accepted.
type adjustBalanceRequest struct {
	NewBalance   *int64 `json:"new_balance"`
	ChangeAmount *int64 `json:"change_amount"`
	Reason       string `json:"reason" validate:"required,min=2"`
}

// SuppliersList lists suppliers; a supplier caller sees only itself.
func SuppliersList(svc suppliers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subject, err := requireSubject(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		q := r.URL.Query()
		sort, ok := suppliers.ParseSortField(strings.TrimSpace(q.Get("sort")))
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unsupported sort field").WithDetails(map[string]string{"field": "sort"}))
			return
		}
		desc, err := validators.ParseSortOrder(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		includeOrders, err := validators.ParseQueryBool(r, "include_orders")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views, err := svc.List(r.Context(), subject, suppliers.ListFilter{
			Search:        validators.SanitizeString(q.Get("search"), maxSearchLength),
			Sort:          sort,
			Desc:          desc,
			IncludeOrders: includeOrders,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, views)
	}
}

// SupplierCreate provisions the supplier, its login and its opening balance.
func SupplierCreate(svc suppliers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subject, err := requireSubject(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body createSupplierRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Create(r.Context(), suppliers.CreateSupplierInput{
			Actor:               subject,
			Name:                body.Name,
			Email:               body.Email,
			Password:            body.Password,
			InitialBalance:      body.InitialBalance,
			LowBalanceThreshold: body.LowBalanceThreshold,
			GoogleSheetID:       body.GoogleSheetID,
			GoogleSyncEnabled:   body.GoogleSyncEnabled,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, view)
	}
}

func SupplierGet(svc suppliers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subject, err := requireSubject(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		supplierID, err := validators.ParseUUIDParam(r, "supplierId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.Get(r.Context(), subject, supplierID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func SupplierUpdate(svc suppliers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subject, err := requireSubject(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		supplierID, err := validators.ParseUUIDParam(r, "supplierId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateSupplierRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Update(r.Context(), suppliers.UpdateSupplierInput{
			Actor:               subject,
			SupplierID:          supplierID,
			Name:                body.Name,
			LowBalanceThreshold: body.LowBalanceThreshold,
			GoogleSheetID:       body.GoogleSheetID,
			GoogleSyncEnabled:   body.GoogleSyncEnabled,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func SupplierAdjustBalance(svc suppliers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subject, err := requireSubject(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		supplierID, err := validators.ParseUUIDParam(r, "supplierId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body adjustBalanceRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := logg.WithSupplierID(r.Context(), supplierID.String())
		view, err := svc.AdjustBalance(ctx, subject, ledger.AdjustInput{
			SupplierID:   supplierID,
			NewBalance:   body.NewBalance,
			ChangeAmount: body.ChangeAmount,
			Reason:       body.Reason,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// BalanceLogsList pages through the ledger newest first.
func BalanceLogsList(svc suppliers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subject, err := requireSubject(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		supplierID, err := validators.ParseQueryUUID(r, "supplier_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseQueryUUID(r, "order_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.Listing.Default, 1, pagination.Listing.Max)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.BalanceLogs(r.Context(), subject, ledger.ListInput{
			SupplierID: supplierID,
			OrderID:    orderID,
			Cursor:     strings.TrimSpace(r.URL.Query().Get("cursor")),
			Limit:      limit,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, types.PageEnvelope{
			Items:      balanceLogViews(result.Logs),
			NextCursor: result.NextCursor,
		})
	}
}
