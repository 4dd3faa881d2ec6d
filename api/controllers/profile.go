package controllers

import (
	"net/http"

	"github.com/angelmondragon/giftledger-backend/api/responses"
	"github.com/angelmondragon/giftledger-backend/api/validators"
	"github.com/angelmondragon/giftledger-backend/internal/users"
	"github.com/angelmondragon/giftledger-backend/pkg/logger"
)

type updateProfileRequest struct {
	Name         string  `json:"name" validate:"required,min=2"`
	Password     string  `json:"password" validate:"omitempty,min=6"`
	SupplierName *string `json:"supplier_name" validate:"omitempty,min=2"`
}

func ProfileGet(svc users.ProfileService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subject, err := requireSubject(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		profile, err := svc.Get(r.Context(), subject.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

// ProfileUpdate changes the caller's own name, password and, for suppliers,
// the supplier display name.
func ProfileUpdate(svc users.ProfileService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subject, err := requireSubject(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateProfileRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		profile, err := svc.Update(r.Context(), subject.UserID, users.UpdateProfileInput{
			Name:         validators.SanitizeString(body.Name, 120),
			Password:     body.Password,
			SupplierName: body.SupplierName,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}
