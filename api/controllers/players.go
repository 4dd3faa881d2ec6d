package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/giftledger-backend/api/responses"
	"github.com/angelmondragon/giftledger-backend/api/validators"
	"github.com/angelmondragon/giftledger-backend/internal/access"
	"github.com/angelmondragon/giftledger-backend/internal/playerid"
	pkgerrors "github.com/angelmondragon/giftledger-backend/pkg/errors"
	"github.com/angelmondragon/giftledger-backend/pkg/logger"
)

type PlayerVerifier interface {
	Verify(ctx context.Context, accountID, serverID string) (*playerid.Result, error)
}

type verifyPlayerRequest struct {
	AccountID string `json:"account_id" validate:"required"`
	ServerID  string `json:"server_id" validate:"required"`
}

// PlayerVerify looks up the in-game name for an account before an order is
// entered. The answer is advisory.
func PlayerVerify(verifier PlayerVerifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if verifier == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "player verification unavailable"))
			return
		}
		subject, err := requireSubject(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := access.Authorize(&subject, access.OpPlayerVerify, access.Resource{}).Err(); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body verifyPlayerRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := verifier.Verify(r.Context(), body.AccountID, body.ServerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
