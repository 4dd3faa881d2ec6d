package controllers

import (
	"net/http"

	"github.com/angelmondragon/giftledger-backend/api/middleware"
	"github.com/angelmondragon/giftledger-backend/internal/access"
	pkgerrors "github.com/angelmondragon/giftledger-backend/pkg/errors"
)

func requireSubject(r *http.Request) (access.Subject, error) {
	subject, ok := middleware.SubjectFromContext(r.Context())
	if !ok {
		return access.Subject{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	return subject, nil
}
