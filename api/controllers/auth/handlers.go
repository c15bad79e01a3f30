// Package auth serves the back-office login.
package auth

import (
	"net/http"

	"github.com/angelmondragon/asarum-backend/api/responses"
	"github.com/angelmondragon/asarum-backend/api/validators"
	"github.com/angelmondragon/asarum-backend/internal/auth"
	pkgerrors "github.com/angelmondragon/asarum-backend/pkg/errors"
	"github.com/angelmondragon/asarum-backend/pkg/logger"
)

// tokenHeader repeats the issued token for the dashboard's fetch wrapper.
const tokenHeader = "X-AS-Token"

// Login trades the admin username and password for a bearer token. The
// response is never cached.
func Login(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := login(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set(tokenHeader, result.AccessToken)
		responses.WriteSuccess(w, result)
	}
}

func login(r *http.Request, svc auth.Service) (*auth.LoginResponse, error) {
	if svc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable")
	}
	var creds auth.LoginRequest
	if err := validators.DecodeJSONBody(r, &creds); err != nil {
		return nil, err
	}
	return svc.Login(r.Context(), creds)
}
