package controllers

import (
	"net/http"

	"github.com/angelmondragon/asarum-backend/api/responses"
	"github.com/angelmondragon/asarum-backend/api/validators"
	"github.com/angelmondragon/asarum-backend/internal/advisor"
	pkgerrors "github.com/angelmondragon/asarum-backend/pkg/errors"
	"github.com/angelmondragon/asarum-backend/pkg/logger"
)

type advisorRequest struct {
	History []advisor.Message `json:"history"`
	Message string            `json:"message" validate:"required"`
}

// AdvisorMessage answers one turn of the storefront chat. Model outages come
// back as a normal fallback reply.
func AdvisorMessage(svc advisor.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "advisor unavailable"))
			return
		}

		var body advisorRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reply, err := svc.Reply(r.Context(), advisor.ReplyInput{History: body.History, Message: body.Message})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, reply)
	}
}
