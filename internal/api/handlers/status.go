// Package handlers implements the HTTP endpoints. Handlers decode and
// validate payloads, call the services, and translate typed domain failures
// into status codes; they never touch a store directly.
package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-ledger/internal/api/middleware"
	"github.com/dvloznov/finance-ledger/internal/domain"
)

// writeServiceError maps a service failure to an HTTP response. Typed
// business failures surface their message; internal failures are logged with
// their cause and answered generically.
func writeServiceError(w http.ResponseWriter, log zerolog.Logger, err error) {
	e := domain.AsError(err)
	switch e.Kind {
	case domain.KindInvalidOperation:
		middleware.WriteError(w, http.StatusBadRequest, e.Message)
	case domain.KindNotFound:
		middleware.WriteError(w, http.StatusNotFound, e.Message)
	case domain.KindInsufficientFunds:
		middleware.WriteError(w, http.StatusUnprocessableEntity, e.Message)
	default:
		log.Error().Err(err).Msg("Service call failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}
