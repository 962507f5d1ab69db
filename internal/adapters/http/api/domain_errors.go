package api

import (
	"errors"
	"net/http"

	"github.com/okian/settle/internal/app"
)

// writeDomainError translates service sentinels into HTTP statuses.
func writeDomainError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, app.ErrUnknownEvent):
		writeError(w, http.StatusNotFound, "unknown_event", WrapKind(op, ErrNotFound, err))
	case errors.Is(err, app.ErrEventClosed):
		writeError(w, http.StatusConflict, "event_closed", NewKind(op, err))
	case errors.Is(err, app.ErrBadDigest):
		writeError(w, http.StatusBadRequest, "bad_digest", WrapKind(op, ErrBadRequest, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal", NewKind(op, err))
	}
}
