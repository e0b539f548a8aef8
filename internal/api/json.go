package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hackgods/barbershop-scheduling/internal/booking"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// writeBookingError maps a booking failure onto an HTTP status by kind.
func writeBookingError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch booking.KindOf(err) {
	case booking.KindInput:
		status = http.StatusBadRequest
	case booking.KindConstraint:
		status = http.StatusConflict
	case booking.KindExhausted:
		status = http.StatusUnprocessableEntity
	case booking.KindNotFound:
		status = http.StatusNotFound
	case booking.KindRepository:
		status = http.StatusBadGateway
	}

	resp := ErrorResponse{
		Error:   booking.KindOf(err).String(),
		Reason:  string(booking.ReasonOf(err)),
		Details: booking.Message(err),
	}
	if status == http.StatusInternalServerError {
		resp.Error = "internal_error"
		resp.Details = "internal error"
	}

	var be *booking.Error
	if errors.As(err, &be) && len(be.Alternatives) > 0 {
		resp.Alternatives = toSlotResponses(be.Alternatives)
	}
	writeJSON(w, status, resp)
}
