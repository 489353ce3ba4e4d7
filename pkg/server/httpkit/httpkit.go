// Package httpkit generalizes the teacher's writeJSONError/writeJSON
// handler helpers into a shared response and error-mapping layer used
// by every route in pkg/server.
package httpkit

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/inkchain/esigner/pkg/apperr"
)

// WriteJSON encodes v as the response body with status and the JSON
// content type set.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Response headers are already sent; nothing left to do but
		// let the body be short. The access logger records it.
		return
	}
}

// WriteError writes {"message": ...} with the status the error kind
// maps to under spec §7.
func WriteError(w http.ResponseWriter, err error) {
	status, message := statusFor(err)
	WriteJSON(w, status, map[string]string{"message": message})
}

// statusFor classifies err via apperr.Kind, then maps it to a status
// code per spec §7's error-handling table.
func statusFor(err error) (int, string) {
	switch apperr.Kind(err) {
	case apperr.ErrNotFound:
		return http.StatusNotFound, apperr.ErrNotFound.Error()
	case apperr.ErrInvalidToken:
		return http.StatusUnauthorized, apperr.ErrInvalidToken.Error()
	case apperr.ErrOtpExpired:
		return http.StatusBadRequest, apperr.ErrOtpExpired.Error()
	case apperr.ErrOtpWrong:
		return http.StatusBadRequest, apperr.ErrOtpWrong.Error()
	case apperr.ErrAlreadyTerminal:
		return http.StatusConflict, apperr.ErrAlreadyTerminal.Error()
	case apperr.ErrLimitExceeded:
		return http.StatusForbidden, apperr.ErrLimitExceeded.Error()
	case apperr.ErrIntegrity:
		return http.StatusInternalServerError, "internal error"
	case apperr.ErrValidation:
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// DecodeJSON decodes r's body into dst, wrapping any decode failure as
// apperr.ErrValidation (spec §7 "transport validation failures are
// recovered and surfaced as ErrValidation").
func DecodeJSON(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.Join(apperr.ErrValidation, err)
	}
	return nil
}
