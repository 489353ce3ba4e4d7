package server

import (
	"fmt"
	"io"
	"net/http"

	"github.com/inkchain/esigner/pkg/apperr"
	"github.com/inkchain/esigner/pkg/server/httpkit"
)

// handleValidateFile serves POST /documents/validate-file (spec §4.6):
// the public provenance check, no auth beyond the caller's normal
// access to this endpoint.
func (s *Server) handleValidateFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpkit.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"message": "method not allowed"})
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httpkit.WriteError(w, fmt.Errorf("%w: %v", apperr.ErrValidation, err))
		return
	}
	file, _, err := r.FormFile("documentFile")
	if err != nil {
		httpkit.WriteError(w, fmt.Errorf("%w: documentFile is required", apperr.ErrValidation))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		httpkit.WriteError(w, fmt.Errorf("%w: could not read upload", apperr.ErrValidation))
		return
	}

	result, err := s.validator.Validate(r.Context(), data)
	if err != nil {
		httpkit.WriteError(w, err)
		return
	}
	if !result.Valid {
		httpkit.WriteJSON(w, http.StatusOK, map[string]interface{}{"valid": false})
		return
	}
	httpkit.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"valid":    true,
		"document": result.Document,
	})
}
