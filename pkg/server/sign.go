package server

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/inkchain/esigner/pkg/apperr"
	"github.com/inkchain/esigner/pkg/server/httpkit"
	"github.com/inkchain/esigner/pkg/signerflow"
)

// handleSignSubroutes dispatches every /sign/{token}/... route (spec
// §6, §4.4). The share token itself authenticates the caller; no
// X-User-Id header is involved.
func (s *Server) handleSignSubroutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/sign/")
	parts := strings.SplitN(rest, "/", 2)
	token := parts[0]
	if token == "" {
		httpkit.WriteJSON(w, http.StatusNotFound, map[string]string{"message": "not found"})
		return
	}

	if len(parts) == 1 {
		s.handleSignSummary(w, r, token)
		return
	}

	switch parts[1] {
	case "identify":
		s.handleSignIdentify(w, r, token)
	case "otp/start":
		s.handleSignOtpStart(w, r, token)
	case "otp/verify":
		s.handleSignOtpVerify(w, r, token)
	case "position":
		s.handleSignPosition(w, r, token)
	case "commit":
		s.handleSignCommit(w, r, token)
	default:
		httpkit.WriteJSON(w, http.StatusNotFound, map[string]string{"message": "not found"})
	}
}

func (s *Server) handleSignSummary(w http.ResponseWriter, r *http.Request, token string) {
	if r.Method != http.MethodGet {
		httpkit.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"message": "method not allowed"})
		return
	}
	summary, err := s.signerflow.Summary(r.Context(), token, requestIP(r), r.UserAgent())
	if err != nil {
		httpkit.WriteError(w, err)
		return
	}
	httpkit.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"document": summary.Document,
		"signer":   summary.Signer,
	})
}

type identifyRequest struct {
	CPF   string `json:"cpf"`
	Phone string `json:"phone"`
}

func (s *Server) handleSignIdentify(w http.ResponseWriter, r *http.Request, token string) {
	if r.Method != http.MethodPost {
		httpkit.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"message": "method not allowed"})
		return
	}
	var req identifyRequest
	if err := httpkit.DecodeJSON(r, &req); err != nil {
		httpkit.WriteError(w, err)
		return
	}
	if err := s.signerflow.Identify(r.Context(), token, signerflow.IdentifyInput{CPF: req.CPF, Phone: req.Phone}); err != nil {
		httpkit.WriteError(w, err)
		return
	}
	httpkit.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSignOtpStart(w http.ResponseWriter, r *http.Request, token string) {
	if r.Method != http.MethodPost {
		httpkit.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"message": "method not allowed"})
		return
	}
	if err := s.signerflow.OtpStart(r.Context(), token, requestIP(r), r.UserAgent()); err != nil {
		httpkit.WriteError(w, err)
		return
	}
	httpkit.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type otpVerifyRequest struct {
	Otp string `json:"otp"`
}

func (s *Server) handleSignOtpVerify(w http.ResponseWriter, r *http.Request, token string) {
	if r.Method != http.MethodPost {
		httpkit.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"message": "method not allowed"})
		return
	}
	var req otpVerifyRequest
	if err := httpkit.DecodeJSON(r, &req); err != nil {
		httpkit.WriteError(w, err)
		return
	}
	if err := s.signerflow.OtpVerify(r.Context(), token, req.Otp, requestIP(r), r.UserAgent()); err != nil {
		httpkit.WriteError(w, err)
		return
	}
	httpkit.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type positionRequest struct {
	Page int     `json:"page"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

func (s *Server) handleSignPosition(w http.ResponseWriter, r *http.Request, token string) {
	if r.Method != http.MethodPost {
		httpkit.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"message": "method not allowed"})
		return
	}
	var req positionRequest
	if err := httpkit.DecodeJSON(r, &req); err != nil {
		httpkit.WriteError(w, err)
		return
	}
	if err := s.signerflow.PlacePosition(r.Context(), token, req.Page, req.X, req.Y); err != nil {
		httpkit.WriteError(w, err)
		return
	}
	httpkit.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type commitRequest struct {
	ClientFingerprint    string `json:"clientFingerprint"`
	SignatureImageBase64 string `json:"signatureImageBase64"`
}

func (s *Server) handleSignCommit(w http.ResponseWriter, r *http.Request, token string) {
	if r.Method != http.MethodPost {
		httpkit.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"message": "method not allowed"})
		return
	}
	var req commitRequest
	if err := httpkit.DecodeJSON(r, &req); err != nil {
		httpkit.WriteError(w, err)
		return
	}
	png, err := base64.StdEncoding.DecodeString(req.SignatureImageBase64)
	if err != nil {
		httpkit.WriteError(w, fmt.Errorf("%w: signatureImageBase64 is not valid base64", apperr.ErrValidation))
		return
	}

	result, err := s.signerflow.Commit(r.Context(), token, signerflow.CommitInput{
		ClientFingerprint: req.ClientFingerprint,
		SignaturePNG:      png,
		IP:                requestIP(r),
		UserAgent:         r.UserAgent(),
	})
	s.metrics.SignerCommitTotal.WithLabelValues(commitOutcome(err)).Inc()
	if err != nil {
		httpkit.WriteError(w, err)
		return
	}
	httpkit.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"shortCode":     result.ShortCode,
		"signatureHash": result.SignatureHash,
		"isComplete":    result.IsComplete,
	})
}

func commitOutcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
