package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/inkchain/esigner/pkg/apperr"
	"github.com/inkchain/esigner/pkg/database"
	"github.com/inkchain/esigner/pkg/document"
	"github.com/inkchain/esigner/pkg/server/httpkit"
)

const maxUploadBytes = 64 << 20 // 64MB, generous for a signed PDF

// handleDocuments dispatches POST /documents.
func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpkit.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"message": "method not allowed"})
		return
	}
	s.handleCreateDocument(w, r)
}

func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	act, err := s.requireActor(r)
	if err != nil {
		httpkit.WriteError(w, err)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httpkit.WriteError(w, fmt.Errorf("%w: %v", apperr.ErrValidation, err))
		return
	}

	file, header, err := r.FormFile("documentFile")
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

	in := document.CreateInput{
		TenantID:     act.user.TenantID,
		OwnerID:      act.user.ID,
		Title:        r.FormValue("title"),
		FileBytes:    data,
		OriginalName: header.Filename,
		MimeType:     header.Header.Get("Content-Type"),
		IP:           requestIP(r),
		UserAgent:    r.UserAgent(),
	}
	if deadline := r.FormValue("deadlineAt"); deadline != "" {
		t, err := time.Parse(time.RFC3339, deadline)
		if err != nil {
			httpkit.WriteError(w, fmt.Errorf("%w: deadlineAt must be RFC3339", apperr.ErrValidation))
			return
		}
		in.DeadlineAt = &t
	}

	doc, err := s.documents.Create(r.Context(), in)
	if err != nil {
		httpkit.WriteError(w, err)
		return
	}
	httpkit.WriteJSON(w, http.StatusCreated, doc)
}

// handleDocumentSubroutes dispatches every /documents/{id}/... route.
func (s *Server) handleDocumentSubroutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/documents/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" {
		httpkit.WriteJSON(w, http.StatusNotFound, map[string]string{"message": "not found"})
		return
	}
	docID, err := uuid.Parse(parts[0])
	if err != nil {
		httpkit.WriteError(w, fmt.Errorf("%w: invalid document id", apperr.ErrValidation))
		return
	}

	switch parts[1] {
	case "invite":
		s.handleInvite(w, r, docID)
	case "cancel":
		s.handleStatusChange(w, r, docID, s.documents.Cancel)
	case "expire":
		s.handleStatusChange(w, r, docID, s.documents.Expire)
	case "audit":
		s.handleAudit(w, r, docID)
	case "verify-chain":
		s.handleVerifyChain(w, r, docID)
	default:
		httpkit.WriteJSON(w, http.StatusNotFound, map[string]string{"message": "not found"})
	}
}

type inviteSignerRequest struct {
	Name          string                 `json:"name"`
	Email         string                 `json:"email"`
	Phone         string                 `json:"phone"`
	CPF           string                 `json:"cpf"`
	Qualification string                 `json:"qualification"`
	AuthChannels  []database.AuthChannel `json:"authChannels"`
	Order         int                    `json:"order"`
}

type inviteRequest struct {
	Signers []inviteSignerRequest `json:"signers"`
	Message string                `json:"message"`
}

func (s *Server) handleInvite(w http.ResponseWriter, r *http.Request, docID uuid.UUID) {
	if r.Method != http.MethodPost {
		httpkit.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"message": "method not allowed"})
		return
	}
	act, err := s.requireActor(r)
	if err != nil {
		httpkit.WriteError(w, err)
		return
	}

	var req inviteRequest
	if err := httpkit.DecodeJSON(r, &req); err != nil {
		httpkit.WriteError(w, err)
		return
	}

	descriptors := make([]document.SignerDescriptor, 0, len(req.Signers))
	for i, sg := range req.Signers {
		order := sg.Order
		if order == 0 {
			order = i + 1
		}
		descriptors = append(descriptors, document.SignerDescriptor{
			Name:          sg.Name,
			Email:         sg.Email,
			Phone:         sg.Phone,
			CPF:           sg.CPF,
			Qualification: sg.Qualification,
			AuthChannels:  sg.AuthChannels,
			Order:         order,
		})
	}

	signers, err := s.documents.InviteSigners(r.Context(), document.InviteInput{
		DocumentID: docID,
		Signers:    descriptors,
		Message:    req.Message,
		ActorID:    act.user.ID,
		IP:         requestIP(r),
		UserAgent:  r.UserAgent(),
	})
	if err != nil {
		httpkit.WriteError(w, err)
		return
	}
	httpkit.WriteJSON(w, http.StatusCreated, map[string]interface{}{"signers": signers})
}

// handleStatusChange drives POST /documents/{id}/cancel and .../expire,
// both of which share document.Service's (ctx, documentID, actorID, ip,
// userAgent) signature.
func (s *Server) handleStatusChange(w http.ResponseWriter, r *http.Request, docID uuid.UUID, transition func(ctx context.Context, documentID, actorID uuid.UUID, ip, userAgent string) error) {
	if r.Method != http.MethodPost {
		httpkit.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{"message": "method not allowed"})
		return
	}
	act, err := s.requireActor(r)
	if err != nil {
		httpkit.WriteError(w, err)
		return
	}
	if err := transition(r.Context(), docID, act.user.ID, requestIP(r), r.UserAgent()); err != nil {
		httpkit.WriteError(w, err)
		return
	}
	httpkit.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
