package server

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/inkchain/esigner/pkg/apperr"
	"github.com/inkchain/esigner/pkg/database"
)

// actor is the authenticated caller behind an owner/admin route. Session
// issuance itself is an external collaborator (spec §2); this service's
// side of that contract is to trust an already-verified X-User-Id header
// and load the User row it names.
type actor struct {
	user *database.User
}

// requireActor resolves the bearer session on r into a User, per spec
// §6 "owner/admin operations require a bearer session".
func (s *Server) requireActor(r *http.Request) (*actor, error) {
	raw := r.Header.Get("X-User-Id")
	if raw == "" {
		return nil, fmt.Errorf("%w: missing X-User-Id", apperr.ErrInvalidToken)
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed X-User-Id", apperr.ErrInvalidToken)
	}
	user, err := s.repos.Users.Get(r.Context(), userID)
	if err != nil {
		return nil, fmt.Errorf("%w", apperr.ErrInvalidToken)
	}
	return &actor{user: user}, nil
}

func requestIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	return r.RemoteAddr
}
