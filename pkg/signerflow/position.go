package signerflow

import (
	"context"
	"database/sql"
)

// PlacePosition records where on the document a signer chose to place
// their stamp (spec §4.4 "placePosition(page, x, y)").
func (s *Service) PlacePosition(ctx context.Context, rawToken string, page int, x, y float64) error {
	_, signer, _, err := s.resolveToken(ctx, rawToken)
	if err != nil {
		return err
	}
	if err := requireViewed(signer); err != nil {
		return err
	}

	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		return s.repos.Signers.SavePosition(ctx, tx, signer.ID, page, x, y)
	})
}
