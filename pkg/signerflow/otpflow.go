package signerflow

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/inkchain/esigner/pkg/audit"
	"github.com/inkchain/esigner/pkg/database"
	"github.com/inkchain/esigner/pkg/notify"
)

// OtpStart issues one OtpCode per authChannel the signer registered,
// and appends one OTP_SENT audit entry per channel with the recipient
// masked (spec §4.4 "otpStart()").
func (s *Service) OtpStart(ctx context.Context, rawToken, ip, userAgent string) error {
	_, signer, doc, err := s.resolveToken(ctx, rawToken)
	if err != nil {
		return err
	}
	if err := requireViewed(signer); err != nil {
		return err
	}

	type dispatch struct {
		channel   database.AuthChannel
		recipient string
		code      string
	}
	var dispatches []dispatch

	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		for _, channel := range signer.AuthChannels {
			recipient := signer.Email
			if channel == database.ChannelWhatsApp && signer.Phone.Valid {
				recipient = signer.Phone.String
			}

			code, err := s.otpStore.Issue(ctx, tx, recipient, channel)
			if err != nil {
				return fmt.Errorf("issue otp for channel %s: %w", channel, err)
			}

			if _, err := s.auditSvc.Append(ctx, tx, audit.AppendInput{
				TenantID:   doc.TenantID,
				ActorKind:  database.ActorSigner,
				ActorID:    uuid.NullUUID{UUID: signer.ID, Valid: true},
				EntityType: audit.EntitySigner,
				EntityID:   signer.ID,
				Action:     "OTP_SENT",
				IP:         ip,
				UserAgent:  userAgent,
				Payload:    audit.Payload{{"channel", string(channel)}, {"maskedRecipient", maskRecipient(recipient)}},
			}); err != nil {
				return fmt.Errorf("append otp_sent audit entry: %w", err)
			}

			dispatches = append(dispatches, dispatch{channel: channel, recipient: recipient, code: code})
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, d := range dispatches {
		_ = s.notifier.SendOtp(ctx, notify.OtpMessage{
			SignerID:  signer.ID,
			Recipient: d.recipient,
			Channel:   d.channel,
			Code:      d.code,
		})
	}
	return nil
}

// OtpVerify checks code against the signer's most recently issued
// code, across any registered contact (spec §4.3, §4.4 "otpVerify(code)").
//
// The verify attempt and its audit entry are deliberately run as two
// transactions: a failed OTP_FAILED entry must survive even though the
// verification itself reports an error to the caller, so it cannot
// share a transaction that gets rolled back on that same error.
func (s *Service) OtpVerify(ctx context.Context, rawToken, code, ip, userAgent string) error {
	_, signer, doc, err := s.resolveToken(ctx, rawToken)
	if err != nil {
		return err
	}
	if err := requireViewed(signer); err != nil {
		return err
	}

	verifyErr := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		return s.otpStore.Verify(ctx, tx, contactRecipients(signer), code)
	})

	action, payload := "OTP_VERIFIED", audit.Payload(nil)
	if verifyErr != nil {
		action = "OTP_FAILED"
		payload = audit.Payload{{"reason", verifyErr.Error()}}
	}

	auditErr := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := s.auditSvc.Append(ctx, tx, audit.AppendInput{
			TenantID:   doc.TenantID,
			ActorKind:  database.ActorSigner,
			ActorID:    uuid.NullUUID{UUID: signer.ID, Valid: true},
			EntityType: audit.EntitySigner,
			EntityID:   signer.ID,
			Action:     action,
			IP:         ip,
			UserAgent:  userAgent,
			Payload:    payload,
		})
		return err
	})
	if auditErr != nil {
		return fmt.Errorf("append %s audit entry: %w", action, auditErr)
	}
	return verifyErr
}

// maskRecipient hides all but the first character of an email's local
// part (or a phone's last four digits) before it is written to the
// audit log (spec §4.4: "OTP_SENT{channel, maskedRecipient}").
func maskRecipient(recipient string) string {
	for i, r := range recipient {
		if r == '@' {
			if i <= 1 {
				return recipient
			}
			return recipient[:1] + "***" + recipient[i:]
		}
	}
	if len(recipient) <= 4 {
		return "***" + recipient
	}
	return "***" + recipient[len(recipient)-4:]
}
