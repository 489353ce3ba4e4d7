// Package notify defines the external notification boundary: invite
// delivery, OTP delivery, completion and deadline-reminder events, all dispatched
// best-effort after the triggering transaction has already committed
// (spec §4.1 "after commit, hand the cleartext token to the notifier
// exactly once"; §5 "Notifier side-effects ... are not cancellable —
// they are best-effort").
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/inkchain/esigner/pkg/database"
)

// Invite is sent to a signer once, immediately after their ShareToken
// row commits. Token is the cleartext token; it is never persisted or
// logged past this call.
type Invite struct {
	SignerID   uuid.UUID
	DocumentID uuid.UUID
	Recipient  string
	Channel    database.AuthChannel
	Token      string
	Message    string
}

// OtpMessage carries a one-time code to a recipient over one channel.
type OtpMessage struct {
	SignerID  uuid.UUID
	Recipient string
	Channel   database.AuthChannel
	Code      string
}

// Completion is sent once a Document reaches SIGNED and its Certificate
// is issued.
type Completion struct {
	DocumentID uuid.UUID
	Recipients []string
}

// Reminder is sent by the deadline-reminder job to every signer still
// outstanding on a document nearing its deadline.
type Reminder struct {
	DocumentID uuid.UUID
	Recipients []string
	DeadlineAt time.Time
}

// Notifier is the external boundary every outbound message passes
// through. Implementations must not block the caller on a slow
// downstream — callers already invoke Notifier after their own
// transaction has committed, so a blocking Notifier only delays the
// HTTP response, it can never re-open the already-committed write.
type Notifier interface {
	SendInvite(ctx context.Context, in Invite) error
	SendOtp(ctx context.Context, in OtpMessage) error
	SendCompletion(ctx context.Context, in Completion) error
	SendReminder(ctx context.Context, in Reminder) error
}
