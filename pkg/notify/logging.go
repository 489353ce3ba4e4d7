package notify

import (
	"context"
	"log"
)

// LoggingNotifier is the default production Notifier: it writes a line
// per event and never fails, since there is no real downstream
// transport configured by default. Swap in a channel-specific sender
// (SMTP, WhatsApp Business API, ...) as a Notifier implementation
// without touching callers.
type LoggingNotifier struct {
	logger *log.Logger
}

// NewLoggingNotifier constructs a LoggingNotifier.
func NewLoggingNotifier(logger *log.Logger) *LoggingNotifier {
	return &LoggingNotifier{logger: logger}
}

// SendInvite logs an invite dispatch. The token is deliberately omitted
// from the log line.
func (n *LoggingNotifier) SendInvite(ctx context.Context, in Invite) error {
	n.logger.Printf("invite sent: signer=%s document=%s channel=%s recipient=%s", in.SignerID, in.DocumentID, in.Channel, in.Recipient)
	return nil
}

// SendOtp logs an OTP dispatch. The code is deliberately omitted from
// the log line.
func (n *LoggingNotifier) SendOtp(ctx context.Context, in OtpMessage) error {
	n.logger.Printf("otp sent: signer=%s channel=%s recipient=%s", in.SignerID, in.Channel, in.Recipient)
	return nil
}

// SendCompletion logs a completion dispatch.
func (n *LoggingNotifier) SendCompletion(ctx context.Context, in Completion) error {
	n.logger.Printf("completion sent: document=%s recipients=%d", in.DocumentID, len(in.Recipients))
	return nil
}

// SendReminder logs a deadline-reminder dispatch.
func (n *LoggingNotifier) SendReminder(ctx context.Context, in Reminder) error {
	n.logger.Printf("reminder sent: document=%s recipients=%d deadline=%s", in.DocumentID, len(in.Recipients), in.DeadlineAt)
	return nil
}
