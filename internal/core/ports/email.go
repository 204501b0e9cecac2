package ports

import "context"

// EmailService delivers raw secrets out-of-band. Implementations may use
// SendGrid or another provider.
type EmailService interface {
	SendVerificationEmail(ctx context.Context, to, name, rawToken string) error
	SendPasswordResetEmail(ctx context.Context, to, name, rawToken string) error
}
