package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"coursehub.org/internal/user"
)

// Mailer is the outbound dispatch collaborator: deliver a message to an
// address, report success or failure. Delivery mechanics live elsewhere.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// ResetFlow orchestrates the password-reset lifecycle: issue a reset
// token, dispatch it, and later consume it to set a new password.
//
// Reset tokens are bounded by expiry alone; consuming one does not
// invalidate it. Requesting a reset for an unknown email reports
// ErrNotFound to the caller, matching the rest of the API.
type ResetFlow struct {
	tokens  *TokenService
	users   user.Store
	mailer  Mailer
	baseURL string
}

// NewResetFlow wires the reset flow from its collaborators. baseURL is the
// externally visible origin used to build reset links.
func NewResetFlow(tokens *TokenService, users user.Store, mailer Mailer, baseURL string) (*ResetFlow, error) {
	if tokens == nil {
		return nil, errors.New("auth: token service is required")
	}
	if users == nil {
		return nil, errors.New("auth: user store is required")
	}
	if mailer == nil {
		return nil, errors.New("auth: mailer is required")
	}
	return &ResetFlow{
		tokens:  tokens,
		users:   users,
		mailer:  mailer,
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
	}, nil
}

// RequestReset issues a reset token for the account registered under email
// and hands the reset link to the dispatch collaborator. A dispatch
// failure surfaces as ErrDeliveryFailure, never as success.
func (f *ResetFlow) RequestReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return fmt.Errorf("%w: no account for email", ErrNotFound)
	}
	u, err := f.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return fmt.Errorf("%w: no account for email", ErrNotFound)
		}
		return err
	}

	token, _, err := f.tokens.IssueReset(u.ID)
	if err != nil {
		return err
	}

	resetURL := f.baseURL + "/api/auth/reset-password/" + token
	body := "You requested a password reset. Follow this link within 10 minutes: " + resetURL
	if err := f.mailer.Send(ctx, u.Email, "Password Reset Request", body); err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailure, err)
	}
	return nil
}

// ConsumeReset verifies a reset token and persists a new password hash for
// its principal. Session tokens are rejected the same way as forged ones,
// and a token whose account has since been deleted reports plain
// ErrTokenInvalid rather than leaking that the token itself was good.
func (f *ResetFlow) ConsumeReset(ctx context.Context, token, newPassword string) error {
	principalID, kind, err := f.tokens.Verify(token)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return ErrTokenExpired
		}
		return ErrTokenInvalid
	}
	if kind != TokenKindReset {
		return ErrTokenInvalid
	}

	u, err := f.users.Find(ctx, principalID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrTokenInvalid
		}
		return err
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	return f.users.UpdatePassword(ctx, u.ID, hash)
}
