package authkit

import (
	"context"
	"fmt"

	"google.golang.org/api/idtoken"
)

// GoogleTokenValidator validates Google-issued ID tokens against an expected
// audience. The production implementation wraps the Google ID-token
// verifier; tests substitute fakes.
type GoogleTokenValidator interface {
	Validate(ctx context.Context, token string, audience string) (*idtoken.Payload, error)
}

type googleTokenValidator struct {
	validator *idtoken.Validator
}

// NewGoogleTokenValidator constructs a validator backed by Google's
// certificate endpoints. Built once at startup; construction failure aborts
// boot rather than deferring to first use.
func NewGoogleTokenValidator(ctx context.Context) (GoogleTokenValidator, error) {
	validator, validatorErr := idtoken.NewValidator(ctx)
	if validatorErr != nil {
		return nil, fmt.Errorf("sso.google_validator: %w", validatorErr)
	}
	return &googleTokenValidator{validator: validator}, nil
}

func (wrapper *googleTokenValidator) Validate(ctx context.Context, token string, audience string) (*idtoken.Payload, error) {
	return wrapper.validator.Validate(ctx, token, audience)
}

// VerifyGoogleIDToken verifies a browser-supplied Google ID token (the
// Sign-In "one tap" flow, which skips the server-side code exchange) and
// normalizes it into the same identity assertion the code flow produces.
func VerifyGoogleIDToken(ctx context.Context, validator GoogleTokenValidator, audience string, idTokenText string) (*ExternalIdentity, error) {
	payload, validateErr := validator.Validate(ctx, idTokenText, audience)
	if validateErr != nil {
		return nil, fmt.Errorf("sso.identity.google: %w", ErrIdentityFetchFailed)
	}
	issuer, _ := payload.Claims["iss"].(string)
	if issuer != "https://accounts.google.com" && issuer != "accounts.google.com" {
		return nil, fmt.Errorf("sso.identity.google: %w", ErrIdentityFetchFailed)
	}
	if emailVerified, _ := payload.Claims["email_verified"].(bool); !emailVerified {
		return nil, fmt.Errorf("sso.identity.google: %w", ErrIdentityFetchFailed)
	}
	return normalizeIdentity(ProviderGoogle, payload.Claims)
}
