package authkit

import "errors"

// Sentinel errors for the authentication core. Handlers translate these to
// 4xx responses; anything else is treated as a server fault.
var (
	// ErrTokenExchangeFailed indicates the provider rejected the authorization
	// code or the token endpoint could not be reached.
	ErrTokenExchangeFailed = errors.New("sso.token_exchange_failed")
	// ErrIdentityFetchFailed indicates the provider token was obtained but the
	// identity claims could not be fetched or validated.
	ErrIdentityFetchFailed = errors.New("sso.identity_fetch_failed")
	// ErrUnsupportedProvider indicates an identity provider tag outside the
	// configured set.
	ErrUnsupportedProvider = errors.New("sso.unsupported_provider")
	// ErrMissingEmail indicates the provider claim set yielded no email.
	ErrMissingEmail = errors.New("sso.missing_email")
	// ErrExpiredToken indicates a session token whose expiry has elapsed.
	ErrExpiredToken = errors.New("token.expired")
	// ErrInvalidToken indicates a malformed session token or a failed
	// signature check.
	ErrInvalidToken = errors.New("token.invalid")
	// ErrUnauthenticated indicates the caller presented no usable identity.
	ErrUnauthenticated = errors.New("auth.unauthenticated")
	// ErrForbidden indicates the caller lacks the required role.
	ErrForbidden = errors.New("auth.forbidden")
	// ErrRepositoryConflict indicates a uniqueness violation on user creation.
	ErrRepositoryConflict = errors.New("users.repository_conflict")
)
