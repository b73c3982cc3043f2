package authkit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestGateAuthenticateResolvesUser(t *testing.T) {
	t.Parallel()

	repository := newMemoryUserRepository()
	issuer := NewTokenIssuer([]byte("signing-key"), "holocron", time.Hour, NewSystemClock())
	gate := NewAuthorizationGate(issuer, repository)

	created, createErr := repository.Create(context.Background(), NewUserFields{
		FirstName: "Leia", LastName: "Organa", Email: "leia@rebellion.org", PasswordHash: "digest", Role: RoleAdmin,
	})
	if createErr != nil {
		t.Fatalf("unexpected error: %v", createErr)
	}
	token, _, issueErr := issuer.Issue(created)
	if issueErr != nil {
		t.Fatalf("unexpected error: %v", issueErr)
	}

	user, authErr := gate.Authenticate(context.Background(), token)
	if authErr != nil {
		t.Fatalf("unexpected error: %v", authErr)
	}
	if user.ID != created.ID || user.Email != "leia@rebellion.org" {
		t.Fatalf("resolved the wrong user: %+v", user)
	}
}

func TestGateAuthenticateRejectsBadTokens(t *testing.T) {
	t.Parallel()

	repository := newMemoryUserRepository()
	clock := &movableClock{current: time.Unix(1700000000, 0).UTC()}
	issuer := NewTokenIssuer([]byte("signing-key"), "holocron", time.Minute, clock)
	gate := NewAuthorizationGate(issuer, repository)

	created, _ := repository.Create(context.Background(), NewUserFields{
		FirstName: "Leia", LastName: "Organa", Email: "leia@rebellion.org", PasswordHash: "digest", Role: RoleUser,
	})
	token, _, _ := issuer.Issue(created)

	if _, authErr := gate.Authenticate(context.Background(), "garbage"); !errors.Is(authErr, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated for a malformed token, got %v", authErr)
	}

	clock.Advance(2 * time.Minute)
	if _, authErr := gate.Authenticate(context.Background(), token); !errors.Is(authErr, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated for an expired token, got %v", authErr)
	}
}

func TestGateAuthenticateRejectsDeletedUser(t *testing.T) {
	t.Parallel()

	repository := newMemoryUserRepository()
	issuer := NewTokenIssuer([]byte("signing-key"), "holocron", time.Hour, NewSystemClock())
	gate := NewAuthorizationGate(issuer, repository)

	created, _ := repository.Create(context.Background(), NewUserFields{
		FirstName: "Leia", LastName: "Organa", Email: "leia@rebellion.org", PasswordHash: "digest", Role: RoleUser,
	})
	token, _, _ := issuer.Issue(created)
	repository.remove("leia@rebellion.org")

	if _, authErr := gate.Authenticate(context.Background(), token); !errors.Is(authErr, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated once the user record is gone, got %v", authErr)
	}
}

func TestGateRequireRole(t *testing.T) {
	t.Parallel()

	gate := NewAuthorizationGate(nil, nil)
	admin := &User{ID: 1, Role: RoleAdmin}
	regular := &User{ID: 2, Role: RoleUser}

	returned, roleErr := gate.RequireRole(admin, RoleAdmin)
	if roleErr != nil || returned != admin {
		t.Fatalf("expected the admin user back, got %v / %v", returned, roleErr)
	}
	if _, roleErr := gate.RequireRole(regular, RoleAdmin); !errors.Is(roleErr, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for USER requesting ADMIN, got %v", roleErr)
	}
	if _, roleErr := gate.RequireRole(nil, RoleAdmin); !errors.Is(roleErr, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for nil user, got %v", roleErr)
	}
}
