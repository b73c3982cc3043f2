package authkit

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ClaimsContextKey is the gin context key under which RequireSession stores
// the verified session claims.
const ClaimsContextKey = "auth_claims"

// AuthorizationGate verifies session tokens and resolves caller identity.
type AuthorizationGate struct {
	tokenIssuer *TokenIssuer
	users       UserRepository
}

// NewAuthorizationGate wires the gate with its collaborators.
func NewAuthorizationGate(tokenIssuer *TokenIssuer, users UserRepository) *AuthorizationGate {
	return &AuthorizationGate{tokenIssuer: tokenIssuer, users: users}
}

// Authenticate verifies the token and resolves the caller's user record.
// Invalid or expired tokens, and tokens for users that no longer exist, fail
// with ErrUnauthenticated.
func (gate *AuthorizationGate) Authenticate(ctx context.Context, tokenText string) (*User, error) {
	claims, verifyErr := gate.tokenIssuer.Verify(tokenText)
	if verifyErr != nil {
		return nil, fmt.Errorf("gate.authenticate: %w", ErrUnauthenticated)
	}
	user, lookupErr := gate.users.FindByEmail(ctx, claims.UserEmail)
	if lookupErr != nil {
		return nil, fmt.Errorf("gate.authenticate: %w", lookupErr)
	}
	if user == nil || user.ID != claims.UserID {
		return nil, fmt.Errorf("gate.authenticate: %w", ErrUnauthenticated)
	}
	return user, nil
}

// RequireRole returns the user unchanged when its role matches, and fails
// with ErrForbidden otherwise.
func (gate *AuthorizationGate) RequireRole(user *User, role string) (*User, error) {
	if user == nil || user.Role != role {
		return nil, fmt.Errorf("gate.require_role %q: %w", role, ErrForbidden)
	}
	return user, nil
}

// RequireSession authenticates the bearer token and stores the resolved user
// on the gin context.
func (gate *AuthorizationGate) RequireSession() gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		user, authErr := gate.Authenticate(contextGin.Request.Context(), bearerToken(contextGin.Request))
		if authErr != nil {
			contextGin.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		contextGin.Set(ClaimsContextKey, user)
		contextGin.Next()
	}
}

// RequireAdmin builds on RequireSession and additionally enforces the ADMIN
// role.
func (gate *AuthorizationGate) RequireAdmin() gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		user, authErr := gate.Authenticate(contextGin.Request.Context(), bearerToken(contextGin.Request))
		if authErr != nil {
			contextGin.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		if _, roleErr := gate.RequireRole(user, RoleAdmin); roleErr != nil {
			contextGin.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "administrator access required"})
			return
		}
		contextGin.Set(ClaimsContextKey, user)
		contextGin.Next()
	}
}

// CurrentUser reads the user stored by the middleware.
func CurrentUser(contextGin *gin.Context) (*User, bool) {
	value, found := contextGin.Get(ClaimsContextKey)
	if !found {
		return nil, false
	}
	user, ok := value.(*User)
	if !ok || user == nil {
		return nil, false
	}
	return user, true
}

func bearerToken(request *http.Request) string {
	header := request.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
