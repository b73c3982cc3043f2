package authkit

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthService bundles the auth core behind the HTTP surface. Collaborators
// are injected at construction; there are no package-level service
// singletons.
type AuthService struct {
	providers       *IdentityProviderClient
	reconciler      *AccountReconciler
	gate            *AuthorizationGate
	tokenIssuer     *TokenIssuer
	passwords       *PasswordCredentialStore
	users           UserRepository
	googleValidator GoogleTokenValidator
	googleClientID  string
	logger          *zap.Logger
	metrics         MetricsRecorder
}

// AuthServiceDeps lists the collaborators for NewAuthService.
type AuthServiceDeps struct {
	Providers       *IdentityProviderClient
	Reconciler      *AccountReconciler
	Gate            *AuthorizationGate
	TokenIssuer     *TokenIssuer
	Passwords       *PasswordCredentialStore
	Users           UserRepository
	GoogleValidator GoogleTokenValidator
	GoogleClientID  string
	Logger          *zap.Logger
	Metrics         MetricsRecorder
}

// NewAuthService constructs the service from its collaborators.
func NewAuthService(deps AuthServiceDeps) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &AuthService{
		providers:       deps.Providers,
		reconciler:      deps.Reconciler,
		gate:            deps.Gate,
		tokenIssuer:     deps.TokenIssuer,
		passwords:       deps.Passwords,
		users:           deps.Users,
		googleValidator: deps.GoogleValidator,
		googleClientID:  deps.GoogleClientID,
		logger:          logger,
		metrics:         metrics,
	}
}

// Gate exposes the middleware for other route groups.
func (service *AuthService) Gate() *AuthorizationGate {
	return service.gate
}

// MountRoutes registers /login/:provider, /auth/:provider/callback,
// /auth/google, /users/register, /users/login, and /me.
func (service *AuthService) MountRoutes(router gin.IRouter) {
	router.GET("/login/:provider", service.handleLoginRedirect)
	router.GET("/auth/:provider/callback", service.handleCallback)
	router.POST("/auth/google", service.handleGoogleIDToken)
	router.POST("/users/register", service.handleRegister)
	router.POST("/users/login", service.handleLogin)
	router.GET("/me", service.gate.RequireSession(), service.handleWhoAmI)
}

func (service *AuthService) handleLoginRedirect(contextGin *gin.Context) {
	provider, providerErr := ParseProvider(contextGin.Param("provider"))
	if providerErr != nil {
		contextGin.JSON(http.StatusBadRequest, gin.H{"error": "unsupported identity provider"})
		return
	}
	authorizationURL, urlErr := service.providers.AuthorizationURL(provider)
	if urlErr != nil {
		contextGin.JSON(http.StatusBadRequest, gin.H{"error": "unsupported identity provider"})
		return
	}
	contextGin.Redirect(http.StatusTemporaryRedirect, authorizationURL)
}

func (service *AuthService) handleCallback(contextGin *gin.Context) {
	provider, providerErr := ParseProvider(contextGin.Param("provider"))
	if providerErr != nil {
		contextGin.JSON(http.StatusBadRequest, gin.H{"error": "unsupported identity provider"})
		return
	}
	code := strings.TrimSpace(contextGin.Query("code"))
	if code == "" {
		contextGin.JSON(http.StatusBadRequest, gin.H{"error": "authorization code is required"})
		return
	}

	identity, exchangeErr := service.providers.ExchangeCode(contextGin.Request.Context(), provider, code)
	if exchangeErr != nil {
		service.metrics.Increment("sso.callback.exchange_failed")
		contextGin.JSON(http.StatusBadRequest, gin.H{"error": ssoFailureMessage(exchangeErr)})
		return
	}

	service.completeReconciliation(contextGin, identity)
}

func (service *AuthService) handleGoogleIDToken(contextGin *gin.Context) {
	if service.googleValidator == nil {
		contextGin.JSON(http.StatusBadRequest, gin.H{"error": "google sign-in is not configured"})
		return
	}
	var inbound struct {
		GoogleIDToken string `json:"google_id_token"`
	}
	if bindErr := contextGin.BindJSON(&inbound); bindErr != nil || strings.TrimSpace(inbound.GoogleIDToken) == "" {
		contextGin.JSON(http.StatusBadRequest, gin.H{"error": "google_id_token is required"})
		return
	}
	identity, verifyErr := VerifyGoogleIDToken(contextGin.Request.Context(), service.googleValidator, service.googleClientID, inbound.GoogleIDToken)
	if verifyErr != nil {
		service.metrics.Increment("sso.onetap.rejected")
		contextGin.JSON(http.StatusBadRequest, gin.H{"error": ssoFailureMessage(verifyErr)})
		return
	}
	service.completeReconciliation(contextGin, identity)
}

func (service *AuthService) completeReconciliation(contextGin *gin.Context, identity *ExternalIdentity) {
	user, token, _, reconcileErr := service.reconciler.Reconcile(contextGin.Request.Context(), identity)
	if reconcileErr != nil {
		service.logger.Error("reconciliation failed",
			zap.String("provider", string(identity.Provider)),
			zap.Error(reconcileErr))
		contextGin.JSON(http.StatusBadRequest, gin.H{"error": "could not sign in with the external identity"})
		return
	}
	contextGin.JSON(http.StatusOK, gin.H{
		"user":         userPayload(user),
		"access_token": token,
		"token_type":   "bearer",
	})
}

func (service *AuthService) handleRegister(contextGin *gin.Context) {
	var inbound struct {
		FirstName string `json:"first_name" binding:"required"`
		LastName  string `json:"last_name" binding:"required"`
		Email     string `json:"email" binding:"required,email"`
		Password  string `json:"password" binding:"required,min=6"`
	}
	if bindErr := contextGin.BindJSON(&inbound); bindErr != nil {
		contextGin.JSON(http.StatusBadRequest, gin.H{"error": "invalid registration payload"})
		return
	}
	passwordHash, hashErr := service.passwords.Hash(inbound.Password)
	if hashErr != nil {
		contextGin.JSON(http.StatusInternalServerError, gin.H{"error": "could not register user"})
		return
	}
	user, createErr := service.users.Create(contextGin.Request.Context(), NewUserFields{
		FirstName:    inbound.FirstName,
		LastName:     inbound.LastName,
		Email:        NormalizeEmail(inbound.Email),
		PasswordHash: passwordHash,
		Role:         RoleUser,
	})
	if createErr != nil {
		if errors.Is(createErr, ErrRepositoryConflict) {
			contextGin.JSON(http.StatusBadRequest, gin.H{"error": "email is already registered"})
			return
		}
		service.logger.Error("user registration failed", zap.Error(createErr))
		contextGin.JSON(http.StatusInternalServerError, gin.H{"error": "could not register user"})
		return
	}
	service.metrics.Increment("users.registered")
	contextGin.JSON(http.StatusCreated, gin.H{"user": userPayload(user)})
}

func (service *AuthService) handleLogin(contextGin *gin.Context) {
	var inbound struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if bindErr := contextGin.BindJSON(&inbound); bindErr != nil {
		contextGin.JSON(http.StatusBadRequest, gin.H{"error": "invalid login payload"})
		return
	}
	user, lookupErr := service.users.FindByEmail(contextGin.Request.Context(), NormalizeEmail(inbound.Email))
	if lookupErr != nil {
		contextGin.JSON(http.StatusInternalServerError, gin.H{"error": "could not sign in"})
		return
	}
	if user == nil || !service.passwords.Verify(inbound.Password, user.PasswordHash) {
		service.metrics.Increment("users.login.rejected")
		contextGin.JSON(http.StatusUnauthorized, gin.H{"error": "incorrect email or password"})
		return
	}
	token, expiresAt, issueErr := service.tokenIssuer.Issue(user)
	if issueErr != nil {
		contextGin.JSON(http.StatusInternalServerError, gin.H{"error": "could not sign in"})
		return
	}
	service.metrics.Increment("users.login.accepted")
	contextGin.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "bearer",
		"expires_at":   expiresAt.Format(time.RFC3339),
	})
}

func (service *AuthService) handleWhoAmI(contextGin *gin.Context) {
	user, found := CurrentUser(contextGin)
	if !found {
		contextGin.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	contextGin.JSON(http.StatusOK, gin.H{"user": userPayload(user)})
}

func userPayload(user *User) gin.H {
	return gin.H{
		"id":         user.ID,
		"first_name": user.FirstName,
		"last_name":  user.LastName,
		"email":      user.Email,
		"user_type":  user.Role,
	}
}

// ssoFailureMessage maps the sentinel taxonomy to a human-readable body.
func ssoFailureMessage(err error) string {
	switch {
	case errors.Is(err, ErrUnsupportedProvider):
		return "unsupported identity provider"
	case errors.Is(err, ErrTokenExchangeFailed):
		return "could not exchange the authorization code with the provider"
	case errors.Is(err, ErrIdentityFetchFailed):
		return "could not fetch identity details from the provider"
	case errors.Is(err, ErrMissingEmail):
		return "the provider did not supply an email address"
	default:
		return "sign-in failed"
	}
}
