package authkit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Provider tags the external identity providers this service can federate.
type Provider string

const (
	ProviderGoogle    Provider = "google"
	ProviderMicrosoft Provider = "microsoft"
)

// ParseProvider maps a path segment onto a known Provider.
func ParseProvider(raw string) (Provider, error) {
	switch Provider(strings.ToLower(strings.TrimSpace(raw))) {
	case ProviderGoogle:
		return ProviderGoogle, nil
	case ProviderMicrosoft:
		return ProviderMicrosoft, nil
	default:
		return "", fmt.Errorf("sso.parse_provider %q: %w", raw, ErrUnsupportedProvider)
	}
}

// ProviderSettings configures one OAuth2 authorization-code integration.
// Endpoint URLs are explicit so tests can point them at local servers.
type ProviderSettings struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scope        string
	AuthorizeURL string
	TokenURL     string
	// ProfileURL is the tokeninfo endpoint for Google and the Graph /me
	// endpoint for Microsoft.
	ProfileURL string
}

// ExternalIdentity is a normalized identity assertion produced by one SSO
// callback and consumed exactly once by the reconciler.
type ExternalIdentity struct {
	Provider   Provider
	Email      string
	GivenName  string
	FamilyName string
	RawClaims  map[string]any
}

// IdentityProviderClient exchanges authorization codes for provider tokens
// and fetches identity claims. All requests go through one injected HTTP
// client; transport failures surface as the exchange/fetch sentinel errors,
// never as raw transport errors.
type IdentityProviderClient struct {
	google     ProviderSettings
	microsoft  ProviderSettings
	httpClient *http.Client
	logger     *zap.Logger
}

// NewIdentityProviderClient constructs a client for the configured
// providers. A nil httpClient falls back to a timeout-bounded default.
func NewIdentityProviderClient(google ProviderSettings, microsoft ProviderSettings, httpClient *http.Client, logger *zap.Logger) *IdentityProviderClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityProviderClient{
		google:     google,
		microsoft:  microsoft,
		httpClient: httpClient,
		logger:     logger,
	}
}

func (client *IdentityProviderClient) settings(provider Provider) (ProviderSettings, error) {
	switch provider {
	case ProviderGoogle:
		return client.google, nil
	case ProviderMicrosoft:
		return client.microsoft, nil
	default:
		return ProviderSettings{}, fmt.Errorf("sso.settings %q: %w", provider, ErrUnsupportedProvider)
	}
}

// AuthorizationURL builds the provider's consent URL deterministically from
// configuration. No side effects.
func (client *IdentityProviderClient) AuthorizationURL(provider Provider) (string, error) {
	settings, settingsErr := client.settings(provider)
	if settingsErr != nil {
		return "", settingsErr
	}
	query := url.Values{}
	query.Set("client_id", settings.ClientID)
	query.Set("redirect_uri", settings.RedirectURI)
	query.Set("response_type", "code")
	query.Set("scope", settings.Scope)
	switch provider {
	case ProviderGoogle:
		query.Set("access_type", "offline")
		query.Set("prompt", "consent")
	case ProviderMicrosoft:
		query.Set("response_mode", "query")
		query.Set("prompt", "select_account")
	}
	return settings.AuthorizeURL + "?" + query.Encode(), nil
}

// ExchangeCode performs the two-step code-for-identity exchange: POST the
// authorization code to the token endpoint, then fetch identity claims with
// the returned token. The code is single-use at the provider; a failed
// exchange is never retried here.
func (client *IdentityProviderClient) ExchangeCode(ctx context.Context, provider Provider, code string) (*ExternalIdentity, error) {
	settings, settingsErr := client.settings(provider)
	if settingsErr != nil {
		return nil, settingsErr
	}

	form := url.Values{}
	form.Set("code", code)
	form.Set("client_id", settings.ClientID)
	form.Set("client_secret", settings.ClientSecret)
	form.Set("redirect_uri", settings.RedirectURI)
	form.Set("grant_type", "authorization_code")
	if provider == ProviderMicrosoft {
		form.Set("scope", settings.Scope)
	}

	tokenResponse, tokenErr := client.postForm(ctx, settings.TokenURL, form)
	if tokenErr != nil {
		client.logger.Warn("token exchange failed",
			zap.String("provider", string(provider)),
			zap.Error(tokenErr))
		return nil, fmt.Errorf("sso.exchange.%s: %w", provider, ErrTokenExchangeFailed)
	}

	var providerToken string
	switch provider {
	case ProviderGoogle:
		providerToken, _ = tokenResponse["id_token"].(string)
	case ProviderMicrosoft:
		providerToken, _ = tokenResponse["access_token"].(string)
	}
	if providerToken == "" {
		client.logger.Warn("token endpoint response missing token field",
			zap.String("provider", string(provider)))
		return nil, fmt.Errorf("sso.exchange.%s: %w", provider, ErrTokenExchangeFailed)
	}

	claims, claimsErr := client.fetchClaims(ctx, provider, settings, providerToken)
	if claimsErr != nil {
		client.logger.Warn("identity fetch failed",
			zap.String("provider", string(provider)),
			zap.Error(claimsErr))
		return nil, fmt.Errorf("sso.identity.%s: %w", provider, ErrIdentityFetchFailed)
	}

	return normalizeIdentity(provider, claims)
}

// fetchClaims validates a Google id_token via the tokeninfo endpoint or
// resolves a Microsoft profile via Graph with a bearer header.
func (client *IdentityProviderClient) fetchClaims(ctx context.Context, provider Provider, settings ProviderSettings, providerToken string) (map[string]any, error) {
	var request *http.Request
	var requestErr error
	switch provider {
	case ProviderGoogle:
		request, requestErr = http.NewRequestWithContext(ctx, http.MethodGet, settings.ProfileURL+"?id_token="+url.QueryEscape(providerToken), nil)
	case ProviderMicrosoft:
		request, requestErr = http.NewRequestWithContext(ctx, http.MethodGet, settings.ProfileURL, nil)
		if requestErr == nil {
			request.Header.Set("Authorization", "Bearer "+providerToken)
		}
	}
	if requestErr != nil {
		return nil, requestErr
	}
	return client.doJSON(request)
}

func normalizeIdentity(provider Provider, claims map[string]any) (*ExternalIdentity, error) {
	identity := &ExternalIdentity{Provider: provider, RawClaims: claims}
	switch provider {
	case ProviderGoogle:
		identity.Email, _ = claims["email"].(string)
		identity.GivenName, _ = claims["given_name"].(string)
		identity.FamilyName, _ = claims["family_name"].(string)
	case ProviderMicrosoft:
		identity.Email, _ = claims["mail"].(string)
		if identity.Email == "" {
			identity.Email, _ = claims["userPrincipalName"].(string)
		}
		identity.GivenName, _ = claims["givenName"].(string)
		identity.FamilyName, _ = claims["surname"].(string)
	}
	if strings.TrimSpace(identity.Email) == "" {
		return nil, fmt.Errorf("sso.identity.%s: %w", provider, ErrMissingEmail)
	}
	identity.Email = NormalizeEmail(identity.Email)
	return identity, nil
}

func (client *IdentityProviderClient) postForm(ctx context.Context, endpoint string, form url.Values) (map[string]any, error) {
	request, requestErr := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if requestErr != nil {
		return nil, requestErr
	}
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return client.doJSON(request)
}

func (client *IdentityProviderClient) doJSON(request *http.Request) (map[string]any, error) {
	response, doErr := client.httpClient.Do(request)
	if doErr != nil {
		return nil, doErr
	}
	defer func() { _ = response.Body.Close() }()
	body, readErr := io.ReadAll(io.LimitReader(response.Body, 1<<20))
	if readErr != nil {
		return nil, readErr
	}
	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", response.StatusCode)
	}
	payload := map[string]any{}
	if unmarshalErr := json.Unmarshal(body, &payload); unmarshalErr != nil {
		return nil, unmarshalErr
	}
	return payload, nil
}
