package authkit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"
)

type providerFixture struct {
	client       *IdentityProviderClient
	tokenServer  *httptest.Server
	tokenStatus  int
	tokenBody    map[string]any
	tokenForm    url.Values
	profileCalls int
	profileAuth  string
	profileQuery url.Values
	profileBody  map[string]any
	profileCode  int
}

func newProviderFixture(t *testing.T) *providerFixture {
	t.Helper()

	fixture := &providerFixture{
		tokenStatus: http.StatusOK,
		profileCode: http.StatusOK,
	}

	fixture.tokenServer = httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if parseErr := request.ParseForm(); parseErr != nil {
			writer.WriteHeader(http.StatusBadRequest)
			return
		}
		fixture.tokenForm = request.PostForm
		writer.WriteHeader(fixture.tokenStatus)
		_ = json.NewEncoder(writer).Encode(fixture.tokenBody)
	}))
	t.Cleanup(fixture.tokenServer.Close)

	profileServer := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		fixture.profileCalls++
		fixture.profileAuth = request.Header.Get("Authorization")
		fixture.profileQuery = request.URL.Query()
		writer.WriteHeader(fixture.profileCode)
		_ = json.NewEncoder(writer).Encode(fixture.profileBody)
	}))
	t.Cleanup(profileServer.Close)

	google := ProviderSettings{
		ClientID:     "google-client",
		ClientSecret: "google-secret",
		RedirectURI:  "https://app.example/auth/google/callback",
		Scope:        "openid email profile",
		AuthorizeURL: "https://accounts.google.com/o/oauth2/v2/auth",
		TokenURL:     fixture.tokenServer.URL,
		ProfileURL:   profileServer.URL,
	}
	microsoft := ProviderSettings{
		ClientID:     "microsoft-client",
		ClientSecret: "microsoft-secret",
		RedirectURI:  "https://app.example/auth/microsoft/callback",
		Scope:        "openid email profile User.Read",
		AuthorizeURL: "https://login.microsoftonline.com/common/oauth2/v2.0/authorize",
		TokenURL:     fixture.tokenServer.URL,
		ProfileURL:   profileServer.URL,
	}
	fixture.client = NewIdentityProviderClient(google, microsoft, nil, zaptest.NewLogger(t))
	return fixture
}

func TestAuthorizationURLCarriesProviderSpecificParameters(t *testing.T) {
	t.Parallel()

	fixture := newProviderFixture(t)

	googleURL, googleErr := fixture.client.AuthorizationURL(ProviderGoogle)
	if googleErr != nil {
		t.Fatalf("unexpected error: %v", googleErr)
	}
	parsedGoogle, parseErr := url.Parse(googleURL)
	if parseErr != nil {
		t.Fatalf("authorization URL does not parse: %v", parseErr)
	}
	googleQuery := parsedGoogle.Query()
	if googleQuery.Get("access_type") != "offline" || googleQuery.Get("prompt") != "consent" {
		t.Fatalf("google URL missing offline/consent parameters: %s", googleURL)
	}
	if googleQuery.Get("client_id") != "google-client" || googleQuery.Get("response_type") != "code" {
		t.Fatalf("google URL missing client parameters: %s", googleURL)
	}

	microsoftURL, microsoftErr := fixture.client.AuthorizationURL(ProviderMicrosoft)
	if microsoftErr != nil {
		t.Fatalf("unexpected error: %v", microsoftErr)
	}
	parsedMicrosoft, parseErr := url.Parse(microsoftURL)
	if parseErr != nil {
		t.Fatalf("authorization URL does not parse: %v", parseErr)
	}
	if parsedMicrosoft.Query().Get("response_mode") != "query" {
		t.Fatalf("microsoft URL missing response_mode=query: %s", microsoftURL)
	}

	if _, unknownErr := fixture.client.AuthorizationURL(Provider("github")); !errors.Is(unknownErr, ErrUnsupportedProvider) {
		t.Fatalf("expected ErrUnsupportedProvider, got %v", unknownErr)
	}
}

func TestExchangeCodeGoogleHappyPath(t *testing.T) {
	t.Parallel()

	fixture := newProviderFixture(t)
	fixture.tokenBody = map[string]any{"id_token": "google-id-token"}
	fixture.profileBody = map[string]any{
		"email":       "Leia@Rebellion.org",
		"given_name":  "Leia",
		"family_name": "Organa",
	}

	identity, exchangeErr := fixture.client.ExchangeCode(context.Background(), ProviderGoogle, "auth-code")
	if exchangeErr != nil {
		t.Fatalf("unexpected error: %v", exchangeErr)
	}
	if identity.Email != "leia@rebellion.org" {
		t.Fatalf("expected normalized email, got %q", identity.Email)
	}
	if identity.GivenName != "Leia" || identity.FamilyName != "Organa" {
		t.Fatalf("unexpected name mapping: %+v", identity)
	}
	if fixture.tokenForm.Get("code") != "auth-code" || fixture.tokenForm.Get("grant_type") != "authorization_code" {
		t.Fatalf("token endpoint did not receive the code exchange form: %v", fixture.tokenForm)
	}
	if fixture.profileQuery.Get("id_token") != "google-id-token" {
		t.Fatalf("tokeninfo endpoint did not receive the id_token: %v", fixture.profileQuery)
	}
}

func TestExchangeCodeMicrosoftMapsGraphFields(t *testing.T) {
	t.Parallel()

	fixture := newProviderFixture(t)
	fixture.tokenBody = map[string]any{"access_token": "graph-access-token"}
	fixture.profileBody = map[string]any{
		"userPrincipalName": "Han.Solo@falcon.example",
		"givenName":         "Han",
		"surname":           "Solo",
	}

	identity, exchangeErr := fixture.client.ExchangeCode(context.Background(), ProviderMicrosoft, "auth-code")
	if exchangeErr != nil {
		t.Fatalf("unexpected error: %v", exchangeErr)
	}
	// mail is absent, so userPrincipalName supplies the email.
	if identity.Email != "han.solo@falcon.example" {
		t.Fatalf("expected principal-name fallback, got %q", identity.Email)
	}
	if identity.GivenName != "Han" || identity.FamilyName != "Solo" {
		t.Fatalf("unexpected name mapping: %+v", identity)
	}
	if fixture.profileAuth != "Bearer graph-access-token" {
		t.Fatalf("expected bearer header on the profile call, got %q", fixture.profileAuth)
	}
	if !strings.Contains(fixture.tokenForm.Get("scope"), "User.Read") {
		t.Fatalf("microsoft exchange must send the scope: %v", fixture.tokenForm)
	}
}

func TestExchangeCodeRejectedByTokenEndpoint(t *testing.T) {
	t.Parallel()

	fixture := newProviderFixture(t)
	fixture.tokenStatus = http.StatusBadRequest
	fixture.tokenBody = map[string]any{"error": "invalid_grant"}

	_, exchangeErr := fixture.client.ExchangeCode(context.Background(), ProviderGoogle, "already-used-code")
	if !errors.Is(exchangeErr, ErrTokenExchangeFailed) {
		t.Fatalf("expected ErrTokenExchangeFailed, got %v", exchangeErr)
	}
	if fixture.profileCalls != 0 {
		t.Fatalf("identity fetch must not run after a failed exchange")
	}
}

func TestExchangeCodeMissingTokenField(t *testing.T) {
	t.Parallel()

	fixture := newProviderFixture(t)
	fixture.tokenBody = map[string]any{"token_type": "Bearer"}

	_, exchangeErr := fixture.client.ExchangeCode(context.Background(), ProviderGoogle, "auth-code")
	if !errors.Is(exchangeErr, ErrTokenExchangeFailed) {
		t.Fatalf("expected ErrTokenExchangeFailed for missing id_token, got %v", exchangeErr)
	}
}

func TestExchangeCodeIdentityFetchFailure(t *testing.T) {
	t.Parallel()

	fixture := newProviderFixture(t)
	fixture.tokenBody = map[string]any{"access_token": "graph-access-token"}
	fixture.profileCode = http.StatusUnauthorized
	fixture.profileBody = map[string]any{"error": "token expired"}

	_, exchangeErr := fixture.client.ExchangeCode(context.Background(), ProviderMicrosoft, "auth-code")
	if !errors.Is(exchangeErr, ErrIdentityFetchFailed) {
		t.Fatalf("expected ErrIdentityFetchFailed, got %v", exchangeErr)
	}
}

func TestExchangeCodeMissingEmail(t *testing.T) {
	t.Parallel()

	fixture := newProviderFixture(t)
	fixture.tokenBody = map[string]any{"id_token": "google-id-token"}
	fixture.profileBody = map[string]any{"given_name": "Anonymous"}

	_, exchangeErr := fixture.client.ExchangeCode(context.Background(), ProviderGoogle, "auth-code")
	if !errors.Is(exchangeErr, ErrMissingEmail) {
		t.Fatalf("expected ErrMissingEmail, got %v", exchangeErr)
	}
}

func TestExchangeCodeUnsupportedProvider(t *testing.T) {
	t.Parallel()

	fixture := newProviderFixture(t)
	_, exchangeErr := fixture.client.ExchangeCode(context.Background(), Provider("okta"), "auth-code")
	if !errors.Is(exchangeErr, ErrUnsupportedProvider) {
		t.Fatalf("expected ErrUnsupportedProvider, got %v", exchangeErr)
	}
}

func TestExchangeCodeTransportFailureMapsToTokenExchangeFailed(t *testing.T) {
	t.Parallel()

	fixture := newProviderFixture(t)
	fixture.tokenServer.Close()

	_, exchangeErr := fixture.client.ExchangeCode(context.Background(), ProviderGoogle, "auth-code")
	if !errors.Is(exchangeErr, ErrTokenExchangeFailed) {
		t.Fatalf("expected transport failure to surface as ErrTokenExchangeFailed, got %v", exchangeErr)
	}
}
