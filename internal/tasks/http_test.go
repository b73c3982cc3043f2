package tasks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/holocron-api/holocron/internal/authkit"
)

type staticUserRepository struct {
	users map[string]*authkit.User
}

func (repo *staticUserRepository) FindByEmail(ctx context.Context, email string) (*authkit.User, error) {
	return repo.users[authkit.NormalizeEmail(email)], nil
}

func (repo *staticUserRepository) FindByID(ctx context.Context, id uint) (*authkit.User, error) {
	for _, user := range repo.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, nil
}

func (repo *staticUserRepository) Create(ctx context.Context, fields authkit.NewUserFields) (*authkit.User, error) {
	return nil, authkit.ErrRepositoryConflict
}

type taskRoutesFixture struct {
	router     *gin.Engine
	state      *StateStore
	redis      *fakeRedis
	adminToken string
	userToken  string
}

func newTaskRoutesFixture(t *testing.T) *taskRoutesFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	admin := &authkit.User{ID: 1, Email: "mon.mothma@rebellion.org", Role: authkit.RoleAdmin}
	regular := &authkit.User{ID: 2, Email: "leia@rebellion.org", Role: authkit.RoleUser}
	repository := &staticUserRepository{users: map[string]*authkit.User{
		admin.Email:   admin,
		regular.Email: regular,
	}}
	tokenIssuer := authkit.NewTokenIssuer([]byte("task-route-secret"), "holocron", 0, authkit.NewSystemClock())

	adminToken, _, issueErr := tokenIssuer.Issue(admin)
	if issueErr != nil {
		t.Fatalf("issue admin token: %v", issueErr)
	}
	userToken, _, issueErr := tokenIssuer.Issue(regular)
	if issueErr != nil {
		t.Fatalf("issue user token: %v", issueErr)
	}

	fake := newFakeRedis()
	state := newStateStore(fake)
	router := gin.New()
	MountRoutes(router, state, authkit.NewAuthorizationGate(tokenIssuer, repository))

	return &taskRoutesFixture{
		router:     router,
		state:      state,
		redis:      fake,
		adminToken: adminToken,
		userToken:  userToken,
	}
}

func (fixture *taskRoutesFixture) perform(method string, target string, body string, token string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	request := httptest.NewRequest(method, target, reader)
	if body != "" {
		request.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	fixture.router.ServeHTTP(recorder, request)
	return recorder
}

func TestTaskControlRequiresAdmin(t *testing.T) {
	fixture := newTaskRoutesFixture(t)

	if recorder := fixture.perform(http.MethodPost, "/tasks/weather/control", `{"enabled":false}`, ""); recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %d", recorder.Code)
	}
	if recorder := fixture.perform(http.MethodPost, "/tasks/weather/control", `{"enabled":false}`, fixture.userToken); recorder.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for a non-admin, got %d", recorder.Code)
	}
}

func TestTaskControlTogglesState(t *testing.T) {
	fixture := newTaskRoutesFixture(t)

	recorder := fixture.perform(http.MethodPost, "/tasks/message/control", `{"enabled":false}`, fixture.adminToken)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body %s", recorder.Code, recorder.Body.String())
	}
	enabled, stateErr := fixture.state.TaskEnabled(context.Background(), TaskSaveMessage)
	if stateErr != nil {
		t.Fatalf("TaskEnabled: %v", stateErr)
	}
	if enabled {
		t.Fatal("expected the control endpoint to disable the task")
	}
}

func TestTaskControlRejectsMalformedPayload(t *testing.T) {
	fixture := newTaskRoutesFixture(t)

	if recorder := fixture.perform(http.MethodPost, "/tasks/weather/control", `{"state":"off"}`, fixture.adminToken); recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a payload without enabled, got %d", recorder.Code)
	}
}

func TestWeatherEndpoint(t *testing.T) {
	fixture := newTaskRoutesFixture(t)

	if recorder := fixture.perform(http.MethodGet, "/weather/tatooine", "", fixture.userToken); recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before any snapshot, got %d", recorder.Code)
	}

	snapshot := `{"current_weather":{"temperature":41.2}}`
	if saveErr := fixture.state.SaveWeather(context.Background(), "tatooine", []byte(snapshot)); saveErr != nil {
		t.Fatalf("SaveWeather: %v", saveErr)
	}
	recorder := fixture.perform(http.MethodGet, "/weather/tatooine", "", fixture.userToken)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	if recorder.Body.String() != snapshot {
		t.Fatalf("unexpected body %s", recorder.Body.String())
	}
}

func TestMessagesEndpoint(t *testing.T) {
	fixture := newTaskRoutesFixture(t)
	background := context.Background()

	if appendErr := fixture.state.AppendMessage(background, "heartbeat at 2026-08-29T00:00:00Z"); appendErr != nil {
		t.Fatalf("AppendMessage: %v", appendErr)
	}
	recorder := fixture.perform(http.MethodGet, "/messages", "", fixture.userToken)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), "heartbeat at 2026-08-29T00:00:00Z") {
		t.Fatalf("unexpected body %s", recorder.Body.String())
	}
}
