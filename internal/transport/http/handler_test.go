package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	drinkapp "github.com/astro-web3/coffee-drinks/internal/app/drink"
	"github.com/astro-web3/coffee-drinks/internal/config"
	authzdomain "github.com/astro-web3/coffee-drinks/internal/domain/authz"
	drinkdomain "github.com/astro-web3/coffee-drinks/internal/domain/drink"
	"github.com/astro-web3/coffee-drinks/internal/infra/memory"
	httptransport "github.com/astro-web3/coffee-drinks/internal/transport/http"
	"github.com/gin-gonic/gin"
)

// mockAuthorizer grants each bearer token the permissions listed in tokens.
type mockAuthorizer struct {
	tokens         map[string][]string
	err            error
	lastPermission string
}

func (m *mockAuthorizer) Authorize(_ context.Context, header, permission string) (authzdomain.DecodedToken, error) {
	m.lastPermission = permission
	if m.err != nil {
		return nil, m.err
	}
	if header == "" {
		return nil, authzdomain.ErrMissingHeader
	}

	perms, ok := m.tokens[strings.TrimPrefix(header, "Bearer ")]
	if !ok {
		return nil, authzdomain.ErrInvalidSignature
	}

	decoded := authzdomain.DecodedToken{"sub": "user", "permissions": perms}
	if !decoded.HasPermission(permission) {
		return nil, authzdomain.ErrInsufficientPermission
	}
	return decoded, nil
}

type brokenRepo struct {
	drinkdomain.Repository
}

func (brokenRepo) List(context.Context) ([]*drinkdomain.Drink, error) {
	return nil, errors.New("database is down")
}

func (brokenRepo) Create(context.Context, *drinkdomain.Drink) error {
	return errors.New("database is down")
}

type envelope struct {
	Success bool              `json:"success"`
	Error   int               `json:"error"`
	Message string            `json:"message"`
	Delete  uint              `json:"delete"`
	Drinks  []json.RawMessage `json:"drinks"`
}

func newTestRouter(t *testing.T, repo drinkdomain.Repository, auth *mockAuthorizer) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.Server.Mode = "release"
	cfg.CORS.AllowedOrigins = []string{"https://shop.example.com"}

	svc := drinkdomain.NewService(repo)
	handler := httptransport.NewHandler(drinkapp.NewCommandService(svc), drinkapp.NewQueryService(svc))
	return httptransport.NewRouter(handler, auth, cfg, nil)
}

func defaultAuthorizer() *mockAuthorizer {
	return &mockAuthorizer{tokens: map[string][]string{
		"barista": {"get:drinks-detail"},
		"manager": {"get:drinks-detail", "post:drinks", "patch:drinks", "delete:drinks"},
	}}
}

func do(t *testing.T, router http.Handler, method, path, token, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode response %q: %v", w.Body.String(), err)
		}
	}
	return w, env
}

func expectError(t *testing.T, w *httptest.ResponseRecorder, env envelope, status int) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status = %d, want %d (%s)", w.Code, status, w.Body.String())
	}
	if env.Success || env.Error != status || env.Message == "" {
		t.Errorf("error body = %+v", env)
	}
}

func seed(t *testing.T, repo drinkdomain.Repository) *drinkdomain.Drink {
	t.Helper()
	d := &drinkdomain.Drink{
		Title: "latte",
		Recipe: drinkdomain.Recipe{
			{Name: "espresso", Color: "brown", Parts: 1},
			{Name: "milk", Color: "white", Parts: 3},
		},
	}
	if err := repo.Create(context.Background(), d); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return d
}

func TestHandler_ListDrinks_Public(t *testing.T) {
	repo := memory.NewDrinkRepository()
	seed(t, repo)
	router := newTestRouter(t, repo, defaultAuthorizer())

	for _, path := range []string{"/", "/drinks"} {
		w, env := do(t, router, http.MethodGet, path, "", "")
		if w.Code != http.StatusOK || !env.Success {
			t.Fatalf("GET %s = %d %s", path, w.Code, w.Body.String())
		}
		if len(env.Drinks) != 1 {
			t.Fatalf("drinks = %d, want 1", len(env.Drinks))
		}
		want := `{"id":1,"title":"latte","recipe":[{"color":"brown","parts":1},{"color":"white","parts":3}]}`
		if string(env.Drinks[0]) != want {
			t.Errorf("GET %s drink = %s, want %s", path, env.Drinks[0], want)
		}
	}
}

func TestHandler_DrinkDetails(t *testing.T) {
	repo := memory.NewDrinkRepository()
	seed(t, repo)
	auth := defaultAuthorizer()
	router := newTestRouter(t, repo, auth)

	w, env := do(t, router, http.MethodGet, "/drinks-detail", "", "")
	expectError(t, w, env, http.StatusUnauthorized)
	if env.Message != authzdomain.ErrMissingHeader.Description {
		t.Errorf("message = %q", env.Message)
	}

	w, env = do(t, router, http.MethodGet, "/drinks-detail", "barista", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	if auth.lastPermission != "get:drinks-detail" {
		t.Errorf("permission = %q", auth.lastPermission)
	}
	if !strings.Contains(string(env.Drinks[0]), `"name":"espresso"`) {
		t.Errorf("detail drink missing names: %s", env.Drinks[0])
	}
}

func TestHandler_CreateDrink(t *testing.T) {
	repo := memory.NewDrinkRepository()
	auth := defaultAuthorizer()
	router := newTestRouter(t, repo, auth)

	body := `{"title":"mocha","recipe":[{"name":"chocolate","color":"brown","parts":1},{"name":"espresso","color":"black","parts":1}]}`

	w, env := do(t, router, http.MethodPost, "/drinks", "barista", body)
	expectError(t, w, env, http.StatusForbidden)

	w, env = do(t, router, http.MethodPost, "/drinks", "manager", body)
	if w.Code != http.StatusOK || !env.Success {
		t.Fatalf("POST = %d %s", w.Code, w.Body.String())
	}
	if auth.lastPermission != "post:drinks" {
		t.Errorf("permission = %q", auth.lastPermission)
	}
	if len(env.Drinks) != 1 || !strings.Contains(string(env.Drinks[0]), `"title":"mocha"`) {
		t.Errorf("drinks = %s", w.Body.String())
	}

	w, env = do(t, router, http.MethodPost, "/drinks", "manager", body)
	expectError(t, w, env, http.StatusConflict)
}

func TestHandler_CreateDrink_SingleIngredientRecipe(t *testing.T) {
	router := newTestRouter(t, memory.NewDrinkRepository(), defaultAuthorizer())

	w, env := do(t, router, http.MethodPost, "/drinks", "manager",
		`{"title":"water","recipe":{"name":"water","color":"blue","parts":1}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("POST = %d %s", w.Code, w.Body.String())
	}
	want := `{"id":1,"title":"water","recipe":[{"name":"water","color":"blue","parts":1}]}`
	if string(env.Drinks[0]) != want {
		t.Errorf("drink = %s, want %s", env.Drinks[0], want)
	}
}

func TestHandler_CreateDrink_BadInput(t *testing.T) {
	router := newTestRouter(t, memory.NewDrinkRepository(), defaultAuthorizer())

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{name: "not json", body: `{"title":`, status: http.StatusBadRequest},
		{name: "recipe wrong type", body: `{"title":"x","recipe":"espresso"}`, status: http.StatusBadRequest},
		{name: "missing title", body: `{"recipe":[{"name":"a","color":"b","parts":1}]}`, status: http.StatusUnprocessableEntity},
		{name: "missing recipe", body: `{"title":"plain"}`, status: http.StatusUnprocessableEntity},
		{name: "negative parts", body: `{"title":"odd","recipe":[{"name":"a","color":"b","parts":-2}]}`, status: http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := do(t, router, http.MethodPost, "/drinks", "manager", tt.body)
			expectError(t, w, env, tt.status)
		})
	}
}

func TestHandler_UpdateDrink(t *testing.T) {
	repo := memory.NewDrinkRepository()
	seed(t, repo)
	auth := defaultAuthorizer()
	router := newTestRouter(t, repo, auth)

	w, env := do(t, router, http.MethodPatch, "/drinks/1", "manager", `{"title":"cafe latte"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("PATCH = %d %s", w.Code, w.Body.String())
	}
	if auth.lastPermission != "patch:drinks" {
		t.Errorf("permission = %q", auth.lastPermission)
	}
	if !strings.Contains(string(env.Drinks[0]), `"title":"cafe latte"`) ||
		!strings.Contains(string(env.Drinks[0]), `"name":"milk"`) {
		t.Errorf("drink = %s", env.Drinks[0])
	}

	w, env = do(t, router, http.MethodPatch, "/drinks/99", "manager", `{"title":"ghost"}`)
	expectError(t, w, env, http.StatusNotFound)

	w, env = do(t, router, http.MethodPatch, "/drinks/abc", "manager", `{"title":"ghost"}`)
	expectError(t, w, env, http.StatusBadRequest)

	w, env = do(t, router, http.MethodPatch, "/drinks/1", "barista", `{"title":"nope"}`)
	expectError(t, w, env, http.StatusForbidden)
}

func TestHandler_UpdateDrink_EmptyBody(t *testing.T) {
	repo := memory.NewDrinkRepository()
	seed(t, repo)
	router := newTestRouter(t, repo, defaultAuthorizer())

	w, env := do(t, router, http.MethodPatch, "/drinks/1", "manager", "")
	if w.Code != http.StatusOK || !env.Success {
		t.Fatalf("PATCH with empty body = %d %s", w.Code, w.Body.String())
	}
	if !strings.Contains(string(env.Drinks[0]), `"title":"latte"`) ||
		!strings.Contains(string(env.Drinks[0]), `"name":"milk"`) {
		t.Errorf("drink = %s", env.Drinks[0])
	}

	// malformed JSON is still rejected
	w, env = do(t, router, http.MethodPatch, "/drinks/1", "manager", `{"title":`)
	expectError(t, w, env, http.StatusBadRequest)
}

func TestHandler_DeleteDrink(t *testing.T) {
	repo := memory.NewDrinkRepository()
	d := seed(t, repo)
	auth := defaultAuthorizer()
	router := newTestRouter(t, repo, auth)

	w, env := do(t, router, http.MethodDelete, "/drinks/1", "manager", "")
	if w.Code != http.StatusOK || !env.Success || env.Delete != d.ID {
		t.Fatalf("DELETE = %d %s", w.Code, w.Body.String())
	}
	if auth.lastPermission != "delete:drinks" {
		t.Errorf("permission = %q", auth.lastPermission)
	}

	w, env = do(t, router, http.MethodDelete, "/drinks/1", "manager", "")
	expectError(t, w, env, http.StatusNotFound)

	w, env = do(t, router, http.MethodDelete, "/drinks/0", "manager", "")
	expectError(t, w, env, http.StatusBadRequest)
}

func TestHandler_AuthorizationFailuresKeepTheirStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{err: authzdomain.ErrExpired, status: http.StatusUnauthorized},
		{err: authzdomain.ErrMissingPermissionsClaim, status: http.StatusBadRequest},
		{err: authzdomain.ErrKeyFetchFailed, status: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(string(tt.err.(*authzdomain.Failure).Code), func(t *testing.T) {
			auth := defaultAuthorizer()
			auth.err = tt.err
			router := newTestRouter(t, memory.NewDrinkRepository(), auth)

			w, env := do(t, router, http.MethodGet, "/drinks-detail", "manager", "")
			expectError(t, w, env, tt.status)
			if env.Message != tt.err.(*authzdomain.Failure).Description {
				t.Errorf("message = %q", env.Message)
			}
		})
	}
}

func TestHandler_StorageFailureIsInternal(t *testing.T) {
	router := newTestRouter(t, brokenRepo{}, defaultAuthorizer())

	w, env := do(t, router, http.MethodGet, "/drinks", "", "")
	expectError(t, w, env, http.StatusInternalServerError)

	w, env = do(t, router, http.MethodPost, "/drinks", "manager",
		`{"title":"x","recipe":[{"name":"a","color":"b","parts":1}]}`)
	expectError(t, w, env, http.StatusInternalServerError)
	if strings.Contains(env.Message, "database") {
		t.Errorf("storage detail leaked: %q", env.Message)
	}
}

func TestRouter_NotFoundAndMethodNotAllowed(t *testing.T) {
	router := newTestRouter(t, memory.NewDrinkRepository(), defaultAuthorizer())

	w, env := do(t, router, http.MethodGet, "/coffee", "", "")
	expectError(t, w, env, http.StatusNotFound)

	w, env = do(t, router, http.MethodPut, "/drinks", "", "")
	expectError(t, w, env, http.StatusMethodNotAllowed)
}

func TestRouter_HealthzAndRequestID(t *testing.T) {
	router := newTestRouter(t, memory.NewDrinkRepository(), defaultAuthorizer())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Errorf("healthz = %d %q", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Request-Id") == "" {
		t.Error("missing X-Request-Id")
	}

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-Id"); got != "abc-123" {
		t.Errorf("X-Request-Id = %q, want propagated value", got)
	}
}

func TestRouter_CORS(t *testing.T) {
	router := newTestRouter(t, memory.NewDrinkRepository(), defaultAuthorizer())

	req := httptest.NewRequest(http.MethodOptions, "/drinks", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://shop.example.com" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(got, "Authorization") {
		t.Errorf("Allow-Headers = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/drinks", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin for unknown origin = %q", got)
	}
}

func TestRouter_MetricsMounted(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.Server.Mode = "release"
	svc := drinkdomain.NewService(memory.NewDrinkRepository())
	handler := httptransport.NewHandler(drinkapp.NewCommandService(svc), drinkapp.NewQueryService(svc))
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("drinks_authz_decisions_total 1\n"))
	})
	router := httptransport.NewRouter(handler, defaultAuthorizer(), cfg, metrics)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "drinks_authz_decisions_total") {
		t.Errorf("metrics = %d %q", w.Code, w.Body.String())
	}
}
