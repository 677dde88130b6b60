package server

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
)

// loadSpec loads and validates the OpenAPI document.
func loadSpec(t *testing.T) (*openapi3.T, routers.Router) {
	t.Helper()

	specPath := os.Getenv("OPENAPI_SPEC_PATH")
	if specPath == "" {
		specPath = filepath.Join("..", "..", "docs", "api", "openapi.yaml")
	}

	loader := openapi3.NewLoader()
	spec, err := loader.LoadFromFile(specPath)
	if err != nil {
		t.Fatalf("Failed to load OpenAPI spec from %s: %v", specPath, err)
	}

	if err := spec.Validate(context.Background()); err != nil {
		t.Fatalf("OpenAPI spec validation failed: %v", err)
	}

	router, err := gorillamux.NewRouter(spec)
	if err != nil {
		t.Fatalf("Failed to create router from spec: %v", err)
	}

	return spec, router
}

// validateAgainstSpec runs req through the app and checks the response
// against the documented schema for its route and status.
func validateAgainstSpec(t *testing.T, app *testApp, router routers.Router, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()

	// The app consumes the body, the validator only needs the request line.
	specReq := httptest.NewRequest(req.Method, req.URL.Path, nil)

	rec := app.do(req)

	route, pathParams, err := router.FindRoute(specReq)
	if err != nil {
		t.Fatalf("%s %s: route not documented: %v", req.Method, req.URL.Path, err)
	}

	input := &openapi3filter.ResponseValidationInput{
		RequestValidationInput: &openapi3filter.RequestValidationInput{
			Request:    specReq,
			PathParams: pathParams,
			Route:      route,
		},
		Status: rec.Code,
		Header: rec.Header(),
		Body:   io.NopCloser(bytes.NewReader(rec.Body.Bytes())),
	}
	if err := openapi3filter.ValidateResponse(context.Background(), input); err != nil {
		t.Errorf("%s %s (%d): response does not match spec: %v", req.Method, req.URL.Path, rec.Code, err)
	}

	return rec
}

func TestContract_SpecDocumentsEveryRoute(t *testing.T) {
	spec, _ := loadSpec(t)

	for _, path := range []string{
		"/",
		"/healthz",
		"/readyz",
		"/api/v1/auth/signup",
		"/api/v1/auth/login",
		"/api/v1/auth/me",
		"/api/v1/chat",
		"/api/v1/history",
	} {
		if spec.Paths.Find(path) == nil {
			t.Errorf("Expected path %s not found in spec", path)
		}
	}
}

func TestContract_ResponsesMatchSpec(t *testing.T) {
	_, router := loadSpec(t)
	app := newTestApp(t)

	validateAgainstSpec(t, app, router, httptest.NewRequest(http.MethodGet, "/", nil))
	validateAgainstSpec(t, app, router, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	validateAgainstSpec(t, app, router, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	signup := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signup",
		strings.NewReader(`{"email":"spec@example.com","username":"spec","password":"contract pw 1","dob":"1990-04-01"}`))
	rec := validateAgainstSpec(t, app, router, signup)
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup status = %d", rec.Code)
	}

	token := app.signup(t, "spec2@example.com", "spec2")

	authed := func(method, path string) *http.Request {
		req := httptest.NewRequest(method, path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		return req
	}

	// Anonymous and authenticated chats, then an invalid one.
	validateAgainstSpec(t, app, router, chatRequest(t, "describe a sunset", nil, ""))
	validateAgainstSpec(t, app, router, chatRequest(t, "hello", []byte("fake image bytes"), token))
	validateAgainstSpec(t, app, router, chatRequest(t, "", nil, token))

	validateAgainstSpec(t, app, router, authed(http.MethodGet, "/api/v1/history"))
	validateAgainstSpec(t, app, router, authed(http.MethodGet, "/api/v1/auth/me"))
	validateAgainstSpec(t, app, router, httptest.NewRequest(http.MethodGet, "/api/v1/history", nil))

	login := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"username":"spec2","password":"wrong"}`))
	validateAgainstSpec(t, app, router, login)
}
