package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shelfd/shelf/internal/model"
	"github.com/shelfd/shelf/internal/service"
	"github.com/shelfd/shelf/internal/store"
	"github.com/shelfd/shelf/internal/upload"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

const (
	testJWTSecret = "test-secret-for-jwt-integration-tests"
	testPassword  = "supersecretpassword"
	testAdminName = "Test Admin"
	testBaseURL   = "http://shelf.test"
)

// pngBytes is a minimal payload that sniffs as image/png.
var pngBytes = append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, bytes.Repeat([]byte{0}, 64)...)

// testEnv holds all the shared state for integration tests.
type testEnv struct {
	server  *Server
	store   *store.Store
	authSvc *service.AuthService
	uploads *upload.Store
}

// newTestEnv creates a fresh test environment with an in-memory store, a
// temporary upload directory, and a fully wired Server.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := store.Open(store.Config{Driver: "sqlite"}) // in-memory SQLite
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	uploads, err := upload.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("upload.NewStore: %v", err)
	}

	signer := service.NewJWTSigner(testJWTSecret)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	authSvc := service.NewAuthService(st, service.BcryptHasher{Cost: 4}, signer, time.Hour, logger)

	cfg := DefaultConfig()
	cfg.BaseURL = testBaseURL
	srv := New(cfg, st, authSvc, uploads, logger)

	return &testEnv{
		server:  srv,
		store:   st,
		authSvc: authSvc,
		uploads: uploads,
	}
}

// seedAdmin registers the default admin account.
func (e *testEnv) seedAdmin(t *testing.T) *model.Admin {
	t.Helper()
	admin, err := e.authSvc.Register(context.Background(), "admin@example.com", testPassword, testAdminName)
	if err != nil {
		t.Fatalf("seedAdmin: %v", err)
	}
	return admin
}

// adminToken logs in as the default admin and returns the JWT token string.
func (e *testEnv) adminToken(t *testing.T) string {
	t.Helper()
	body := jsonBody(t, map[string]string{
		"email":    "admin@example.com",
		"password": testPassword,
	})
	rr := e.do(t, "POST", "/api/admin/login", body, nil)
	assertStatus(t, rr, http.StatusOK)

	var resp struct {
		Token string `json:"token"`
	}
	decodeJSON(t, rr, &resp)
	if resp.Token == "" {
		t.Fatal("adminToken: got empty token from login")
	}
	return resp.Token
}

// do executes an HTTP request against the test server and returns the recorder.
func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil && headers["Content-Type"] == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	e.server.ServeHTTP(rr, req)
	return rr
}

// doForm executes an authenticated multipart request against the test server.
func (e *testEnv) doForm(t *testing.T, method, path, token string, fields map[string]string, imageName string, imageData []byte) *httptest.ResponseRecorder {
	t.Helper()

	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write form field %q: %v", k, err)
		}
	}
	if imageName != "" {
		part, err := mw.CreateFormFile("image", imageName)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(imageData); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	return e.do(t, method, path, buf, map[string]string{
		"Content-Type":  mw.FormDataContentType(),
		"Authorization": "Bearer " + token,
	})
}

// doAuth executes an authenticated HTTP request using the admin JWT.
func (e *testEnv) doAuth(t *testing.T, method, path string, body io.Reader, token string) *httptest.ResponseRecorder {
	t.Helper()
	return e.do(t, method, path, body, map[string]string{
		"Authorization": "Bearer " + token,
	})
}

func jsonBody(t *testing.T, v interface{}) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(v); err != nil {
		t.Fatalf("jsonBody: %v", err)
	}
	return buf
}

func assertStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Errorf("status = %d, want %d; body = %s", rr.Code, want, rr.Body.String())
	}
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decodeJSON: %v; body = %s", err, rr.Body.String())
	}
}

// ---------------------------------------------------------------------------
// Health check tests
// ---------------------------------------------------------------------------

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/healthz", nil, nil)
	assertStatus(t, rr, http.StatusOK)

	var resp map[string]string
	decodeJSON(t, rr, &resp)
	if resp["status"] != "ok" {
		t.Errorf("status = %q, want %q", resp["status"], "ok")
	}
}

func TestReadyz(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/readyz", nil, nil)
	assertStatus(t, rr, http.StatusOK)

	var resp map[string]interface{}
	decodeJSON(t, rr, &resp)
	if resp["status"] != "ok" {
		t.Errorf("status = %q, want %q", resp["status"], "ok")
	}
}

// ---------------------------------------------------------------------------
// Admin account tests
// ---------------------------------------------------------------------------

func TestAdminRegister_Success(t *testing.T) {
	env := newTestEnv(t)

	body := jsonBody(t, map[string]string{
		"email":    "new@example.com",
		"password": "longenough",
		"name":     "New Admin",
	})
	rr := env.do(t, "POST", "/api/admin/register", body, nil)
	assertStatus(t, rr, http.StatusCreated)

	var admin model.Admin
	decodeJSON(t, rr, &admin)
	if admin.Email != "new@example.com" {
		t.Errorf("email = %q, want %q", admin.Email, "new@example.com")
	}
	if admin.ID == 0 {
		t.Error("registered admin has no id")
	}

	// The password hash never leaks through the API.
	if strings.Contains(rr.Body.String(), "password") {
		t.Errorf("register response leaks password material: %s", rr.Body.String())
	}
}

func TestAdminRegister_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t)

	body := jsonBody(t, map[string]string{
		"email":    "admin@example.com",
		"password": "anotherpassword",
	})
	rr := env.do(t, "POST", "/api/admin/register", body, nil)
	assertStatus(t, rr, http.StatusBadRequest)
}

func TestAdminRegister_Validation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name  string
		email string
		pass  string
	}{
		{"invalid email", "not-an-email", "longenough"},
		{"short password", "ok@example.com", "short"},
		{"empty email", "", "longenough"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := jsonBody(t, map[string]string{"email": tt.email, "password": tt.pass})
			rr := env.do(t, "POST", "/api/admin/register", body, nil)
			assertStatus(t, rr, http.StatusBadRequest)
		})
	}
}

func TestAdminLogin_Success(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t)

	body := jsonBody(t, map[string]string{
		"email":    "admin@example.com",
		"password": testPassword,
	})
	rr := env.do(t, "POST", "/api/admin/login", body, nil)
	assertStatus(t, rr, http.StatusOK)

	var resp struct {
		Token     string `json:"token"`
		TokenType string `json:"token_type"`
		ExpiresIn int64  `json:"expires_in"`
		Email     string `json:"email"`
	}
	decodeJSON(t, rr, &resp)
	if resp.Token == "" {
		t.Error("login returned no token")
	}
	if resp.TokenType != "bearer" {
		t.Errorf("token_type = %q, want %q", resp.TokenType, "bearer")
	}
	if resp.ExpiresIn <= 0 {
		t.Errorf("expires_in = %d, want > 0", resp.ExpiresIn)
	}
}

// Wrong password and unknown email must be indistinguishable to the caller.
func TestAdminLogin_FailureParity(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t)

	wrongPass := env.do(t, "POST", "/api/admin/login", jsonBody(t, map[string]string{
		"email":    "admin@example.com",
		"password": "wrong-password",
	}), nil)
	unknownEmail := env.do(t, "POST", "/api/admin/login", jsonBody(t, map[string]string{
		"email":    "nobody@example.com",
		"password": testPassword,
	}), nil)

	assertStatus(t, wrongPass, http.StatusUnauthorized)
	assertStatus(t, unknownEmail, http.StatusUnauthorized)
	if wrongPass.Body.String() != unknownEmail.Body.String() {
		t.Errorf("login failure bodies differ:\n%s\n%s", wrongPass.Body.String(), unknownEmail.Body.String())
	}
}

func TestAdminProfileAndVerify(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t)
	token := env.adminToken(t)

	rr := env.doAuth(t, "GET", "/api/admin/profile", nil, token)
	assertStatus(t, rr, http.StatusOK)

	var admin model.Admin
	decodeJSON(t, rr, &admin)
	if admin.Email != "admin@example.com" {
		t.Errorf("profile email = %q, want %q", admin.Email, "admin@example.com")
	}

	rr = env.doAuth(t, "GET", "/api/admin/verify", nil, token)
	assertStatus(t, rr, http.StatusOK)

	var verify struct {
		Message string `json:"message"`
	}
	decodeJSON(t, rr, &verify)
	if verify.Message != "Token is valid" {
		t.Errorf("verify message = %q", verify.Message)
	}
}

func TestAdminProfile_RequiresToken(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/api/admin/profile", nil, nil)
	assertStatus(t, rr, http.StatusUnauthorized)

	rr = env.do(t, "GET", "/api/admin/profile", nil, map[string]string{
		"Authorization": "Bearer garbage.token.value",
	})
	assertStatus(t, rr, http.StatusUnauthorized)
}

// ---------------------------------------------------------------------------
// Product CRUD tests
// ---------------------------------------------------------------------------

func TestProductLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t)
	token := env.adminToken(t)

	// Create
	rr := env.doForm(t, "POST", "/api/products", token, map[string]string{
		"name":        "Mug",
		"description": "A sturdy mug",
		"price":       "9.99",
	}, "", nil)
	assertStatus(t, rr, http.StatusCreated)

	var created model.Product
	decodeJSON(t, rr, &created)
	if created.ID == 0 {
		t.Fatal("created product has no id")
	}
	if created.Price != 9.99 {
		t.Errorf("price = %v, want 9.99", created.Price)
	}
	if created.Image != nil {
		t.Errorf("image = %v, want nil", *created.Image)
	}

	// List is public
	rr = env.do(t, "GET", "/api/products", nil, nil)
	assertStatus(t, rr, http.StatusOK)
	var list []model.Product
	decodeJSON(t, rr, &list)
	if len(list) != 1 {
		t.Fatalf("list length = %d, want 1", len(list))
	}

	// A product with no image serializes image as null, not as a missing key.
	raw, err := json.Marshal(list[0])
	if err != nil {
		t.Fatalf("marshal product: %v", err)
	}
	if !bytes.Contains(raw, []byte(`"image":null`)) {
		t.Errorf("product JSON should carry image:null, got %s", raw)
	}

	// Partial update: only price changes
	rr = env.doForm(t, "PUT", fmt.Sprintf("/api/products/%d", created.ID), token, map[string]string{
		"price": "12.50",
	}, "", nil)
	assertStatus(t, rr, http.StatusOK)

	var updated model.Product
	decodeJSON(t, rr, &updated)
	if updated.Price != 12.50 {
		t.Errorf("updated price = %v, want 12.50", updated.Price)
	}
	if updated.Name != "Mug" {
		t.Errorf("updated name = %q, want %q (fields must survive partial updates)", updated.Name, "Mug")
	}

	// Delete
	rr = env.doAuth(t, "DELETE", fmt.Sprintf("/api/products/%d", created.ID), nil, token)
	assertStatus(t, rr, http.StatusOK)

	var deleted struct {
		Message string `json:"message"`
	}
	decodeJSON(t, rr, &deleted)
	if deleted.Message != "Product deleted successfully" {
		t.Errorf("delete message = %q", deleted.Message)
	}

	// Gone
	rr = env.do(t, "GET", fmt.Sprintf("/api/products/%d", created.ID), nil, nil)
	assertStatus(t, rr, http.StatusNotFound)
}

func TestProductWrites_RequireToken(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "POST", "/api/products", nil, nil)
	assertStatus(t, rr, http.StatusUnauthorized)

	rr = env.do(t, "PUT", "/api/products/1", nil, nil)
	assertStatus(t, rr, http.StatusUnauthorized)

	rr = env.do(t, "DELETE", "/api/products/1", nil, nil)
	assertStatus(t, rr, http.StatusUnauthorized)
}

func TestProductGet_NotFound(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/api/products/999", nil, nil)
	assertStatus(t, rr, http.StatusNotFound)
}

func TestProductCreate_MissingFields(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t)
	token := env.adminToken(t)

	rr := env.doForm(t, "POST", "/api/products", token, map[string]string{
		"name": "Incomplete",
	}, "", nil)
	assertStatus(t, rr, http.StatusBadRequest)
}

// ---------------------------------------------------------------------------
// Image upload tests
// ---------------------------------------------------------------------------

func TestProductCreate_WithImage(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t)
	token := env.adminToken(t)

	rr := env.doForm(t, "POST", "/api/products", token, map[string]string{
		"name":        "Poster",
		"description": "Wall poster",
		"price":       "15.00",
	}, "poster.png", pngBytes)
	assertStatus(t, rr, http.StatusCreated)

	var created model.Product
	decodeJSON(t, rr, &created)
	if created.Image == nil {
		t.Fatal("created product has no image URL")
	}
	if !strings.HasPrefix(*created.Image, testBaseURL+upload.URLPrefix+"/") {
		t.Errorf("image URL = %q, want %q prefix", *created.Image, testBaseURL+upload.URLPrefix+"/")
	}

	// The file landed in the upload directory and is served back.
	urlPath := strings.TrimPrefix(*created.Image, testBaseURL)
	rr = env.do(t, "GET", urlPath, nil, nil)
	assertStatus(t, rr, http.StatusOK)
	if !bytes.Equal(rr.Body.Bytes(), pngBytes) {
		t.Error("served image bytes differ from upload")
	}

	// Deleting the product removes the file.
	rr = env.doAuth(t, "DELETE", fmt.Sprintf("/api/products/%d", created.ID), nil, token)
	assertStatus(t, rr, http.StatusOK)

	name := filepath.Base(urlPath)
	if _, err := os.Stat(filepath.Join(env.uploads.Dir(), name)); !os.IsNotExist(err) {
		t.Errorf("image file still exists after product delete: %v", err)
	}
}

func TestProductCreate_RejectsDisallowedImage(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t)
	token := env.adminToken(t)

	rr := env.doForm(t, "POST", "/api/products", token, map[string]string{
		"name":        "Animated",
		"description": "Not allowed",
		"price":       "1.00",
	}, "animated.gif", []byte("GIF89a-not-really"))
	assertStatus(t, rr, http.StatusBadRequest)

	// The rejected upload must not leave a product behind.
	list := env.do(t, "GET", "/api/products", nil, nil)
	var products []model.Product
	decodeJSON(t, list, &products)
	if len(products) != 0 {
		t.Errorf("catalog has %d products after a rejected upload, want 0", len(products))
	}

	// And no stray files in the upload directory.
	entries, err := os.ReadDir(env.uploads.Dir())
	if err != nil {
		t.Fatalf("read upload dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("upload dir has %d entries after a rejected upload, want 0", len(entries))
	}
}

func TestProductCreate_RejectsOversizedBody(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t)
	token := env.adminToken(t)

	// A text field alone can blow past the body cap; without a file part it
	// would otherwise spill to temp files unchecked.
	huge := strings.Repeat("x", (13<<20)+1024)
	rr := env.doForm(t, "POST", "/api/products", token, map[string]string{
		"name":        "Oversized",
		"description": huge,
		"price":       "1.00",
	}, "", nil)
	assertStatus(t, rr, http.StatusBadRequest)

	list := env.do(t, "GET", "/api/products", nil, nil)
	var products []model.Product
	decodeJSON(t, list, &products)
	if len(products) != 0 {
		t.Errorf("catalog has %d products after a rejected body, want 0", len(products))
	}
}

func TestProductUpdate_ReplacesImage(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t)
	token := env.adminToken(t)

	rr := env.doForm(t, "POST", "/api/products", token, map[string]string{
		"name":        "Print",
		"description": "Art print",
		"price":       "30.00",
	}, "first.png", pngBytes)
	assertStatus(t, rr, http.StatusCreated)

	var created model.Product
	decodeJSON(t, rr, &created)
	if created.Image == nil {
		t.Fatal("created product has no image")
	}
	oldName := filepath.Base(*created.Image)

	rr = env.doForm(t, "PUT", fmt.Sprintf("/api/products/%d", created.ID), token,
		nil, "second.png", pngBytes)
	assertStatus(t, rr, http.StatusOK)

	var updated model.Product
	decodeJSON(t, rr, &updated)
	if updated.Image == nil {
		t.Fatal("updated product has no image")
	}
	if filepath.Base(*updated.Image) == oldName {
		t.Error("image URL did not change after replacement")
	}

	// The replaced file is cleaned up, the new one exists.
	if _, err := os.Stat(filepath.Join(env.uploads.Dir(), oldName)); !os.IsNotExist(err) {
		t.Error("old image file still exists after replacement")
	}
	if _, err := os.Stat(filepath.Join(env.uploads.Dir(), filepath.Base(*updated.Image))); err != nil {
		t.Errorf("new image file missing: %v", err)
	}
}

// ---------------------------------------------------------------------------
// UI and OpenAPI tests
// ---------------------------------------------------------------------------

func TestStorefront(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t)
	token := env.adminToken(t)

	rr := env.doForm(t, "POST", "/api/products", token, map[string]string{
		"name":        "Notebook",
		"description": "Lined notebook",
		"price":       "4.50",
	}, "", nil)
	assertStatus(t, rr, http.StatusCreated)

	page := env.do(t, "GET", "/", nil, nil)
	assertStatus(t, page, http.StatusOK)
	if !strings.Contains(page.Header().Get("Content-Type"), "text/html") {
		t.Errorf("storefront Content-Type = %q", page.Header().Get("Content-Type"))
	}
	if !strings.Contains(page.Body.String(), "Notebook") {
		t.Error("storefront page does not list the product")
	}
}

func TestProductPage(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t)
	token := env.adminToken(t)

	rr := env.doForm(t, "POST", "/api/products", token, map[string]string{
		"name":        "Teapot",
		"description": "Ceramic teapot",
		"price":       "22.00",
	}, "", nil)
	assertStatus(t, rr, http.StatusCreated)
	var created model.Product
	decodeJSON(t, rr, &created)

	page := env.do(t, "GET", fmt.Sprintf("/products/%d", created.ID), nil, nil)
	assertStatus(t, page, http.StatusOK)
	if !strings.Contains(page.Body.String(), "Teapot") {
		t.Error("product page does not show the product")
	}

	missing := env.do(t, "GET", "/products/999", nil, nil)
	assertStatus(t, missing, http.StatusNotFound)
}

func TestAdminPage(t *testing.T) {
	env := newTestEnv(t)

	page := env.do(t, "GET", "/admin", nil, nil)
	assertStatus(t, page, http.StatusOK)
	if !strings.Contains(page.Header().Get("Content-Type"), "text/html") {
		t.Errorf("admin page Content-Type = %q", page.Header().Get("Content-Type"))
	}
}

func TestOpenAPIEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/openapi.json", nil, nil)
	assertStatus(t, rr, http.StatusOK)

	var doc map[string]interface{}
	decodeJSON(t, rr, &doc)
	if doc["openapi"] != "3.1.0" {
		t.Errorf("openapi = %v, want 3.1.0", doc["openapi"])
	}
}

func TestRequestIDHeader(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/healthz", nil, nil)
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("response is missing X-Request-ID")
	}
}
