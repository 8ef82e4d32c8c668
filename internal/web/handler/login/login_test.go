package login

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/storage"
	"gorm.io/gorm"

	"github.com/GoWeddingShare/GoWeddingShare/internal/config"
	"github.com/GoWeddingShare/GoWeddingShare/internal/db/controller/user"
	"github.com/GoWeddingShare/GoWeddingShare/internal/db/models"
	websess "github.com/GoWeddingShare/GoWeddingShare/internal/web/session"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite in-memory db: %v", err)
	}

	tables := []interface{}{
		&models.User{},
		&models.Setting{},
		&models.GallerySetting{},
		&models.AuditLog{},
	}
	if err := db.AutoMigrate(tables...); err != nil {
		t.Fatalf("failed to migrate models: %v", err)
	}

	return db
}

func newTestConfig() *config.Config {
	return &config.Config{
		DevMode: true,
		Webserver: config.Webserver{
			URL:     "http://localhost",
			Port:    3000,
			Session: config.Session{ExpiryTime: time.Minute},
		},
	}
}

// testStorage is a minimal in-memory implementation of storage.Storage for tests.
type testStorage struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ storage.Storage = (*testStorage)(nil)

func (s *testStorage) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := s.data[key]
	out := make([]byte, len(v))
	copy(out, v)

	return out, nil
}

func (s *testStorage) Set(key string, val []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		s.data = make(map[string][]byte)
	}

	buf := make([]byte, len(val))
	copy(buf, val)
	s.data[key] = buf

	return nil
}

func (s *testStorage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)

	return nil
}

func (s *testStorage) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[string][]byte)

	return nil
}

func (s *testStorage) Close() error { return nil }

func initSessionStore() {
	// Initialize a fresh in-memory session store for each test.
	websess.Init(&testStorage{data: make(map[string][]byte)})
}

func newLoginApp(t *testing.T, db *gorm.DB) *fiber.App {
	t.Helper()

	app := fiber.New()
	initSessionStore()

	var s Service
	if err := s.Init(app, newTestConfig(), db); err != nil {
		t.Fatalf("failed to init login handler: %v", err)
	}

	return app
}

func seedAccount(t *testing.T, db *gorm.DB, username, password string) {
	t.Helper()

	_, err := user.Create(context.Background(), db, &models.User{
		Username: username,
		Password: models.HashPassword(password),
		Active:   true,
		Level:    models.UserLevelAdmin,
	})
	if err != nil {
		t.Fatalf("failed to seed account: %v", err)
	}
}

func postLogin(t *testing.T, app *fiber.App, body string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, Path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	return resp
}

func TestPost_ValidCredentials(t *testing.T) {
	db := newTestDB(t)
	app := newLoginApp(t, db)
	seedAccount(t, db, "alice", "secretpass")

	resp := postLogin(t, app, `{"username":"alice","password":"secretpass"}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var out struct {
		Username string `json:"username"`
		Level    int    `json:"level"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if out.Username != "alice" || out.Level != int(models.UserLevelAdmin) {
		t.Fatalf("unexpected response: %+v", out)
	}

	var sessionCookie *http.Cookie

	for _, c := range resp.Cookies() {
		if c.Name == websess.CookieName {
			sessionCookie = c
		}
	}

	if sessionCookie == nil || sessionCookie.Value == "" {
		t.Fatal("expected a session cookie to be set")
	}

	// the session must be readable with the cookie value
	data := new(websess.Data)
	if err := data.Read(sessionCookie.Value); err != nil {
		t.Fatalf("failed to read session: %v", err)
	}

	if data.User.Username != "alice" {
		t.Fatalf("expected session user alice, got %q", data.User.Username)
	}
}

func TestPost_InvalidCredentials(t *testing.T) {
	db := newTestDB(t)
	app := newLoginApp(t, db)
	seedAccount(t, db, "alice", "secretpass")

	for name, body := range map[string]string{
		"wrong password": `{"username":"alice","password":"wrong"}`,
		"unknown user":   `{"username":"nobody","password":"secretpass"}`,
	} {
		resp := postLogin(t, app, body)

		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", name, resp.StatusCode)
		}

		payload, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if !strings.Contains(string(payload), ErrInvalidCredentials.Error()) {
			t.Errorf("%s: expected invalid credentials message, got %q", name, payload)
		}
	}
}

func TestPost_DisabledAccount(t *testing.T) {
	db := newTestDB(t)
	app := newLoginApp(t, db)

	_, err := user.Create(context.Background(), db, &models.User{
		Username: "bob",
		Password: models.HashPassword("secretpass"),
		Active:   false,
	})
	if err != nil {
		t.Fatalf("failed to seed account: %v", err)
	}

	resp := postLogin(t, app, `{"username":"bob","password":"secretpass"}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestPost_InvalidBody(t *testing.T) {
	db := newTestDB(t)
	app := newLoginApp(t, db)

	resp := postLogin(t, app, `{not json`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
