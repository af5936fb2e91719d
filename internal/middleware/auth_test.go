package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
)

func authApp(m *AuthMiddleware) *fiber.App {
	app := fiber.New()
	app.Get("/protected", m.Authenticate(), func(c *fiber.Ctx) error {
		return c.SendString(GetUserID(c))
	})
	return app
}

func TestAuthenticate_ValidToken(t *testing.T) {
	m := NewAuthMiddleware("test-secret")
	app := authApp(m)

	token, err := m.GenerateToken("user-1", "u@example.com", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestAuthenticate_MissingHeader(t *testing.T) {
	app := authApp(NewAuthMiddleware("test-secret"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/protected", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestAuthenticate_WrongSecret(t *testing.T) {
	other := NewAuthMiddleware("other-secret")
	token, err := other.GenerateToken("user-1", "", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	app := authApp(NewAuthMiddleware("test-secret"))
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestAuthenticate_ExpiredToken(t *testing.T) {
	m := NewAuthMiddleware("test-secret")
	token, err := m.GenerateToken("user-1", "", -time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	app := authApp(m)
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}
