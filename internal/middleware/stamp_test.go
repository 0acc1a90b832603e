package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SergeSyntax/mock-server/internal/auth"
	"github.com/SergeSyntax/mock-server/internal/models"
)

var fixedNow = time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

func echoApp(principal *models.User) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if principal != nil {
			auth.SetPrincipal(c, principal)
		}
		return c.Next()
	})
	app.Use(Stamp(func() time.Time { return fixedNow }))
	app.Use(OwnedBy(models.CollectionProjects))
	app.All("/*", func(c *fiber.Ctx) error {
		return c.Send(c.Body())
	})
	return app
}

func send(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func TestStampPost(t *testing.T) {
	status, body := send(t, echoApp(nil), http.MethodPost, "/tasks", `{"id":"client","title":"x"}`)
	require.Equal(t, fiber.StatusOK, status)

	assert.NotEqual(t, "client", body["id"])
	assert.Len(t, body["id"], 36)
	assert.Equal(t, "2024-03-01T12:30:00.000Z", body["createdAt"])
	assert.Equal(t, body["createdAt"], body["updatedAt"])
	assert.Equal(t, "x", body["title"])
}

func TestStampUpdates(t *testing.T) {
	for _, method := range []string{http.MethodPut, http.MethodPatch} {
		t.Run(method, func(t *testing.T) {
			status, body := send(t, echoApp(nil), method, "/tasks/1",
				`{"createdAt":"2020-01-01T00:00:00.000Z","updatedAt":"old"}`)
			require.Equal(t, fiber.StatusOK, status)
			assert.Equal(t, "2020-01-01T00:00:00.000Z", body["createdAt"])
			assert.Equal(t, "2024-03-01T12:30:00.000Z", body["updatedAt"])
			assert.NotContains(t, body, "id")
		})
	}
}

func TestStampEmptyBodyIsObject(t *testing.T) {
	status, body := send(t, echoApp(nil), http.MethodPost, "/comments", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, body, "id")
	assert.Contains(t, body, "createdAt")
}

func TestStampRejectsNonObject(t *testing.T) {
	for _, raw := range []string{`[1,2]`, `"text"`, `null`, `{broken`} {
		status, body := send(t, echoApp(nil), http.MethodPost, "/tasks", raw)
		assert.Equal(t, fiber.StatusBadRequest, status, raw)
		assert.Equal(t, true, body["error"])
	}
}

func TestStampLeavesReadsAlone(t *testing.T) {
	app := echoApp(nil)
	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Empty(t, raw)
}

func TestOwnedByForcesPrincipal(t *testing.T) {
	app := echoApp(&models.User{ID: "u1"})

	tests := []struct {
		method, path string
		owned        bool
	}{
		{http.MethodPost, "/projects", true},
		{http.MethodPut, "/projects/p1", true},
		{http.MethodPatch, "/projects/p1", true},
		{http.MethodPost, "/users/u1/projects", true},
		{http.MethodPost, "/tasks", false},
		{http.MethodPost, "/projects/p1/sections", false},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			status, body := send(t, app, tt.method, tt.path, `{"owner":"someone-else"}`)
			require.Equal(t, fiber.StatusOK, status)
			if tt.owned {
				assert.Equal(t, "u1", body["owner"])
			} else {
				assert.Equal(t, "someone-else", body["owner"])
			}
		})
	}
}

func TestOwnedByWithoutPrincipal(t *testing.T) {
	status, _ := send(t, echoApp(nil), http.MethodPost, "/projects", `{}`)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestTargetCollection(t *testing.T) {
	assert.Equal(t, "projects", TargetCollection("/projects"))
	assert.Equal(t, "projects", TargetCollection("/projects/1"))
	assert.Equal(t, "sections", TargetCollection("/projects/1/sections"))
	assert.Equal(t, "", TargetCollection("/"))
}
