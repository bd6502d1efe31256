//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- theme tests ---

func TestTheme_DefaultIsDark(t *testing.T) {
	page := newPage(t)
	navigateToDashboard(t, page)

	theme, err := page.Locator("html").GetAttribute("data-theme")
	require.NoError(t, err)
	assert.Equal(t, "dark", theme)
}

func TestTheme_Toggle(t *testing.T) {
	page := newPage(t)
	navigateToDashboard(t, page)

	require.NoError(t, page.Locator(".theme-toggle").Click())
	require.NoError(t, page.WaitForLoadState())
	waitVisible(t, page.Locator("#board"))

	deadline := time.Now().Add(5 * time.Second)
	theme := ""
	for time.Now().Before(deadline) {
		var err error
		theme, err = page.Locator("html").GetAttribute("data-theme")
		require.NoError(t, err)
		if theme == "light" {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	assert.Equal(t, "light", theme)
}

// --- api tests ---

func TestAPI_Status(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/v1/status", http.NoBody)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var status struct {
		Version int64 `json:"version"`
		Tasks   []struct {
			Name   string   `json:"name"`
			People []string `json:"people"`
		} `json:"tasks"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Positive(t, status.Version)
	require.Len(t, status.Tasks, 3)
	assert.Equal(t, "Dishes", status.Tasks[0].Name)
	assert.Equal(t, []string{"Alice", "Bob", "Charlie"}, status.Tasks[0].People)
}

func TestBoard_NotModified(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	get := func(url string) *http.Response {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		return resp
	}

	resp := get(baseURL + "/api/v1/status")
	var status struct {
		Version int64 `json:"version"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	resp.Body.Close()

	resp = get(fmt.Sprintf("%s/api/board?version=%d", baseURL, status.Version))
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode, "current version gets nothing")

	resp = get(baseURL + "/api/board?version=0")
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode, "stale version gets the board")
}
