package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/flipper/app/config"
	"github.com/umputun/flipper/app/enums"
	"github.com/umputun/flipper/app/flipper"
	fmocks "github.com/umputun/flipper/app/flipper/mocks"
	"github.com/umputun/flipper/app/render"
	"github.com/umputun/flipper/app/rotation"
	"github.com/umputun/flipper/app/web/mocks"
)

var testNow = time.Date(2024, 1, 5, 15, 7, 0, 0, time.UTC)

func testConfig(display enums.DisplayMode) config.Config {
	return config.Config{
		Tasks: []rotation.Task{
			{Name: "Dishes", People: []string{"Alice", "Bob", "Charlie"}, Colors: []string{"#FF6B6B", "#4ECDC4", "#45B7D1"}},
			{Name: "Litter Box", People: []string{"Alice", "Bob"}},
			{Name: "Pairs", People: []string{"Anna", "Anne"}},
		},
		DefaultColor:   "#4CAF50",
		AnimationSpeed: 600,
		Display:        display,
	}
}

func newTestServer(t *testing.T, cfg config.Config) (*Server, *flipper.Service) {
	t.Helper()
	st := &fmocks.StoreMock{
		LoadFunc: func(context.Context) (rotation.States, error) { return rotation.States{}, nil },
		SaveFunc: func(context.Context, rotation.States) error { return nil },
	}
	svc := flipper.NewService(flipper.Params{Config: cfg, Store: st, QueueSize: 1000, Now: func() time.Time { return testNow }})
	srv, err := New(Config{Flipper: svc, Hostname: "kitchen", Version: "v1.0.0", Location: time.UTC})
	require.NoError(t, err)
	return srv, svc
}

func send(t *testing.T, h http.Handler, method, target, form string) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if form != "" {
		body = strings.NewReader(form)
	}
	req := httptest.NewRequest(method, target, body)
	if form != "" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestNew(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)

	srv, err := New(Config{Flipper: &mocks.FlipperMock{}})
	require.NoError(t, err)
	assert.Contains(t, srv.templates, "base.html")
	assert.Contains(t, srv.templates, "partials")
	assert.Equal(t, 3*time.Second, srv.pollInterval)
}

func TestServer_Dashboard(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(enums.DisplayModePlain))
	rr := send(t, srv.routes(), "GET", "/", "")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()

	assert.Contains(t, body, `data-theme="dark"`)
	assert.Contains(t, body, "kitchen")
	assert.Contains(t, body, `id="board-version" name="version" value="1"`)
	for _, name := range []string{"Dishes", "Litter Box", "Pairs"} {
		assert.Contains(t, body, `id="`+render.CardID(name)+`"`)
	}
	assert.Contains(t, body, `/api/tasks/Litter%20Box/flip`)
	assert.Contains(t, body, ">Alice</div>")
	assert.Contains(t, body, "background-color: #FF6B6B")
	assert.Contains(t, body, "0 0 12px #FF6B6B80")
	assert.NotContains(t, body, "hx-swap-oob")
}

func TestServer_DashboardNoTasks(t *testing.T) {
	srv, _ := newTestServer(t, config.Config{Display: enums.DisplayModePlain})
	rr := send(t, srv.routes(), "GET", "/", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), render.NoTasksPlaceholder)
}

func TestServer_FlipPatch(t *testing.T) {
	srv, svc := newTestServer(t, testConfig(enums.DisplayModePlain))
	h := srv.routes()
	require.Equal(t, http.StatusOK, send(t, h, "GET", "/", "").Code)

	rr := send(t, h, "POST", "/api/tasks/Dishes/flip", "version=1")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	t.Log(body)

	assert.Empty(t, rr.Header().Get("HX-Retarget"), "patch, not full render")
	dishes := render.CardID("Dishes")
	assert.Contains(t, body, `id="board-version" name="version" value="2" hx-swap-oob="true"`)
	assert.Contains(t, body, `id="`+dishes+`-person"`)
	assert.Contains(t, body, ">Bob</div>")
	assert.Contains(t, body, `id="`+dishes+`-accent"`)
	assert.Contains(t, body, "background-color: #4ECDC4")
	assert.Contains(t, body, "Last: Alice on Jan 5, 3:07 PM")
	assert.NotContains(t, body, render.CardID("Litter Box"), "other cards untouched")
	assert.NotContains(t, body, `class="card"`, "no full card render")

	assert.Equal(t, 1, svc.Snapshot().States["Dishes"].CurrentIndex)

	// next flip from the same client still patches
	rr = send(t, h, "POST", "/api/tasks/Dishes/flip", "version=2")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Header().Get("HX-Retarget"))
	assert.Contains(t, rr.Body.String(), ">Charlie</div>")
	assert.Contains(t, rr.Body.String(), "Last: Bob on Jan 5, 3:07 PM")
}

func TestServer_FlipStaleClient(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(enums.DisplayModePlain))
	h := srv.routes()
	require.Equal(t, http.StatusOK, send(t, h, "POST", "/api/tasks/Dishes/flip", "version=1").Code)

	tests := []struct {
		name string
		form string
	}{
		{"old version", "version=1"},
		{"no version", ""},
		{"bad version", "version=abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := send(t, h, "POST", "/api/tasks/Litter%20Box/flip", tt.form)
			require.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, "#board", rr.Header().Get("HX-Retarget"))
			assert.Equal(t, "outerHTML", rr.Header().Get("HX-Reswap"))
			body := rr.Body.String()
			assert.Contains(t, body, `id="board"`)
			assert.Contains(t, body, `id="`+render.CardID("Dishes")+`"`)
			assert.Contains(t, body, `id="`+render.CardID("Pairs")+`"`)
		})
	}
}

func TestServer_FlipUnknownTask(t *testing.T) {
	srv, svc := newTestServer(t, testConfig(enums.DisplayModePlain))
	rr := send(t, srv.routes(), "POST", "/api/tasks/Laundry/flip", "version=1")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, rr.Body.String())
	assert.Equal(t, int64(1), svc.Version())
}

func TestServer_FlipCells(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(enums.DisplayModeFlip))
	h := srv.routes()
	rr := send(t, h, "GET", "/", "")
	require.Equal(t, http.StatusOK, rr.Code)
	pairs := render.CardID("Pairs")
	assert.Contains(t, rr.Body.String(), `id="`+cellID(pairs, 0)+`">A</span>`)
	assert.Contains(t, rr.Body.String(), "--flip-speed: 600ms")

	rr = send(t, h, "POST", "/api/tasks/Pairs/flip", "version=1")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Empty(t, rr.Header().Get("HX-Retarget"))
	assert.Contains(t, body, `<span class="flap flipping" id="`+cellID(pairs, 3)+`" hx-swap-oob="outerHTML">e</span>`)
	for _, i := range []int{0, 1, 2} {
		assert.NotContains(t, body, cellID(pairs, i), "unchanged cell %d not sent", i)
	}
	assert.NotContains(t, body, pairs+"-person")
	assert.NotContains(t, body, pairs+"-flaps")
}

func TestServer_Board(t *testing.T) {
	srv, svc := newTestServer(t, testConfig(enums.DisplayModePlain))
	h := srv.routes()

	rr := send(t, h, "GET", "/api/board?version=1", "")
	assert.Equal(t, http.StatusNoContent, rr.Code, "client is current")

	_, ok := svc.Flip("Dishes")
	require.True(t, ok)
	rr = send(t, h, "GET", "/api/board?version=1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `value="2"`)
	assert.Contains(t, rr.Body.String(), ">Bob</div>")

	rr = send(t, h, "GET", "/api/board", "")
	assert.Equal(t, http.StatusOK, rr.Code, "no version gets full board")

	svc.UpdateConfig(config.Config{Display: enums.DisplayModePlain})
	rr = send(t, h, "GET", "/api/board?version=2", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), render.NoTasksPlaceholder)
}

func TestServer_APIStatus(t *testing.T) {
	srv, svc := newTestServer(t, testConfig(enums.DisplayModeFlip))
	_, ok := svc.Flip("Dishes")
	require.True(t, ok)

	rr := send(t, srv.routes(), "GET", "/api/v1/status", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var resp APIStatusResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, int64(2), resp.Version)
	assert.Equal(t, "flip", resp.Display)
	assert.True(t, resp.ShowLastFlip)
	require.Len(t, resp.Tasks, 3)
	assert.Equal(t, "Dishes", resp.Tasks[0].Name)
	assert.Equal(t, "Bob", resp.Tasks[0].Current)
	assert.Equal(t, 1, resp.Tasks[0].CurrentIndex)
	assert.Equal(t, "#4ECDC4", resp.Tasks[0].Color)
	require.NotNil(t, resp.Tasks[0].LastPerson)
	assert.Equal(t, "Alice", *resp.Tasks[0].LastPerson)
	assert.Equal(t, testNow, resp.Tasks[0].LastFlipTime.UTC())
	assert.Equal(t, "Litter Box", resp.Tasks[1].Name)
	assert.Equal(t, "#4CAF50", resp.Tasks[1].Color)
	assert.Nil(t, resp.Tasks[1].LastPerson)
	assert.Contains(t, rr.Body.String(), `"last_flip_time":null`)
}

func TestServer_ThemeToggle(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(enums.DisplayModePlain))
	h := srv.routes()

	rr := send(t, h, "POST", "/api/theme", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "true", rr.Header().Get("HX-Refresh"))
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "theme", cookies[0].Name)
	assert.Equal(t, "light", cookies[0].Value)

	req := httptest.NewRequest("POST", "/api/theme", http.NoBody)
	req.AddCookie(&http.Cookie{Name: "theme", Value: "light"})
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Len(t, rr.Result().Cookies(), 1)
	assert.Equal(t, "dark", rr.Result().Cookies()[0].Value)

	req = httptest.NewRequest("GET", "/", http.NoBody)
	req.AddCookie(&http.Cookie{Name: "theme", Value: "light"})
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Contains(t, rr.Body.String(), `data-theme="light"`)
}

func TestServer_BaseURL(t *testing.T) {
	svc := &mocks.FlipperMock{
		SnapshotFunc: func() flipper.Snapshot {
			cfg := testConfig(enums.DisplayModePlain)
			return flipper.Snapshot{Version: 1, Config: cfg, States: rotation.Initialize(cfg.Tasks, nil)}
		},
		VersionFunc: func() int64 { return 1 },
	}
	srv, err := New(Config{Flipper: svc, BaseURL: "/flipper/"})
	require.NoError(t, err)
	h := srv.handler()

	rr := send(t, h, "GET", "/flipper", "")
	assert.Equal(t, http.StatusMovedPermanently, rr.Code)
	assert.Equal(t, "/flipper/", rr.Header().Get("Location"))

	rr = send(t, h, "GET", "/flipper/", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `href="/flipper/static/flipper.css"`)
	assert.Contains(t, rr.Body.String(), `/flipper/api/tasks/Dishes/flip`)

	rr = send(t, h, "GET", "/flipper/api/board?version=1", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = send(t, h, "GET", "/flipper/static/flipper.css", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), ".flap")

	rr = send(t, h, "GET", "/flipper/ping", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "pong", rr.Body.String())
}

func TestServer_FlipLimit(t *testing.T) {
	svc := &mocks.FlipperMock{
		FlipFunc: func(string) (flipper.FlipResult, bool) { return flipper.FlipResult{}, false },
	}
	srv, err := New(Config{Flipper: svc, FlipLimit: 1})
	require.NoError(t, err)
	h := srv.routes()

	codes := map[int]int{}
	for range 5 {
		codes[send(t, h, "POST", "/api/tasks/Dishes/flip", "version=1").Code]++
	}
	assert.Positive(t, codes[http.StatusNoContent])
	assert.Positive(t, codes[http.StatusTooManyRequests])
	assert.Less(t, len(svc.FlipCalls()), 5)
}

func TestServer_ConcurrentFlips(t *testing.T) {
	srv, svc := newTestServer(t, testConfig(enums.DisplayModeFlip))
	h := srv.routes()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			form := url.Values{"version": {"1"}}.Encode()
			name := []string{"Dishes", "Litter%20Box", "Pairs"}[i%3]
			rr := send(t, h, "POST", "/api/tasks/"+name+"/flip", form)
			assert.Equal(t, http.StatusOK, rr.Code)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(21), svc.Version())

	// board view matches the service state
	rr := send(t, h, "GET", "/api/board", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `value="21"`)
	snap := svc.Snapshot()
	assert.Equal(t, 7%3, snap.States["Dishes"].CurrentIndex)
	assert.Equal(t, 7%2, snap.States["Litter Box"].CurrentIndex)
	assert.Equal(t, 6%2, snap.States["Pairs"].CurrentIndex)
}

func TestAlpha(t *testing.T) {
	tests := []struct {
		color, a, want string
	}{
		{"#4CAF50", "55", "#4CAF5055"},
		{"#abc", "1A", "#aabbcc1A"},
		{"red", "80", "red"},
		{"", "80", ""},
	}
	for _, tt := range tests {
		t.Run(tt.color, func(t *testing.T) {
			assert.Equal(t, tt.want, alpha(tt.color, tt.a))
		})
	}
}
