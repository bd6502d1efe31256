// Package web implements the dashboard server. The board is rendered once and kept in memory,
// a flip patches only the affected card and sends the changed fragments as HTMX out-of-band swaps.
package web

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/didip/tollbooth/v8"
	"github.com/didip/tollbooth/v8/limiter"
	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"

	"github.com/umputun/flipper/app/enums"
	"github.com/umputun/flipper/app/flipper"
	"github.com/umputun/flipper/app/render"
)

//go:generate moq -out mocks/flipper.go -pkg mocks -skip-ensure -fmt goimports . Flipper

//go:embed templates/*.html templates/partials/*.html
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Flipper is the board state provider
type Flipper interface {
	Flip(name string) (flipper.FlipResult, bool)
	Snapshot() flipper.Snapshot
	Version() int64
}

// Config holds server configuration
type Config struct {
	Flipper      Flipper
	BaseURL      string         // base URL path for reverse proxy (e.g., /flipper), empty for root
	Hostname     string         // hostname to display in UI
	Version      string         // application version
	FlipLimit    float64        // max flips per second per client, 0 disables the limit
	PollInterval time.Duration  // how often dashboards check for board changes
	Location     *time.Location // time zone for last flip dates, local if nil
}

// Server represents the web server
type Server struct {
	flipper        Flipper
	templates      map[string]*template.Template
	baseURL        string
	hostname       string
	version        string
	flipLimit      float64
	pollInterval   time.Duration
	location       *time.Location
	csrfProtection *http.CrossOriginProtection

	boardMu   sync.Mutex
	board     *render.Board  // last rendered board, patched in place by flips
	boardOpts render.Options // options used for the board
}

// TemplateData holds data for the page template
type TemplateData struct {
	Board       boardView
	Theme       enums.Theme
	BaseURL     string
	Hostname    string
	Version     string
	CurrentYear int
}

// boardView is a copy of the board safe to render without lock
type boardView struct {
	Version     int64
	Placeholder string
	Flip        bool
	AnimationMS int64
	PollSeconds int
	Cards       []cardView
}

type cardView struct {
	render.Card
	Flip bool
	OOB  bool // render as out-of-band fragment
}

type cellView struct {
	ID   string
	Char string
	OOB  bool
}

// patchView lists fragments changed by a flip
type patchView struct {
	Version  int64
	Card     cardView
	Accent   bool
	Person   bool
	Flaps    bool
	Cells    []cellView
	LastFlip bool
}

// New creates a new web server
func New(cfg Config) (*Server, error) {
	if cfg.Flipper == nil {
		return nil, fmt.Errorf("web server initialization failed: flipper is required")
	}
	s := &Server{
		flipper:        cfg.Flipper,
		baseURL:        strings.TrimSuffix(cfg.BaseURL, "/"),
		hostname:       cfg.Hostname,
		version:        cfg.Version,
		flipLimit:      cfg.FlipLimit,
		pollInterval:   cfg.PollInterval,
		location:       cfg.Location,
		csrfProtection: http.NewCrossOriginProtection(),
	}
	if s.pollInterval <= 0 {
		s.pollInterval = 3 * time.Second
	}
	if s.location == nil {
		s.location = time.Local
	}

	templates, err := s.parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("web server initialization failed: failed to parse HTML templates: %w", err)
	}
	s.templates = templates
	return s, nil
}

// Run starts the web server, blocks till ctx canceled
func (s *Server) Run(ctx context.Context, address string) error {
	server := &http.Server{
		Addr:              address,
		Handler:           s.handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] failed to shutdown server: %v", err)
		}
	}()

	log.Printf("[INFO] starting web server on %s", address)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("web server failed: %w", err)
	}
	return nil
}

// handler returns the http.Handler with base URL wrapping applied
func (s *Server) handler() http.Handler {
	routes := s.routes()
	if s.baseURL == "" {
		return routes
	}

	mux := http.NewServeMux()
	// base URL without trailing slash redirected to the one with slash
	mux.HandleFunc(s.baseURL, func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, s.baseURL+"/", http.StatusMovedPermanently)
	})
	mux.Handle(s.baseURL+"/", http.StripPrefix(s.baseURL, routes))
	return mux
}

// routes returns the http.Handler with all routes configured
func (s *Server) routes() http.Handler {
	router := routegroup.New(http.NewServeMux())

	router.Use(
		rest.RealIP,
		rest.Recoverer(log.Default()),
		rest.Throttle(1000),
		rest.AppInfo("flipper", "umputun", s.version),
		rest.Ping,
		rest.SizeLimit(64*1024),
		logger.New(logger.Log(log.Default()), logger.Prefix("[DEBUG]")).Handler,
	)

	router.HandleFunc("GET /", s.handleDashboard)

	// HTMX endpoints
	router.Mount("/api").Route(func(api *routegroup.Bundle) {
		api.Use(rest.NoCache)
		api.Use(s.csrfProtection.Handler)

		api.HandleFunc("GET /board", s.handleBoard)
		api.HandleFunc("POST /theme", s.handleThemeToggle)
		if s.flipLimit > 0 {
			api.With(tollbooth.HTTPMiddleware(s.flipLimiter())).HandleFunc("POST /tasks/{name}/flip", s.handleFlip)
		} else {
			api.HandleFunc("POST /tasks/{name}/flip", s.handleFlip)
		}
	})

	// JSON API for programmatic access
	router.Mount("/api/v1").Route(func(api *routegroup.Bundle) {
		api.Use(rest.NoCache)
		api.HandleFunc("GET /status", s.handleAPIStatus)
	})

	fsys, err := fs.Sub(staticFS, "static")
	if err != nil {
		log.Printf("[ERROR] failed to create static file system: %v", err)
		router.Handle("GET /static/", http.FileServer(http.FS(staticFS)))
	} else {
		router.HandleFiles("/static/", http.FS(fsys))
	}

	return router
}

// flipLimiter makes per-client rate limiter for flips, rest.RealIP sets RemoteAddr to the client's ip
func (s *Server) flipLimiter() *limiter.Limiter {
	lmt := tollbooth.NewLimiter(s.flipLimit, nil)
	lmt.SetIPLookup(limiter.IPLookup{Name: "RemoteAddr"})
	lmt.SetMessage("too many flips, slow down")
	return lmt
}

// render renders a template into a buffer and writes it with the given status
func (s *Server) render(w http.ResponseWriter, page, tmplName string, data any) {
	tmpl, ok := s.templates[page]
	if !ok {
		log.Printf("[WARN] template %s not found", page)
		http.Error(w, "Template not found", http.StatusInternalServerError)
		return
	}

	buf := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(buf, tmplName, data); err != nil {
		log.Printf("[WARN] failed to execute template: %v", err)
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		log.Printf("[WARN] failed to write response: %v", err)
	}
}

// parseTemplates parses page and partials
func (s *Server) parseTemplates() (map[string]*template.Template, error) {
	templates := make(map[string]*template.Template)

	funcMap := template.FuncMap{
		"url":        s.url,
		"pathEscape": url.PathEscape,
		"cellID":     cellID,
		"alpha":      alpha,
	}

	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templatesFS,
		"templates/base.html", "templates/partials/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse base template: %w", err)
	}
	templates["base.html"] = base

	partials, err := template.New("board.html").Funcs(funcMap).ParseFS(templatesFS, "templates/partials/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse partials: %w", err)
	}
	templates["partials"] = partials

	return templates, nil
}

// currentBoard returns cached board if it matches snapshot version, rebuilds it otherwise.
// Must be called with boardMu locked.
func (s *Server) currentBoard(snap flipper.Snapshot) *render.Board {
	if s.board != nil && s.board.Version == snap.Version {
		return s.board
	}
	opts := render.Options{
		DefaultColor:   snap.Config.DefaultColor,
		ShowLastFlip:   snap.Config.LastFlipVisible(),
		AnimationSpeed: snap.Config.Animation(),
		Location:       s.location,
	}
	b := render.BuildBoard(render.NewRenderer(snap.Config.Display), snap.Config.Tasks, snap.States, opts)
	b.Version = snap.Version
	s.board, s.boardOpts = b, opts
	return b
}

// patchBoard applies flip to the cached board if the client holds the board version right before
// the flip. Returns false if the client needs the full board. Must be called with boardMu locked.
func (s *Server) patchBoard(res flipper.FlipResult, clientVersion int64) (patchView, bool) {
	b := s.board
	if b == nil || b.Version != clientVersion || res.Version != clientVersion+1 || b.Renderer() == nil {
		return patchView{}, false
	}
	oldWidth := -1
	if card, ok := b.Locate(res.Task.Name); ok {
		oldWidth = len(card.Cells)
	}
	pr := b.Patch(res.Task, res.State, s.boardOpts)
	if pr.Card == nil {
		return patchView{}, false
	}
	b.Version = res.Version
	if !pr.Patched {
		// card added to the cached board, client doesn't have it
		return patchView{}, false
	}

	flip := b.Renderer().Mode() == enums.DisplayModeFlip
	card := cardView{Card: *pr.Card, Flip: flip, OOB: true}
	pv := patchView{Version: res.Version, Card: card, Accent: pr.Person, LastFlip: pr.LastFlip}
	switch {
	case !flip:
		pv.Person = pr.Person
	case oldWidth != len(pr.Card.Cells):
		pv.Flaps = true
	default:
		for _, i := range pr.ChangedCells {
			pv.Cells = append(pv.Cells, cellView{ID: cellID(card.ID, i), Char: pr.Card.Cells[i], OOB: true})
		}
	}
	return pv, true
}

// viewOf copies board to a view. Must be called with boardMu locked.
func (s *Server) viewOf(b *render.Board) boardView {
	res := boardView{
		Version:     b.Version,
		Placeholder: b.Placeholder,
		AnimationMS: s.boardOpts.AnimationSpeed.Milliseconds(),
		PollSeconds: int(s.pollInterval.Seconds()),
	}
	if res.PollSeconds < 1 {
		res.PollSeconds = 1
	}
	res.Flip = b.Renderer() != nil && b.Renderer().Mode() == enums.DisplayModeFlip
	for _, c := range b.Cards() {
		card := *c
		card.Cells = append([]string(nil), c.Cells...)
		res.Cards = append(res.Cards, cardView{Card: card, Flip: res.Flip})
	}
	return res
}

// boardSnapshot returns view of the current board
func (s *Server) boardSnapshot() boardView {
	snap := s.flipper.Snapshot()
	s.boardMu.Lock()
	defer s.boardMu.Unlock()
	return s.viewOf(s.currentBoard(snap))
}

func (s *Server) getTheme(r *http.Request) enums.Theme {
	cookie, err := r.Cookie("theme")
	if err != nil {
		return enums.ThemeDark // default to dark when no cookie
	}
	theme, err := enums.ParseTheme(cookie.Value)
	if err != nil {
		log.Printf("[WARN] invalid theme %q: %v", cookie.Value, err)
		return enums.ThemeDark
	}
	return theme
}

// url prepends the base URL to a path for reverse proxy support
func (s *Server) url(path string) string {
	return s.baseURL + path
}

// cookiePath returns the cookie path with base URL support
func (s *Server) cookiePath() string {
	if s.baseURL == "" {
		return "/"
	}
	return s.baseURL + "/"
}

func cellID(cardID string, idx int) string {
	return fmt.Sprintf("%s-cell-%d", cardID, idx)
}

// alpha adds alpha channel to #RGB or #RRGGBB color, other values returned as is
func alpha(color, a string) string {
	c := strings.TrimPrefix(color, "#")
	switch len(c) {
	case 3:
		c = string([]byte{c[0], c[0], c[1], c[1], c[2], c[2]})
	case 6:
	default:
		return color
	}
	return "#" + c + a
}
