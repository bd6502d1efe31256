package web

import (
	"net/http"
	"strconv"
	"time"

	log "github.com/go-pkgz/lgr"

	"github.com/umputun/flipper/app/enums"
)

// handleDashboard renders the main page with the board
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	data := TemplateData{
		Board:       s.boardSnapshot(),
		Theme:       s.getTheme(r),
		BaseURL:     s.baseURL,
		Hostname:    s.hostname,
		Version:     s.version,
		CurrentYear: time.Now().Year(),
	}
	s.render(w, "base.html", "base", data)
}

// handleBoard returns the full board if it changed since the version the client has,
// 204 otherwise. Dashboards poll it to pick up loaded states, config updates and flips
// made by other clients.
func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	if v, err := strconv.ParseInt(r.URL.Query().Get("version"), 10, 64); err == nil && v == s.flipper.Version() {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.render(w, "partials", "board", s.boardSnapshot())
}

// handleFlip advances the task. Responds with out-of-band fragments of the changed card if
// the client's board is current, with the full board otherwise.
func (s *Server) handleFlip(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		http.Error(w, "Task name required", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}
	clientVersion, err := strconv.ParseInt(r.FormValue("version"), 10, 64)
	if err != nil {
		clientVersion = -1 // unknown version, full board
	}

	res, ok := s.flipper.Flip(name)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	s.boardMu.Lock()
	pv, patched := s.patchBoard(res, clientVersion)
	s.boardMu.Unlock()
	if patched {
		s.render(w, "partials", "patch", pv)
		return
	}

	log.Printf("[DEBUG] full board render for flip of %q, client version %d, flip version %d", name, clientVersion, res.Version)
	w.Header().Set("HX-Retarget", "#board")
	w.Header().Set("HX-Reswap", "outerHTML")
	s.render(w, "partials", "board", s.boardSnapshot())
}

// handleThemeToggle toggles the theme
func (s *Server) handleThemeToggle(w http.ResponseWriter, r *http.Request) {
	nextTheme := enums.ThemeLight
	if s.getTheme(r) == enums.ThemeLight {
		nextTheme = enums.ThemeDark
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "theme",
		Value:    nextTheme.String(),
		Path:     s.cookiePath(),
		MaxAge:   365 * 24 * 60 * 60, // 1 year
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	// trigger full page refresh for theme change
	w.Header().Set("HX-Refresh", "true")
	w.WriteHeader(http.StatusOK)
}
