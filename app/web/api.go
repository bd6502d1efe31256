package web

import (
	"encoding/json"
	"net/http"
	"time"

	log "github.com/go-pkgz/lgr"

	"github.com/umputun/flipper/app/render"
)

// APIStatusResponse is the JSON response for /api/v1/status
type APIStatusResponse struct {
	Version      int64     `json:"version"`
	Display      string    `json:"display"`
	ShowLastFlip bool      `json:"show_last_flip"`
	Tasks        []APITask `json:"tasks"`
	Timestamp    time.Time `json:"timestamp"`
}

// APITask represents a task with its rotation state
type APITask struct {
	Name         string     `json:"name"`
	People       []string   `json:"people"`
	Colors       []string   `json:"colors,omitempty"`
	Current      string     `json:"current"`
	CurrentIndex int        `json:"current_index"`
	Color        string     `json:"color"`
	LastPerson   *string    `json:"last_person"`
	LastFlipTime *time.Time `json:"last_flip_time"`
}

// handleAPIStatus returns all tasks with states, in config order
func (s *Server) handleAPIStatus(w http.ResponseWriter, _ *http.Request) {
	snap := s.flipper.Snapshot()
	resp := APIStatusResponse{
		Version:      snap.Version,
		Display:      snap.Config.Display.String(),
		ShowLastFlip: snap.Config.LastFlipVisible(),
		Tasks:        make([]APITask, 0, len(snap.Config.Tasks)),
		Timestamp:    time.Now(),
	}
	for _, task := range snap.Config.Tasks {
		st, ok := snap.States[task.Name]
		if !ok || !st.Valid() {
			continue
		}
		resp.Tasks = append(resp.Tasks, APITask{
			Name:         task.Name,
			People:       st.People,
			Colors:       task.Colors,
			Current:      st.Current(),
			CurrentIndex: st.CurrentIndex,
			Color:        render.ResolveColor(task, st.CurrentIndex, snap.Config.DefaultColor),
			LastPerson:   st.LastPerson,
			LastFlipTime: st.LastFlipTime,
		})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[WARN] failed to encode JSON response: %v", err)
	}
}
