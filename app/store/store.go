// Package store provides persistence backends for task states. All of them replace the
// saved mapping as a whole on every save. Backends are a JSON file (default, same format
// as the legacy task_states.json), SQLite and Redis.
package store

import (
	"encoding/json"
	"fmt"

	log "github.com/go-pkgz/lgr"

	"github.com/umputun/flipper/app/rotation"
)

// decode parses JSON blob of states and drops entries breaking state invariants
func decode(data []byte) (rotation.States, error) {
	states := rotation.States{}
	if err := json.Unmarshal(data, &states); err != nil {
		return rotation.States{}, fmt.Errorf("can't unmarshal states: %w", err)
	}
	return sanitize(states), nil
}

func encode(states rotation.States) ([]byte, error) {
	if states == nil {
		states = rotation.States{}
	}
	data, err := json.MarshalIndent(states, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("can't marshal states: %w", err)
	}
	return data, nil
}

func sanitize(states rotation.States) rotation.States {
	for name, st := range states {
		if !st.Valid() {
			log.Printf("[WARN] invalid saved state for %q dropped, %+v", name, st)
			delete(states, name)
		}
	}
	return states
}
