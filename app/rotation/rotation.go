// Package rotation keeps per-task round-robin state: who is up now for every chore,
// and who did it last. It merges configured tasks with previously persisted state
// and advances the rotation pointer on flips.
package rotation

import (
	"time"
)

// Task is a named chore with an ordered list of people and optional per-person colors
type Task struct {
	Name   string   `yaml:"name" json:"name" jsonschema:"required,minLength=1,description=unique task name"`
	People []string `yaml:"people" json:"people" jsonschema:"required,minItems=1,description=people in rotation order"`
	Colors []string `yaml:"colors,omitempty" json:"colors,omitempty" jsonschema:"description=optional color per person parallel to people"`
}

// TaskState is the rotation state of a single task. People is a snapshot taken when the
// state was created and is not re-synced with the task config afterwards.
type TaskState struct {
	CurrentIndex int        `json:"currentIndex"`
	LastPerson   *string    `json:"lastPerson"`
	LastFlipTime *time.Time `json:"lastFlipTime"`
	People       []string   `json:"people"`
}

// States maps task name to its state
type States map[string]*TaskState

// NewState makes a fresh state for the task: first person is up, no flips recorded
func NewState(task Task) *TaskState {
	people := make([]string, len(task.People))
	copy(people, task.People)
	return &TaskState{People: people}
}

// Initialize builds the live mapping for tasks. Existing entries are reused as-is,
// tasks without an entry get a fresh state, entries for tasks not in the list are dropped.
func Initialize(tasks []Task, existing States) States {
	res := make(States, len(tasks))
	for _, task := range tasks {
		if st, ok := existing[task.Name]; ok && st != nil {
			res[task.Name] = st
			continue
		}
		res[task.Name] = NewState(task)
	}
	return res
}

// Advance flips the task to the next person. Returns false if the task is unknown,
// which is not an error: stale UI events may reference removed tasks.
func Advance(states States, name string, now time.Time) (*TaskState, bool) {
	st, ok := states[name]
	if !ok || !st.Valid() {
		return nil, false
	}
	last := st.People[st.CurrentIndex]
	st.LastPerson = &last
	st.LastFlipTime = &now
	st.CurrentIndex = (st.CurrentIndex + 1) % len(st.People)
	return st, true
}

// Current returns the person currently up
func (s *TaskState) Current() string {
	if s == nil || s.CurrentIndex < 0 || s.CurrentIndex >= len(s.People) {
		return ""
	}
	return s.People[s.CurrentIndex]
}

// Flipped reports if the task was flipped at least once
func (s *TaskState) Flipped() bool {
	return s != nil && s.LastPerson != nil && s.LastFlipTime != nil
}

// Valid checks state invariants: non-empty people, index in range,
// last person and last flip time either both set or both empty.
func (s *TaskState) Valid() bool {
	if s == nil || len(s.People) == 0 {
		return false
	}
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.People) {
		return false
	}
	return (s.LastPerson == nil) == (s.LastFlipTime == nil)
}

// Clone makes a deep copy of the state
func (s *TaskState) Clone() *TaskState {
	if s == nil {
		return nil
	}
	res := &TaskState{CurrentIndex: s.CurrentIndex, People: make([]string, len(s.People))}
	copy(res.People, s.People)
	if s.LastPerson != nil {
		lp := *s.LastPerson
		res.LastPerson = &lp
	}
	if s.LastFlipTime != nil {
		lt := *s.LastFlipTime
		res.LastFlipTime = &lt
	}
	return res
}

// Clone makes a deep copy of all states, safe to hand over to another goroutine
func (s States) Clone() States {
	res := make(States, len(s))
	for name, st := range s {
		res[name] = st.Clone()
	}
	return res
}
