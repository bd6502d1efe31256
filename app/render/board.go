package render

import (
	"github.com/umputun/flipper/app/rotation"
)

// Placeholder texts shown instead of cards
const (
	NoTasksPlaceholder = "No tasks configured."
	LoadingPlaceholder = "Loading..."
)

// Board is the root container of rendered cards, in task order
type Board struct {
	Version     int64
	Placeholder string
	renderer    Renderer
	cards       []*Card
	index       map[string]int // task name -> position in cards
}

// PatchResult describes what Patch did to the board
type PatchResult struct {
	Card         *Card
	Patched      bool  // true if the existing card was updated in place
	Person       bool  // person text or color changed
	ChangedCells []int // flip cells with new content
	LastFlip     bool  // last flip line changed
}

// BuildBoard renders all tasks. Tasks without state are skipped. A nil renderer makes a
// loading placeholder, an empty task list makes a "no tasks" placeholder.
func BuildBoard(r Renderer, tasks []rotation.Task, states rotation.States, opts Options) *Board {
	b := &Board{renderer: r, index: map[string]int{}}
	if len(tasks) == 0 {
		b.Placeholder = NoTasksPlaceholder
		return b
	}
	if r == nil {
		b.Placeholder = LoadingPlaceholder
		return b
	}
	for _, task := range tasks {
		st, ok := states[task.Name]
		if !ok || !st.Valid() {
			continue
		}
		b.index[task.Name] = len(b.cards)
		b.cards = append(b.cards, r.Render(task, st, opts))
	}
	return b
}

// Cards returns rendered cards in task order
func (b *Board) Cards() []*Card {
	return b.cards
}

// Renderer returns the renderer used by the board, nil for a placeholder board
func (b *Board) Renderer() Renderer {
	return b.renderer
}

// Locate finds the card rendered for the task
func (b *Board) Locate(key string) (*Card, bool) {
	idx, ok := b.index[key]
	if !ok {
		return nil, false
	}
	return b.cards[idx], true
}

// Replace puts card in place of the one with the same key, or appends it
func (b *Board) Replace(card *Card) {
	if idx, ok := b.index[card.Key]; ok {
		b.cards[idx] = card
		return
	}
	b.index[card.Key] = len(b.cards)
	b.cards = append(b.cards, card)
	b.Placeholder = ""
}

// PatchInPlace copies the mutable parts of src into card and reports the changes.
// Key, ID and Title are left alone.
func PatchInPlace(card, src *Card) PatchResult {
	res := PatchResult{Card: card, Patched: true}
	if card.Person != src.Person || card.Color != src.Color {
		res.Person = true
		card.Person, card.Color = src.Person, src.Color
	}
	if len(card.Cells) != len(src.Cells) {
		res.ChangedCells = make([]int, len(src.Cells))
		for i := range src.Cells {
			res.ChangedCells[i] = i
		}
	} else {
		for i := range src.Cells {
			if card.Cells[i] != src.Cells[i] {
				res.ChangedCells = append(res.ChangedCells, i)
			}
		}
	}
	card.Cells = src.Cells
	if card.LastFlip != src.LastFlip {
		res.LastFlip = true
		card.LastFlip = src.LastFlip
	}
	return res
}

// Patch updates the card of a single task. If the card is on the board only its mutable
// parts change, otherwise the card is fully rendered and added to the board.
func (b *Board) Patch(task rotation.Task, state *rotation.TaskState, opts Options) PatchResult {
	if b.renderer == nil || !state.Valid() {
		return PatchResult{}
	}
	fresh := b.renderer.Render(task, state, opts)
	card, ok := b.Locate(task.Name)
	if !ok {
		b.Replace(fresh)
		return PatchResult{Card: fresh, Person: true, LastFlip: true}
	}
	return PatchInPlace(card, fresh)
}
