package render

import (
	"time"

	"github.com/umputun/flipper/app/enums"
	"github.com/umputun/flipper/app/rotation"
)

// Options are display settings shared by all cards
type Options struct {
	DefaultColor   string
	ShowLastFlip   bool
	AnimationSpeed time.Duration
	Location       *time.Location // for last flip formatting, local time if nil
}

// Card is a rendered task. Key is the task name and never changes, Person, Color,
// Cells and LastFlip are the mutable parts updated by a patch.
type Card struct {
	Key      string
	ID       string
	Title    string
	Person   string
	Color    string
	Cells    []string // flip mode only, one entry per character of the padded name
	LastFlip string   // "Last: Bob on Jan 5, 3:07 PM", empty if hidden or never flipped
}

// Renderer builds a card for a task
type Renderer interface {
	Render(task rotation.Task, state *rotation.TaskState, opts Options) *Card
	Mode() enums.DisplayMode
}

// NewRenderer returns the renderer for display mode, nil for an unknown mode
func NewRenderer(mode enums.DisplayMode) Renderer {
	switch mode {
	case enums.DisplayModePlain:
		return PlainRenderer{}
	case enums.DisplayModeFlip:
		return FlipRenderer{}
	default:
		return nil
	}
}

// PlainRenderer shows the current person as plain text
type PlainRenderer struct{}

// Render makes a text card
func (PlainRenderer) Render(task rotation.Task, state *rotation.TaskState, opts Options) *Card {
	return baseCard(task, state, opts)
}

// Mode returns plain display mode
func (PlainRenderer) Mode() enums.DisplayMode { return enums.DisplayModePlain }

// FlipRenderer shows the current person on split-flap character cells
type FlipRenderer struct{}

// Render makes a card with one cell per character of the centered name
func (FlipRenderer) Render(task rotation.Task, state *rotation.TaskState, opts Options) *Card {
	card := baseCard(task, state, opts)
	card.Cells = cells(PadName(card.Person, state.People))
	return card
}

// Mode returns flip display mode
func (FlipRenderer) Mode() enums.DisplayMode { return enums.DisplayModeFlip }

func baseCard(task rotation.Task, state *rotation.TaskState, opts Options) *Card {
	card := &Card{
		Key:    task.Name,
		ID:     CardID(task.Name),
		Title:  task.Name,
		Person: state.Current(),
		Color:  ResolveColor(task, state.CurrentIndex, opts.DefaultColor),
	}
	if opts.ShowLastFlip && state.Flipped() {
		loc := opts.Location
		if loc == nil {
			loc = time.Local
		}
		card.LastFlip = "Last: " + *state.LastPerson + " on " + FormatDate(state.LastFlipTime.In(loc))
	}
	return card
}

func cells(s string) []string {
	res := make([]string, 0, len(s))
	for _, r := range s {
		res = append(res, string(r))
	}
	return res
}
