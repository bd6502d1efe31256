// Package render turns task states into display cards and keeps them up to date.
// Cards are toolkit-agnostic: the web layer renders them to HTML, and a Board tracks
// the rendered cards so a single card can be patched in place after a flip.
package render

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/umputun/flipper/app/rotation"
)

// DefaultColor used when neither the task nor the config defines one
const DefaultColor = "#4CAF50"

var months = [...]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// ResolveColor returns the task color for the person at index, or defaultColor if not set
func ResolveColor(task rotation.Task, index int, defaultColor string) string {
	if index >= 0 && index < len(task.Colors) && task.Colors[index] != "" {
		return task.Colors[index]
	}
	if defaultColor == "" {
		return DefaultColor
	}
	return defaultColor
}

// FormatDate formats t as "Jan 5, 3:07 PM" in t's own location
func FormatDate(t time.Time) string {
	hours := t.Hour()
	ampm := "AM"
	if hours >= 12 {
		ampm = "PM"
	}
	hours %= 12
	if hours == 0 {
		hours = 12
	}
	return fmt.Sprintf("%s %d, %d:%02d %s", months[t.Month()-1], t.Day(), hours, t.Minute(), ampm)
}

// PadName centers name with spaces to the length of the longest name in people,
// so the flip display keeps the same width for every assignee.
func PadName(name string, people []string) string {
	longest := utf8.RuneCountInString(name)
	for _, p := range people {
		if l := utf8.RuneCountInString(p); l > longest {
			longest = l
		}
	}
	extra := longest - utf8.RuneCountInString(name)
	left := extra / 2
	return strings.Repeat(" ", left) + name + strings.Repeat(" ", extra-left)
}

// CardID makes a stable, markup-safe element id for the task name
func CardID(name string) string {
	h := sha256.Sum256([]byte(name))
	return "task-" + hex.EncodeToString(h[:6])
}
