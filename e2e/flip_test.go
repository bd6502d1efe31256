//go:build e2e

package e2e

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// waitPerson waits until the task card shows the expected person
func waitPerson(t *testing.T, page playwright.Page, task, want string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if personOf(t, page, task) == want {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	assert.Equal(t, want, personOf(t, page, task))
}

func TestFlip_AdvancesPerson(t *testing.T) {
	page := newPage(t)
	navigateToDashboard(t, page)

	before := personOf(t, page, "Litter Box")
	want := map[string]string{"Alice": "Bob", "Bob": "Alice"}[before]
	require.NotEmpty(t, want, "unexpected person %q", before)

	require.NoError(t, card(page, "Litter Box").Locator(".flip-btn").Click())
	waitPerson(t, page, "Litter Box", want)

	last, err := card(page, "Litter Box").Locator(".last-flip").TextContent()
	require.NoError(t, err)
	assert.Contains(t, last, "Last: "+before+" on ")
}

func TestFlip_KeepsOtherCards(t *testing.T) {
	page := newPage(t)
	navigateToDashboard(t, page)

	garbage := personOf(t, page, "Garbage")
	litter := personOf(t, page, "Litter Box")

	require.NoError(t, card(page, "Dishes").Locator(".flip-btn").Click())
	time.Sleep(500 * time.Millisecond)

	assert.Equal(t, garbage, personOf(t, page, "Garbage"))
	assert.Equal(t, litter, personOf(t, page, "Litter Box"))
}

func TestFlip_SinglePersonStaysSame(t *testing.T) {
	page := newPage(t)
	navigateToDashboard(t, page)

	require.NoError(t, card(page, "Garbage").Locator(".flip-btn").Click())
	time.Sleep(500 * time.Millisecond)
	assert.Equal(t, "Charlie", personOf(t, page, "Garbage"))

	last, err := card(page, "Garbage").Locator(".last-flip").TextContent()
	require.NoError(t, err)
	assert.Contains(t, last, "Last: Charlie on ")
}

func TestFlip_OtherClientCatchesUp(t *testing.T) {
	first := newPage(t)
	navigateToDashboard(t, first)
	second := newPage(t)
	navigateToDashboard(t, second)

	before := personOf(t, second, "Litter Box")
	require.NoError(t, card(first, "Litter Box").Locator(".flip-btn").Click())
	want := map[string]string{"Alice": "Bob", "Bob": "Alice"}[before]
	waitPerson(t, second, "Litter Box", want) // picked up by board polling
}

func TestFlip_Persisted(t *testing.T) {
	page := newPage(t)
	navigateToDashboard(t, page)

	require.NoError(t, card(page, "Dishes").Locator(".flip-btn").Click())
	current := ""
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		data, err := os.ReadFile(testStatesPath)
		if err == nil {
			var states map[string]struct {
				CurrentIndex int      `json:"currentIndex"`
				People       []string `json:"people"`
			}
			require.NoError(t, json.Unmarshal(data, &states))
			if st, ok := states["Dishes"]; ok && st.CurrentIndex < len(st.People) {
				current = st.People[st.CurrentIndex]
				if current == personOf(t, page, "Dishes") {
					break
				}
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	assert.Equal(t, personOf(t, page, "Dishes"), current, "saved state matches the dashboard")

	// reload shows the same state
	_, err := page.Reload()
	require.NoError(t, err)
	waitVisible(t, page.Locator("#board"))
	assert.Equal(t, current, personOf(t, page, "Dishes"))
}
