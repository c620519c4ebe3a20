package channel

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatTelegramSources(t *testing.T) {
	out := Format("Hello world", []string{"doc.md"}, Telegram, false)
	assert.Contains(t, out, "📄 Sources:")
	assert.Contains(t, out, "doc.md")
}

func TestFormatTeamsSources(t *testing.T) {
	out := Format("Hello world", []string{"doc.md"}, Teams, false)
	assert.Contains(t, out, "**Sources:**")
	assert.Contains(t, out, "---")
}

func TestFormatAPISources(t *testing.T) {
	out := Format("Answer here", []string{"a.md", "b.txt"}, API, false)
	assert.Contains(t, out, "Sources:")
	assert.Contains(t, out, "a.md")
	assert.Contains(t, out, "b.txt")
}

func TestFormatWebSources(t *testing.T) {
	out := Format("Answer here", []string{"a.md", "b.txt"}, Web, false)
	assert.Contains(t, out, "**Sources:**")
	assert.Contains(t, out, "- a.md")
	assert.Contains(t, out, "- b.txt")
}

func TestFormatFallbackNoSuffix(t *testing.T) {
	out := Format("No info found.", nil, Teams, true)
	assert.Equal(t, "No info found.", out)
}

func TestFormatNoSourcesNoSuffix(t *testing.T) {
	out := Format("Answer from history.", nil, API, false)
	assert.Equal(t, "Answer from history.", out)
}

func TestFormatTelegramFallbackStillLimited(t *testing.T) {
	out := Format(strings.Repeat("A", 5000), nil, Telegram, true)
	assert.LessOrEqual(t, len(out), 4096)
}

func TestTelegramLimitShortUnchanged(t *testing.T) {
	assert.Equal(t, "Short text", enforceTelegramLimit("Short text"))
}

func TestTelegramLimitExactUnchanged(t *testing.T) {
	text := strings.Repeat("A", 4096)
	assert.Equal(t, text, enforceTelegramLimit(text))
}

func TestTelegramLimitHardCut(t *testing.T) {
	out := enforceTelegramLimit(strings.Repeat("A", 5000))
	assert.LessOrEqual(t, len(out), 4096)
	assert.Contains(t, strings.ToLower(out), "truncated")
	// no break point exists, so the cut lands at the reserved boundary
	assert.True(t, strings.HasPrefix(out, strings.Repeat("A", telegramLimit-truncateReserve)))
}

func TestTelegramLimitSentenceBoundary(t *testing.T) {
	out := enforceTelegramLimit(strings.Repeat("First sentence. ", 300))
	assert.LessOrEqual(t, len(out), 4096)
	assert.True(t, strings.HasSuffix(strings.TrimRight(out, " \n"), "truncated due to length."))
	// the cut did not sever a word
	body := strings.TrimSuffix(out, truncateNotice)
	assert.True(t, strings.HasSuffix(body, "sentence"))
}

func TestKnown(t *testing.T) {
	assert.True(t, Known(API))
	assert.True(t, Known(Telegram))
	assert.True(t, Known(Teams))
	assert.True(t, Known(Web))
	assert.False(t, Known(Channel("slack")))
}
