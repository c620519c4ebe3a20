// Package channel shapes generated answers for their delivery surface and
// enforces the hard limits a model cannot be trusted to obey.
package channel

import "strings"

type Channel string

const (
	API      Channel = "api"
	Telegram Channel = "telegram"
	Teams    Channel = "teams"
	Web      Channel = "web"
)

const (
	telegramLimit   = 4096
	truncateReserve = 40
	truncateNotice  = "\n\nMessage truncated due to length."
)

// Known reports whether ch names a supported delivery channel.
func Known(ch Channel) bool {
	switch ch {
	case API, Telegram, Teams, Web:
		return true
	}
	return false
}

// Format renders the answer for the channel. Fallback answers (and answers
// without sources) get no sources suffix; the telegram length ceiling is
// enforced either way.
func Format(answer string, sources []string, ch Channel, fallback bool) string {
	out := answer
	if !fallback && len(sources) > 0 {
		out += sourcesSuffix(sources, ch)
	}
	if ch == Telegram {
		out = enforceTelegramLimit(out)
	}
	return out
}

func sourcesSuffix(sources []string, ch Channel) string {
	joined := strings.Join(sources, ", ")
	switch ch {
	case Telegram:
		return "\n\n📄 Sources: " + joined
	case Teams:
		return "\n\n---\n**Sources:** " + joined
	case Web:
		var sb strings.Builder
		sb.WriteString("\n\n---\n\n**Sources:**\n")
		for _, s := range sources {
			sb.WriteString("- " + s + "\n")
		}
		return strings.TrimRight(sb.String(), "\n")
	default:
		return "\n\nSources: " + joined
	}
}

var breakPoints = []string{"\n\n", "\n", ". ", " "}

// enforceTelegramLimit truncates text to the telegram message ceiling,
// preferring a soft break point at or past the midpoint of the truncated
// text. Text at or under the ceiling passes through unchanged.
func enforceTelegramLimit(text string) string {
	if len(text) <= telegramLimit {
		return text
	}
	cut := text[:telegramLimit-truncateReserve]
	mid := len(cut) / 2
	for _, bp := range breakPoints {
		idx := strings.LastIndex(cut, bp)
		if idx >= mid {
			cut = cut[:idx]
			break
		}
	}
	return cut + truncateNotice
}
