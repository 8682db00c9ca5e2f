package store

import (
	"fmt"
	"strings"
)

const telegramMaxChars = 3800

// IsTelegramFormat reports whether format asks for chat-sized output.
func IsTelegramFormat(format string) bool {
	return strings.ToLower(strings.TrimSpace(format)) == "telegram"
}

func trimTelegramOutput(s string) string {
	s = strings.TrimRight(s, "\n")
	runes := []rune(s)
	if len(runes) <= telegramMaxChars {
		return s
	}
	suffix := "\n… (truncated)"
	suffixRunes := []rune(suffix)
	limit := telegramMaxChars - len(suffixRunes)
	if limit < 1 {
		return string(runes[:telegramMaxChars])
	}
	return string(runes[:limit]) + suffix
}

func telegramPriorityEmoji(p Priority) string {
	switch p {
	case PriorityHigh:
		return "🔴"
	case PriorityLow:
		return "🟡"
	default:
		return ""
	}
}

func cleanLine(text string) string {
	text = strings.ReplaceAll(text, "\n", " ")
	text = strings.ReplaceAll(text, "\r", " ")
	return taskText(text)
}

func telegramTaskLine(t Task) string {
	var b strings.Builder
	if t.Completed {
		b.WriteString("✅ ")
	} else {
		b.WriteString("• ")
	}
	if pri := telegramPriorityEmoji(t.Priority); pri != "" {
		b.WriteString(pri)
		b.WriteString(" ")
	}
	b.WriteString(cleanLine(t.Text))
	if t.CarriedFrom != "" {
		b.WriteString(" ↩ ")
		b.WriteString(t.CarriedFrom)
	}
	b.WriteString("\n")
	return b.String()
}

// RenderTelegram renders the view as a short chat message.
func (v DayView) RenderTelegram() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📅 %s\n", v.Date))
	if len(v.Tasks) == 0 {
		b.WriteString("No tasks.\n")
	} else {
		open := 0
		for _, t := range v.Tasks {
			if !t.Completed {
				open++
			}
		}
		b.WriteString(fmt.Sprintf("\n📝 Tasks (%d open)\n", open))
		for _, t := range v.Tasks {
			b.WriteString(telegramTaskLine(t))
		}
	}
	if len(v.Notes) > 0 {
		b.WriteString(fmt.Sprintf("\n🗒️ Notes (%d)\n", len(v.Notes)))
		for _, n := range v.Notes {
			title := cleanLine(n.Title)
			if first := firstLine(n.Body); first != "" {
				title += " — " + truncate(first, 60, false)
			}
			b.WriteString("• " + title + "\n")
		}
	}
	return trimTelegramOutput(b.String())
}
