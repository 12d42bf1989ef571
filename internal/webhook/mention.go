package webhook

import (
	"slices"
	"strings"

	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
)

// selfMentions returns the bot's own mention spans, last first.
func selfMentions(m *webhook.Mention) []webhook.UserMentionee {
	if m == nil {
		return nil
	}
	var out []webhook.UserMentionee
	for _, mentionee := range m.Mentionees {
		if u, ok := mentionee.(webhook.UserMentionee); ok && u.IsSelf {
			out = append(out, u)
		}
	}
	slices.SortFunc(out, func(a, b webhook.UserMentionee) int {
		return int(b.Index) - int(a.Index)
	})
	return out
}

// isBotMentioned reports whether msg @-mentions the bot.
func isBotMentioned(msg webhook.TextMessageContent) bool {
	return len(selfMentions(msg.Mention)) > 0
}

// stripBotMentions removes the bot's mentions from text and collapses the
// whitespace left behind. LINE indexes mentions in runes.
func stripBotMentions(text string, m *webhook.Mention) string {
	spans := selfMentions(m)
	if len(spans) == 0 {
		return text
	}
	runes := []rune(text)
	for _, s := range spans {
		start := max(int(s.Index), 0)
		end := min(int(s.Index+s.Length), len(runes))
		if start >= end {
			continue
		}
		runes = append(runes[:start], runes[end:]...)
	}
	return strings.Join(strings.Fields(string(runes)), " ")
}
