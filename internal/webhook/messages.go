package webhook

import (
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/garyellow/tucurso-bot/internal/dialogue"
)

// MaxTextMessageLength is the LINE limit for one text message, in runes.
const MaxTextMessageLength = 5000

const (
	msgUnavailable = "El asistente se está iniciando. Inténtalo de nuevo en unos minutos."
	msgTruncated   = "Hay más respuestas, pero LINE solo permite unas pocas por mensaje. Pregúntame algo más específico."
)

// quickReplyItems are shown under the last message of every reply.
var quickReplyItems = []struct{ label, text string }{
	{"Categorías", "¿Qué categorías hay?"},
	{"Cursos", "Muéstrame los cursos"},
	{"Reiniciar", dialogue.RestartCommand},
}

func newTextMessage(text string) *messaging_api.TextMessage {
	if r := []rune(text); len(r) > MaxTextMessageLength {
		text = string(r[:MaxTextMessageLength-3]) + "..."
	}
	return &messaging_api.TextMessage{Text: text}
}

func newQuickReply() *messaging_api.QuickReply {
	items := make([]messaging_api.QuickReplyItem, 0, len(quickReplyItems))
	for _, it := range quickReplyItems {
		items = append(items, messaging_api.QuickReplyItem{
			Action: &messaging_api.MessageAction{Label: it.label, Text: it.text},
		})
	}
	return &messaging_api.QuickReply{Items: items}
}

// buildMessages converts engine replies into at most limit LINE messages.
// When replies overflow, the last slot carries a notice instead.
func buildMessages(replies []dialogue.Reply, limit int) ([]messaging_api.MessageInterface, bool) {
	texts := make([]string, 0, len(replies))
	for _, r := range replies {
		if r.Text != "" {
			texts = append(texts, r.Text)
		}
	}
	if len(texts) == 0 {
		return nil, false
	}

	truncated := len(texts) > limit
	if truncated {
		texts = append(texts[:limit-1], msgTruncated)
	}

	msgs := make([]messaging_api.MessageInterface, 0, len(texts))
	var last *messaging_api.TextMessage
	for _, t := range texts {
		last = newTextMessage(t)
		msgs = append(msgs, last)
	}
	last.QuickReply = newQuickReply()
	return msgs, truncated
}
