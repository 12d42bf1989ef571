package webhook

import (
	"testing"

	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
	"github.com/stretchr/testify/assert"
)

func selfMention(index, length int32) webhook.UserMentionee {
	return webhook.UserMentionee{Index: index, Length: length, IsSelf: true}
}

func TestIsBotMentioned(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mention *webhook.Mention
		want    bool
	}{
		{"no mention", nil, false},
		{"empty mentionees", &webhook.Mention{}, false},
		{"bot", &webhook.Mention{Mentionees: []webhook.MentioneeInterface{selfMention(0, 8)}}, true},
		{"other user", &webhook.Mention{Mentionees: []webhook.MentioneeInterface{
			webhook.UserMentionee{Index: 0, Length: 5, UserId: "U1"},
		}}, false},
		{"all", &webhook.Mention{Mentionees: []webhook.MentioneeInterface{
			webhook.AllMentionee{Index: 0, Length: 4},
		}}, false},
		{"other user then bot", &webhook.Mention{Mentionees: []webhook.MentioneeInterface{
			webhook.UserMentionee{Index: 0, Length: 5, UserId: "U1"},
			selfMention(6, 8),
		}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			msg := webhook.TextMessageContent{Text: "@TuCurso hola", Mention: tt.mention}
			assert.Equal(t, tt.want, isBotMentioned(msg))
		})
	}
}

func TestStripBotMentions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		text    string
		mention *webhook.Mention
		want    string
	}{
		{
			name: "no mention",
			text: "hola  mundo",
			want: "hola  mundo",
		},
		{
			name:    "leading",
			text:    "@TuCurso cuánto cuesta excel",
			mention: &webhook.Mention{Mentionees: []webhook.MentioneeInterface{selfMention(0, 8)}},
			want:    "cuánto cuesta excel",
		},
		{
			name:    "middle with accents before",
			text:    "Señora @TuCurso información de sql",
			mention: &webhook.Mention{Mentionees: []webhook.MentioneeInterface{selfMention(7, 8)}},
			want:    "Señora información de sql",
		},
		{
			name: "twice",
			text: "@TuCurso hola @TuCurso",
			mention: &webhook.Mention{Mentionees: []webhook.MentioneeInterface{
				selfMention(0, 8),
				selfMention(14, 8),
			}},
			want: "hola",
		},
		{
			name: "keeps other users",
			text: "@Ana @TuCurso precio de word",
			mention: &webhook.Mention{Mentionees: []webhook.MentioneeInterface{
				webhook.UserMentionee{Index: 0, Length: 4, UserId: "U1"},
				selfMention(5, 8),
			}},
			want: "@Ana precio de word",
		},
		{
			name:    "span past end",
			text:    "hola @TuCu",
			mention: &webhook.Mention{Mentionees: []webhook.MentioneeInterface{selfMention(5, 20)}},
			want:    "hola",
		},
		{
			name:    "span out of range",
			text:    "hola",
			mention: &webhook.Mention{Mentionees: []webhook.MentioneeInterface{selfMention(10, 3)}},
			want:    "hola",
		},
		{
			name:    "only mention",
			text:    "@TuCurso",
			mention: &webhook.Mention{Mentionees: []webhook.MentioneeInterface{selfMention(0, 8)}},
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, stripBotMentions(tt.text, tt.mention))
		})
	}
}

func TestSourceIDs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		source   webhook.SourceInterface
		chat     string
		sender   string
		personal bool
	}{
		{"user", webhook.UserSource{UserId: "U1"}, "U1", "U1", true},
		{"group member", webhook.GroupSource{GroupId: "G1", UserId: "U2"}, "G1", "U2", false},
		{"group without user", webhook.GroupSource{GroupId: "G1"}, "G1", "G1", false},
		{"room member", webhook.RoomSource{RoomId: "R1", UserId: "U3"}, "R1", "U3", false},
		{"unknown", nil, "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.chat, chatID(tt.source))
			assert.Equal(t, tt.sender, senderID(tt.source))
			assert.Equal(t, tt.personal, isPersonalChat(tt.source))
		})
	}
}
