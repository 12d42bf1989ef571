package webhook

import "github.com/line/line-bot-sdk-go/v8/linebot/webhook"

// chatID returns the conversation the event belongs to: the user for
// one-to-one chats, otherwise the group or room.
func chatID(source webhook.SourceInterface) string {
	switch s := source.(type) {
	case webhook.UserSource:
		return s.UserId
	case webhook.GroupSource:
		return s.GroupId
	case webhook.RoomSource:
		return s.RoomId
	}
	return ""
}

// senderID keys the dialogue tracker. Group members each get their own
// conversation; the chat id is used when LINE withholds the user id.
func senderID(source webhook.SourceInterface) string {
	var user string
	switch s := source.(type) {
	case webhook.UserSource:
		user = s.UserId
	case webhook.GroupSource:
		user = s.UserId
	case webhook.RoomSource:
		user = s.UserId
	}
	if user != "" {
		return user
	}
	return chatID(source)
}

func isPersonalChat(source webhook.SourceInterface) bool {
	_, ok := source.(webhook.UserSource)
	return ok
}
