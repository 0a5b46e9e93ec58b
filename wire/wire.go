// Package wire defines the event tags, room targets and JSON payload types
// exchanged with a go-dispatch server. The envelope itself lives in frame.
package wire

// Outgoing event tags (client -> server).
const (
	EventJoinRoom    = "join_room"
	EventSendMessage = "send_message"
)

// Inbound event tags (server -> client). Other tags may arrive and are ignored.
const (
	EventJoinSuccess = "join_success"
	EventUserJoined  = "user_joined"
	EventNewMessage  = "new_message"
)

// RoomPrefix prefixes every room target.
const RoomPrefix = "room:"

// RoomGlobal is the only room this client joins.
const RoomGlobal = RoomPrefix + "global"

// JoinRoomPayload is the payload of a join_room action.
type JoinRoomPayload struct {
	Name string `json:"name"`
}

// SendMessagePayload is the payload of a send_message action.
type SendMessagePayload struct {
	Message string `json:"message"`
}

// JoinSuccessPayload is sent back after the server accepted a join.
type JoinSuccessPayload struct {
	Room string `json:"room"`
}

// UserJoinedPayload announces another member joining a room.
type UserJoinedPayload struct {
	User string `json:"user"`
	Room string `json:"room"`
}

// NewMessagePayload is a chat message broadcast to the room, including our own.
type NewMessagePayload struct {
	User    string `json:"user"`
	Message string `json:"message"`
}
