package ws

const (
	// client - server
	MsgTap           = "tap"
	MsgContinue      = "continue"
	MsgAvatarPreview = "avatar_preview"
	MsgPing          = "ping"

	// server - client
	MsgReady       = "ready"
	MsgPong        = "pong"
	MsgEvent       = "event"
	MsgChestState  = "chest_state"
	MsgAvatarFrame = "avatar_frame"
	MsgError       = "error"
)
