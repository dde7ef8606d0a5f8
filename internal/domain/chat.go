package domain

// Typed records for chat-platform events. Delivery adapters convert SDK
// objects into these before anything else sees them.

type ChatUser struct {
	ID          string
	Username    string
	DisplayName string
	AvatarURL   string
	IsBot       bool
	IsStaff     bool
}

func (u ChatUser) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

type Attachment struct {
	Filename string
	URL      string
	Size     int
}

type ChatMessage struct {
	ID          string
	ChannelID   string
	GuildID     string
	Author      ChatUser
	Content     string
	Attachments []Attachment
	IsDirect    bool
}

type MemberJoin struct {
	GuildID string
	Member  ChatUser
}

// PlatformStatus is a point-in-time view of the chat connection.
type PlatformStatus struct {
	LatencyMS int64
	Guilds    int
	Users     int
}
