package discord

import (
	"github.com/bwmarrin/discordgo"
	"github.com/fpsos/fpsbot/internal/domain"
)

// Everything below turns discordgo objects into the typed chat records the
// rest of the bot works with.

func toChatUser(user *discordgo.User, member *discordgo.Member, staffRoleID string) domain.ChatUser {
	if user == nil && member != nil {
		user = member.User
	}
	if user == nil {
		return domain.ChatUser{}
	}

	out := domain.ChatUser{
		ID:          user.ID,
		Username:    user.Username,
		DisplayName: user.GlobalName,
		AvatarURL:   user.AvatarURL("128"),
		IsBot:       user.Bot,
	}
	if member != nil {
		if member.Nick != "" {
			out.DisplayName = member.Nick
		}
		out.IsStaff = isAdmin(member) || hasRole(member, staffRoleID)
	}
	return out
}

func toChatMessage(m *discordgo.Message, staffRoleID string) domain.ChatMessage {
	msg := domain.ChatMessage{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
		Author:    toChatUser(m.Author, m.Member, staffRoleID),
		Content:   m.Content,
		IsDirect:  m.GuildID == "",
	}
	for _, att := range m.Attachments {
		if att == nil {
			continue
		}
		msg.Attachments = append(msg.Attachments, domain.Attachment{
			Filename: att.Filename,
			URL:      att.URL,
			Size:     att.Size,
		})
	}
	return msg
}

func toMemberJoin(m *discordgo.GuildMemberAdd, staffRoleID string) domain.MemberJoin {
	return domain.MemberJoin{
		GuildID: m.GuildID,
		Member:  toChatUser(nil, m.Member, staffRoleID),
	}
}

func interactionUser(i *discordgo.Interaction, staffRoleID string) domain.ChatUser {
	if i.Member != nil {
		return toChatUser(i.Member.User, i.Member, staffRoleID)
	}
	return toChatUser(i.User, nil, staffRoleID)
}

func isAdmin(member *discordgo.Member) bool {
	return member != nil && member.Permissions&discordgo.PermissionAdministrator != 0
}

func hasRole(member *discordgo.Member, roleID string) bool {
	if member == nil || roleID == "" {
		return false
	}
	for _, role := range member.Roles {
		if role == roleID {
			return true
		}
	}
	return false
}
