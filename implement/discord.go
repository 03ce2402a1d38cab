package implement

import (
	"github.com/bwmarrin/discordgo"
)

// DiscordAPI implements ResourceAPI on a discordgo session.
type DiscordAPI struct {
	session *discordgo.Session
}

func NewDiscordAPI(session *discordgo.Session) *DiscordAPI {
	return &DiscordAPI{session: session}
}

func (d *DiscordAPI) CreateRole(guildID, name string) (string, error) {
	role, err := d.session.GuildRoleCreate(guildID)
	if err != nil {
		return "", err
	}
	role, err = d.session.GuildRoleEdit(guildID, role.ID, name, role.Color, false, 0, true)
	if err != nil {
		return "", err
	}
	return role.ID, nil
}

func (d *DiscordAPI) DeleteRole(guildID, roleID string) error {
	return d.session.GuildRoleDelete(guildID, roleID)
}

// CreateCategory creates a category hidden from @everyone. Course channels
// under it punch their own holes for the course roles.
func (d *DiscordAPI) CreateCategory(guildID, name string) (string, error) {
	channel, err := d.session.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name: name,
		Type: discordgo.ChannelTypeGuildCategory,
		PermissionOverwrites: []*discordgo.PermissionOverwrite{
			{
				// The @everyone role shares the guild's ID.
				ID:   guildID,
				Type: discordgo.PermissionOverwriteTypeRole,
				Deny: discordgo.PermissionViewChannel | discordgo.PermissionCreateInstantInvite,
			},
		},
	})
	if err != nil {
		return "", err
	}
	return channel.ID, nil
}

func (d *DiscordAPI) CreateTextChannel(guildID, name, categoryID string, viewRoleIDs []string) (string, error) {
	return d.createChannel(guildID, name, categoryID, viewRoleIDs, discordgo.ChannelTypeGuildText)
}

func (d *DiscordAPI) CreateVoiceChannel(guildID, name, categoryID string, viewRoleIDs []string) (string, error) {
	return d.createChannel(guildID, name, categoryID, viewRoleIDs, discordgo.ChannelTypeGuildVoice)
}

func (d *DiscordAPI) createChannel(guildID, name, categoryID string, viewRoleIDs []string, channelType discordgo.ChannelType) (string, error) {
	overwrites := []*discordgo.PermissionOverwrite{
		{
			ID:   guildID,
			Type: discordgo.PermissionOverwriteTypeRole,
			Deny: discordgo.PermissionViewChannel,
		},
	}
	for _, roleID := range viewRoleIDs {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    roleID,
			Type:  discordgo.PermissionOverwriteTypeRole,
			Allow: discordgo.PermissionViewChannel,
		})
	}

	channel, err := d.session.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:                 name,
		Type:                 channelType,
		ParentID:             categoryID,
		PermissionOverwrites: overwrites,
	})
	if err != nil {
		return "", err
	}
	return channel.ID, nil
}

func (d *DiscordAPI) DeleteChannel(channelID string) error {
	_, err := d.session.ChannelDelete(channelID)
	return err
}
