package implement

// ResourceAPI abstracts the Discord calls the provisioner needs. The
// concrete implementation is DiscordAPI; tests substitute a fake.
type ResourceAPI interface {
	CreateRole(guildID, name string) (string, error)
	DeleteRole(guildID, roleID string) error
	CreateCategory(guildID, name string) (string, error)
	CreateTextChannel(guildID, name, categoryID string, viewRoleIDs []string) (string, error)
	CreateVoiceChannel(guildID, name, categoryID string, viewRoleIDs []string) (string, error)
	DeleteChannel(channelID string) error
}

// MemberCounter reports how many users are still enrolled in a course.
type MemberCounter interface {
	CountMembersAssigned(guildID, courseKey string) (int64, error)
}
