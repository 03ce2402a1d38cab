package commands

import (
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/studybot-dev/studybot/config"
	"github.com/studybot-dev/studybot/members"
	"github.com/studybot-dev/studybot/storage"
	"go.uber.org/zap"
)

var botCommands = []*discordgo.ApplicationCommand{
	{
		Type:        discordgo.ChatApplicationCommand,
		Name:        "majors",
		Description: "List the majors available on this server",
	},
	{
		Type:        discordgo.ChatApplicationCommand,
		Name:        "mycourses",
		Description: "List the courses you are enrolled in",
	},
}

// Deps are the collaborators the command handlers read from.
type Deps struct {
	Guilds      []config.Guild
	MemberStore *members.Store
	Storage     *storage.Store
}

func RegisterCommands(dg *discordgo.Session, deps Deps, log *zap.SugaredLogger) {
	addCommands(dg, log)
	addHandlers(dg, deps, log)
}

func addCommands(dg *discordgo.Session, log *zap.SugaredLogger) {
	log.Info("Adding commands")
	user, _ := dg.User("@me")
	_, err := dg.ApplicationCommandBulkOverwrite(user.ID, "", botCommands)
	if err != nil {
		log.Panicf("Cannot create commands : %v", err)
	}
}

func addHandlers(dg *discordgo.Session, deps Deps, log *zap.SugaredLogger) {
	handlers := map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate){
		"majors":    func(s *discordgo.Session, i *discordgo.InteractionCreate) { majorsCommand(s, i, deps, log) },
		"mycourses": func(s *discordgo.Session, i *discordgo.InteractionCreate) { myCoursesCommand(s, i, deps, log) },
	}
	dg.AddHandler(
		func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			if h, ok := handlers[i.ApplicationCommandData().Name]; ok {
				h(s, i)
			}
		})
}

func RemoveCommands(dg *discordgo.Session, log *zap.SugaredLogger) {
	applicationsCommandsAvailable, err := dg.ApplicationCommands(dg.State.User.ID, "")
	if err != nil {
		log.Fatal(err)
	}
	for _, v := range applicationsCommandsAvailable {
		if err = dg.ApplicationCommandDelete(dg.State.User.ID, "", v.ID); err != nil {
			log.Infof("Could not delete '%s' command: %v", v.Name, err)
		}
		log.Infof("Deleted command %s", v.Name)
	}
	log.Info("Deleted commands")
}

func majorsCommand(s *discordgo.Session, i *discordgo.InteractionCreate, deps Deps, log *zap.SugaredLogger) {
	guild, ok := guildConfig(deps, i.GuildID)
	if !ok {
		respond(s, i, "This server is not configured for course enrollment.", log)
		return
	}

	provisioned := make(map[string]bool)
	prefixes, err := deps.Storage.ProvisionedMajorPrefixes(i.GuildID)
	if err != nil {
		log.Errorf("Could not list provisioned majors for guild %s: %v", i.GuildID, err)
	} else {
		for _, prefix := range prefixes {
			provisioned[prefix] = true
		}
	}

	lines := make([]string, 0, len(guild.Majors))
	for _, prefix := range sortedPrefixes(guild) {
		line := prefix
		if provisioned[prefix] {
			line += " (active)"
		}
		lines = append(lines, line)
	}
	respond(s, i, "Majors on this server: "+strings.Join(lines, ", "), log)
}

func myCoursesCommand(s *discordgo.Session, i *discordgo.InteractionCreate, deps Deps, log *zap.SugaredLogger) {
	if i.Member == nil || i.Member.User == nil {
		return
	}

	rows, err := deps.MemberStore.Courses(i.GuildID, i.Member.User.ID)
	if err != nil {
		log.Errorf("Could not list courses for user %s: %v", i.Member.User.ID, err)
		respond(s, i, "Sorry, something went wrong. Try again or ask an admin for help!", log)
		return
	}
	if len(rows) == 0 {
		respond(s, i, "You are not enrolled in any courses.", log)
		return
	}

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		line := row.CourseKey
		if row.IsTA {
			line += " (TA)"
		}
		lines = append(lines, line)
	}
	respond(s, i, "Your courses: "+strings.Join(lines, ", "), log)
}

func guildConfig(deps Deps, guildID string) (config.Guild, bool) {
	for _, guild := range deps.Guilds {
		if guild.GuildID == guildID {
			return guild, true
		}
	}
	return config.Guild{}, false
}

func sortedPrefixes(guild config.Guild) []string {
	prefixes := guild.MajorPrefixes()
	sort.Strings(prefixes)
	return prefixes
}

func respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string, log *zap.SugaredLogger) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
		},
	})
	if err != nil {
		log.Errorf("Could not respond to interaction: %v", err)
	}
}
