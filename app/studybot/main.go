package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/bwmarrin/discordgo"
	"github.com/studybot-dev/studybot/commands"
	"github.com/studybot-dev/studybot/config"
	"github.com/studybot-dev/studybot/courses"
	"github.com/studybot-dev/studybot/database"
	"github.com/studybot-dev/studybot/implement"
	"github.com/studybot-dev/studybot/logging"
	"github.com/studybot-dev/studybot/members"
	"github.com/studybot-dev/studybot/selection"
	"github.com/studybot-dev/studybot/storage"
)

func main() {
	log := logging.InitLogger()

	cfg, err := config.Load(log)
	if err != nil {
		log.Fatalf("Could not load config: %v", err)
	}

	db, err := database.Init(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to the database: %v", err)
	}

	dg, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		log.Fatal("error creating discord session, ", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentsGuildMembers

	store := storage.NewStore(db, log)
	memberStore := members.NewStore(db, log)
	api := implement.NewDiscordAPI(dg)

	log.Info("Adding handlers")
	for _, guild := range cfg.Guilds {
		majors := make(map[string]courses.Major, len(guild.Majors))
		numbersByPrefix := make(map[string][]string, len(guild.Majors))
		for _, major := range guild.Majors {
			prefix := strings.ToLower(major.Prefix)
			majors[prefix] = courses.Major{Prefix: prefix, Name: major.Name}
			numbersByPrefix[prefix] = major.Courses
		}

		registry := courses.NewRegistry(majors, courses.NewStaticCatalog(numbersByPrefix), log)
		provisioner := implement.NewProvisioner(store, api, memberStore, log)
		controller := selection.NewController(guild, registry, memberStore, provisioner, log)
		dg.AddHandler(controller.HandleMessage)
	}

	log.Info("Opening Websocket connection")
	err = dg.Open()
	if err != nil {
		log.Fatalf("Could not open Websocket connection %s", err)
	}

	dg.UpdateListeningStatus(cfg.BotStatus)

	commands.RegisterCommands(dg, commands.Deps{
		Guilds:      cfg.Guilds,
		MemberStore: memberStore,
		Storage:     store,
	}, log)

	// Wait here until CTRL-C or other term signal is received.
	log.Info("Bot is now running.  Press CTRL-C to exit.")
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	commands.RemoveCommands(dg, log)

	dg.Close()
}
