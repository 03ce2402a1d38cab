package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Major is a subject grouping configured per guild. The prefix is the short
// lowercase identifier users type in front of course numbers ("cs", "math").
// An empty Courses list means the catalog accepts any course number for the
// major.
type Major struct {
	Prefix  string   `mapstructure:"prefix"`
	Name    string   `mapstructure:"name"`
	Courses []string `mapstructure:"courses"`
}

type Guild struct {
	GuildID                string   `mapstructure:"guild_id"`
	CourseSelectionChannel string   `mapstructure:"course_selection_channel"`
	ModeratorRoles         []string `mapstructure:"moderator_roles"`
	VerifiedRoleName       string   `mapstructure:"verified_role_name"`
	Majors                 []Major  `mapstructure:"majors"`
}

type Config struct {
	Token     string  `mapstructure:"token"`
	BotStatus string  `mapstructure:"bot_status"`
	Database  string  `mapstructure:"database"`
	Guilds    []Guild `mapstructure:"guilds"`
}

func Load(log *zap.SugaredLogger) (*Config, error) {
	viper.SetDefault("token", "")
	viper.SetDefault("bot_status", "say 'join <course>' to get started")
	viper.SetDefault("database", "studybot.db")
	viper.SetConfigName("config")
	viper.AddConfigPath(".")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	viper.OnConfigChange(func(e fsnotify.Event) {
		log.Infof("Config file changed: %s", e.Name)
	})
	viper.WatchConfig()

	return &cfg, nil
}

func (c *Config) validate() error {
	for _, guild := range c.Guilds {
		if guild.GuildID == "" {
			return fmt.Errorf("guild entry is missing guild_id")
		}
		seen := make(map[string]bool)
		for _, major := range guild.Majors {
			prefix := strings.ToLower(major.Prefix)
			if prefix == "" {
				return fmt.Errorf("guild %s has a major with an empty prefix", guild.GuildID)
			}
			if seen[prefix] {
				return fmt.Errorf("guild %s has a duplicate major prefix %q", guild.GuildID, prefix)
			}
			seen[prefix] = true
		}
	}
	return nil
}

// MajorPrefixes returns the configured prefixes, lowercased.
func (g Guild) MajorPrefixes() []string {
	prefixes := make([]string, 0, len(g.Majors))
	for _, major := range g.Majors {
		prefixes = append(prefixes, strings.ToLower(major.Prefix))
	}
	return prefixes
}
