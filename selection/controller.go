package selection

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/studybot-dev/studybot/config"
	"github.com/studybot-dev/studybot/courses"
	"github.com/studybot-dev/studybot/implement"
	"github.com/studybot-dev/studybot/members"
	"go.uber.org/zap"
)

// Controller handles enrollment messages ("join cs1410", "leave 2210",
// "ta cs1410") posted in the guild's course-selection channel.
type Controller struct {
	guild       config.Guild
	registry    *courses.Registry
	members     *members.Store
	provisioner *implement.Provisioner
	log         *zap.SugaredLogger
}

func NewController(guild config.Guild, registry *courses.Registry, memberStore *members.Store, provisioner *implement.Provisioner, log *zap.SugaredLogger) *Controller {
	return &Controller{
		guild:       guild,
		registry:    registry,
		members:     memberStore,
		provisioner: provisioner,
		log:         log,
	}
}

const genericErrorReply = "sorry, something went wrong on my end. Try again or ask an admin for help!"

func (c *Controller) HandleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	if m.GuildID != c.guild.GuildID {
		return
	}
	channel, err := s.State.Channel(m.ChannelID)
	if err != nil || channel.Name != c.guild.CourseSelectionChannel {
		return
	}

	content := strings.TrimSpace(m.Content)
	fields := strings.Fields(content)
	if len(fields) == 0 {
		return
	}
	verb := strings.ToLower(fields[0])
	rest := strings.TrimSpace(content[len(fields[0]):])

	switch verb {
	case "join":
		c.handleJoin(s, m, rest)
	case "leave":
		c.handleLeave(s, m, rest)
	case "ta":
		c.handleTA(s, m, rest)
	default:
		c.reply(s, m, fmt.Sprintf("%s, I'm not sure what you want to do. Make sure your request starts with 'join', 'leave', or 'ta'. For example: 'join cs1410'", m.Author.Mention()))
	}
}

func (c *Controller) handleJoin(s *discordgo.Session, m *discordgo.MessageCreate, rest string) {
	valid, invalidNames, ok := c.resolve(s, m, rest, "join cs1410")
	if !ok {
		return
	}

	if err := c.members.AssignCourses(m.GuildID, m.Author.ID, valid); err != nil {
		c.log.Errorf("Failed to assign courses for %s: %v", m.Author.ID, err)
		c.reply(s, m, m.Author.Mention()+", "+genericErrorReply)
		return
	}

	var joined []string
	for _, course := range valid {
		impl, err := c.provisioner.GetOrCreateCourseImplement(m.GuildID, course)
		if err != nil {
			c.log.Errorf("Failed to provision course %s: %v", course.Key(), err)
			c.reply(s, m, m.Author.Mention()+", "+genericErrorReply)
			return
		}
		if err := s.GuildMemberRoleAdd(m.GuildID, m.Author.ID, impl.MainRoleID); err != nil {
			c.log.Errorf("Failed to add role %s to %s: %v", impl.MainRoleID, m.Author.ID, err)
			c.reply(s, m, m.Author.Mention()+", "+genericErrorReply)
			return
		}
		joined = append(joined, course.Key())

		if _, err := s.ChannelMessageSend(impl.MainChannelID, fmt.Sprintf("Welcome, %s!", m.Author.Mention())); err != nil {
			c.log.Errorf("Could not send welcome message for course %s: %v", course.Key(), err)
		}
	}

	c.replyOutcome(s, m, "added you to", joined, invalidNames)
}

func (c *Controller) handleLeave(s *discordgo.Session, m *discordgo.MessageCreate, rest string) {
	valid, invalidNames, ok := c.resolve(s, m, rest, "leave cs1410")
	if !ok {
		return
	}

	var left []string
	for _, course := range valid {
		impl, err := c.provisioner.GetCourseImplementIfExists(m.GuildID, course)
		if err != nil {
			c.log.Errorf("Failed to look up course %s: %v", course.Key(), err)
			c.reply(s, m, m.Author.Mention()+", "+genericErrorReply)
			return
		}
		if impl != nil {
			if err := s.GuildMemberRoleRemove(m.GuildID, m.Author.ID, impl.MainRoleID); err != nil {
				c.log.Errorf("Failed to remove role %s from %s: %v", impl.MainRoleID, m.Author.ID, err)
			}
			if err := s.GuildMemberRoleRemove(m.GuildID, m.Author.ID, impl.TARoleID); err != nil {
				c.log.Errorf("Failed to remove TA role %s from %s: %v", impl.TARoleID, m.Author.ID, err)
			}
		}
		left = append(left, course.Key())
	}

	if err := c.members.UnassignCourses(m.GuildID, m.Author.ID, valid); err != nil {
		c.log.Errorf("Failed to unassign courses for %s: %v", m.Author.ID, err)
		c.reply(s, m, m.Author.Mention()+", "+genericErrorReply)
		return
	}

	for _, course := range valid {
		if err := c.provisioner.DeleteCourseImplementIfEmpty(m.GuildID, course); err != nil {
			c.log.Errorf("Teardown of course %s reported failures: %v", course.Key(), err)
		}
	}

	c.replyOutcome(s, m, "removed you from", left, invalidNames)
}

func (c *Controller) handleTA(s *discordgo.Session, m *discordgo.MessageCreate, rest string) {
	// Join first; it also takes care of validation and provisioning.
	valid, invalidNames, ok := c.resolve(s, m, rest, "ta cs1410")
	if !ok {
		return
	}

	if err := c.members.AssignCourses(m.GuildID, m.Author.ID, valid); err != nil {
		c.log.Errorf("Failed to assign courses for %s: %v", m.Author.ID, err)
		c.reply(s, m, m.Author.Mention()+", "+genericErrorReply)
		return
	}

	taStatus, err := c.members.ToggleTA(m.GuildID, m.Author.ID, valid)
	if err != nil {
		c.log.Errorf("Failed to toggle TA status for %s: %v", m.Author.ID, err)
		c.reply(s, m, m.Author.Mention()+", "+genericErrorReply)
		return
	}

	var toggled []string
	for _, course := range valid {
		impl, err := c.provisioner.GetOrCreateCourseImplement(m.GuildID, course)
		if err != nil {
			c.log.Errorf("Failed to provision course %s: %v", course.Key(), err)
			c.reply(s, m, m.Author.Mention()+", "+genericErrorReply)
			return
		}
		if err := s.GuildMemberRoleAdd(m.GuildID, m.Author.ID, impl.MainRoleID); err != nil {
			c.log.Errorf("Failed to add role %s to %s: %v", impl.MainRoleID, m.Author.ID, err)
		}

		isTA, known := taStatus[course.Key()]
		if !known {
			continue
		}
		if isTA {
			err = s.GuildMemberRoleAdd(m.GuildID, m.Author.ID, impl.TARoleID)
		} else {
			err = s.GuildMemberRoleRemove(m.GuildID, m.Author.ID, impl.TARoleID)
		}
		if err != nil {
			c.log.Errorf("Failed to update TA role for %s on course %s: %v", m.Author.ID, course.Key(), err)
			c.reply(s, m, m.Author.Mention()+", "+genericErrorReply)
			return
		}
		toggled = append(toggled, course.Key())
	}

	c.replyOutcome(s, m, "toggled your TA status for", toggled, invalidNames)
}

// resolve runs the parse pipeline and reports failures to the user. The
// boolean is false when the request should not proceed.
func (c *Controller) resolve(s *discordgo.Session, m *discordgo.MessageCreate, rest, example string) ([]courses.Course, []string, bool) {
	valid, invalidNames, err := c.registry.ParseAndResolve(context.Background(), rest)
	if err != nil {
		if courses.IsUserError(err) {
			c.reply(s, m, fmt.Sprintf("%s, %s Example usage: %s", m.Author.Mention(), err.Error(), example))
		} else {
			c.log.Errorf("Failed to resolve courses from request %q: %v", rest, err)
			c.reply(s, m, m.Author.Mention()+", "+genericErrorReply)
		}
		return nil, nil, false
	}
	return valid, invalidNames, true
}

func (c *Controller) replyOutcome(s *discordgo.Session, m *discordgo.MessageCreate, action string, keys, invalidNames []string) {
	sort.Strings(keys)
	if len(invalidNames) > 0 {
		c.reply(s, m, fmt.Sprintf("%s, I have %s the following courses: %s. However, the following courses do not appear to be valid: %s.",
			m.Author.Mention(), action, strings.Join(keys, ", "), strings.Join(invalidNames, ", ")))
	} else {
		c.reply(s, m, fmt.Sprintf("Success! %s, I have %s the following courses: %s.",
			m.Author.Mention(), action, strings.Join(keys, ", ")))
	}
}

func (c *Controller) reply(s *discordgo.Session, m *discordgo.MessageCreate, content string) {
	if _, err := s.ChannelMessageSend(m.ChannelID, content); err != nil {
		c.log.Errorf("Could not send reply in channel %s: %v", m.ChannelID, err)
	}
}
