package members

import (
	"errors"

	"github.com/studybot-dev/studybot/courses"
	"github.com/studybot-dev/studybot/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Store tracks which users are enrolled in which courses, per guild, and
// per-user verification state.
type Store struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewStore(db *gorm.DB, log *zap.SugaredLogger) *Store {
	return &Store{db: db, log: log}
}

// AssignCourses enrolls the user in the given courses. Already-assigned
// courses are left untouched.
func (s *Store) AssignCourses(guildID, userID string, list []courses.Course) error {
	for _, course := range list {
		var row models.MemberCourse
		query := s.db.Where(&models.MemberCourse{
			GuildID:   guildID,
			UserID:    userID,
			CourseKey: course.Key(),
		}).FirstOrCreate(&row, models.MemberCourse{
			GuildID:   guildID,
			UserID:    userID,
			CourseKey: course.Key(),
		})
		if query.Error != nil {
			return query.Error
		}
	}
	return nil
}

func (s *Store) UnassignCourses(guildID, userID string, list []courses.Course) error {
	for _, course := range list {
		query := s.db.Unscoped().
			Where("guild_id = ? AND user_id = ? AND course_key = ?", guildID, userID, course.Key()).
			Delete(&models.MemberCourse{})
		if query.Error != nil {
			return query.Error
		}
	}
	return nil
}

// ToggleTA flips the TA flag on each of the user's matching enrollments
// and returns the resulting flag per course key. Courses the user is not
// enrolled in are skipped.
func (s *Store) ToggleTA(guildID, userID string, list []courses.Course) (map[string]bool, error) {
	result := make(map[string]bool)
	for _, course := range list {
		var row models.MemberCourse
		err := s.db.Where("guild_id = ? AND user_id = ? AND course_key = ?", guildID, userID, course.Key()).
			First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		row.IsTA = !row.IsTA
		if err := s.db.Save(&row).Error; err != nil {
			return nil, err
		}
		result[course.Key()] = row.IsTA
	}
	return result, nil
}

// CountMembersAssigned reports how many users are still enrolled in the
// course. Teardown is only allowed once this reaches zero.
func (s *Store) CountMembersAssigned(guildID, courseKey string) (int64, error) {
	var count int64
	err := s.db.Model(&models.MemberCourse{}).
		Where("guild_id = ? AND course_key = ?", guildID, courseKey).
		Count(&count).Error
	return count, err
}

// Courses lists the user's enrollments in the guild.
func (s *Store) Courses(guildID, userID string) ([]models.MemberCourse, error) {
	var rows []models.MemberCourse
	err := s.db.Where("guild_id = ? AND user_id = ?", guildID, userID).
		Order("course_key").
		Find(&rows).Error
	return rows, err
}
