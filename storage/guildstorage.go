package storage

import (
	"errors"
	"sort"

	"github.com/studybot-dev/studybot/courses"
	"github.com/studybot-dev/studybot/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Store mediates all access to the per-guild storage document. The nested
// implement maps are always read and written as a whole document; there
// are no field-level updates.
type Store struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewStore(db *gorm.DB, log *zap.SugaredLogger) *Store {
	return &Store{db: db, log: log}
}

// FindOrCreate returns the guild's document, creating an empty one on
// first access. A concurrent creation loses to the unique index on
// guild_id and is resolved by retrying the find once.
func (s *Store) FindOrCreate(guildID string) (*models.GuildStorage, error) {
	var doc models.GuildStorage
	err := s.db.Where("guild_id = ?", guildID).First(&doc).Error
	if err == nil {
		if doc.MajorImplements == nil {
			doc.MajorImplements = make(map[string]models.MajorImplement)
		}
		return &doc, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	doc = models.GuildStorage{
		GuildID:         guildID,
		MajorImplements: make(map[string]models.MajorImplement),
	}
	if createErr := s.db.Create(&doc).Error; createErr != nil {
		if err := s.db.Where("guild_id = ?", guildID).First(&doc).Error; err != nil {
			return nil, createErr
		}
	}
	return &doc, nil
}

func (s *Store) MajorImplement(guildID, majorPrefix string) (*models.MajorImplement, error) {
	doc, err := s.FindOrCreate(guildID)
	if err != nil {
		return nil, err
	}
	impl, ok := doc.MajorImplements[majorPrefix]
	if !ok {
		return nil, nil
	}
	return &impl, nil
}

// SetMajorImplement persists the major's implement; a nil implement
// removes it.
func (s *Store) SetMajorImplement(guildID, majorPrefix string, impl *models.MajorImplement) error {
	doc, err := s.FindOrCreate(guildID)
	if err != nil {
		return err
	}

	if impl != nil {
		if impl.CourseImplements == nil {
			impl.CourseImplements = make(map[string]models.CourseImplement)
		}
		doc.MajorImplements[majorPrefix] = *impl
	} else {
		delete(doc.MajorImplements, majorPrefix)
	}
	return s.db.Save(doc).Error
}

func (s *Store) CourseImplement(guildID string, course courses.Course) (*models.CourseImplement, error) {
	doc, err := s.FindOrCreate(guildID)
	if err != nil {
		return nil, err
	}
	major, ok := doc.MajorImplements[course.Major.Prefix]
	if !ok {
		return nil, nil
	}
	impl, ok := major.CourseImplements[course.Key()]
	if !ok {
		return nil, nil
	}
	return &impl, nil
}

// SetCourseImplement persists the course's implement under its major; a
// nil implement removes it. A course implement can never be set without
// its parent major implement; that is a programming error upstream and the
// write is skipped.
func (s *Store) SetCourseImplement(guildID string, course courses.Course, impl *models.CourseImplement) error {
	doc, err := s.FindOrCreate(guildID)
	if err != nil {
		return err
	}

	major, ok := doc.MajorImplements[course.Major.Prefix]
	if !ok {
		s.log.Errorf("Tried to set a course implement when major implement does not exist. Course: %s", course.Key())
		return nil
	}

	if major.CourseImplements == nil {
		major.CourseImplements = make(map[string]models.CourseImplement)
	}
	if impl != nil {
		major.CourseImplements[course.Key()] = *impl
	} else {
		delete(major.CourseImplements, course.Key())
	}
	doc.MajorImplements[course.Major.Prefix] = major
	return s.db.Save(doc).Error
}

func (s *Store) VerificationImplement(guildID string) (*models.VerificationImplement, error) {
	doc, err := s.FindOrCreate(guildID)
	if err != nil {
		return nil, err
	}
	return doc.VerificationImplement, nil
}

func (s *Store) SetVerificationImplement(guildID string, impl *models.VerificationImplement) error {
	doc, err := s.FindOrCreate(guildID)
	if err != nil {
		return err
	}
	doc.VerificationImplement = impl
	return s.db.Save(doc).Error
}

// ProvisionedMajorPrefixes lists the majors that currently have an
// implement, sorted, for display.
func (s *Store) ProvisionedMajorPrefixes(guildID string) ([]string, error) {
	doc, err := s.FindOrCreate(guildID)
	if err != nil {
		return nil, err
	}
	prefixes := make([]string, 0, len(doc.MajorImplements))
	for prefix := range doc.MajorImplements {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)
	return prefixes, nil
}
