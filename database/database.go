package database

import (
	"github.com/studybot-dev/studybot/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Init(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&models.GuildStorage{}, &models.MemberCourse{}, &models.Member{}); err != nil {
		return nil, err
	}

	return db, nil
}
