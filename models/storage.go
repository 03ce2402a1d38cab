package models

import "gorm.io/gorm"

// GuildStorage is the per-guild document. The nested implement maps are
// stored as a JSON blob and always read and written whole.
type GuildStorage struct {
	gorm.Model
	GuildID               string                    `json:"guild_id" gorm:"uniqueIndex"`
	MajorImplements       map[string]MajorImplement `json:"major_implements" gorm:"serializer:json"`
	VerificationImplement *VerificationImplement    `json:"verification_implement" gorm:"serializer:json"`
}

// MemberCourse is one user's enrollment in one course within one guild.
type MemberCourse struct {
	gorm.Model
	GuildID   string `json:"guild_id" gorm:"index:idx_member_course,unique"`
	UserID    string `json:"user_id" gorm:"index:idx_member_course,unique"`
	CourseKey string `json:"course_key" gorm:"index:idx_member_course,unique"`
	IsTA      bool   `json:"is_ta"`
}

// Member carries per-user verification state.
type Member struct {
	gorm.Model
	UserID             string `json:"user_id" gorm:"uniqueIndex"`
	StudentID          string `json:"student_id"`
	VerificationCode   string `json:"verification_code"`
	VerificationStatus string `json:"verification_status"`
}

const (
	VerificationStatusUnverified = "unverified"
	VerificationStatusCodeSent   = "code_sent"
	VerificationStatusVerified   = "verified"
)
