package models

// CourseImplement is the bundle of Discord resources backing one course.
// All four IDs are set together; a partially provisioned course is never
// persisted.
type CourseImplement struct {
	MainRoleID     string `json:"main_role_id"`
	TARoleID       string `json:"ta_role_id"`
	MainChannelID  string `json:"main_channel_id"`
	VoiceChannelID string `json:"voice_channel_id"`
}

// MajorImplement holds the category pair a major's course channels live
// under, plus the implements of every provisioned course of that major,
// keyed by course key ("cs-1410").
type MajorImplement struct {
	TextCategoryID   string                     `json:"text_category_id"`
	VoiceCategoryID  string                     `json:"voice_category_id"`
	CourseImplements map[string]CourseImplement `json:"course_implements"`
}

type VerificationImplement struct {
	RoleID string `json:"role_id"`
}
