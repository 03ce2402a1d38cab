package members

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/studybot-dev/studybot/models"
	"gorm.io/gorm"
)

const verificationCodeLength = 8

func generateVerificationCode() string {
	code := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(code[:verificationCodeLength])
}

func (s *Store) FindOrCreateMember(userID string) (*models.Member, error) {
	var member models.Member
	err := s.db.Where("user_id = ?", userID).First(&member).Error
	if err == nil {
		return &member, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	member = models.Member{
		UserID:             userID,
		VerificationStatus: models.VerificationStatusUnverified,
	}
	if err := s.db.Create(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// IssueVerificationCode stores the student ID, generates a fresh code and
// returns it. Delivering the code (by email) is the caller's problem.
func (s *Store) IssueVerificationCode(userID, studentID string) (string, error) {
	member, err := s.FindOrCreateMember(userID)
	if err != nil {
		return "", err
	}

	code := generateVerificationCode()
	member.StudentID = studentID
	member.VerificationCode = code
	member.VerificationStatus = models.VerificationStatusCodeSent
	if err := s.db.Save(member).Error; err != nil {
		return "", err
	}
	return code, nil
}

// RedeemVerificationCode marks the user verified when the code matches the
// one previously issued to them.
func (s *Store) RedeemVerificationCode(userID, code string) (bool, error) {
	member, err := s.FindOrCreateMember(userID)
	if err != nil {
		return false, err
	}
	if member.VerificationStatus != models.VerificationStatusCodeSent || member.VerificationCode != code {
		return false, nil
	}

	member.VerificationCode = ""
	member.VerificationStatus = models.VerificationStatusVerified
	if err := s.db.Save(member).Error; err != nil {
		return false, err
	}
	return true, nil
}
