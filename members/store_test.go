package members

import (
	"path/filepath"
	"testing"

	"github.com/studybot-dev/studybot/courses"
	"github.com/studybot-dev/studybot/models"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.AutoMigrate(&models.MemberCourse{}, &models.Member{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return NewStore(db, zap.NewNop().Sugar())
}

var (
	cs1410 = courses.Course{Major: courses.Major{Prefix: "cs"}, Number: "1410"}
	cs2420 = courses.Course{Major: courses.Major{Prefix: "cs"}, Number: "2420"}
)

func TestAssignAndCount(t *testing.T) {
	store := setupStore(t)

	if err := store.AssignCourses("guild1", "user1", []courses.Course{cs1410, cs2420}); err != nil {
		t.Fatalf("AssignCourses failed: %v", err)
	}
	// Re-assigning must not create duplicate rows.
	if err := store.AssignCourses("guild1", "user1", []courses.Course{cs1410}); err != nil {
		t.Fatalf("AssignCourses failed: %v", err)
	}
	if err := store.AssignCourses("guild1", "user2", []courses.Course{cs1410}); err != nil {
		t.Fatalf("AssignCourses failed: %v", err)
	}

	count, err := store.CountMembersAssigned("guild1", "cs-1410")
	if err != nil {
		t.Fatalf("CountMembersAssigned failed: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}

	count, err = store.CountMembersAssigned("guild1", "cs-2420")
	if err != nil {
		t.Fatalf("CountMembersAssigned failed: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestUnassignCourses(t *testing.T) {
	store := setupStore(t)

	if err := store.AssignCourses("guild1", "user1", []courses.Course{cs1410}); err != nil {
		t.Fatalf("AssignCourses failed: %v", err)
	}
	if err := store.UnassignCourses("guild1", "user1", []courses.Course{cs1410}); err != nil {
		t.Fatalf("UnassignCourses failed: %v", err)
	}

	count, err := store.CountMembersAssigned("guild1", "cs-1410")
	if err != nil {
		t.Fatalf("CountMembersAssigned failed: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}

	// Unassigning a course the user never joined is a no-op.
	if err := store.UnassignCourses("guild1", "user1", []courses.Course{cs2420}); err != nil {
		t.Errorf("UnassignCourses of a missing enrollment failed: %v", err)
	}
}

func TestToggleTA(t *testing.T) {
	store := setupStore(t)

	if err := store.AssignCourses("guild1", "user1", []courses.Course{cs1410}); err != nil {
		t.Fatalf("AssignCourses failed: %v", err)
	}

	status, err := store.ToggleTA("guild1", "user1", []courses.Course{cs1410, cs2420})
	if err != nil {
		t.Fatalf("ToggleTA failed: %v", err)
	}
	if !status["cs-1410"] {
		t.Error("expected cs-1410 TA status to be on")
	}
	if _, ok := status["cs-2420"]; ok {
		t.Error("cs-2420 is not an enrollment, it must be skipped")
	}

	status, err = store.ToggleTA("guild1", "user1", []courses.Course{cs1410})
	if err != nil {
		t.Fatalf("ToggleTA failed: %v", err)
	}
	if status["cs-1410"] {
		t.Error("expected cs-1410 TA status to be off after second toggle")
	}
}

func TestCourses(t *testing.T) {
	store := setupStore(t)

	if err := store.AssignCourses("guild1", "user1", []courses.Course{cs2420, cs1410}); err != nil {
		t.Fatalf("AssignCourses failed: %v", err)
	}

	rows, err := store.Courses("guild1", "user1")
	if err != nil {
		t.Fatalf("Courses failed: %v", err)
	}
	if len(rows) != 2 || rows[0].CourseKey != "cs-1410" || rows[1].CourseKey != "cs-2420" {
		t.Errorf("unexpected rows: %+v", rows)
	}
}

func TestVerificationFlow(t *testing.T) {
	store := setupStore(t)

	code, err := store.IssueVerificationCode("user1", "u0000001")
	if err != nil {
		t.Fatalf("IssueVerificationCode failed: %v", err)
	}
	if len(code) != verificationCodeLength {
		t.Errorf("code %q has length %d, want %d", code, len(code), verificationCodeLength)
	}

	ok, err := store.RedeemVerificationCode("user1", "WRONG")
	if err != nil {
		t.Fatalf("RedeemVerificationCode failed: %v", err)
	}
	if ok {
		t.Error("a wrong code must not verify")
	}

	ok, err = store.RedeemVerificationCode("user1", code)
	if err != nil {
		t.Fatalf("RedeemVerificationCode failed: %v", err)
	}
	if !ok {
		t.Error("the issued code must verify")
	}

	member, err := store.FindOrCreateMember("user1")
	if err != nil {
		t.Fatalf("FindOrCreateMember failed: %v", err)
	}
	if member.VerificationStatus != models.VerificationStatusVerified {
		t.Errorf("status = %q, want verified", member.VerificationStatus)
	}
	if member.VerificationCode != "" {
		t.Error("the code must be cleared after verification")
	}
}
