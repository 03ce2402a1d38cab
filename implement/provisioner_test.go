package implement

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/studybot-dev/studybot/courses"
	"github.com/studybot-dev/studybot/models"
	"github.com/studybot-dev/studybot/storage"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeAPI struct {
	nextID int

	rolesCreated      []string
	categoriesCreated []string
	textCreated       []string
	voiceCreated      []string

	rolesDeleted    []string
	channelsDeleted []string

	failCreateVoiceChannel bool
	failDeleteRole         bool
}

func (f *fakeAPI) id() string {
	f.nextID++
	return fmt.Sprintf("id-%d", f.nextID)
}

func (f *fakeAPI) CreateRole(guildID, name string) (string, error) {
	f.rolesCreated = append(f.rolesCreated, name)
	return f.id(), nil
}

func (f *fakeAPI) DeleteRole(guildID, roleID string) error {
	if f.failDeleteRole {
		return errors.New("delete role failed")
	}
	f.rolesDeleted = append(f.rolesDeleted, roleID)
	return nil
}

func (f *fakeAPI) CreateCategory(guildID, name string) (string, error) {
	f.categoriesCreated = append(f.categoriesCreated, name)
	return f.id(), nil
}

func (f *fakeAPI) CreateTextChannel(guildID, name, categoryID string, viewRoleIDs []string) (string, error) {
	f.textCreated = append(f.textCreated, name)
	return f.id(), nil
}

func (f *fakeAPI) CreateVoiceChannel(guildID, name, categoryID string, viewRoleIDs []string) (string, error) {
	if f.failCreateVoiceChannel {
		return "", errors.New("voice channel creation failed")
	}
	f.voiceCreated = append(f.voiceCreated, name)
	return f.id(), nil
}

func (f *fakeAPI) DeleteChannel(channelID string) error {
	f.channelsDeleted = append(f.channelsDeleted, channelID)
	return nil
}

func (f *fakeAPI) createCalls() int {
	return len(f.rolesCreated) + len(f.categoriesCreated) + len(f.textCreated) + len(f.voiceCreated)
}

type fakeCounter struct {
	count int64
	err   error
	calls int
}

func (f *fakeCounter) CountMembersAssigned(guildID, courseKey string) (int64, error) {
	f.calls++
	return f.count, f.err
}

func setupProvisioner(t *testing.T, api ResourceAPI, counter MemberCounter) (*Provisioner, *storage.Store) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.AutoMigrate(&models.GuildStorage{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	store := storage.NewStore(db, zap.NewNop().Sugar())
	return NewProvisioner(store, api, counter, zap.NewNop().Sugar()), store
}

var course1410 = courses.Course{Major: courses.Major{Prefix: "cs"}, Number: "1410"}

func TestGetOrCreateCourseImplement(t *testing.T) {
	api := &fakeAPI{}
	provisioner, store := setupProvisioner(t, api, &fakeCounter{})

	impl, err := provisioner.GetOrCreateCourseImplement("guild1", course1410)
	if err != nil {
		t.Fatalf("GetOrCreateCourseImplement failed: %v", err)
	}
	if impl.MainRoleID == "" || impl.TARoleID == "" || impl.MainChannelID == "" || impl.VoiceChannelID == "" {
		t.Errorf("implement has unset IDs: %+v", impl)
	}

	// First course of the major: a category pair, two roles, two channels.
	if len(api.categoriesCreated) != 2 {
		t.Errorf("categories created = %v, want 2", api.categoriesCreated)
	}
	if len(api.rolesCreated) != 2 || api.rolesCreated[0] != "cs-1410" || api.rolesCreated[1] != "cs-1410-ta" {
		t.Errorf("roles created = %v", api.rolesCreated)
	}
	if len(api.textCreated) != 1 || api.textCreated[0] != "cs-1410" {
		t.Errorf("text channels created = %v", api.textCreated)
	}
	if len(api.voiceCreated) != 1 || api.voiceCreated[0] != "cs-1410-voice" {
		t.Errorf("voice channels created = %v", api.voiceCreated)
	}

	persisted, err := store.CourseImplement("guild1", course1410)
	if err != nil {
		t.Fatalf("CourseImplement failed: %v", err)
	}
	if persisted == nil || *persisted != *impl {
		t.Errorf("persisted implement %+v does not match returned %+v", persisted, impl)
	}
}

func TestGetOrCreateCourseImplementIsIdempotent(t *testing.T) {
	api := &fakeAPI{}
	provisioner, _ := setupProvisioner(t, api, &fakeCounter{})

	first, err := provisioner.GetOrCreateCourseImplement("guild1", course1410)
	if err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	callsAfterFirst := api.createCalls()

	second, err := provisioner.GetOrCreateCourseImplement("guild1", course1410)
	if err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	if api.createCalls() != callsAfterFirst {
		t.Errorf("second call issued %d extra create calls", api.createCalls()-callsAfterFirst)
	}
	if *first != *second {
		t.Errorf("second call returned a different implement: %+v vs %+v", first, second)
	}
}

func TestSecondCourseReusesMajorImplement(t *testing.T) {
	api := &fakeAPI{}
	provisioner, _ := setupProvisioner(t, api, &fakeCounter{})

	if _, err := provisioner.GetOrCreateCourseImplement("guild1", course1410); err != nil {
		t.Fatalf("first course failed: %v", err)
	}
	other := courses.Course{Major: courses.Major{Prefix: "cs"}, Number: "2420"}
	if _, err := provisioner.GetOrCreateCourseImplement("guild1", other); err != nil {
		t.Fatalf("second course failed: %v", err)
	}

	if len(api.categoriesCreated) != 2 {
		t.Errorf("categories created = %v, the major's pair must be reused", api.categoriesCreated)
	}
}

func TestCreateFailureRollsBackCreatedResources(t *testing.T) {
	api := &fakeAPI{failCreateVoiceChannel: true}
	provisioner, store := setupProvisioner(t, api, &fakeCounter{})

	_, err := provisioner.GetOrCreateCourseImplement("guild1", course1410)
	if err == nil {
		t.Fatal("expected the voice channel failure to surface")
	}

	// Both roles and the text channel were created before the failure and
	// must be cleaned up again.
	if len(api.rolesDeleted) != 2 {
		t.Errorf("roles deleted = %v, want 2", api.rolesDeleted)
	}
	if len(api.channelsDeleted) != 1 {
		t.Errorf("channels deleted = %v, want 1 (the text channel)", api.channelsDeleted)
	}

	persisted, err := store.CourseImplement("guild1", course1410)
	if err != nil {
		t.Fatalf("CourseImplement failed: %v", err)
	}
	if persisted != nil {
		t.Errorf("a half-created course must not be persisted, got %+v", persisted)
	}

	// The major implement stays; it is reusable on retry.
	major, err := store.MajorImplement("guild1", "cs")
	if err != nil {
		t.Fatalf("MajorImplement failed: %v", err)
	}
	if major == nil {
		t.Error("major implement should survive a course-level failure")
	}
}

func TestDeleteIfEmptyIsNoopWithMembers(t *testing.T) {
	api := &fakeAPI{}
	counter := &fakeCounter{count: 1}
	provisioner, store := setupProvisioner(t, api, counter)

	if _, err := provisioner.GetOrCreateCourseImplement("guild1", course1410); err != nil {
		t.Fatalf("GetOrCreateCourseImplement failed: %v", err)
	}

	if err := provisioner.DeleteCourseImplementIfEmpty("guild1", course1410); err != nil {
		t.Fatalf("DeleteCourseImplementIfEmpty failed: %v", err)
	}
	if len(api.rolesDeleted) != 0 || len(api.channelsDeleted) != 0 {
		t.Errorf("no deletions expected while members remain, got roles %v channels %v", api.rolesDeleted, api.channelsDeleted)
	}

	impl, err := store.CourseImplement("guild1", course1410)
	if err != nil {
		t.Fatalf("CourseImplement failed: %v", err)
	}
	if impl == nil {
		t.Error("the implement must still be persisted")
	}
}

func TestDeleteIfEmptyWithoutImplementIsNoop(t *testing.T) {
	api := &fakeAPI{}
	counter := &fakeCounter{}
	provisioner, _ := setupProvisioner(t, api, counter)

	if err := provisioner.DeleteCourseImplementIfEmpty("guild1", course1410); err != nil {
		t.Fatalf("DeleteCourseImplementIfEmpty failed: %v", err)
	}
	if counter.calls != 0 {
		t.Error("the member count must not be consulted for an unprovisioned course")
	}
	if len(api.channelsDeleted) != 0 {
		t.Errorf("no deletions expected, got %v", api.channelsDeleted)
	}
}

func TestDeleteIfEmptyTearsDownCourseAndMajor(t *testing.T) {
	api := &fakeAPI{}
	counter := &fakeCounter{}
	provisioner, store := setupProvisioner(t, api, counter)

	if _, err := provisioner.GetOrCreateCourseImplement("guild1", course1410); err != nil {
		t.Fatalf("GetOrCreateCourseImplement failed: %v", err)
	}

	if err := provisioner.DeleteCourseImplementIfEmpty("guild1", course1410); err != nil {
		t.Fatalf("DeleteCourseImplementIfEmpty failed: %v", err)
	}

	// Two course channels plus the major's two categories.
	if len(api.channelsDeleted) != 4 {
		t.Errorf("channels deleted = %v, want 4", api.channelsDeleted)
	}
	if len(api.rolesDeleted) != 2 {
		t.Errorf("roles deleted = %v, want 2", api.rolesDeleted)
	}

	impl, err := store.CourseImplement("guild1", course1410)
	if err != nil {
		t.Fatalf("CourseImplement failed: %v", err)
	}
	if impl != nil {
		t.Errorf("course implement should be removed, got %+v", impl)
	}
	major, err := store.MajorImplement("guild1", "cs")
	if err != nil {
		t.Fatalf("MajorImplement failed: %v", err)
	}
	if major != nil {
		t.Errorf("major implement should be removed with its last course, got %+v", major)
	}
}

func TestDeleteIfEmptyKeepsMajorWithRemainingCourses(t *testing.T) {
	api := &fakeAPI{}
	provisioner, store := setupProvisioner(t, api, &fakeCounter{})

	other := courses.Course{Major: courses.Major{Prefix: "cs"}, Number: "2420"}
	if _, err := provisioner.GetOrCreateCourseImplement("guild1", course1410); err != nil {
		t.Fatalf("GetOrCreateCourseImplement failed: %v", err)
	}
	if _, err := provisioner.GetOrCreateCourseImplement("guild1", other); err != nil {
		t.Fatalf("GetOrCreateCourseImplement failed: %v", err)
	}

	if err := provisioner.DeleteCourseImplementIfEmpty("guild1", course1410); err != nil {
		t.Fatalf("DeleteCourseImplementIfEmpty failed: %v", err)
	}

	major, err := store.MajorImplement("guild1", "cs")
	if err != nil {
		t.Fatalf("MajorImplement failed: %v", err)
	}
	if major == nil {
		t.Fatal("major implement must survive while another course remains")
	}
	if _, ok := major.CourseImplements["cs-2420"]; !ok {
		t.Error("remaining course implement is missing")
	}
}

func TestDeleteIfEmptyReportsPartialTeardown(t *testing.T) {
	api := &fakeAPI{failDeleteRole: true}
	provisioner, store := setupProvisioner(t, api, &fakeCounter{})

	if _, err := provisioner.GetOrCreateCourseImplement("guild1", course1410); err != nil {
		t.Fatalf("GetOrCreateCourseImplement failed: %v", err)
	}

	err := provisioner.DeleteCourseImplementIfEmpty("guild1", course1410)
	if err == nil {
		t.Fatal("expected a partial teardown error")
	}

	// The persisted record is removed even though role deletion failed.
	impl, lookupErr := store.CourseImplement("guild1", course1410)
	if lookupErr != nil {
		t.Fatalf("CourseImplement failed: %v", lookupErr)
	}
	if impl != nil {
		t.Errorf("course implement should be removed despite failures, got %+v", impl)
	}
}

func TestGetOrCreateVerificationImplement(t *testing.T) {
	api := &fakeAPI{}
	provisioner, _ := setupProvisioner(t, api, &fakeCounter{})

	impl, err := provisioner.GetOrCreateVerificationImplement("guild1", "verified")
	if err != nil {
		t.Fatalf("GetOrCreateVerificationImplement failed: %v", err)
	}
	if impl.RoleID == "" {
		t.Error("role ID not set")
	}

	again, err := provisioner.GetOrCreateVerificationImplement("guild1", "verified")
	if err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	if len(api.rolesCreated) != 1 {
		t.Errorf("roles created = %v, want exactly 1", api.rolesCreated)
	}
	if again.RoleID != impl.RoleID {
		t.Errorf("second call returned a different role: %q vs %q", again.RoleID, impl.RoleID)
	}
}
