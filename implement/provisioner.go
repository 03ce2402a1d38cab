package implement

import (
	"fmt"
	"strings"

	"github.com/studybot-dev/studybot/courses"
	"github.com/studybot-dev/studybot/models"
	"github.com/studybot-dev/studybot/storage"
	"go.uber.org/zap"
)

// Provisioner owns the lifecycle of the Discord resources backing majors
// and courses: lazy get-or-create on first enrollment, conditional
// teardown when the last member leaves. All persistence goes through the
// guild storage document.
type Provisioner struct {
	store   *storage.Store
	api     ResourceAPI
	members MemberCounter
	log     *zap.SugaredLogger
	locks   keyedLocks
}

func NewProvisioner(store *storage.Store, api ResourceAPI, members MemberCounter, log *zap.SugaredLogger) *Provisioner {
	return &Provisioner{
		store:   store,
		api:     api,
		members: members,
		log:     log,
	}
}

type createdResource struct {
	kind string
	id   string
}

func courseLockKey(guildID string, course courses.Course) string {
	return guildID + "/course/" + course.Key()
}

func majorLockKey(guildID string, major courses.Major) string {
	return guildID + "/major/" + major.Prefix
}

// GetOrCreateCourseImplement returns the course's resource bundle,
// provisioning it first if needed. Creation for a given course is
// serialized, so a second concurrent caller waits and then finds the
// winner's bundle instead of creating a duplicate.
func (p *Provisioner) GetOrCreateCourseImplement(guildID string, course courses.Course) (*models.CourseImplement, error) {
	unlock := p.locks.lock(courseLockKey(guildID, course))
	defer unlock()

	impl, err := p.store.CourseImplement(guildID, course)
	if err != nil {
		return nil, err
	}
	if impl != nil {
		return impl, nil
	}
	return p.createCourseImplement(guildID, course)
}

// GetCourseImplementIfExists is a side-effect-free lookup.
func (p *Provisioner) GetCourseImplementIfExists(guildID string, course courses.Course) (*models.CourseImplement, error) {
	return p.store.CourseImplement(guildID, course)
}

func (p *Provisioner) createCourseImplement(guildID string, course courses.Course) (*models.CourseImplement, error) {
	major, err := p.getOrCreateMajorImplement(guildID, course.Major)
	if err != nil {
		return nil, err
	}

	var created []createdResource
	fail := func(err error) (*models.CourseImplement, error) {
		p.rollback(guildID, created)
		return nil, err
	}

	mainRoleID, err := p.api.CreateRole(guildID, course.MainRoleName())
	if err != nil {
		return fail(fmt.Errorf("creating main role for %s: %w", course.Key(), err))
	}
	created = append(created, createdResource{kind: "role", id: mainRoleID})

	taRoleID, err := p.api.CreateRole(guildID, course.TARoleName())
	if err != nil {
		return fail(fmt.Errorf("creating TA role for %s: %w", course.Key(), err))
	}
	created = append(created, createdResource{kind: "role", id: taRoleID})

	roleIDs := []string{mainRoleID, taRoleID}
	mainChannelID, err := p.api.CreateTextChannel(guildID, course.MainChannelName(), major.TextCategoryID, roleIDs)
	if err != nil {
		return fail(fmt.Errorf("creating main channel for %s: %w", course.Key(), err))
	}
	created = append(created, createdResource{kind: "channel", id: mainChannelID})

	voiceChannelID, err := p.api.CreateVoiceChannel(guildID, course.VoiceChannelName(), major.VoiceCategoryID, roleIDs)
	if err != nil {
		return fail(fmt.Errorf("creating voice channel for %s: %w", course.Key(), err))
	}
	created = append(created, createdResource{kind: "channel", id: voiceChannelID})

	impl := &models.CourseImplement{
		MainRoleID:     mainRoleID,
		TARoleID:       taRoleID,
		MainChannelID:  mainChannelID,
		VoiceChannelID: voiceChannelID,
	}
	if err := p.store.SetCourseImplement(guildID, course, impl); err != nil {
		return fail(fmt.Errorf("persisting course implement for %s: %w", course.Key(), err))
	}

	p.log.Infof("Provisioned course %s on guild %s", course.Key(), guildID)
	return impl, nil
}

// rollback is the compensating cleanup for a half-created course: delete
// what was already created, newest first, so a failure does not leave
// orphaned roles and channels behind. Cleanup failures are logged and the
// original error still wins.
func (p *Provisioner) rollback(guildID string, created []createdResource) {
	for i := len(created) - 1; i >= 0; i-- {
		resource := created[i]
		var err error
		switch resource.kind {
		case "role":
			err = p.api.DeleteRole(guildID, resource.id)
		case "channel":
			err = p.api.DeleteChannel(resource.id)
		}
		if err != nil {
			p.log.Errorf("Failed to clean up %s %s after provisioning failure: %v", resource.kind, resource.id, err)
		}
	}
}

func (p *Provisioner) getOrCreateMajorImplement(guildID string, major courses.Major) (*models.MajorImplement, error) {
	unlock := p.locks.lock(majorLockKey(guildID, major))
	defer unlock()

	impl, err := p.store.MajorImplement(guildID, major.Prefix)
	if err != nil {
		return nil, err
	}
	if impl != nil {
		return impl, nil
	}

	textCategoryID, err := p.api.CreateCategory(guildID, major.TextCategoryName())
	if err != nil {
		return nil, fmt.Errorf("creating text category for major %s: %w", major.Prefix, err)
	}

	voiceCategoryID, err := p.api.CreateCategory(guildID, major.VoiceCategoryName())
	if err != nil {
		p.rollback(guildID, []createdResource{{kind: "channel", id: textCategoryID}})
		return nil, fmt.Errorf("creating voice category for major %s: %w", major.Prefix, err)
	}

	impl = &models.MajorImplement{
		TextCategoryID:   textCategoryID,
		VoiceCategoryID:  voiceCategoryID,
		CourseImplements: make(map[string]models.CourseImplement),
	}
	if err := p.store.SetMajorImplement(guildID, major.Prefix, impl); err != nil {
		p.rollback(guildID, []createdResource{
			{kind: "channel", id: textCategoryID},
			{kind: "channel", id: voiceCategoryID},
		})
		return nil, fmt.Errorf("persisting major implement for %s: %w", major.Prefix, err)
	}

	p.log.Infof("Provisioned major %s on guild %s", major.Prefix, guildID)
	return impl, nil
}

// DeleteCourseImplementIfEmpty tears down the course's resources once no
// members remain enrolled. Each external deletion is attempted
// independently; the persisted record is removed regardless, and any
// failures are reported together so orphans can be cleaned up by hand.
func (p *Provisioner) DeleteCourseImplementIfEmpty(guildID string, course courses.Course) error {
	unlock := p.locks.lock(courseLockKey(guildID, course))
	defer unlock()

	impl, err := p.store.CourseImplement(guildID, course)
	if err != nil {
		return err
	}
	if impl == nil {
		return nil
	}

	count, err := p.members.CountMembersAssigned(guildID, course.Key())
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	var failures []string
	deletions := []struct {
		kind string
		id   string
	}{
		{"channel", impl.MainChannelID},
		{"channel", impl.VoiceChannelID},
		{"role", impl.MainRoleID},
		{"role", impl.TARoleID},
	}
	for _, deletion := range deletions {
		var err error
		switch deletion.kind {
		case "channel":
			err = p.api.DeleteChannel(deletion.id)
		case "role":
			err = p.api.DeleteRole(guildID, deletion.id)
		}
		if err != nil {
			p.log.Errorf("Failed to delete %s %s during teardown of course %s: %v", deletion.kind, deletion.id, course.Key(), err)
			failures = append(failures, fmt.Sprintf("%s %s: %v", deletion.kind, deletion.id, err))
		}
	}

	if err := p.store.SetCourseImplement(guildID, course, nil); err != nil {
		return fmt.Errorf("removing course implement for %s: %w", course.Key(), err)
	}
	p.log.Infof("Tore down course %s on guild %s", course.Key(), guildID)

	if err := p.deleteMajorImplementIfEmpty(guildID, course.Major); err != nil {
		failures = append(failures, err.Error())
	}

	if len(failures) > 0 {
		return fmt.Errorf("partial teardown of course %s: %s", course.Key(), strings.Join(failures, "; "))
	}
	return nil
}

func (p *Provisioner) deleteMajorImplementIfEmpty(guildID string, major courses.Major) error {
	unlock := p.locks.lock(majorLockKey(guildID, major))
	defer unlock()

	impl, err := p.store.MajorImplement(guildID, major.Prefix)
	if err != nil {
		return err
	}
	if impl == nil || len(impl.CourseImplements) > 0 {
		return nil
	}

	var failures []string
	for _, categoryID := range []string{impl.TextCategoryID, impl.VoiceCategoryID} {
		if err := p.api.DeleteChannel(categoryID); err != nil {
			p.log.Errorf("Failed to delete category %s during teardown of major %s: %v", categoryID, major.Prefix, err)
			failures = append(failures, fmt.Sprintf("category %s: %v", categoryID, err))
		}
	}

	if err := p.store.SetMajorImplement(guildID, major.Prefix, nil); err != nil {
		return fmt.Errorf("removing major implement for %s: %w", major.Prefix, err)
	}
	p.log.Infof("Tore down major %s on guild %s", major.Prefix, guildID)

	if len(failures) > 0 {
		return fmt.Errorf("partial teardown of major %s: %s", major.Prefix, strings.Join(failures, "; "))
	}
	return nil
}

// GetOrCreateVerificationImplement lazily creates the guild's verified
// role and persists its ID.
func (p *Provisioner) GetOrCreateVerificationImplement(guildID, roleName string) (*models.VerificationImplement, error) {
	unlock := p.locks.lock(guildID + "/verification")
	defer unlock()

	impl, err := p.store.VerificationImplement(guildID)
	if err != nil {
		return nil, err
	}
	if impl != nil {
		return impl, nil
	}

	roleID, err := p.api.CreateRole(guildID, roleName)
	if err != nil {
		return nil, fmt.Errorf("creating verified role: %w", err)
	}
	impl = &models.VerificationImplement{RoleID: roleID}
	if err := p.store.SetVerificationImplement(guildID, impl); err != nil {
		p.rollback(guildID, []createdResource{{kind: "role", id: roleID}})
		return nil, fmt.Errorf("persisting verification implement: %w", err)
	}
	return impl, nil
}
