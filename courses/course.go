package courses

import (
	"errors"
	"strings"
)

type Major struct {
	Prefix string
	Name   string
}

// Course is an enrollable unit. Identity is (major prefix, number) and is
// immutable once resolved.
type Course struct {
	Major  Major
	Number string
}

// Key is the canonical "prefix-number" form used for storage keys, role
// names and user display.
func (c Course) Key() string {
	return c.Major.Prefix + "-" + c.Number
}

func (c Course) MainRoleName() string {
	return c.Key()
}

func (c Course) TARoleName() string {
	return c.Key() + "-ta"
}

func (c Course) MainChannelName() string {
	return c.Key()
}

func (c Course) VoiceChannelName() string {
	return c.Key() + "-voice"
}

func (m Major) TextCategoryName() string {
	return strings.ToUpper(m.Prefix) + " Courses"
}

func (m Major) VoiceCategoryName() string {
	return strings.ToUpper(m.Prefix) + " Voice"
}

// UserError is a validation failure whose message is shown to the
// requesting user verbatim. Anything else that goes wrong is a backend
// error and gets a generic message at the boundary.
type UserError struct {
	Message string
}

func (e *UserError) Error() string {
	return e.Message
}

func IsUserError(err error) bool {
	var ue *UserError
	return errors.As(err, &ue)
}
