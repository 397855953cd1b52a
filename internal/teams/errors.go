package teams

import (
	"errors"
	"fmt"
)

// Root errors. Every error returned by this package wraps one of them.
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrInvalidInput = errors.New("invalid input")
)

var (
	ErrTeamNotFound       = fmt.Errorf("%w: team", ErrNotFound)
	ErrRoleNotFound       = fmt.Errorf("%w: role", ErrNotFound)
	ErrMemberNotFound     = fmt.Errorf("%w: member", ErrNotFound)
	ErrInvitationNotFound = fmt.Errorf("%w: invitation", ErrNotFound)
	ErrUserNotFound       = fmt.Errorf("%w: user", ErrNotFound)

	ErrAlreadyMember        = fmt.Errorf("%w: user is already a member of this team", ErrConflict)
	ErrDuplicateInvitation  = fmt.Errorf("%w: an active invitation already exists for this email", ErrConflict)
	ErrLastPrivilegedMember = fmt.Errorf("%w: team must keep at least one member who can manage members", ErrConflict)

	ErrNotPending = fmt.Errorf("%w: invitation is no longer pending", ErrInvalidState)
	ErrExpired    = fmt.Errorf("%w: invitation has expired", ErrInvalidState)

	ErrInvitationEmailMismatch = fmt.Errorf("%w: invitation was sent to another email", ErrForbidden)
)

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
