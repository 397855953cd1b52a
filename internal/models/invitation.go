package models

import "time"

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationRejected InvitationStatus = "rejected"
)

// InvitationTTL is the fixed lifetime of an invitation from its creation.
const InvitationTTL = 15 * 24 * time.Hour

type Invitation struct {
	ID          string `gorm:"primarykey"` // uuid, also used in accept/reject links
	TeamID      uint   `gorm:"index:idx_invitations_team_email"`
	Email       string `gorm:"index:idx_invitations_team_email;index"` // lower-cased
	FirstName   string
	LastName    string
	PhoneNumber string
	RoleID      uint
	InvitedByID uint
	Status      InvitationStatus `gorm:"index"`
	CreatedAt   time.Time
	ExpiresAt   time.Time `gorm:"index"`
	UpdatedAt   time.Time
}

func (i *Invitation) ResolveTeam() uint {
	return i.TeamID
}

// IsExpired uses an inclusive boundary: at ExpiresAt the invitation is expired.
func (i *Invitation) IsExpired(now time.Time) bool {
	return !i.ExpiresAt.After(now)
}

// IsActive reports a pending invitation that has not expired yet.
func (i *Invitation) IsActive(now time.Time) bool {
	return i.Status == InvitationPending && !i.IsExpired(now)
}

func (i *Invitation) FullName() string {
	return joinName(i.FirstName, i.LastName)
}
