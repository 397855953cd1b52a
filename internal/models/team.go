package models

import "time"

type Team struct {
	ID          uint `gorm:"primarykey"`
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (t *Team) ResolveTeam() uint {
	return t.ID
}

// Membership binds a user to a team under a role. A user has at most one
// membership per team.
type Membership struct {
	TeamID    uint `gorm:"primaryKey;autoIncrement:false"`
	UserID    uint `gorm:"primaryKey;autoIncrement:false;index"`
	RoleID    uint `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (m *Membership) ResolveTeam() uint {
	return m.TeamID
}
