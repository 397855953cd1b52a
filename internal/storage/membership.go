package storage

import (
	"github.com/charleshuang3/teams/internal/gormw"
	"github.com/charleshuang3/teams/internal/models"
)

// MemberRow is a membership joined with its user and role.
type MemberRow struct {
	TeamID          uint
	UserID          uint
	Email           string
	FirstName       string
	LastName        string
	PhoneNumber     string
	RoleID          uint
	RoleName        string
	RoleDescription string
	RolePermissions string
}

func (r *MemberRow) FullName() string {
	return (&models.User{FirstName: r.FirstName, LastName: r.LastName}).FullName()
}

func (r *MemberRow) Role() *models.Role {
	return &models.Role{
		ID:          r.RoleID,
		Name:        r.RoleName,
		Description: r.RoleDescription,
		Permissions: r.RolePermissions,
	}
}

func memberRows(db *gormw.DB) *gormw.DB {
	return &gormw.DB{DB: db.
		Table("memberships").
		Select(`memberships.team_id, memberships.user_id,
			users.email, users.first_name, users.last_name, users.phone_number,
			memberships.role_id, roles.name AS role_name,
			roles.description AS role_description, roles.permissions AS role_permissions`).
		Joins("JOIN users ON users.id = memberships.user_id").
		Joins("JOIN roles ON roles.id = memberships.role_id")}
}

func GetMembership(db *gormw.DB, teamID, userID uint) (*models.Membership, error) {
	m := &models.Membership{}
	if err := db.Where("team_id = ? AND user_id = ?", teamID, userID).First(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

func GetMemberRow(db *gormw.DB, teamID, userID uint) (*MemberRow, error) {
	row := &MemberRow{}
	err := memberRows(db).
		Where("memberships.team_id = ? AND memberships.user_id = ?", teamID, userID).
		Take(row).Error
	if err != nil {
		return nil, err
	}
	return row, nil
}

func ListMemberRows(db *gormw.DB, teamID uint) ([]MemberRow, error) {
	var rows []MemberRow
	err := memberRows(db).
		Where("memberships.team_id = ?", teamID).
		Order("memberships.created_at, memberships.user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// IsMemberByEmail matches the user's email case-insensitively.
func IsMemberByEmail(db *gormw.DB, teamID uint, email string) (bool, error) {
	var count int64
	err := db.Model(&models.Membership{}).
		Joins("JOIN users ON users.id = memberships.user_id").
		Where("memberships.team_id = ? AND LOWER(users.email) = ?", teamID, models.NormalizeEmail(email)).
		Count(&count).Error
	return count > 0, err
}

func IsMember(db *gormw.DB, teamID, userID uint) (bool, error) {
	var count int64
	err := db.Model(&models.Membership{}).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Count(&count).Error
	return count > 0, err
}

// ListTeamRoles returns the role of every membership of the team.
func ListTeamRoles(db *gormw.DB, teamID uint) ([]models.Role, error) {
	var roles []models.Role
	err := db.Table("memberships").
		Select("roles.*").
		Joins("JOIN roles ON roles.id = memberships.role_id").
		Where("memberships.team_id = ?", teamID).
		Scan(&roles).Error
	if err != nil {
		return nil, err
	}
	return roles, nil
}

func AddMembership(db *gormw.DB, m *models.Membership) error {
	return db.Create(m).Error
}

func UpdateMembershipRole(db *gormw.DB, m *models.Membership, roleID uint) error {
	if err := db.Model(m).
		Where("team_id = ? AND user_id = ?", m.TeamID, m.UserID).
		Update("role_id", roleID).Error; err != nil {
		return err
	}
	m.RoleID = roleID
	return nil
}

func RemoveMembership(db *gormw.DB, m *models.Membership) error {
	return db.Where("team_id = ? AND user_id = ?", m.TeamID, m.UserID).Delete(&models.Membership{}).Error
}
