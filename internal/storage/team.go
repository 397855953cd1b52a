package storage

import (
	"gorm.io/gorm/clause"

	"github.com/charleshuang3/teams/internal/gormw"
	"github.com/charleshuang3/teams/internal/models"
)

func CreateTeam(db *gormw.DB, team *models.Team) error {
	return db.Create(team).Error
}

func GetTeamByID(db *gormw.DB, id uint) (*models.Team, error) {
	team := &models.Team{}
	if err := db.Where("id = ?", id).First(team).Error; err != nil {
		return nil, err
	}
	return team, nil
}

// LockTeam loads the team with a row lock, serializing writers of the team's
// memberships and invitations until the transaction ends. sqlite drops the
// lock clause, its writers are serialized anyway.
func LockTeam(db *gormw.DB, id uint) (*models.Team, error) {
	team := &models.Team{}
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(team).Error
	if err != nil {
		return nil, err
	}
	return team, nil
}

func UpdateTeam(db *gormw.DB, team *models.Team) error {
	return db.Model(team).Select("name", "description").Updates(team).Error
}

// DeleteTeam deletes the team with its memberships and invitations. Call it
// inside a transaction.
func DeleteTeam(db *gormw.DB, id uint) error {
	if err := db.Where("team_id = ?", id).Delete(&models.Invitation{}).Error; err != nil {
		return err
	}
	if err := db.Where("team_id = ?", id).Delete(&models.Membership{}).Error; err != nil {
		return err
	}
	return db.Delete(&models.Team{}, id).Error
}

// ListTeamsForUser returns the teams the user is a member of.
func ListTeamsForUser(db *gormw.DB, userID uint) ([]models.Team, error) {
	var teams []models.Team
	err := db.
		Joins("JOIN memberships ON memberships.team_id = teams.id").
		Where("memberships.user_id = ?", userID).
		Order("teams.id").
		Find(&teams).Error
	if err != nil {
		return nil, err
	}
	return teams, nil
}
