package storage

import (
	"time"

	"gorm.io/gorm/clause"

	"github.com/charleshuang3/teams/internal/gormw"
	"github.com/charleshuang3/teams/internal/models"
)

func GetInvitationByID(db *gormw.DB, id string) (*models.Invitation, error) {
	res := &models.Invitation{}
	if err := db.Where("id = ?", id).First(res).Error; err != nil {
		return nil, err
	}
	return res, nil
}

// LockInvitation loads the invitation with a row lock for a state transition.
func LockInvitation(db *gormw.DB, id string) (*models.Invitation, error) {
	res := &models.Invitation{}
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(res).Error
	if err != nil {
		return nil, err
	}
	return res, nil
}

func AddInvitation(db *gormw.DB, invitation *models.Invitation) error {
	return db.Create(invitation).Error
}

func UpdateInvitationStatus(db *gormw.DB, invitation *models.Invitation, status models.InvitationStatus, now time.Time) error {
	err := db.Model(invitation).Updates(map[string]any{
		"status":     status,
		"updated_at": now.UTC(),
	}).Error
	if err != nil {
		return err
	}
	invitation.Status = status
	invitation.UpdatedAt = now.UTC()
	return nil
}

// HasBlockingInvitation reports an accepted invitation, or a pending one not
// expired at now, for the (team, email) pair.
func HasBlockingInvitation(db *gormw.DB, teamID uint, email string, now time.Time) (bool, error) {
	var count int64
	err := db.Model(&models.Invitation{}).
		Where("team_id = ? AND email = ?", teamID, models.NormalizeEmail(email)).
		Where("(status = ? OR (status = ? AND expires_at > ?))",
			models.InvitationAccepted, models.InvitationPending, now.UTC()).
		Count(&count).Error
	return count > 0, err
}

func ListActiveInvitationsByTeam(db *gormw.DB, teamID uint, now time.Time) ([]models.Invitation, error) {
	var res []models.Invitation
	err := db.
		Where("team_id = ? AND status = ? AND expires_at > ?", teamID, models.InvitationPending, now.UTC()).
		Order("created_at").
		Find(&res).Error
	if err != nil {
		return nil, err
	}
	return res, nil
}

func ListActiveInvitationsByEmail(db *gormw.DB, email string, now time.Time) ([]models.Invitation, error) {
	var res []models.Invitation
	err := db.
		Where("email = ? AND status = ? AND expires_at > ?", models.NormalizeEmail(email), models.InvitationPending, now.UTC()).
		Order("created_at").
		Find(&res).Error
	if err != nil {
		return nil, err
	}
	return res, nil
}
