package storage

import (
	"github.com/charleshuang3/teams/internal/gormw"
	"github.com/charleshuang3/teams/internal/models"
)

func GetRoleByID(db *gormw.DB, id uint) (*models.Role, error) {
	role := &models.Role{}
	if err := db.Where("id = ?", id).First(role).Error; err != nil {
		return nil, err
	}
	return role, nil
}

func GetRoleByName(db *gormw.DB, name string) (*models.Role, error) {
	role := &models.Role{}
	if err := db.Where("name = ?", name).First(role).Error; err != nil {
		return nil, err
	}
	return role, nil
}

func ListRoles(db *gormw.DB) ([]models.Role, error) {
	var roles []models.Role
	if err := db.Order("id").Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

// UpsertRole creates the role, or updates description and permissions of the
// role with the same name.
func UpsertRole(db *gormw.DB, role *models.Role) error {
	existing := &models.Role{}
	err := db.
		Where(models.Role{Name: role.Name}).
		Attrs(models.Role{Description: role.Description, Permissions: role.Permissions}).
		FirstOrCreate(existing).Error
	if err != nil {
		return err
	}

	if existing.Description != role.Description || existing.Permissions != role.Permissions {
		existing.Description = role.Description
		existing.Permissions = role.Permissions
		if err := db.Save(existing).Error; err != nil {
			return err
		}
	}

	*role = *existing
	return nil
}
