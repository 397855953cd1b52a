package storage

import (
	"github.com/charleshuang3/teams/internal/gormw"
	"github.com/charleshuang3/teams/internal/models"
)

func GetUserByEmail(db *gormw.DB, email string) (*models.User, error) {
	user := &models.User{}
	if err := db.Where("email = ?", models.NormalizeEmail(email)).First(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func GetUserByID(db *gormw.DB, id uint) (*models.User, error) {
	user := &models.User{}
	if err := db.Where("id = ?", id).First(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func CreateUser(db *gormw.DB, user *models.User) error {
	user.Email = models.NormalizeEmail(user.Email)
	return db.Create(user).Error
}

// FirstOrCreateUserByEmail provisions users known only from an external issuer.
func FirstOrCreateUserByEmail(db *gormw.DB, email, firstName, lastName string) (*models.User, error) {
	user := &models.User{}
	err := db.
		Where(models.User{Email: models.NormalizeEmail(email)}).
		Attrs(models.User{FirstName: firstName, LastName: lastName}).
		FirstOrCreate(user).Error
	if err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser removes the user with its memberships and refresh tokens.
func DeleteUser(db *gormw.DB, id uint) error {
	if err := db.Where("user_id = ?", id).Delete(&models.Membership{}).Error; err != nil {
		return err
	}
	if err := db.Where("user_id = ?", id).Delete(&models.RefreshToken{}).Error; err != nil {
		return err
	}
	return db.Unscoped().Delete(&models.User{}, id).Error
}
