package models

import "time"

type RefreshToken struct {
	Sign      string `gorm:"primarykey"`
	UserID    uint   `gorm:"index"` // with index, easy to revoke every refresh token of a user
	Email     string
	CreatedAt time.Time
	ExpiresAt time.Time
	Revoked   bool
	Used      bool
}
