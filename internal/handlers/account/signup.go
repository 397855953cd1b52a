package account

import (
	"errors"
	"net/http"
	"strings"

	"github.com/badoux/checkmail"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/charleshuang3/teams/internal/handlers/firewall"
	"github.com/charleshuang3/teams/internal/models"
	"github.com/charleshuang3/teams/internal/storage"
)

type signupParams struct {
	Email       string `json:"email" binding:"required"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
	Password    string `json:"password" binding:"required"`
	Password2   string `json:"password2" binding:"required"`
}

func (p *Provider) handleSignup(c *gin.Context) {
	params := &signupParams{}
	if err := c.ShouldBindJSON(params); err != nil {
		responseDetail(c, http.StatusBadRequest, "Missing required parameters")
		return
	}

	email := models.NormalizeEmail(params.Email)
	if err := checkmail.ValidateFormat(email); err != nil {
		responseDetail(c, http.StatusBadRequest, "Invalid email format.")
		return
	}

	if params.Password != params.Password2 {
		responseDetail(c, http.StatusBadRequest, "Passwords must match.")
		return
	}

	if err := validatePassword(params.Password); err != nil {
		responseDetail(c, http.StatusBadRequest, err.Error())
		return
	}

	db := p.db.Ctx(c.Request.Context())
	_, err := storage.GetUserByEmail(db, email)
	if err == nil {
		responseDetail(c, http.StatusConflict, "Email already registered.")
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		responseInternalError(c, err, "Error checking email existence")
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		responseInternalError(c, err, "Failed to hash password")
		return
	}

	user := &models.User{
		Email:          email,
		FirstName:      strings.TrimSpace(params.FirstName),
		LastName:       strings.TrimSpace(params.LastName),
		PhoneNumber:    strings.TrimSpace(params.PhoneNumber),
		HashedPassword: string(hashedPassword),
	}
	if err := storage.CreateUser(db, user); err != nil {
		responseInternalError(c, err, "Failed to create user")
		return
	}

	tokens, err := p.issuer.Issue(c.Request.Context(), user)
	if err != nil {
		responseInternalError(c, err, "Failed to gen tokens")
		return
	}

	logger.Info().Uint("user_id", user.ID).Msg("User signed up")
	p.setTokenCookies(c, tokens)
	c.JSON(http.StatusCreated, newUserResponse(user))
}

type tokenParams struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// handleToken logs in with email and password.
func (p *Provider) handleToken(c *gin.Context) {
	params := &tokenParams{}
	if err := c.ShouldBindJSON(params); err != nil {
		responseDetail(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	user, err := storage.GetUserByEmail(p.db.Ctx(c.Request.Context()), params.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			firewall.Flag(c, "unknown email")
			responseDetail(c, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		responseInternalError(c, err, "Database error during login")
		return
	}

	if !user.CheckPassword(params.Password) {
		firewall.Flag(c, "wrong password")
		responseDetail(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	tokens, err := p.issuer.Issue(c.Request.Context(), user)
	if err != nil {
		responseInternalError(c, err, "Failed to gen tokens")
		return
	}

	p.setTokenCookies(c, tokens)
	c.JSON(http.StatusOK, newUserResponse(user))
}
