package api

import (
	"time"

	"github.com/charleshuang3/teams/internal/models"
	"github.com/charleshuang3/teams/internal/storage"
)

type roleResponse struct {
	ID          uint     `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}

func newRoleResponse(r *models.Role) *roleResponse {
	perms := r.PermissionList()
	if perms == nil {
		perms = []string{}
	}
	return &roleResponse{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Permissions: perms,
	}
}

type teamResponse struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newTeamResponse(t *models.Team) *teamResponse {
	return &teamResponse{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// teamDetailResponse lists members and invitations only for callers who may
// view members. For other callers both are null, never empty lists.
type teamDetailResponse struct {
	teamResponse
	Members     []*memberResponse     `json:"members"`
	Invitations []*invitationResponse `json:"invitations"`
}

type memberResponse struct {
	Team        uint          `json:"team"`
	User        uint          `json:"user"`
	Email       string        `json:"email"`
	FullName    string        `json:"full_name"`
	FirstName   string        `json:"first_name"`
	LastName    string        `json:"last_name"`
	PhoneNumber string        `json:"phone_number"`
	Role        *roleResponse `json:"role"`
}

func newMemberResponse(r *storage.MemberRow) *memberResponse {
	return &memberResponse{
		Team:        r.TeamID,
		User:        r.UserID,
		Email:       r.Email,
		FullName:    r.FullName(),
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		PhoneNumber: r.PhoneNumber,
		Role:        newRoleResponse(r.Role()),
	}
}

func newMemberResponses(rows []storage.MemberRow) []*memberResponse {
	out := make([]*memberResponse, 0, len(rows))
	for i := range rows {
		out = append(out, newMemberResponse(&rows[i]))
	}
	return out
}

type invitationResponse struct {
	ID          string                  `json:"id"`
	Team        uint                    `json:"team"`
	TeamName    string                  `json:"team_name,omitempty"`
	Email       string                  `json:"email"`
	FirstName   string                  `json:"first_name"`
	LastName    string                  `json:"last_name"`
	PhoneNumber string                  `json:"phone_number"`
	Role        uint                    `json:"role"`
	RoleName    string                  `json:"role_name,omitempty"`
	Status      models.InvitationStatus `json:"status"`
	CreatedAt   time.Time               `json:"created_at"`
	ExpiresAt   time.Time               `json:"expires_at"`
}

func newInvitationResponse(inv *models.Invitation) *invitationResponse {
	return &invitationResponse{
		ID:          inv.ID,
		Team:        inv.TeamID,
		Email:       inv.Email,
		FirstName:   inv.FirstName,
		LastName:    inv.LastName,
		PhoneNumber: inv.PhoneNumber,
		Role:        inv.RoleID,
		Status:      inv.Status,
		CreatedAt:   inv.CreatedAt,
		ExpiresAt:   inv.ExpiresAt,
	}
}
