package teams

import (
	"strings"

	"github.com/charleshuang3/teams/internal/models"
)

// RoleSeed is the deployment-time definition of a role.
type RoleSeed struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Permissions []string `yaml:"permissions"`
}

type Config struct {
	Roles []RoleSeed `yaml:"roles"`

	// CreatorRole is given to the user creating a team.
	CreatorRole string `yaml:"creator_role"`

	// InvitationBaseURL is the web app url used in invitation links.
	InvitationBaseURL string `yaml:"invitation_base_url"`
}

const (
	RoleAdmin  = "Admin"
	RoleMember = "Member"
	RoleViewer = "Viewer"
)

func DefaultRoles() []RoleSeed {
	return []RoleSeed{
		{
			Name:        RoleAdmin,
			Description: "Manages the team and its members",
			Permissions: models.KnownPermissions(),
		},
		{
			Name:        RoleMember,
			Description: "Sees the team and its members",
			Permissions: []string{models.PermTeamView, models.PermMembersView},
		},
		{
			Name:        RoleViewer,
			Description: "Sees the team",
			Permissions: []string{models.PermTeamView},
		},
	}
}

func (c *Config) ApplyDefaults() {
	if len(c.Roles) == 0 {
		c.Roles = DefaultRoles()
	}
	if c.CreatorRole == "" {
		c.CreatorRole = RoleAdmin
	}
	c.InvitationBaseURL = strings.TrimRight(c.InvitationBaseURL, "/")
}

func (c *Config) Validate() {
	if c.InvitationBaseURL == "" {
		logger.Fatal().Msg("TeamsConfig: InvitationBaseURL is missing")
	}

	var creator *RoleSeed
	for i, r := range c.Roles {
		if r.Name == "" {
			logger.Fatal().Int("index", i).Msg("TeamsConfig: role Name is missing")
		}
		if err := models.ValidatePermissions(r.Permissions); err != nil {
			logger.Fatal().Err(err).Str("role", r.Name).Msg("TeamsConfig: invalid role")
		}
		if r.Name == c.CreatorRole {
			creator = &c.Roles[i]
		}
	}

	if creator == nil {
		logger.Fatal().Msgf("TeamsConfig: CreatorRole %s is not in roles", c.CreatorRole)
	}
	if !(&models.Role{Permissions: models.JoinPermissions(creator.Permissions)}).CanManageMembers() {
		logger.Fatal().Msgf("TeamsConfig: CreatorRole %s cannot manage members", c.CreatorRole)
	}
}
