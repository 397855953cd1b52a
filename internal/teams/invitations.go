package teams

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/badoux/checkmail"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/charleshuang3/teams/internal/gormw"
	"github.com/charleshuang3/teams/internal/identity"
	"github.com/charleshuang3/teams/internal/metrics"
	"github.com/charleshuang3/teams/internal/models"
	"github.com/charleshuang3/teams/internal/storage"
)

// Invitation events.
const (
	EventCreated  = "created"
	EventAccepted = "accepted"
	EventRejected = "rejected"
)

// Notifier tells the invitee about a new invitation.
type Notifier interface {
	Notify(ctx context.Context, invitation *models.Invitation, team *models.Team, inviterName string) error
}

type CreateInvitationInput struct {
	TeamID      uint
	Email       string
	FirstName   string
	LastName    string
	PhoneNumber string
	RoleID      uint
}

// Manager runs the invitation state machine: pending to accepted or
// rejected. Expiry is evaluated lazily, an expired invitation stays pending
// and is excluded from active queries.
type Manager struct {
	db       *gormw.DB
	roles    *RoleStore
	registry *Registry
	notifier Notifier
	metrics  *metrics.Metrics

	now func() time.Time
}

func NewManager(db *gormw.DB, roles *RoleStore, registry *Registry, notifier Notifier, m *metrics.Metrics) *Manager {
	return &Manager{
		db:       db,
		roles:    roles,
		registry: registry,
		notifier: notifier,
		metrics:  m,
		now:      time.Now,
	}
}

func (m *Manager) clock() time.Time {
	return m.now().UTC()
}

// Create validates the input, stores a pending invitation and notifies the
// invitee after commit. Notification failures never fail Create.
func (m *Manager) Create(ctx context.Context, in *CreateInvitationInput, invitedBy *identity.Principal) (*models.Invitation, error) {
	email := models.NormalizeEmail(in.Email)
	if email == "" {
		return nil, invalidInput("email is required")
	}
	if err := checkmail.ValidateFormat(email); err != nil {
		return nil, invalidInput("invalid email %q", in.Email)
	}

	if _, err := m.roles.Get(ctx, in.RoleID); err != nil {
		return nil, err
	}

	now := m.clock()
	inv := &models.Invitation{
		ID:          uuid.NewString(),
		TeamID:      in.TeamID,
		Email:       email,
		FirstName:   strings.TrimSpace(in.FirstName),
		LastName:    strings.TrimSpace(in.LastName),
		PhoneNumber: strings.TrimSpace(in.PhoneNumber),
		RoleID:      in.RoleID,
		InvitedByID: invitedBy.UserID,
		Status:      models.InvitationPending,
		CreatedAt:   now,
		ExpiresAt:   now.Add(models.InvitationTTL),
		UpdatedAt:   now,
	}

	var team *models.Team
	err := m.db.Tx(ctx, func(tx *gormw.DB) error {
		var err error
		team, err = storage.LockTeam(tx, in.TeamID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTeamNotFound
			}
			return err
		}

		member, err := m.registry.IsMember(ctx, tx, in.TeamID, email)
		if err != nil {
			return err
		}
		if member {
			return ErrAlreadyMember
		}

		blocked, err := storage.HasBlockingInvitation(tx, in.TeamID, email, now)
		if err != nil {
			return err
		}
		if blocked {
			return ErrDuplicateInvitation
		}

		return storage.AddInvitation(tx, inv)
	})
	if err != nil {
		return nil, err
	}

	m.metrics.InvitationEvent(EventCreated)
	logger.Info().
		Str("invitation_id", inv.ID).
		Uint("team_id", inv.TeamID).
		Uint("invited_by", invitedBy.UserID).
		Msg("Invitation created")

	m.notify(ctx, inv, team, invitedBy.DisplayName)
	return inv, nil
}

func (m *Manager) notify(ctx context.Context, inv *models.Invitation, team *models.Team, inviterName string) {
	if m.notifier == nil {
		return
	}
	err := m.notifier.Notify(ctx, inv, team, inviterName)
	m.metrics.Notification(err)
	if err != nil {
		logger.Warn().Err(err).Str("invitation_id", inv.ID).Msg("Failed to send invitation email")
	}
}

func (m *Manager) Get(ctx context.Context, id string) (*models.Invitation, error) {
	inv, err := storage.GetInvitationByID(m.db.Ctx(ctx), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvitationNotFound
		}
		return nil, err
	}
	return inv, nil
}

// ListActive returns the team's pending and unexpired invitations.
func (m *Manager) ListActive(ctx context.Context, teamID uint) ([]models.Invitation, error) {
	return storage.ListActiveInvitationsByTeam(m.db.Ctx(ctx), teamID, m.clock())
}

// ListActiveForUser returns the pending and unexpired invitations sent to
// email.
func (m *Manager) ListActiveForUser(ctx context.Context, email string) ([]models.Invitation, error) {
	return storage.ListActiveInvitationsByEmail(m.db.Ctx(ctx), email, m.clock())
}

// transition locks the invitation and checks it is still pending and
// unexpired before running fn.
func (m *Manager) transition(ctx context.Context, id string, fn func(tx *gormw.DB, inv *models.Invitation, now time.Time) error) (*models.Invitation, error) {
	var inv *models.Invitation
	err := m.db.Tx(ctx, func(tx *gormw.DB) error {
		var err error
		inv, err = storage.LockInvitation(tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvitationNotFound
			}
			return err
		}

		if inv.Status != models.InvitationPending {
			return ErrNotPending
		}

		now := m.clock()
		if inv.IsExpired(now) {
			return ErrExpired
		}

		return fn(tx, inv, now)
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// Accept makes the acting user a member of the team with the invited role.
// The membership and the status change commit together.
func (m *Manager) Accept(ctx context.Context, id string, actingUser *identity.Principal) (*models.Invitation, error) {
	if actingUser == nil {
		return nil, ErrForbidden
	}

	inv, err := m.transition(ctx, id, func(tx *gormw.DB, inv *models.Invitation, now time.Time) error {
		if models.NormalizeEmail(actingUser.Email) != models.NormalizeEmail(inv.Email) {
			return ErrInvitationEmailMismatch
		}

		_, err := m.registry.Get(ctx, tx, inv.TeamID, actingUser.UserID)
		switch {
		case errors.Is(err, ErrMemberNotFound):
			if err := m.registry.Add(ctx, tx, &models.Membership{
				TeamID: inv.TeamID,
				UserID: actingUser.UserID,
				RoleID: inv.RoleID,
			}); err != nil {
				return err
			}
		case err != nil:
			return err
		}

		return storage.UpdateInvitationStatus(tx, inv, models.InvitationAccepted, now)
	})
	if err != nil {
		return nil, err
	}

	m.metrics.InvitationEvent(EventAccepted)
	logger.Info().Str("invitation_id", inv.ID).Uint("user_id", actingUser.UserID).Msg("Invitation accepted")
	return inv, nil
}

// Reject needs no authentication, the id is unguessable.
func (m *Manager) Reject(ctx context.Context, id string) (*models.Invitation, error) {
	inv, err := m.transition(ctx, id, func(tx *gormw.DB, inv *models.Invitation, now time.Time) error {
		return storage.UpdateInvitationStatus(tx, inv, models.InvitationRejected, now)
	})
	if err != nil {
		return nil, err
	}

	m.metrics.InvitationEvent(EventRejected)
	logger.Info().Str("invitation_id", inv.ID).Msg("Invitation rejected")
	return inv, nil
}
