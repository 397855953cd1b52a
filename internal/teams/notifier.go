package teams

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"net/url"
	texttemplate "text/template"
	"time"

	"github.com/charleshuang3/teams/internal/models"
	"github.com/charleshuang3/teams/internal/notify"
)

//go:embed templates/*
var templateFS embed.FS

var (
	htmlTemplate = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/invitation.html"))
	textTemplate = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/invitation.txt"))
)

// InvitationNotifier emails accept and reject links to the invitee.
type InvitationNotifier struct {
	sender  notify.Sender
	baseURL string
}

func NewInvitationNotifier(sender notify.Sender, baseURL string) *InvitationNotifier {
	return &InvitationNotifier{
		sender:  sender,
		baseURL: baseURL,
	}
}

type invitationEmail struct {
	Name      string
	Inviter   string
	Team      string
	AcceptURL string
	RejectURL string
	ExpiresAt string
}

func (n *InvitationNotifier) link(action, id string) string {
	return fmt.Sprintf("%s/%s-invitation/%s", n.baseURL, action, url.PathEscape(id))
}

func (n *InvitationNotifier) Notify(ctx context.Context, inv *models.Invitation, team *models.Team, inviterName string) error {
	data := &invitationEmail{
		Name:      inv.FullName(),
		Inviter:   inviterName,
		Team:      team.Name,
		AcceptURL: n.link("accept", inv.ID),
		RejectURL: n.link("reject", inv.ID),
		ExpiresAt: inv.ExpiresAt.UTC().Format(time.RFC1123),
	}
	if data.Name == "" {
		data.Name = inv.Email
	}
	if data.Inviter == "" {
		data.Inviter = "A team member"
	}

	htmlBody := &bytes.Buffer{}
	if err := htmlTemplate.Execute(htmlBody, data); err != nil {
		return fmt.Errorf("render invitation html: %w", err)
	}

	textBody := &bytes.Buffer{}
	if err := textTemplate.Execute(textBody, data); err != nil {
		return fmt.Errorf("render invitation text: %w", err)
	}

	subject := fmt.Sprintf("You are invited to join %s", team.Name)
	return n.sender.Send(ctx, inv.Email, subject, htmlBody.String(), textBody.String())
}
