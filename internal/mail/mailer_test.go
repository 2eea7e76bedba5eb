package mail

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/buildledger/internal/events"
	"github.com/fyrsmithlabs/buildledger/internal/model"
)

func TestMailer_DisabledLogsInsteadOfSending(t *testing.T) {
	m, err := NewMailer(Config{}, "https://ledger.example.com/", nil)
	require.NoError(t, err)
	assert.False(t, m.cfg.Enabled())

	// Must not attempt a network dial.
	err = m.SendInvite(context.Background(), events.InviteCreated{
		Email:       "partner@example.com",
		ProjectName: "Attic conversion",
		Token:       "tok",
	})
	assert.NoError(t, err)
}

func TestMailer_AcceptLink(t *testing.T) {
	m, err := NewMailer(Config{}, "https://ledger.example.com/", nil)
	require.NoError(t, err)

	link := m.AcceptLink("a b+c")
	assert.Equal(t, "https://ledger.example.com/api/v1/invites/accept?token=a+b%2Bc", link)
}

func TestInviteBody(t *testing.T) {
	event := events.InviteCreated{
		ProjectName: "Kitchen renovation",
		Email:       "partner@example.com",
		Role:        model.RoleViewer,
		InvitedBy:   "Alice",
		ExpiresAt:   time.Date(2026, 9, 9, 12, 0, 0, 0, time.UTC),
	}
	body := inviteBody(event, "https://example.com/accept?token=t")

	assert.Contains(t, body, "Alice invited you")
	assert.Contains(t, body, `"Kitchen renovation"`)
	assert.Contains(t, body, "as viewer")
	assert.Contains(t, body, "https://example.com/accept?token=t")
	assert.Contains(t, body, "Sign in to buildledger")
	assert.Contains(t, body, "9 September 2026")
	assert.False(t, strings.Contains(body, "%!"), "no formatting errors")
}
