package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProject_Validate(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		project Project
		wantErr bool
	}{
		{
			name:    "minimal valid project",
			project: Project{Name: "Kitchen renovation"},
		},
		{
			name: "full valid project",
			project: Project{
				Name:        "House build",
				Description: "Two-storey family house",
				Currency:    "usd",
				BudgetCents: 45_000_000,
				Status:      ProjectActive,
				StartDate:   &start,
				EndDate:     &end,
			},
		},
		{
			name:    "missing name",
			project: Project{Name: "   "},
			wantErr: true,
		},
		{
			name:    "negative budget",
			project: Project{Name: "x", BudgetCents: -1},
			wantErr: true,
		},
		{
			name:    "bad currency",
			project: Project{Name: "x", Currency: "EURO"},
			wantErr: true,
		},
		{
			name:    "unknown status",
			project: Project{Name: "x", Status: "finished"},
			wantErr: true,
		},
		{
			name:    "end before start",
			project: Project{Name: "x", StartDate: &end, EndDate: &start},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.project.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrValidation)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestProject_ValidateDefaults(t *testing.T) {
	p := Project{Name: "Garage"}
	require.NoError(t, p.Validate())
	assert.Equal(t, ProjectPlanning, p.Status)
	assert.Equal(t, "EUR", p.Currency)

	p = Project{Name: "Garage", Currency: "chf"}
	require.NoError(t, p.Validate())
	assert.Equal(t, "CHF", p.Currency, "currency should be uppercased")
}

func TestRole_AtLeast(t *testing.T) {
	assert.True(t, RoleOwner.AtLeast(RoleViewer))
	assert.True(t, RoleOwner.AtLeast(RoleOwner))
	assert.True(t, RoleEditor.AtLeast(RoleViewer))
	assert.False(t, RoleEditor.AtLeast(RoleOwner))
	assert.False(t, RoleViewer.AtLeast(RoleEditor))
	assert.False(t, Role("guest").AtLeast(RoleViewer))
}

func TestInvite_Validate(t *testing.T) {
	tests := []struct {
		name    string
		invite  Invite
		wantErr bool
	}{
		{name: "valid editor invite", invite: Invite{Email: "Partner@Example.com", Role: RoleEditor}},
		{name: "valid viewer invite", invite: Invite{Email: "a@b.de", Role: RoleViewer}},
		{name: "owner invite rejected", invite: Invite{Email: "a@b.de", Role: RoleOwner}, wantErr: true},
		{name: "missing email", invite: Invite{Role: RoleEditor}, wantErr: true},
		{name: "bad email", invite: Invite{Email: "not-an-email", Role: RoleEditor}, wantErr: true},
		{name: "unknown role", invite: Invite{Email: "a@b.de", Role: "admin"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.invite.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrValidation)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestInvite_ValidateNormalizesEmail(t *testing.T) {
	inv := Invite{Email: "  Partner@Example.COM ", Role: RoleViewer}
	require.NoError(t, inv.Validate())
	assert.Equal(t, "partner@example.com", inv.Email)
}

func TestInvite_Pending(t *testing.T) {
	now := time.Now()
	accepted := now.Add(-time.Hour)

	inv := Invite{ExpiresAt: now.Add(time.Hour)}
	assert.True(t, inv.Pending(now))

	inv = Invite{ExpiresAt: now.Add(-time.Minute)}
	assert.False(t, inv.Pending(now), "expired invite is not pending")

	inv = Invite{ExpiresAt: now.Add(time.Hour), AcceptedAt: &accepted}
	assert.False(t, inv.Pending(now), "accepted invite is not pending")
}
