package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/buildledger/internal/model"
)

func startTestBus(t *testing.T) *Bus {
	t.Helper()
	bus, err := NewBus(Config{}, nil)
	require.NoError(t, err)
	t.Cleanup(bus.Close)
	return bus
}

func TestBus_PublishSubscribe(t *testing.T) {
	bus := startTestBus(t)

	received := make(chan []byte, 1)
	sub, err := bus.Subscribe(SubjectInviteCreated, func(data []byte) {
		received <- data
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	event := InviteCreated{
		InviteID:    "inv-1",
		ProjectID:   "proj-1",
		ProjectName: "Kitchen renovation",
		Email:       "partner@example.com",
		Role:        model.RoleEditor,
		Token:       "opaque-token",
	}
	bus.Publish(SubjectInviteCreated, event)

	select {
	case data := <-received:
		var got InviteCreated
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, event.InviteID, got.InviteID)
		assert.Equal(t, event.Email, got.Email)
		assert.Equal(t, model.RoleEditor, got.Role)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestBus_SubjectsAreIndependent(t *testing.T) {
	bus := startTestBus(t)

	costCh := make(chan []byte, 1)
	sub, err := bus.Subscribe(SubjectCostCreated, func(data []byte) {
		costCh <- data
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	bus.Publish(SubjectMemberJoined, MemberJoined{ProjectID: "p1"})
	bus.Publish(SubjectCostCreated, CostCreated{ProjectID: "p1", CostEntryID: "c1"})

	select {
	case data := <-costCh:
		var got CostCreated
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, "c1", got.CostEntryID)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for cost event")
	}

	assert.Empty(t, costCh, "member event must not land on cost subject")
}
