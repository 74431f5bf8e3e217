package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneEncodesEmptyListsAsArrays(t *testing.T) {
	state := DashboardState{Snapshot: ServerSnapshot{
		LastMessages: []ChatMessage{},
		ActivityData: []DayCount{},
	}}

	data, err := json.Marshal(state.Clone())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"last_messages":[]`)
	assert.Contains(t, string(data), `"activity_data":[]`)
	assert.Contains(t, string(data), `"admins":[]`)
	assert.NotContains(t, string(data), "null,")
}

func TestCloneSharesNothing(t *testing.T) {
	msg := "boom"
	state := DashboardState{
		Snapshot: ServerSnapshot{LastMessages: []ChatMessage{{ID: "1"}}},
		UI:       UIState{Error: &msg},
	}

	clone := state.Clone()
	clone.Snapshot.LastMessages[0].ID = "2"
	*clone.UI.Error = "changed"

	assert.Equal(t, "1", state.Snapshot.LastMessages[0].ID)
	assert.Equal(t, "boom", *state.UI.Error)
}
