package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareTurnsExtractsSystemAndMerges(t *testing.T) {
	req := NewRequest(
		SystemMessage("be terse"),
		UserMessage("first"),
		UserMessage("second"),
	)

	system, turns, err := PrepareTurns(req)
	require.NoError(t, err)
	assert.Equal(t, "be terse", system)
	require.Len(t, turns, 1)
	assert.Equal(t, "first\n\nsecond", turns[0].Content)
	assert.Equal(t, RoleUser, turns[0].Role)
}

func TestPrepareTurnsRejectsAssistantFirst(t *testing.T) {
	req := Request{Messages: []Message{{Role: RoleAssistant, Content: "hi"}}}
	_, _, err := PrepareTurns(req)
	assert.Error(t, err)
}

func TestPrepareTurnsRejectsTrailingAssistant(t *testing.T) {
	req := Request{Messages: []Message{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
	}}
	_, _, err := PrepareTurns(req)
	assert.Error(t, err)
}

func TestPrepareTurnsRejectsEmpty(t *testing.T) {
	_, _, err := PrepareTurns(Request{})
	assert.Error(t, err)
}
