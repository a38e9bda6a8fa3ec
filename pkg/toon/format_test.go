package toon_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quorumlabs/council/pkg/backend"
	"github.com/quorumlabs/council/pkg/chats/message"
	"github.com/quorumlabs/council/pkg/chats/role"
	"github.com/quorumlabs/council/pkg/toon"
)

func TestFormatConversation(t *testing.T) {
	msgs := []message.Message{
		message.NewText("", role.System, "be brief"),
		message.NewText("alice", role.User, "hello"),
	}

	out, err := toon.FormatConversation(msgs)
	require.NoError(t, err)
	assert.Equal(t, "[2]{content,role}:\n  be brief,system\n  hello,user", out)
}

func TestFormatStageResponses_SkipsFailures(t *testing.T) {
	set := backend.NewResultSet()
	set.Set("alpha", backend.Success("first"))
	set.Set("beta", backend.Absent())
	set.Set("gamma", backend.Success("third"))

	out, err := toon.FormatStageResponses(set)
	require.NoError(t, err)
	assert.Equal(t, "[2]{model,response}:\n  alpha,first\n  gamma,third", out)
}

func TestFormatStageResponses_AllFailed(t *testing.T) {
	set := backend.NewResultSet()
	set.Set("alpha", backend.Absent())

	out, err := toon.FormatStageResponses(set)
	require.NoError(t, err)
	// No successful rows: the encoder falls back to JSON for the empty list.
	assert.Equal(t, "null", out)
}

func TestFormatRankings(t *testing.T) {
	rankings := []toon.Ranking{
		{Model: "alpha", Verdict: "beta wins", Parsed: []string{"beta", "alpha"}},
	}

	out, err := toon.FormatRankings(rankings)
	require.NoError(t, err)
	assert.Equal(t, "[1]{model,parsed,ranking}:\n  alpha,beta>alpha,beta wins", out)
}
