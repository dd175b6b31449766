package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/profile-memory/internal/model"
)

func execute(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetIn(strings.NewReader(stdin))
	RootCmd.SetArgs(args)
	require.NoError(t, RootCmd.Execute())
	return out.String()
}

func TestCommands(t *testing.T) {
	t.Setenv("PROFILE_MEMORY_LOG_LEVEL", "error")
	global := []string{"--data-dir", t.TempDir(), "--subject", "u1"}
	with := func(args ...string) []string { return append(args, global...) }

	var coffee model.Memory
	out := execute(t, "", with("remember", "Likes", "coffee", "-c", "preferences", "-i", "medium", "-t", "drinks, morning")...)
	require.NoError(t, json.Unmarshal([]byte(out), &coffee))
	assert.Equal(t, "Likes coffee", coffee.Content)
	assert.ElementsMatch(t, []string{"drinks", "morning", "user_u1"}, coffee.Tags)

	execute(t, "Is a developer\n", with("remember", "-c", "personal_facts", "-i", "high", "-t", "")...)

	var recalled []model.Memory
	require.NoError(t, json.Unmarshal([]byte(execute(t, "", with("recall")...)), &recalled))
	require.Len(t, recalled, 2)
	assert.Equal(t, "Is a developer", recalled[0].Content)

	var filtered []model.Memory
	require.NoError(t, json.Unmarshal([]byte(execute(t, "", with("recall", "coffee", "--importance", "high")...)), &filtered))
	assert.Empty(t, filtered)
	require.NoError(t, json.Unmarshal([]byte(execute(t, "", with("recall", "--importance", "high", "-c", "personal_facts")...)), &filtered))
	require.Len(t, filtered, 1)
	assert.Equal(t, "Is a developer", filtered[0].Content)

	ctxText := execute(t, "", with("context", "developer")...)
	assert.Equal(t, "- [personal_facts] Is a developer\n", ctxText)

	var stats struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal([]byte(execute(t, "", with("stats")...)), &stats))
	assert.Equal(t, 2, stats.Total)

	summary := execute(t, `[{"role":"user","content":"hello there"}]`, with("summarize")...)
	assert.Equal(t, "Last 1 message: User asked about: hello there\n", summary)

	var ingested struct {
		Stored  []model.Memory `json:"stored"`
		Skipped int            `json:"skipped"`
	}
	payload := `{"response":"ok","memories":[{"content":"Wants to learn AI","category":"goals","importance":"high"},{"content":"x","category":"nope"}]}`
	require.NoError(t, json.Unmarshal([]byte(execute(t, payload, with("ingest")...)), &ingested))
	assert.Len(t, ingested.Stored, 1)
	assert.Equal(t, 1, ingested.Skipped)

	csvOut := execute(t, "", with("export", "-f", "csv")...)
	assert.True(t, strings.HasPrefix(csvOut, "Content,Category,Importance,Tags,Created At,Updated At\n"))
	assert.Contains(t, csvOut, `"drinks, morning, user_u1"`)

	var updated model.Memory
	require.NoError(t, json.Unmarshal([]byte(execute(t, "", with("importance", coffee.ID, "high")...)), &updated))
	assert.Equal(t, model.ImportanceHigh, updated.Importance)

	assert.Equal(t, "{\"ok\":true}\n", execute(t, "", with("clear", "--yes")...))
	assert.Equal(t, "[]\n", execute(t, "", with("recall")...))
}
