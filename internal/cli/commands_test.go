package cli

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordJSON struct {
	Values   map[string]any     `json:"values"`
	Links    map[string][]int64 `json:"links"`
	ParentID *int64             `json:"parent_id"`
}

func (r recordJSON) id() int64 { return int64(r.Values["ID"].(float64)) }

func decode[T any](t *testing.T, out string) T {
	t.Helper()
	var resp struct {
		Status string `json:"status"`
		Data   T      `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(t, "ok", resp.Status)
	return resp.Data
}

func recordIDs(rs []recordJSON) []int64 {
	ids := []int64{}
	for _, r := range rs {
		ids = append(ids, r.id())
	}
	return ids
}

func TestSeed(t *testing.T) {
	db := filepath.Join(t.TempDir(), "qwiq.db")

	out, err := execute(t, "--db", db, "--format", "json", "seed", fixturePath)
	require.NoError(t, err)
	got := decode[SeedResult](t, out)
	assert.Equal(t, db, got.Store)
	assert.Equal(t, 3, got.Types)
	assert.Equal(t, 7, got.Fields)
	assert.Equal(t, 6, got.Items)
	assert.Equal(t, 5, got.Links)

	out, err = execute(t, "--db", db, "seed", fixturePath)
	require.NoError(t, err, "seeding twice")
	assert.Equal(t, "✓ Seeded 3 type(s), 7 field(s), 6 item(s), 5 link(s) into "+db+"\n", out)
}

func TestSeed_MissingFixture(t *testing.T) {
	db := filepath.Join(t.TempDir(), "qwiq.db")

	out, err := execute(t, "--db", db, "seed", "no-such-fixture.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [FIXTURE]")
}

func TestModels(t *testing.T) {
	out, err := execute(t, "--models", modelsDir, "models")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Feature [Feature]: ID, Title, Priority, Effort, Due", lines[0])
	assert.Equal(t, "Work [Epic, Feature, Task]: ID, Title, State", lines[2])

	out, err = execute(t, "--models", modelsDir, "--format", "json", "models")
	require.NoError(t, err)
	summaries := decode[[]ModelSummary](t, out)
	require.Len(t, summaries, 3)
	assert.Equal(t, ModelSummary{
		Name:       "Task",
		StoreTypes: []string{"Task"},
		Properties: []string{"ID", "Title", "Priority", "Blocked"},
		Links:      []string{"Related:related"},
		Parent:     "Parent",
	}, summaries[1])
}

func TestModels_MissingDir(t *testing.T) {
	out, err := execute(t, "--models", filepath.Join(t.TempDir(), "none"), "models")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [MODELS]")
}

func TestTranslate(t *testing.T) {
	flags := seededDB(t)

	out, err := execute(t, append(flags, "translate", "Task", "--where", "[Priority] <= 2", "--order", "Priority desc")...)
	require.NoError(t, err)
	assert.Contains(t, out, "FROM WorkItems WHERE ([System.WorkItemType] = 'Task') AND ([Microsoft.VSTS.Common.Priority] <= 2)")
	assert.Contains(t, out, "ORDER BY [Microsoft.VSTS.Common.Priority] DESC")
	assert.Equal(t, 1, strings.Count(out, "\n"))
}

func TestTranslate_Children(t *testing.T) {
	flags := seededDB(t)

	out, err := execute(t, append(flags, "--format", "json", "translate", "Feature", "--children", "Task")...)
	require.NoError(t, err)
	got := decode[TranslateResult](t, out)
	assert.Equal(t, "Feature", got.Model)
	assert.Contains(t, got.Wiql, "[System.WorkItemType] = 'Feature'")
	assert.Contains(t, got.Links, "FROM WorkItemLinks")
	assert.Contains(t, got.Links, "[Target].[System.WorkItemType] = 'Task'")
}

func TestTranslate_AmbiguousRelated(t *testing.T) {
	flags := seededDB(t)

	out, err := execute(t, append(flags, "--format", "json", "translate", "Feature", "--children", "Work")...)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, `"code":"AMBIGUOUS_TYPE"`)
}

func TestQuery(t *testing.T) {
	flags := seededDB(t)

	out, err := execute(t, append(flags, "query", "Task", "--where", "[Priority] <= 2")...)
	require.NoError(t, err)
	assert.Equal(t, `Blocked=false ID=5 Priority=1 Title="Cart's empty state" Related=[] parent=2`+"\n", out)
}

func TestQuery_JSON(t *testing.T) {
	flags := seededDB(t)

	tests := []struct {
		name string
		args []string
		want []int64
	}{
		{"no filter", []string{"query", "Work"}, []int64{1, 2, 3, 4, 5, 6}},
		{"descending puts missing values last", []string{"query", "Task", "--order", "Priority desc"}, []int64{4, 5, 6}},
		{"field reference", []string{"query", "Work", "--where", "[System.AreaPath] UNDER 'Shop\\Web'"}, []int64{1, 2}},
		{"property and reference", []string{"query", "Feature", "--where", "[Priority] = 1 OR [System.State] = 'Active'", "--order", "ID desc"}, []int64{3, 2}},
		{"limit", []string{"query", "Work", "--order", "Title", "--limit", "2"}, []int64{2, 5}},
		{"no results", []string{"query", "Task", "--where", "[Priority] > 10"}, []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, append(append(flags, "--format", "json"), tt.args...)...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, recordIDs(decode[[]recordJSON](t, out)))
		})
	}
}

func TestQuery_DayPrecision(t *testing.T) {
	flags := seededDB(t)
	where := []string{"query", "Feature", "--where", "[Due] = '2024-03-01'"}

	out, err := execute(t, append(append(flags, "--format", "json"), where...)...)
	require.NoError(t, err)
	assert.Empty(t, decode[[]recordJSON](t, out))

	out, err = execute(t, append(append(flags, "--format", "json", "--day-precision"), where...)...)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, recordIDs(decode[[]recordJSON](t, out)))
}

func TestQuery_Children(t *testing.T) {
	flags := seededDB(t)

	out, err := execute(t, append(flags, "query", "Feature", "--children", "Task")...)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "2: "), lines[0])
	assert.Contains(t, lines[1], "ID=4")
	assert.Contains(t, lines[2], "ID=5")
	assert.True(t, strings.HasPrefix(lines[3], "3: "), lines[3])
	assert.Equal(t, "  (none)", lines[4])
}

func TestQuery_Parents(t *testing.T) {
	flags := seededDB(t)

	out, err := execute(t, append(flags, "--format", "json", "query", "Task", "--parents", "Feature", "--order", "ID desc")...)
	require.NoError(t, err)

	type entry struct {
		ID      int64        `json:"id"`
		Related []recordJSON `json:"related"`
	}
	entries := decode[[]entry](t, out)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(2), entries[0].ID)
	assert.Equal(t, []int64{4, 5}, recordIDs(entries[0].Related))
}

func TestQuery_Errors(t *testing.T) {
	flags := seededDB(t)

	tests := []struct {
		name     string
		args     []string
		wantCode string
		wantExit int
	}{
		{"unknown model", []string{"query", "Bug"}, "MODELS", ExitCommandError},
		{"syntax", []string{"query", "Task", "--where", "[Priority] <="}, "SYNTAX", ExitCommandError},
		{"bad order", []string{"query", "Task", "--order", "Priority sideways"}, "SYNTAX", ExitCommandError},
		{"unbound order property", []string{"query", "Task", "--order", "Severity"}, "UNMAPPED_FIELD", ExitFailure},
		{"both traversals", []string{"query", "Feature", "--children", "Task", "--parents", "Work"}, "COMMAND", ExitCommandError},
		{"ambiguous related type", []string{"query", "Feature", "--children", "Work"}, "AMBIGUOUS_TYPE", ExitFailure},
		{"unknown field reference", []string{"query", "Task", "--where", "[Custom.Nope] = 1"}, "INVALID_OPERATION", ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, append(append(flags, "--format", "json"), tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, tt.wantExit, GetExitCode(err))

			var resp CLIResponse
			require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}
