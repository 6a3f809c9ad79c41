package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

// testEnv holds the directories one CLI test runs against.
type testEnv struct {
	configDir string
	dataDir   string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	root := t.TempDir()
	return testEnv{
		configDir: filepath.Join(root, "config"),
		dataDir:   filepath.Join(root, "data"),
	}
}

// run executes the CLI in-process and returns stdout, stderr and the error.
func (e testEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--config-dir", e.configDir, "--data-dir", e.dataDir}, args...))
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func (e testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	stdout, stderr, err := e.run(t, args...)
	require.NoError(t, err, "stderr: %s", stderr)
	return stdout
}

func decodeRecord(t *testing.T, out string) map[string]any {
	t.Helper()
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rec), "output: %s", out)
	return rec
}

func decodeRecords(t *testing.T, out string) []map[string]any {
	t.Helper()
	var recs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &recs), "output: %s", out)
	return recs
}

func TestVersion(t *testing.T) {
	env := newTestEnv(t)
	out := env.mustRun(t, "version")
	assert.Contains(t, out, "entitydriver v")
	assert.Contains(t, out, "module: github.com/mesh-intelligence/entitydriver")
}

func TestInit(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, "init")
	assert.Contains(t, out, "initialized")
	assert.FileExists(t, filepath.Join(env.configDir, "config.yaml"))
	assert.FileExists(t, filepath.Join(env.dataDir, "entities.jsonl"))
	assert.FileExists(t, filepath.Join(env.dataDir, "field_values.jsonl"))

	// A second init leaves the existing config alone.
	cfgPath := filepath.Join(env.configDir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("backend: sqlite\nbase_url: https://example.com\n"), 0o644))
	env.mustRun(t, "init")
	data, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "https://example.com")
}

func TestCreateAndLoad(t *testing.T) {
	env := newTestEnv(t)

	user := decodeRecord(t, env.mustRun(t, "create", "user", `{"name":"alice"}`))
	assert.Equal(t, float64(1), user["id"])
	assert.Equal(t, "alice", user["name"])

	node := decodeRecord(t, env.mustRun(t, "create", "node", `{"type":"page","title":"Hello","uid":1,"status":true}`))
	assert.Equal(t, "Hello", node["title"])
	assert.Equal(t, "page", node["type"])
	uid, ok := node["uid"].([]any)
	require.True(t, ok, "uid should be expanded: %v", node["uid"])
	require.Len(t, uid, 1)
	assert.Equal(t, "alice", uid[0].(map[string]any)["label"])

	loaded := decodeRecord(t, env.mustRun(t, "load", "node", "1"))
	meta, ok := loaded["_meta"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Hello", meta["label"])
	assert.Equal(t, "node", meta["entity_type"])
	assert.Equal(t, "page", meta["bundle"])
	links, ok := meta["links"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "/node/1", links["canonical"])
}

func TestLoadMany(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "create", "user", `{"name":"alice"}`)
	env.mustRun(t, "create", "user", `{"name":"bob"}`)

	recs := decodeRecords(t, env.mustRun(t, "load-many", "user", "2", "9", "1"))
	require.Len(t, recs, 2)
	assert.Equal(t, "alice", recs[0]["name"])
	assert.Equal(t, "bob", recs[1]["name"])
}

func TestLoadDoesNotCoerceIDs(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "create", "user", `{"name":"alice"}`)

	for _, id := range []string{"0x1", "1.0", "true"} {
		_, _, err := env.run(t, "load", "user", id)
		require.Error(t, err, "id %q", id)
		assert.Equal(t, exitUserError, exitCode(err))
		assert.Contains(t, err.Error(), "not found")
	}

	recs := decodeRecords(t, env.mustRun(t, "load-many", "user", "001", "0x1"))
	require.Len(t, recs, 1)
	assert.Equal(t, float64(1), recs[0]["id"])
}

func TestCommandErrors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantMsg  string
	}{
		{
			name:     "load missing entity",
			args:     []string{"load", "user", "42"},
			wantCode: exitUserError,
			wantMsg:  "not found",
		},
		{
			name:     "unknown entity type",
			args:     []string{"create", "widget", `{}`},
			wantCode: exitUserError,
			wantMsg:  "entity type not found",
		},
		{
			name:     "values not an object",
			args:     []string{"create", "user", `[1, 2]`},
			wantCode: exitUserError,
			wantMsg:  "JSON object",
		},
		{
			name:     "unknown field",
			args:     []string{"create", "user", `{"nickname":"al"}`},
			wantCode: exitUserError,
		},
		{
			name:     "bad where expression",
			args:     []string{"query", "node", "--where", "status"},
			wantCode: exitUserError,
			wantMsg:  "invalid condition",
		},
		{
			name:     "bad conditions json",
			args:     []string{"query", "node", "--conditions", `{"status":1}`},
			wantCode: exitUserError,
		},
		{
			name:     "unknown operator",
			args:     []string{"query", "node", "--conditions", `[["status", 1, "~"]]`},
			wantCode: exitUserError,
		},
		{
			name:     "unknown format",
			args:     []string{"--format", "xml", "types"},
			wantCode: exitUserError,
			wantMsg:  "unknown format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			_, _, err := env.run(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, exitCode(err))
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestQuery(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "create", "user", `{"name":"alice"}`)
	env.mustRun(t, "create", "node", `{"title":"Go tips","status":true,"uid":1}`)
	env.mustRun(t, "create", "node", `{"title":"Draft","status":false,"uid":1}`)
	env.mustRun(t, "create", "node", `{"title":"Rust notes","status":true}`)

	tests := []struct {
		name       string
		args       []string
		wantTitles []string
	}{
		{
			name:       "no conditions returns unpublished too",
			args:       []string{"query", "node"},
			wantTitles: []string{"Go tips", "Draft", "Rust notes"},
		},
		{
			name:       "where expression",
			args:       []string{"query", "node", "--where", "status = 1"},
			wantTitles: []string{"Go tips", "Rust notes"},
		},
		{
			name:       "where expressions combined with AND",
			args:       []string{"query", "node", "--where", "status = 1", "--where", `title CONTAINS "Go"`},
			wantTitles: []string{"Go tips"},
		},
		{
			name:       "condition tuples with OR",
			args:       []string{"query", "node", "--or", "--conditions", `[["title", "Draft"], ["title", "Rust", "STARTS_WITH"]]`},
			wantTitles: []string{"Draft", "Rust notes"},
		},
		{
			name:       "reference condition",
			args:       []string{"query", "node", "--where", "uid.target_id = 1"},
			wantTitles: []string{"Go tips", "Draft"},
		},
		{
			name:       "no matches",
			args:       []string{"query", "node", "--where", `title = "missing"`},
			wantTitles: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs := decodeRecords(t, env.mustRun(t, tt.args...))
			titles := make([]string, 0, len(recs))
			for _, r := range recs {
				titles = append(titles, r["title"].(string))
			}
			assert.Equal(t, tt.wantTitles, titles)
		})
	}
}

func TestMsgpackOutput(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "create", "user", `{"name":"alice","roles":["editor","admin"]}`)

	out := env.mustRun(t, "--format", "msgpack", "load-many", "user", "1")

	dec := msgpack.NewDecoder(bytes.NewReader([]byte(out)))
	dec.UseLooseInterfaceDecoding(true)
	var recs []map[string]any
	require.NoError(t, dec.Decode(&recs))
	require.Len(t, recs, 1)
	assert.Equal(t, "alice", recs[0]["name"])
	assert.Equal(t, int64(1), recs[0]["id"])
	assert.Equal(t, []any{"editor", "admin"}, recs[0]["roles"])
}

func TestTypes(t *testing.T) {
	env := newTestEnv(t)
	out := env.mustRun(t, "types")

	var summaries []typeSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summaries))
	ids := make([]string, 0, len(summaries))
	for _, s := range summaries {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"menu", "node", "taxonomy_term", "user"}, ids)
	for _, s := range summaries {
		if s.ID == "user" {
			assert.True(t, s.Account)
		}
		if s.ID == "node" {
			assert.False(t, s.Account)
			assert.True(t, s.Revisionable)
			assert.Equal(t, []string{"article", "page"}, s.Bundles)
			assert.Contains(t, s.Fields, "field_tags")
		}
	}
}

func TestConfigBaseURL(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.MkdirAll(env.configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(env.configDir, "config.yaml"),
		[]byte("backend: sqlite\nbase_url: https://example.com/\n"), 0o644))

	rec := decodeRecord(t, env.mustRun(t, "create", "user", `{"name":"alice"}`))
	links := rec["_meta"].(map[string]any)["links"].(map[string]any)
	assert.Equal(t, "https://example.com/user/1", links["canonical"])
}
