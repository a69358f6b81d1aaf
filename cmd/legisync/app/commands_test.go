package app

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivethreefive/legisync/internal/record"
	"github.com/fivethreefive/legisync/internal/store"
	"github.com/fivethreefive/legisync/internal/versions"
)

// setupWorkspace writes a config whose data directory holds one bill and one vote.
func setupWorkspace(t *testing.T) (string, *store.FileStore) {
	t.Helper()

	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	content := "dataDir: " + dataDir + `
congress: 115
upstream:
  apiKey: k
publish:
  appID: a
  appSecret: s
  username: u
  password: p
  subreddit: "535"
`
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	st, err := store.NewFileStore(dataDir)
	require.NoError(t, err)

	ctx := context.Background()
	vote := &record.Vote{ID: "house-115-1-699", Bookkeeping: record.Bookkeeping{Tracking: true, PublishedRef: "t3_1"}}
	bill := &record.Bill{
		ID:          "hr1-115",
		Congress:    115,
		Title:       "Tax Cuts and Jobs Act",
		Votes:       []record.VoteRef{{ID: vote.ID}},
		Bookkeeping: record.Bookkeeping{Tracking: true, PublishedRef: "t3_2"},
	}
	require.NoError(t, st.Save(ctx, vote))
	require.NoError(t, st.Save(ctx, bill))

	return path, st
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestShowCommand(t *testing.T) {
	path, _ := setupWorkspace(t)

	out, err := execute(t, "show", "bill", "HR1", "--config", path)
	require.NoError(t, err)
	var bill record.Bill
	require.NoError(t, json.Unmarshal([]byte(out), &bill))
	assert.Equal(t, "hr1-115", bill.ID)
	assert.Equal(t, record.Ref("t3_2"), bill.PublishedRef)

	out, err = execute(t, "show", "bill", "hr1-115", "--votes", "--config", path)
	require.NoError(t, err)
	var withVotes struct {
		ID            string         `json:"id"`
		ResolvedVotes []*record.Vote `json:"resolvedVotes"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &withVotes))
	assert.Equal(t, "hr1-115", withVotes.ID)
	require.Len(t, withVotes.ResolvedVotes, 1)
	assert.Equal(t, "house-115-1-699", withVotes.ResolvedVotes[0].ID)

	out, err = execute(t, "show", "vote", "--config", path)
	require.NoError(t, err)
	assert.Equal(t, "house-115-1-699\n", out)
}

func TestShowCommand_Errors(t *testing.T) {
	path, _ := setupWorkspace(t)

	tests := []struct {
		name        string
		args        []string
		errContains string
	}{
		{name: "unknown kind", args: []string{"show", "amendment", "x"}, errContains: "unknown record kind"},
		{name: "missing record", args: []string{"show", "bill", "s9"}, errContains: `no stored bill "s9-115"`},
		{name: "invalid id", args: []string{"show", "vote", "../etc"}, errContains: "invalid vote id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, append(tt.args, "--config", path)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestUntrackCommand(t *testing.T) {
	path, st := setupWorkspace(t)

	out, err := execute(t, "untrack", "vote", "house-115-1-699", "--config", path)
	require.NoError(t, err)
	assert.Equal(t, "vote/house-115-1-699 untracked\n", out)

	vote, err := st.LoadVote(context.Background(), "house-115-1-699")
	require.NoError(t, err)
	assert.False(t, vote.Tracking)
	assert.Equal(t, record.Ref("t3_1"), vote.PublishedRef, "the post reference is kept")

	_, err = execute(t, "untrack", "bill", "hr2", "--config", path)
	assert.ErrorContains(t, err, `no stored bill "hr2-115"`)
}

func TestCommandsRequireConfig(t *testing.T) {
	_, err := execute(t, "show", "bill", "hr1", "--config", "")
	assert.ErrorContains(t, err, "--config is required")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version", "--format", "json")
	require.NoError(t, err)

	var info versions.VersionInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, versions.GetVersionInfo(), info)

	out, err = execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Version: ")
}
