package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	cmd := newRootCmd()
	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"seed", "follow", "migrate", "lookup"} {
		assert.Contains(t, names, want)
	}
}

func TestRootCmd_InvalidConfig(t *testing.T) {
	_, err := execute(t, "lookup", "apps", "--use-memory", "--fetch-concurrency=0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch-concurrency")
}

func TestMigrateCmd_Memory(t *testing.T) {
	_, err := execute(t, "migrate", "--use-memory", "--metrics-addr=")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to migrate")
}

func TestLookupCmd_MemoryStore(t *testing.T) {
	out, err := execute(t, "lookup", "apps", "--use-memory", "--log-format=json")
	require.NoError(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(out))

	_, err = execute(t, "lookup", "account", "addr1", "--use-memory")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	_, err = execute(t, "lookup", "block", "chain", "x", "--use-memory")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid height")
}
