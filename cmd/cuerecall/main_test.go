package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestReinforceThenQuery(t *testing.T) {
	t.Setenv("CUERECALL_AI_ENABLED", "")
	dir := t.TempDir()
	base := []string{"--mode", "dev", "--data", dir}

	out, err := execute(t, append([]string{"init"}, base...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "database ready (driver=sqlite, mode=dev)")

	out, err = execute(t, append([]string{"reinforce",
		"--key", "prefers_vim", "--type", "preference", "--category", "technical",
		"--evidence", "medium", "--payload", "editor=vim"}, base...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "prefers_vim (preference, technical) confidence=0.50 evidence=medium")

	out, err = execute(t, append([]string{"reinforce",
		"--key", "prefers_vim", "--type", "preference", "--category", "technical",
		"--evidence", "high", "--payload", "editor=vim"}, base...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "confidence=0.60 evidence=high")

	out, err = execute(t, append([]string{"query", "--max", "3", "--stats", "vim editor preference"}, base...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Summary:")
	assert.Contains(t, out, "Confidence:")
	assert.Contains(t, out, "remote embeddings: 0, fallbacks: 0")
	assert.Contains(t, out, "cache hit rate: 0.0% (2 entries)")
}

func TestReinforceRejectsInvalidType(t *testing.T) {
	t.Setenv("CUERECALL_AI_ENABLED", "")
	_, err := execute(t, "reinforce", "--mode", "dev", "--data", t.TempDir(), "--key", "k", "--type", "mood")
	assert.Error(t, err)
}

func TestAskRequiresModel(t *testing.T) {
	t.Setenv("CUERECALL_AI_ENABLED", "")
	_, err := execute(t, "ask", "--mode", "dev", "--data", t.TempDir(), "anything")
	assert.Error(t, err)
}
