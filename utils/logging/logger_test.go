package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesConsoleAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "operations.log")
	require.NoError(t, os.WriteFile(path, []byte("previous run\n"), 0o644))

	var console bytes.Buffer
	log, err := New(&console, path, "info", "run-1")
	require.NoError(t, err)

	log.Debug().Msg("hidden")
	log.Info().Str("wallet", "0xabc").Msg("mint_usdc done")
	require.NoError(t, log.Close())

	assert.Contains(t, console.String(), "mint_usdc done")
	assert.NotContains(t, console.String(), "hidden")

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "previous run\n")
	assert.Contains(t, string(content), "mint_usdc done")
	assert.Contains(t, string(content), "run_id=run-1")
	assert.Contains(t, string(content), "wallet=0xabc")
}

func TestNew_WithoutFile(t *testing.T) {
	var console bytes.Buffer
	log, err := New(&console, "", "debug", "run-2")
	require.NoError(t, err)

	log.Debug().Msg("visible")
	assert.Contains(t, console.String(), "visible")
	assert.NoError(t, log.Close())
}

func TestNew_Errors(t *testing.T) {
	_, err := New(&bytes.Buffer{}, "", "loud", "run")
	assert.Error(t, err)

	_, err = New(&bytes.Buffer{}, filepath.Join(t.TempDir(), "missing", "x.log"), "info", "run")
	assert.Error(t, err)
}

func TestNewRunID(t *testing.T) {
	id := NewRunID()
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.NotEqual(t, id, NewRunID())
}
