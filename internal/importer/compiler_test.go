package importer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "compiler.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func writeSource(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "player.as")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCompilerReturnsOutputBlob(t *testing.T) {
	c := &Compiler{Path: writeScript(t, `cp "$1" "$2"`)}
	src := writeSource(t, "class Player {}")

	blob, err := c.Compile(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, []byte("class Player {}"), blob)
}

func TestCompilerPassesExtraArgsFirst(t *testing.T) {
	c := &Compiler{
		Path: writeScript(t, `printf '%s' "$1" > "$3"`),
		Args: []string{"-strict"},
	}
	blob, err := c.Compile(context.Background(), writeSource(t, ""))
	require.NoError(t, err)
	assert.Equal(t, []byte("-strict"), blob)
}

func TestCompilerFailureCarriesDiagnostics(t *testing.T) {
	c := &Compiler{Path: writeScript(t, `echo "line 3: unexpected token" >&2; exit 1`)}
	src := writeSource(t, "class {")

	_, err := c.Compile(context.Background(), src)
	var cerr *CompilerError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, src, cerr.Source)
	assert.Contains(t, cerr.Diagnostics, "unexpected token")
}

func TestCompilerCleanExitWithoutOutputIsAnError(t *testing.T) {
	c := &Compiler{Path: writeScript(t, `exit 0`)}

	_, err := c.Compile(context.Background(), writeSource(t, ""))
	var cerr *CompilerError
	assert.ErrorAs(t, err, &cerr)
}

func TestCompilerUnconfigured(t *testing.T) {
	c := &Compiler{}
	_, err := c.Compile(context.Background(), "whatever.as")
	assert.Error(t, err)
}

func TestCompilerHonorsContext(t *testing.T) {
	c := &Compiler{Path: writeScript(t, `sleep 10`)}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Compile(ctx, writeSource(t, ""))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
