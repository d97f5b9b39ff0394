package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withCwd(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(orig) })
}

func TestPatchService_Apply_ReplacesLiteralOccurrence(t *testing.T) {
	dir := t.TempDir()
	withCwd(t, dir)

	path := filepath.Join(dir, "foo.txt")
	require.NoError(t, os.WriteFile(path, []byte("line1\nline2_original\nline3\n"), 0644))

	diff := "<<<<<<< ORIGINAL\nline2_original\n=======\nline2_replaced\n>>>>>>> UPDATED"

	p := NewPatchService()
	msg, err := p.Apply("foo.txt", diff)
	require.NoError(t, err)
	assert.Contains(t, msg, "Applied edits to file")

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "line1\nline2_replaced\nline3\n", string(content))
}

func TestPatchService_Apply_MissingSearchLeavesFileUntouched(t *testing.T) {
	dir := t.TempDir()
	withCwd(t, dir)

	path := filepath.Join(dir, "foo.txt")
	original := "line1\nline2\nline3\n"
	require.NoError(t, os.WriteFile(path, []byte(original), 0644))

	diff := "<<<<<<< ORIGINAL\nnot present\n=======\nreplacement\n>>>>>>> UPDATED"

	p := NewPatchService()
	msg, err := p.Apply("foo.txt", diff)
	require.NoError(t, err)
	assert.Contains(t, msg, "WARNING: Search text not found: 'not present'")

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, string(content))
}

func TestPatchService_Apply_CreatesMissingFile(t *testing.T) {
	dir := t.TempDir()
	withCwd(t, dir)

	diff := "<<<<<<< ORIGINAL\n=======\nnew content\n>>>>>>> UPDATED"

	p := NewPatchService()
	msg, err := p.Apply("new.txt", diff)
	require.NoError(t, err)
	assert.Contains(t, msg, "does not exist, will create new file")

	content, err := os.ReadFile(filepath.Join(dir, "new.txt"))
	require.NoError(t, err)
	assert.Equal(t, "new content", string(content))
}

func TestPatchService_Apply_RejectsPathOutsideCwd(t *testing.T) {
	dir := t.TempDir()
	withCwd(t, dir)

	p := NewPatchService()
	_, err := p.Apply("/etc/passwd", "<<<<<<< ORIGINAL\nx\n=======\ny\n>>>>>>> UPDATED")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "File must be within current working directory")
}

func TestPatchService_Apply_RejectsCwdItself(t *testing.T) {
	dir := t.TempDir()
	withCwd(t, dir)

	p := NewPatchService()
	_, err := p.Apply(".", "<<<<<<< ORIGINAL\nx\n=======\ny\n>>>>>>> UPDATED")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Cannot apply edits to the current working directory itself")
}

func TestPatchService_Apply_NoValidBlocksFound(t *testing.T) {
	dir := t.TempDir()
	withCwd(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "foo.txt"), []byte("x"), 0644))

	p := NewPatchService()
	_, err := p.Apply("foo.txt", "not a diff at all")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No valid edit blocks found in diff text")
}

func TestPatchService_Apply_NLSentinelBecomesNewline(t *testing.T) {
	dir := t.TempDir()
	withCwd(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "foo.txt"), []byte("a\nb\n"), 0644))

	diff := "<<<<<<< ORIGINAL<NL>a<NL>=======<NL>z<NL>>>>>>> UPDATED"

	p := NewPatchService()
	_, err := p.Apply("foo.txt", diff)
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(dir, "foo.txt"))
	require.NoError(t, err)
	assert.Equal(t, "z\nb\n", string(content))
}
