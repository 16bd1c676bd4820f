package engine

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openChannel(t *testing.T, path, name string) *Channel {
	t.Helper()
	ch, err := Open(path, name, discardLogger())
	require.NoError(t, err)
	return ch
}

func TestOpen_RecordModeOnFreshFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.dilog")
	ch := openChannel(t, path, "c")
	defer ch.Close()
	assert.Equal(t, ModeRecord, ch.Mode)
}

func TestOpen_VerifyModeOnExistingNonEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.dilog")
	require.NoError(t, os.WriteFile(path, []byte("[c]hi\n"), 0o644))
	ch := openChannel(t, path, "c")
	defer ch.Close()
	assert.Equal(t, ModeVerify, ch.Mode)
}

func TestOpen_EmptyExistingFileIsRecordMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.dilog")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	ch := openChannel(t, path, "c")
	defer ch.Close()
	assert.Equal(t, ModeRecord, ch.Mode)
}

// Baseline record/verify round trip: every message recorded in one
// pass must verify unchanged in a second pass over the same file.
func TestChannel_BaselineRecordVerifyRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.dilog")

	rec := openChannel(t, path, "c")
	_, err := rec.Message("a")
	require.NoError(t, err)
	_, err = rec.Message("b")
	require.NoError(t, err)
	require.NoError(t, rec.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[c]a\n[c]b\n", string(raw))

	ver := openChannel(t, path, "c")
	defer ver.Close()
	_, err = ver.Message("a")
	require.NoError(t, err)
	_, err = ver.Message("b")
	require.NoError(t, err)
}

// A mismatch on the second message must be reported at the correct line.
func TestVerify_DivergentSecondMessageFailsAtCorrectLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.dilog")
	rec := openChannel(t, path, "c")
	_, _ = rec.Message("a")
	_, _ = rec.Message("b")
	require.NoError(t, rec.Close())

	ver := openChannel(t, path, "c")
	defer ver.Close()
	_, err := ver.Message("a")
	require.NoError(t, err)
	_, err = ver.Message("x")
	require.Error(t, err)
	assert.True(t, IsKind(err, MessageMismatch))
	var de *Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 2, de.Line)
}

func TestOpenCloseBlock_RecordAndVerifyRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.dilog")

	rec := openChannel(t, path, "c")
	blk, err := rec.OpenBlock("L")
	require.NoError(t, err)
	_, err = rec.Message("inside")
	require.NoError(t, err)
	rec.CloseBlock(blk)
	require.NoError(t, rec.PendingError())
	require.NoError(t, rec.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[c/L[\n[c/L]inside\n]c/L]\n", string(raw))

	ver := openChannel(t, path, "c")
	defer ver.Close()
	vblk, err := ver.OpenBlock("L")
	require.NoError(t, err)
	_, err = ver.Message("inside")
	require.NoError(t, err)
	ver.CloseBlock(vblk)
	assert.NoError(t, ver.PendingError())
}

func TestOpenBlock_RejectsSlashInName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.dilog")
	rec := openChannel(t, path, "c")
	defer rec.Close()
	_, err := rec.OpenBlock("a/b")
	require.Error(t, err)
	assert.True(t, IsInvalidBlockName(err))
	assert.Equal(t, err, rec.PendingError())
}

func TestVerifyOpenBlock_RejectsSlashInName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.dilog")
	rec := openChannel(t, path, "c")
	blk, _ := rec.OpenBlock("L")
	rec.CloseBlock(blk)
	require.NoError(t, rec.Close())

	ver := openChannel(t, path, "c")
	defer ver.Close()
	_, err := ver.OpenBlock("a/b")
	require.Error(t, err)
	assert.True(t, IsInvalidBlockName(err))
}

func TestMessage_ZeroLengthPayloadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.dilog")
	rec := openChannel(t, path, "c")
	n, err := rec.Message("")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	require.NoError(t, rec.Close())

	ver := openChannel(t, path, "c")
	defer ver.Close()
	n, err = ver.Message("")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestMessage_PayloadTruncatedAtMaxBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.dilog")
	long := make([]byte, MaxPayloadBytes+100)
	for i := range long {
		long[i] = 'x'
	}
	rec := openChannel(t, path, "c")
	n, err := rec.Message(string(long))
	require.NoError(t, err)
	assert.Equal(t, MaxPayloadBytes, n)
	require.NoError(t, rec.Close())

	ver := openChannel(t, path, "c")
	defer ver.Close()
	_, err = ver.Message(string(long))
	require.NoError(t, err, "verify must apply the same truncation before comparing")
}

func TestVerify_TruncatedTraceOnFirstOperation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.dilog")
	// A non-empty file with no relevant content at all forces an
	// immediate EOF on the channel root's own prefix.
	require.NoError(t, os.WriteFile(path, []byte("[other]hi\n"), 0o644))

	ver := openChannel(t, path, "c")
	defer ver.Close()
	_, err := ver.Message("a")
	require.Error(t, err)
	assert.True(t, IsTruncatedTrace(err))
}

func TestPendingError_IsTerminal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.dilog")
	rec := openChannel(t, path, "c")
	defer rec.Close()
	_, err := rec.OpenBlock("a/b") // sets pendingError
	require.Error(t, err)

	_, err2 := rec.Message("anything")
	assert.Same(t, err, err2, "once pendingError is set, every subsequent call must return exactly it")

	_, err3 := rec.OpenBlock("ok")
	assert.Same(t, err, err3)
}

func TestCurrentLine_TracksAcceptedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.dilog")
	rec := openChannel(t, path, "c")
	defer rec.Close()
	n, err := rec.CurrentLine()
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, _ = rec.Message("a")
	n, err = rec.CurrentLine()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCheckOwner_CrossThreadAccess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.dilog")
	ch := openChannel(t, path, "c")
	defer ch.Close()
	ch.BindOwner("thread-1")

	assert.NoError(t, ch.CheckOwner("thread-1", true))

	err := ch.CheckOwner("thread-2", true)
	require.Error(t, err)
	assert.True(t, IsCrossThreadAccess(err))
	assert.Same(t, err, ch.PendingError())
}

func TestCheckOwner_EnforceFalseSkipsGuard(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.dilog")
	ch := openChannel(t, path, "c")
	defer ch.Close()
	ch.BindOwner("thread-1")

	assert.NoError(t, ch.CheckOwner("thread-2", false))
	assert.NoError(t, ch.PendingError())
}
