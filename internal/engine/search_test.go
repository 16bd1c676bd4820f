package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Reordered loop: record three iterations of "L" in order 0,1,2, then
// verify them in order 2,0,1 with identical per-iteration content.
func TestVerify_ReorderedLoopIterationsMatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.dilog")

	rec := openChannel(t, path, "c")
	for i := 0; i < 3; i++ {
		blk, err := rec.OpenBlock("L")
		require.NoError(t, err)
		_, err = rec.Message(fmt.Sprintf("i=%d", i))
		require.NoError(t, err)
		rec.CloseBlock(blk)
	}
	require.NoError(t, rec.PendingError())
	require.NoError(t, rec.Close())

	recordedLines, err := os.ReadFile(path)
	require.NoError(t, err)

	ver := openChannel(t, path, "c")
	defer ver.Close()
	for _, i := range []int{2, 0, 1} {
		blk, err := ver.OpenBlock("L")
		require.NoError(t, err)
		_, err = ver.Message(fmt.Sprintf("i=%d", i))
		require.NoError(t, err)
		ver.CloseBlock(blk)
		require.NoError(t, ver.PendingError())
	}

	wantLines := countLines(string(recordedLines))
	got, err := ver.CurrentLine()
	require.NoError(t, err)
	assert.Equal(t, wantLines, got)
}

// Divergent iteration content: verify emits an iteration with the
// wrong payload; must fail with MessageMismatch, diagnostic naming the
// remaining candidates.
func TestVerify_DivergentIterationContentFailsAfterExhaustingCandidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.dilog")

	rec := openChannel(t, path, "c")
	for i := 0; i < 3; i++ {
		blk, err := rec.OpenBlock("L")
		require.NoError(t, err)
		_, err = rec.Message(fmt.Sprintf("i=%d", i))
		require.NoError(t, err)
		rec.CloseBlock(blk)
	}
	require.NoError(t, rec.Close())

	ver := openChannel(t, path, "c")
	defer ver.Close()

	blk, err := ver.OpenBlock("L")
	require.NoError(t, err)
	_, err = ver.Message("i=9")
	require.Error(t, err)
	assert.True(t, IsKind(err, MessageMismatch))
	assert.True(t, IsSearchExhausted(err))

	var de *Error
	require.ErrorAs(t, err, &de)
	var cause *Error
	require.ErrorAs(t, de.Cause, &cause)
	assert.NotEmpty(t, cause.Diagnostic)

	ver.CloseBlock(blk) // pendingError already set; must be a no-op
	assert.Same(t, err, ver.PendingError())
}

// Nested reorder: two outer iterations, each with two inner
// iterations; verify swaps both levels and must still succeed.
func TestVerify_NestedLoopReorderSucceeds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.dilog")

	rec := openChannel(t, path, "c")
	for o := 0; o < 2; o++ {
		outer, err := rec.OpenBlock("O")
		require.NoError(t, err)
		for i := 0; i < 2; i++ {
			inner, err := rec.OpenBlock("I")
			require.NoError(t, err)
			_, err = rec.Message(fmt.Sprintf("o%d_i%d", o, i))
			require.NoError(t, err)
			rec.CloseBlock(inner)
		}
		rec.CloseBlock(outer)
	}
	require.NoError(t, rec.PendingError())
	require.NoError(t, rec.Close())

	ver := openChannel(t, path, "c")
	defer ver.Close()
	for _, o := range []int{1, 0} {
		outer, err := ver.OpenBlock("O")
		require.NoError(t, err)
		for _, i := range []int{1, 0} {
			inner, err := ver.OpenBlock("I")
			require.NoError(t, err)
			_, err = ver.Message(fmt.Sprintf("o%d_i%d", o, i))
			require.NoError(t, err)
			ver.CloseBlock(inner)
			require.NoError(t, ver.PendingError())
		}
		ver.CloseBlock(outer)
		require.NoError(t, ver.PendingError())
	}
}

// Extra iteration: record two iterations of "L", verify three; the
// third open has no matching recorded iteration left.
func TestVerify_ExtraIterationFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.dilog")

	rec := openChannel(t, path, "c")
	for i := 0; i < 2; i++ {
		blk, err := rec.OpenBlock("L")
		require.NoError(t, err)
		_, err = rec.Message(fmt.Sprintf("i=%d", i))
		require.NoError(t, err)
		rec.CloseBlock(blk)
	}
	require.NoError(t, rec.Close())

	ver := openChannel(t, path, "c")
	defer ver.Close()
	for i := 0; i < 2; i++ {
		blk, err := ver.OpenBlock("L")
		require.NoError(t, err)
		_, err = ver.Message(fmt.Sprintf("i=%d", i))
		require.NoError(t, err)
		ver.CloseBlock(blk)
		require.NoError(t, ver.PendingError())
	}

	_, err := ver.OpenBlock("L")
	require.Error(t, err, "the third open has no matching recorded iteration left to find")
	assert.True(t, IsTruncatedTrace(err) || IsKind(err, UnexpectedFrame))
}

// Cross-thread guard: created by one thread token, accessed by
// another with enforcement on fails. The enforcement-off case is
// covered by TestCheckOwner_EnforceFalseSkipsGuard.
func TestChannel_CrossThreadAccessFailsWithEnforcementOn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.dilog")
	ch := openChannel(t, path, "c")
	defer ch.Close()
	ch.BindOwner("T1")

	err := ch.CheckOwner("T2", true)
	require.Error(t, err)
	assert.True(t, IsCrossThreadAccess(err))
}

func countLines(s string) int {
	n := 0
	for _, r := range s {
		if r == '\n' {
			n++
		}
	}
	return n
}
