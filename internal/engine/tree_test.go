package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTree_FlatMessages(t *testing.T) {
	src := "[c]a\n[c]b\n"
	root, err := ParseTree(strings.NewReader(src), "c")
	require.NoError(t, err)
	assert.Equal(t, "c", root.Name)
	assert.Equal(t, []string{"a", "b"}, root.Messages)
	assert.Empty(t, root.Children)
}

func TestParseTree_NestedBlocks(t *testing.T) {
	src := "[c/L[\n[c/L]inside\n]c/L]\n"
	root, err := ParseTree(strings.NewReader(src), "c")
	require.NoError(t, err)
	require.Len(t, root.Children, 1)
	assert.Equal(t, "L", root.Children[0].Name)
	assert.Equal(t, []string{"inside"}, root.Children[0].Messages)
}

func TestParseTree_MessagePayloadContainingBrackets(t *testing.T) {
	// A message line's payload may itself contain "[" or "]"; only the
	// first "]" (which terminates the prefix) is structurally meaningful.
	src := "[c]array[0] = 1\n"
	root, err := ParseTree(strings.NewReader(src), "c")
	require.NoError(t, err)
	assert.Equal(t, []string{"array[0] = 1"}, root.Messages)
}

func TestParseTree_UnclosedBlockIsError(t *testing.T) {
	src := "[c/L[\n[c/L]inside\n"
	_, err := ParseTree(strings.NewReader(src), "c")
	require.Error(t, err)
	assert.True(t, IsTruncatedTrace(err))
}

func TestParseTree_UnmatchedCloseIsError(t *testing.T) {
	src := "]c/L]\n"
	_, err := ParseTree(strings.NewReader(src), "c")
	require.Error(t, err)
	assert.True(t, IsKind(err, UnexpectedFrame))
}

func TestParseTree_UnrecognizedLineIsError(t *testing.T) {
	src := "not a trace line\n"
	_, err := ParseTree(strings.NewReader(src), "c")
	require.Error(t, err)
	assert.True(t, IsKind(err, UnexpectedFrame))
}
