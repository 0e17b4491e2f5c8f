package formula

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClosestNameExactMatchIgnoresCase(t *testing.T) {
	require := require.New(t)
	got := ClosestName([]string{"NETTOTAL", "TAXAMT"}, "nettotal")
	require.Equal("NETTOTAL", got)
}

func TestClosestNamePicksNearestByEditDistance(t *testing.T) {
	require := require.New(t)
	got := ClosestName([]string{"NETTOTAL", "TAXAMT"}, "NETOTAL")
	require.Equal("NETTOTAL", got)
}

func TestClosestNameEmptyCandidates(t *testing.T) {
	require := require.New(t)
	require.Equal("", ClosestName(nil, "ANYTHING"))
}

func TestLevenshteinKnownDistances(t *testing.T) {
	require := require.New(t)
	require.Equal(0, levenshtein("abc", "abc"))
	require.Equal(1, levenshtein("abc", "abd"))
	require.Equal(3, levenshtein("", "abc"))
}
