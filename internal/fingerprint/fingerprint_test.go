package fingerprint

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReviewIsDeterministic(t *testing.T) {
	a := Review(7, "alice", "2024-01-02", "Great jacket, very warm.")
	b := Review(7, "alice", "2024-01-02", "Great jacket, very warm.")
	require.Equal(t, a, b)
	require.Len(t, a, 64)
}

func TestReviewDiscriminates(t *testing.T) {
	base := Review(7, "alice", "2024-01-02", "Great jacket.")
	require.NotEqual(t, base, Review(8, "alice", "2024-01-02", "Great jacket."))
	require.NotEqual(t, base, Review(7, "bob", "2024-01-02", "Great jacket."))
	require.NotEqual(t, base, Review(7, "alice", "2024-01-03", "Great jacket."))
	require.NotEqual(t, base, Review(7, "alice", "2024-01-02", "Terrible jacket."))
}

func TestReviewIgnoresBodyBeyondPrefix(t *testing.T) {
	prefix := strings.Repeat("x", 120)
	a := Review(1, "a", "t", prefix+"tail one")
	b := Review(1, "a", "t", prefix+"completely different tail")
	require.Equal(t, a, b, "only the first 120 characters of the body should matter")
}
