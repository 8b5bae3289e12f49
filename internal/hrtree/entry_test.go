package hrtree

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"pred-prey/internal/hilbert"
)

func sortEntries(entries []KeyedEntry) []KeyedEntry {
	buf := make([]KeyedEntry, len(entries))
	if radixSort(entries, buf) {
		return buf
	}
	return entries
}

func TestRadixSortSortedAndStable(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	entries := make([]KeyedEntry, 5000)
	for i := range entries {
		// few distinct values spread over several bytes to force ties
		k := hilbert.Key(rng.Intn(4)<<24 | rng.Intn(4)<<8 | rng.Intn(2))
		entries[i] = KeyedEntry{Key: k, Index: int32(i)}
	}

	sorted := sortEntries(entries)
	require.Len(t, sorted, 5000)
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		require.LessOrEqual(t, prev.Key, cur.Key)
		if prev.Key == cur.Key {
			require.Less(t, prev.Index, cur.Index, "ties keep input order")
		}
	}
}

func TestRadixSortIsPermutation(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	entries := make([]KeyedEntry, 1000)
	for i := range entries {
		entries[i] = KeyedEntry{Key: hilbert.Key(rng.Intn(1 << hilbert.Bits)), Index: int32(i)}
	}
	sorted := sortEntries(append([]KeyedEntry(nil), entries...))

	seen := make([]bool, len(entries))
	for _, e := range sorted {
		require.False(t, seen[e.Index])
		seen[e.Index] = true
		require.Equal(t, entries[e.Index].Key, e.Key)
	}
}

func TestRadixSortSkipsConstantBytes(t *testing.T) {
	entries := []KeyedEntry{{Key: 7, Index: 0}, {Key: 7, Index: 1}, {Key: 7, Index: 2}}
	buf := make([]KeyedEntry, 3)
	require.False(t, radixSort(entries, buf))
	require.Equal(t, []KeyedEntry{{7, 0}, {7, 1}, {7, 2}}, entries)

	// only byte 0 differs: one pass, result in buf
	entries = []KeyedEntry{{Key: 2, Index: 0}, {Key: 1, Index: 1}}
	buf = make([]KeyedEntry, 2)
	require.True(t, radixSort(entries, buf))
	require.Equal(t, []KeyedEntry{{1, 1}, {2, 0}}, buf)
}

func TestRadixSortShortInput(t *testing.T) {
	require.False(t, radixSort(nil, nil))
	one := []KeyedEntry{{Key: 5, Index: 0}}
	require.False(t, radixSort(one, make([]KeyedEntry, 1)))
}
