package hrtree

import "pred-prey/internal/hilbert"

// KeyedEntry pairs a Hilbert key with the position of its box in the
// caller's input. After sorting it is the only link from a leaf slot back to
// the caller's entity.
type KeyedEntry struct {
	Key   hilbert.Key
	Index int32
}

// radixSort sorts src by key with a stable LSD radix sort, one pass per key
// byte, ping-ponging between src and buf. Passes where every key has the same
// byte are skipped. It reports whether the sorted sequence ended up in buf.
// buf must be at least as long as src.
func radixSort(src, buf []KeyedEntry) (inBuf bool) {
	n := len(src)
	if n < 2 {
		return false
	}
	buf = buf[:n]

	var counts [hilbert.KeyBytes][256]int
	for _, e := range src {
		for b := 0; b < hilbert.KeyBytes; b++ {
			counts[b][e.Key.Byte(b)]++
		}
	}

	from, to := src, buf
	for b := 0; b < hilbert.KeyBytes; b++ {
		c := &counts[b]
		if c[from[0].Key.Byte(b)] == n {
			continue
		}
		sum := 0
		for i, cnt := range c {
			c[i] = sum
			sum += cnt
		}
		for _, e := range from {
			k := e.Key.Byte(b)
			to[c[k]] = e
			c[k]++
		}
		from, to = to, from
		inBuf = !inBuf
	}
	return inBuf
}
