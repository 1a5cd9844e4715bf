package catalog

// Normalized text-similarity ratio in [0,1], following the classic
// Ratcliff/Obershelp definition: 2*M/T where M is the number of characters
// in all longest matching blocks and T is the combined length of both
// strings. The near-duplicate tier of the scorer depends on this exact
// definition, so it is implemented here rather than approximated with an
// edit-distance metric.

type matchBlock struct {
	aStart, bStart, size int
}

// SimilarityRatio returns the similarity ratio between a and b.
// Identical strings return 1.0; strings with nothing in common return 0.
func SimilarityRatio(a, b string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	matched := 0
	for _, blk := range matchingBlocks([]byte(a), []byte(b)) {
		matched += blk.size
	}
	return 2.0 * float64(matched) / float64(len(a)+len(b))
}

// matchingBlocks finds all maximal matching blocks by recursively locating
// the longest match and splitting around it.
func matchingBlocks(a, b []byte) []matchBlock {
	// Index of positions per byte value in b, for fast longest-match scans.
	b2j := make(map[byte][]int, len(b))
	for j, c := range b {
		b2j[c] = append(b2j[c], j)
	}

	type span struct{ aLo, aHi, bLo, bHi int }
	queue := []span{{0, len(a), 0, len(b)}}
	var blocks []matchBlock

	for len(queue) > 0 {
		sp := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		blk := longestMatch(a, b2j, sp.aLo, sp.aHi, sp.bLo, sp.bHi)
		if blk.size == 0 {
			continue
		}
		blocks = append(blocks, blk)
		queue = append(queue,
			span{sp.aLo, blk.aStart, sp.bLo, blk.bStart},
			span{blk.aStart + blk.size, sp.aHi, blk.bStart + blk.size, sp.bHi},
		)
	}

	return blocks
}

// longestMatch finds the longest matching block within a[aLo:aHi] and
// b[bLo:bHi] using the running-length table technique.
func longestMatch(a []byte, b2j map[byte][]int, aLo, aHi, bLo, bHi int) matchBlock {
	best := matchBlock{aStart: aLo, bStart: bLo}
	lengths := make(map[int]int)

	for i := aLo; i < aHi; i++ {
		next := make(map[int]int)
		for _, j := range b2j[a[i]] {
			if j < bLo {
				continue
			}
			if j >= bHi {
				break
			}
			k := lengths[j-1] + 1
			next[j] = k
			if k > best.size {
				best = matchBlock{aStart: i - k + 1, bStart: j - k + 1, size: k}
			}
		}
		lengths = next
	}

	return best
}
