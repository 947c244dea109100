package engine

import (
	"sort"

	"github.com/yamori/assessrec/internal/catalog"
)

// Split maps balancer buckets to their share of the final list. Fractions
// should sum to 1 across the buckets they cover; buckets absent from the map
// receive slots only through backfill.
type Split map[catalog.Bucket]float64

// DefaultSplit is the stock 70% technical / 30% behavioral mix.
func DefaultSplit() Split {
	return Split{
		catalog.BucketTechnical:  0.7,
		catalog.BucketBehavioral: 0.3,
	}
}

// NewSplit builds a two-bucket split from the technical fraction.
func NewSplit(technical float64) Split {
	return Split{
		catalog.BucketTechnical:  technical,
		catalog.BucketBehavioral: 1 - technical,
	}
}

// balance selects and orders up to targetSize entries from the scored,
// score-descending candidate list, aiming for the given category mix. Bucket
// quotas use largest-remainder apportionment; a bucket exhausted before its
// quota is backfilled from the highest-scoring leftovers regardless of
// category, so the output always reaches targetSize when enough candidates
// exist. The function only selects and places entries, it never alters a
// score.
func balance(entries []ResultEntry, targetSize int, split Split) []ResultEntry {
	if targetSize <= 0 || len(entries) == 0 {
		return nil
	}
	if targetSize > len(entries) {
		targetSize = len(entries)
	}

	buckets := make(map[catalog.Bucket][]int) // positions into entries, score-descending
	for i, e := range entries {
		buckets[e.Bucket] = append(buckets[e.Bucket], i)
	}

	quotas := apportion(split, targetSize)

	picked := make([]bool, len(entries))
	out := make([]ResultEntry, 0, targetSize)

	for _, b := range splitOrder(split) {
		quota := quotas[b]
		for _, pos := range buckets[b] {
			if quota == 0 {
				break
			}
			out = append(out, entries[pos])
			picked[pos] = true
			quota--
		}
	}

	// Backfill remaining slots from best leftovers, any bucket. The input is
	// already score-descending, so a linear walk keeps score order and the
	// reranker's tie order.
	for pos := 0; pos < len(entries) && len(out) < targetSize; pos++ {
		if !picked[pos] {
			out = append(out, entries[pos])
			picked[pos] = true
		}
	}

	return out
}

// apportion divides targetSize slots across the split's buckets using largest
// remainders, so a 70/30 split of 3 slots gives 2/1 rather than 3/0.
func apportion(split Split, targetSize int) map[catalog.Bucket]int {
	order := splitOrder(split)

	quotas := make(map[catalog.Bucket]int, len(order))
	type rem struct {
		bucket catalog.Bucket
		frac   float64
	}
	rems := make([]rem, 0, len(order))

	assigned := 0
	for _, b := range order {
		exact := float64(targetSize) * split[b]
		whole := int(exact)
		quotas[b] = whole
		assigned += whole
		rems = append(rems, rem{bucket: b, frac: exact - float64(whole)})
	}

	sort.SliceStable(rems, func(i, j int) bool {
		return rems[i].frac > rems[j].frac
	})

	for i := 0; assigned < targetSize && i < len(rems); i++ {
		quotas[rems[i].bucket]++
		assigned++
	}

	return quotas
}

// splitOrder returns the split's buckets in a deterministic order: larger
// fraction first, name as tie-break.
func splitOrder(split Split) []catalog.Bucket {
	order := make([]catalog.Bucket, 0, len(split))
	for b := range split {
		order = append(order, b)
	}
	sort.Slice(order, func(i, j int) bool {
		if split[order[i]] != split[order[j]] {
			return split[order[i]] > split[order[j]]
		}
		return order[i] < order[j]
	})
	return order
}
