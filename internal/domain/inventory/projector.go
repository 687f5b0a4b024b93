package inventory

// EffectiveStock sums the remaining quantity over active batches matching
// the location filter. A nil filter sums across all locations, which keeps
// call sites that are not location-aware working unchanged. An empty batch
// set yields 0; the result is never negative because remaining quantities
// cannot go below zero.
func EffectiveStock(batches []Batch, loc *LocationRef) int64 {
	var total int64
	for _, b := range batches {
		if b.IsActive() && b.MatchesLocation(loc) {
			total += b.RemainingQuantity
		}
	}
	return total
}

// CanCover reports whether the active batches hold at least the requested
// quantity, and the total they hold. Advisory only: the allocation commit
// is the final gate under concurrency.
func CanCover(batches []Batch, loc *LocationRef, quantity int64) (bool, int64) {
	available := EffectiveStock(batches, loc)
	return available >= quantity, available
}
