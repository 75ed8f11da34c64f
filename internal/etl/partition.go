package etl

import "github.com/mpawlak/statsync/pkg/models"

// Partition yields the batch ranges covering records [offset, total) in
// fixed-size contiguous slices. Boundaries depend only on total and size, so
// resuming at a checkpointed offset always lands on the same boundaries as
// the run that wrote it. Resume granularity is one whole batch: offset is
// rounded down to its containing batch, so up to size-1 records may be
// re-sent after a crash mid-batch. That is safe because writes are keyed
// upserts.
func Partition(total, size, offset int) []models.BatchRange {
	if total <= 0 || size <= 0 || offset >= total {
		return nil
	}
	if offset < 0 {
		offset = 0
	}

	first := offset / size
	count := (total + size - 1) / size

	ranges := make([]models.BatchRange, 0, count-first)
	for i := first; i < count; i++ {
		start := i * size
		end := start + size
		if end > total {
			end = total
		}
		ranges = append(ranges, models.BatchRange{Index: i, Start: start, End: end})
	}
	return ranges
}
