package scraper

// Batches group permit numbers by their trailing digit: batch N covers
// suffixes N*10 through N*10+9, and a begins-with search on the batch's
// digit prefix returns exactly that group.
const batchSize = 10

// StartingBatch picks the batch a sweep resumes from, given the largest
// stored suffix for the prefix. With no stored permits the sweep starts at
// batch zero. The batch holding the largest suffix is re-scanned, because
// the portal may have issued more permits in it since the previous run; it
// is skipped only when the suffix is the batch's last slot, which proves
// the batch was seen in full.
func StartingBatch(largestSuffix int, found bool) int {
	if !found {
		return 0
	}
	batch := largestSuffix / batchSize
	if largestSuffix%batchSize == batchSize-1 {
		return batch + 1
	}
	return batch
}
