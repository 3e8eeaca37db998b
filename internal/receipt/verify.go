package receipt

import "fmt"

// VerifyResult is the outcome of a full chain verification.
// FailedIndex is the 0-based global record index of the first failure;
// it is meaningful only when OK is false.
type VerifyResult struct {
	OK           bool   `json:"ok"`
	Total        int    `json:"total"`
	FailedIndex  int    `json:"failed_index,omitempty"`
	FailedReason string `json:"failed_reason,omitempty"`
}

// Verify replays every segment in ascending date order and checks, for
// each record, that its prev_hash links to the preceding record (or
// genesis at the start of a segment) and that its stored hash matches
// a recomputation over its other fields. Verification stops at the
// first failure. Records are never repaired.
func (l *Log) Verify() (VerifyResult, error) {
	paths, err := l.Segments()
	if err != nil {
		return VerifyResult{}, err
	}

	index := 0
	for _, path := range paths {
		recs, err := l.ReadSegment(path)
		if err != nil {
			// ReadSegment yields no partial records, so an unparseable
			// segment fails the chain at its first record's global
			// index regardless of where the bad line sits.
			return VerifyResult{
				Total:        index,
				FailedIndex:  index,
				FailedReason: fmt.Sprintf("malformed record: %v", err),
			}, nil
		}

		// Chain linkage resets to genesis at each segment boundary.
		prev := GenesisHash
		for _, r := range recs {
			if r.PrevHash != prev {
				return VerifyResult{
					Total:       index,
					FailedIndex: index,
					FailedReason: fmt.Sprintf("prev_hash mismatch at record %d: expected %.16s…, got %.16s…",
						index, prev, r.PrevHash),
				}, nil
			}

			recomputed, err := ComputeHash(r)
			if err != nil {
				return VerifyResult{}, fmt.Errorf("receipt: recompute hash: %w", err)
			}
			if r.Hash != recomputed {
				return VerifyResult{
					Total:       index,
					FailedIndex: index,
					FailedReason: fmt.Sprintf("hash mismatch at record %d: expected %.16s…, got %.16s…",
						index, recomputed, r.Hash),
				}, nil
			}

			prev = r.Hash
			index++
		}
	}

	return VerifyResult{OK: true, Total: index}, nil
}
