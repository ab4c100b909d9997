package postgres

import (
	"fmt"
	"testing"
)

func makeIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("sched-%d", i)
	}
	return ids
}

func TestChunkIDs(t *testing.T) {
	tests := []struct {
		n         int
		wantSizes []int
	}{
		{0, nil},
		{1, []int{1}},
		{400, []int{400}},
		{401, []int{400, 1}},
		{900, []int{400, 400, 100}},
	}

	for _, tt := range tests {
		chunks := chunkIDs(makeIDs(tt.n), deleteBatchLimit)
		if len(chunks) != len(tt.wantSizes) {
			t.Errorf("n=%d: got %d chunks, want %d", tt.n, len(chunks), len(tt.wantSizes))
			continue
		}
		total := 0
		for i, c := range chunks {
			if len(c) != tt.wantSizes[i] {
				t.Errorf("n=%d: chunk %d has %d ids, want %d", tt.n, i, len(c), tt.wantSizes[i])
			}
			total += len(c)
		}
		if total != tt.n {
			t.Errorf("n=%d: chunks cover %d ids", tt.n, total)
		}
	}
}
