package progress

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercent(t *testing.T) {
	tests := []struct {
		done, total, want int
	}{
		{0, 3, 0},
		{1, 3, 33},
		{2, 3, 67},
		{3, 3, 100},
		{1, 8, 13},
		{199, 200, 100},
		{0, 0, 100},
		{5, 3, 100},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_of_%d", tt.done, tt.total), func(t *testing.T) {
			assert.Equal(t, tt.want, Percent(tt.done, tt.total))
		})
	}
}

func TestTrackerMonotonicAndEndsAt100(t *testing.T) {
	for _, total := range []int{1, 2, 3, 7, 97, 200} {
		tr := New(total)
		last := tr.Snapshot().Percent
		for i := 0; i < total; i++ {
			tr = tr.Complete(fmt.Sprintf("file.pdf (P%d)", i+1))
			s := tr.Snapshot()
			assert.GreaterOrEqual(t, s.Percent, last)
			last = s.Percent
		}
		s := tr.Snapshot()
		assert.Equal(t, total, s.Completed)
		assert.Equal(t, 100, s.Percent, "total=%d", total)
		assert.True(t, tr.Done())
	}
}

func TestTrackerStatus(t *testing.T) {
	tr := New(2)
	assert.Equal(t, StatusScanning, tr.Snapshot().Status)

	tr = tr.Complete("book.pdf (P1)")
	assert.Equal(t, "Translating book.pdf (P1)...", tr.Snapshot().Status)

	tr = tr.Finish()
	assert.Equal(t, StatusSuccess, tr.Snapshot().Status)
	assert.Equal(t, 100, tr.Snapshot().Percent)
}

func TestTrackerIgnoresExtraCompletions(t *testing.T) {
	tr := New(1).Complete("a").Complete("b")
	assert.Equal(t, 1, tr.Snapshot().Completed)
	assert.Equal(t, 100, tr.Snapshot().Percent)
}
