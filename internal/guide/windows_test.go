package guide

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindows_ContiguousSixHourSpans(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	base := DayStart(time.Date(2025, 3, 10, 17, 42, 5, 0, loc))
	require.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, loc), base)

	for days := 1; days <= 14; days++ {
		ws := Windows(base, days)
		require.Len(t, ws, 4*days)
		assert.Equal(t, base.Unix(), ws[0].Start)
		for i, w := range ws {
			assert.Equal(t, int64(6*3600), w.End-w.Start)
			assert.Equal(t, i, w.Index)
			assert.Equal(t, i/4, w.Day)
			if i > 0 {
				assert.Equal(t, ws[i-1].End, w.Start, "windows must be contiguous")
			}
		}
		assert.Equal(t, base.Add(time.Duration(days)*24*time.Hour).Unix(), ws[len(ws)-1].End)
	}
}

func TestWindows_NonPositiveDays(t *testing.T) {
	assert.Empty(t, Windows(time.Now(), 0))
	assert.Empty(t, Windows(time.Now(), -1))
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, 2*time.Second, Backoff(1))
	assert.Equal(t, 4*time.Second, Backoff(2))
	assert.Equal(t, 8*time.Second, Backoff(3))
	assert.Equal(t, 2*time.Second, Backoff(0))
}

func TestBatchState_Transitions(t *testing.T) {
	s := BatchState{}
	assert.Equal(t, Pending, s.Phase)

	s, wait := s.Next(false)
	assert.Equal(t, BatchState{Phase: Retrying, Attempt: 1}, s)
	assert.Equal(t, 2*time.Second, wait)

	s, wait = s.Next(false)
	assert.Equal(t, BatchState{Phase: Retrying, Attempt: 2}, s)
	assert.Equal(t, 4*time.Second, wait)

	s, wait = s.Next(false)
	assert.Equal(t, BatchState{Phase: Exhausted, Attempt: 3}, s)
	assert.Zero(t, wait)
	assert.True(t, s.Done())

	ok, _ := BatchState{Phase: Retrying, Attempt: 1}.Next(true)
	assert.Equal(t, BatchState{Phase: Succeeded, Attempt: 2}, ok)
	assert.Equal(t, "succeeded", ok.Phase.String())
}
