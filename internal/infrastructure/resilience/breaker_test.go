package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFetch = errors.New("bundle fetch failed")

func fetchOK() (interface{}, error)   { return "bundle", nil }
func fetchFail() (interface{}, error) { return nil, errFetch }

func TestSourceFetchStateTransitions(t *testing.T) {
	tests := []struct {
		name string
		run  func(b *Breaker)
		want State
	}{
		{
			name: "healthy host stays closed",
			run: func(b *Breaker) {
				for i := 0; i < 5; i++ {
					b.Execute(fetchOK)
				}
			},
			want: StateClosed,
		},
		{
			name: "repeated fetch failures open the circuit",
			run: func(b *Breaker) {
				for i := 0; i < 3; i++ {
					b.Execute(fetchFail)
				}
			},
			want: StateOpen,
		},
		{
			name: "open circuit probes after the timeout",
			run: func(b *Breaker) {
				for i := 0; i < 3; i++ {
					b.Execute(fetchFail)
				}
				time.Sleep(60 * time.Millisecond)
			},
			want: StateHalfOpen,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New("bundle-host", Settings{
				Timeout: 50 * time.Millisecond,
				ReadyToTrip: func(counts Counts) bool {
					return counts.ConsecutiveFailures >= 3
				},
			})
			tt.run(b)
			assert.Equal(t, tt.want, b.State())
		})
	}
}

func TestSourceFetchCounts(t *testing.T) {
	b := New("bundle-host", Settings{})

	b.Execute(fetchOK)
	b.Execute(fetchOK)
	b.Execute(fetchFail)

	counts := b.Counts()
	assert.Equal(t, uint32(3), counts.Requests)
	assert.Equal(t, uint32(2), counts.TotalSuccesses)
	assert.Equal(t, uint32(1), counts.TotalFailures)
	assert.Equal(t, uint32(1), counts.ConsecutiveFailures)
}

func TestOpenCircuitRejectsFetches(t *testing.T) {
	b := New("bundle-host", Settings{
		Timeout: time.Minute,
		ReadyToTrip: func(counts Counts) bool {
			return counts.ConsecutiveFailures >= 1
		},
	})

	b.Execute(fetchFail)
	require.Equal(t, StateOpen, b.State())

	_, err := b.Execute(fetchOK)
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestHalfOpenRecloses(t *testing.T) {
	b := New("bundle-host", Settings{
		MaxRequests: 2,
		Timeout:     50 * time.Millisecond,
		ReadyToTrip: func(counts Counts) bool {
			return counts.ConsecutiveFailures >= 1
		},
	})

	b.Execute(fetchFail)
	require.Equal(t, StateOpen, b.State())

	time.Sleep(60 * time.Millisecond)
	require.Equal(t, StateHalfOpen, b.State())

	// Two successful probes close the circuit again.
	_, err := b.Execute(fetchOK)
	require.NoError(t, err)
	_, err = b.Execute(fetchOK)
	require.NoError(t, err)

	assert.Equal(t, StateClosed, b.State())
}

func TestStateChangeCallback(t *testing.T) {
	var transitions []string
	b := New("bundle-host", Settings{
		Timeout: 50 * time.Millisecond,
		ReadyToTrip: func(counts Counts) bool {
			return counts.ConsecutiveFailures >= 2
		},
		OnStateChange: func(name string, from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	b.Execute(fetchFail)
	b.Execute(fetchFail)
	require.Equal(t, StateOpen, b.State())

	time.Sleep(60 * time.Millisecond)
	b.Execute(fetchOK)

	assert.Contains(t, transitions, "closed->open")
	assert.Contains(t, transitions, "open->half-open")
}

func TestSourceBreakerRidesOutTransientFailures(t *testing.T) {
	b := NewSourceBreaker("loader")

	// A flaky host that recovers before ten consecutive failures never trips.
	for i := 0; i < 9; i++ {
		b.Execute(fetchFail)
	}
	require.Equal(t, StateClosed, b.State())

	b.Execute(fetchOK)
	assert.Equal(t, StateClosed, b.State())

	// Ten in a row does trip.
	for i := 0; i < 10; i++ {
		b.Execute(fetchFail)
	}
	assert.Equal(t, StateOpen, b.State())
}
