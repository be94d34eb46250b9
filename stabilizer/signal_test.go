package stabilizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func newTestSignal(t *testing.T, opts ...Option) (*Signal, *ManualClock) {
	t.Helper()
	clock := NewManualClock(epoch)
	s, err := NewSignal("test", append([]Option{WithClock(clock)}, opts...)...)
	require.NoError(t, err)
	return s, clock
}

func assertNoPending(t *testing.T, s *Signal) {
	t.Helper()
	_, ok := s.PendingValue()
	assert.False(t, ok, "expected no pending value")
	assert.Equal(t, 0, s.PendingCount())
	assert.Equal(t, time.Duration(0), s.PendingDuration())
}

func TestNewSignalDefaults(t *testing.T) {
	s, err := NewSignal("link")
	require.NoError(t, err)

	assert.Equal(t, "link", s.Name())
	assert.False(t, s.Value())
	assert.Equal(t, 1, s.CountThreshold())
	assert.Equal(t, time.Duration(0), s.DurationThreshold())
	assert.Equal(t, BufferBoth, s.BufferMode())
	assertNoPending(t, s)
}

func TestNewSignalInitialValue(t *testing.T) {
	s, err := NewSignal("link", WithInitialValue(true))
	require.NoError(t, err)
	assert.True(t, s.Value())
}

func TestNewSignalInvalidConfiguration(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"zero count", []Option{WithCountThreshold(0)}},
		{"negative count", []Option{WithCountThreshold(-3)}},
		{"negative duration", []Option{WithDurationThreshold(-time.Millisecond)}},
		{"zero directional count", []Option{WithDirectionalCountThreshold(TrueToFalse, 0)}},
		{"negative directional duration", []Option{WithDirectionalDurationThreshold(FalseToTrue, -time.Second)}},
		{"unknown buffer mode", []Option{WithBufferMode(BufferMode(42))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSignal("bad", tt.opts...)
			assert.Nil(t, s)
			assert.ErrorIs(t, err, ErrInvalidConfiguration)
		})
	}
}

func TestReportCountThreshold(t *testing.T) {
	s, _ := newTestSignal(t, WithCountThreshold(3))

	assert.False(t, s.Report(true))
	assert.False(t, s.Report(true))
	assert.True(t, s.Report(true))
	assertNoPending(t, s)
}

func TestReportCountThresholdNMinusOne(t *testing.T) {
	for n := 1; n <= 6; n++ {
		s, _ := newTestSignal(t, WithCountThreshold(n))
		for i := 1; i < n; i++ {
			require.False(t, s.Report(true), "n=%d report %d committed early", n, i)
			require.Equal(t, i, s.PendingCount())
		}
		assert.True(t, s.Report(true), "n=%d: N-th report should commit", n)
	}
}

func TestReportDurationThreshold(t *testing.T) {
	s, clock := newTestSignal(t, WithDurationThreshold(100*time.Millisecond))

	assert.False(t, s.Report(true), "count met but duration not")
	v, ok := s.PendingValue()
	assert.True(t, ok)
	assert.True(t, v)

	clock.Advance(150 * time.Millisecond)
	assert.Equal(t, 150*time.Millisecond, s.PendingDuration())
	assert.True(t, s.Report(true))
	assertNoPending(t, s)
}

func TestReportDurationNotYetElapsed(t *testing.T) {
	s, clock := newTestSignal(t, WithDurationThreshold(time.Second))

	assert.False(t, s.Report(true))
	clock.Advance(999 * time.Millisecond)
	assert.False(t, s.Report(true))
	assert.Equal(t, 2, s.PendingCount())

	clock.Advance(time.Millisecond)
	assert.True(t, s.Report(true))
}

func TestReportDurationMeasuredFromFirstReport(t *testing.T) {
	s, clock := newTestSignal(t, WithDurationThreshold(300*time.Millisecond))

	s.Report(true)
	for i := 0; i < 2; i++ {
		clock.Advance(100 * time.Millisecond)
		assert.False(t, s.Report(true))
	}
	clock.Advance(100 * time.Millisecond)
	assert.True(t, s.Report(true), "repeated reports must not restart the duration")
}

func TestReportNoBackgroundPromotion(t *testing.T) {
	s, clock := newTestSignal(t, WithDurationThreshold(100*time.Millisecond))

	s.Report(true)
	clock.Advance(time.Hour)
	assert.False(t, s.Value(), "value must not change without a report")
	assert.True(t, s.Report(true))
}

func TestReportCountAndDurationBothRequired(t *testing.T) {
	s, clock := newTestSignal(t,
		WithCountThreshold(3),
		WithDurationThreshold(time.Second),
	)

	// Duration met but count not.
	s.Report(true)
	clock.Advance(2 * time.Second)
	assert.False(t, s.Report(true))
	assert.True(t, s.Report(true))

	// Count met but duration not.
	assert.True(t, s.Report(false))
	assert.True(t, s.Report(false))
	assert.True(t, s.Report(false))
	assert.Equal(t, 3, s.PendingCount())
	clock.Advance(time.Second)
	assert.False(t, s.Report(false))
}

func TestReportCurrentValueClearsPending(t *testing.T) {
	for _, mode := range []BufferMode{BufferBoth, BufferFalseToTrue} {
		s, _ := newTestSignal(t, WithCountThreshold(3), WithBufferMode(mode))

		s.Report(true)
		s.Report(true)
		assert.Equal(t, 2, s.PendingCount())

		assert.False(t, s.Report(false), "mode %s", mode)
		assertNoPending(t, s)

		// A new challenge starts counting from 1.
		assert.False(t, s.Report(true))
		assert.Equal(t, 1, s.PendingCount())
		assert.False(t, s.Report(true))
		assert.True(t, s.Report(true))
	}
}

func TestReportBufferNoneCommitsImmediately(t *testing.T) {
	s, _ := newTestSignal(t,
		WithCountThreshold(10),
		WithDurationThreshold(time.Hour),
		WithBufferMode(BufferNone),
	)

	assert.True(t, s.Report(true))
	assert.False(t, s.Report(false))
	assert.True(t, s.Report(true))
	assertNoPending(t, s)
}

func TestReportBufferTrueToFalse(t *testing.T) {
	s, _ := newTestSignal(t, WithCountThreshold(2), WithBufferMode(BufferTrueToFalse))

	assert.True(t, s.Report(true), "false->true is not buffered")

	assert.True(t, s.Report(false), "true->false is buffered")
	assert.Equal(t, 1, s.PendingCount())
	assert.False(t, s.Report(false))
}

func TestReportBufferFalseToTrue(t *testing.T) {
	s, _ := newTestSignal(t,
		WithCountThreshold(2),
		WithBufferMode(BufferFalseToTrue),
		WithInitialValue(true),
	)

	assert.False(t, s.Report(false), "true->false is not buffered")

	assert.False(t, s.Report(true), "false->true is buffered")
	assert.True(t, s.Report(true))
}

func TestReportUnbufferedOverridesPendingChallenge(t *testing.T) {
	// Switching to none mid-challenge makes the next report commit at once.
	s, _ := newTestSignal(t,
		WithCountThreshold(5),
		WithBufferMode(BufferTrueToFalse),
		WithInitialValue(true),
	)
	s.Report(false)
	s.Report(false)
	assert.Equal(t, 2, s.PendingCount())

	require.NoError(t, s.SetBufferMode(BufferNone))
	assert.False(t, s.Report(false))
	assertNoPending(t, s)
}

func TestReportDirectionalCountOverride(t *testing.T) {
	s, _ := newTestSignal(t,
		WithCountThreshold(5),
		WithDirectionalCountThreshold(FalseToTrue, 2),
	)

	assert.False(t, s.Report(true))
	assert.True(t, s.Report(true), "false->true uses its override")

	for i := 0; i < 4; i++ {
		assert.True(t, s.Report(false), "true->false uses the generic threshold")
	}
	assert.False(t, s.Report(false))
}

func TestReportDirectionalDurationOverride(t *testing.T) {
	s, clock := newTestSignal(t,
		WithDurationThreshold(time.Second),
		WithDirectionalDurationThreshold(TrueToFalse, 5*time.Second),
	)

	s.Report(true)
	clock.Advance(time.Second)
	assert.True(t, s.Report(true))

	s.Report(false)
	clock.Advance(time.Second)
	assert.True(t, s.Report(false))
	clock.Advance(4 * time.Second)
	assert.False(t, s.Report(false))
}

func TestThresholdAccessors(t *testing.T) {
	s, _ := newTestSignal(t,
		WithCountThreshold(4),
		WithDurationThreshold(time.Second),
		WithDirectionalCountThreshold(TrueToFalse, 7),
		WithDirectionalDurationThreshold(FalseToTrue, 2*time.Second),
	)

	assert.Equal(t, 4, s.CountThreshold())
	assert.Equal(t, time.Second, s.DurationThreshold())
	assert.Equal(t, 7, s.CountThresholdFor(TrueToFalse))
	assert.Equal(t, 4, s.CountThresholdFor(FalseToTrue))
	assert.Equal(t, time.Second, s.DurationThresholdFor(TrueToFalse))
	assert.Equal(t, 2*time.Second, s.DurationThresholdFor(FalseToTrue))
}

func TestReportOppositeChallengeRestarts(t *testing.T) {
	// Only reachable when the value is changed under a pending challenge.
	s, _ := newTestSignal(t, WithCountThreshold(3))
	s.Report(true)
	s.Report(true)
	s.ResetTo(true)
	assertNoPending(t, s)

	assert.True(t, s.Report(false))
	assert.Equal(t, 1, s.PendingCount())
	v, ok := s.PendingValue()
	assert.True(t, ok)
	assert.False(t, v)
}

func TestReset(t *testing.T) {
	s, clock := newTestSignal(t, WithCountThreshold(3))
	s.Report(true)
	clock.Advance(time.Second)
	s.Report(true)

	s.Reset()
	assert.False(t, s.Value())
	assertNoPending(t, s)
}

func TestResetTo(t *testing.T) {
	s, _ := newTestSignal(t, WithCountThreshold(3))
	s.Report(true)

	s.ResetTo(true)
	assert.True(t, s.Value())
	assertNoPending(t, s)

	s.ResetTo(false)
	assert.False(t, s.Value())
}

func TestSetBufferModeRejectsUnknown(t *testing.T) {
	s, _ := newTestSignal(t)
	err := s.SetBufferMode(BufferMode(-1))
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
	assert.Equal(t, BufferBoth, s.BufferMode())
}

func TestSignalSnapshot(t *testing.T) {
	s, clock := newTestSignal(t, WithCountThreshold(3))
	s.Report(true)
	clock.Advance(250 * time.Millisecond)
	s.Report(true)

	snap := s.Snapshot()
	assert.Equal(t, SignalState{
		Name:         "test",
		Value:        false,
		Pending:      true,
		PendingValue: true,
		PendingCount: 2,
		PendingFor:   250 * time.Millisecond,
		BufferMode:   BufferBoth,
	}, snap)
}

func TestScenarioCountThree(t *testing.T) {
	s, _ := newTestSignal(t, WithCountThreshold(3), WithBufferMode(BufferBoth))

	var got []bool
	for i := 0; i < 3; i++ {
		got = append(got, s.Report(true))
	}
	assert.Equal(t, []bool{false, false, true}, got)
}

func TestScenarioDurationTenthSecond(t *testing.T) {
	s, clock := newTestSignal(t, WithCountThreshold(1), WithDurationThreshold(100*time.Millisecond))

	assert.False(t, s.Report(true))
	clock.Set(epoch.Add(150 * time.Millisecond))
	assert.True(t, s.Report(true))
}

func TestSignalString(t *testing.T) {
	s, _ := newTestSignal(t, WithCountThreshold(2))
	assert.Equal(t,
		`Signal(name="test", value=false, count_threshold=2, duration_threshold=0s, buffer_mode=both)`,
		s.String())
}
