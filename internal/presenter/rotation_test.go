package presenter

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"event-feedback-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotationCycles(t *testing.T) {
	r := NewRotation()
	assert.Equal(t, domain.ViewLive, r.Current())

	assert.Equal(t, domain.ViewAnalysis, r.Next())
	assert.Equal(t, domain.ViewInsights, r.Next())
	assert.Equal(t, domain.ViewLive, r.Next())
}

func TestRotationPrevWraps(t *testing.T) {
	r := NewRotation()
	assert.Equal(t, domain.ViewInsights, r.Prev())
	assert.Equal(t, domain.ViewAnalysis, r.Prev())
}

func TestRotationSelectAndNavigate(t *testing.T) {
	r := NewRotation()
	require.NoError(t, r.Select(domain.ViewInsights))
	assert.Equal(t, domain.ViewInsights, r.Current())

	err := r.Select("summary")
	assert.ErrorIs(t, err, domain.ErrInvalidView)
	assert.Equal(t, domain.ViewInsights, r.Current())

	view, err := r.Navigate("next")
	require.NoError(t, err)
	assert.Equal(t, domain.ViewLive, view)

	view, err = r.Navigate("analysis")
	require.NoError(t, err)
	assert.Equal(t, domain.ViewAnalysis, view)
}

func TestRotationNotifiesOnChange(t *testing.T) {
	r := NewRotation()
	var seen []domain.PresenterView
	r.OnChange(func(v domain.PresenterView) { seen = append(seen, v) })

	r.Next()
	require.NoError(t, r.Select(domain.ViewLive))
	assert.Equal(t, []domain.PresenterView{domain.ViewAnalysis, domain.ViewLive}, seen)
}

func TestAutoRotatorAdvances(t *testing.T) {
	r := NewRotation()
	var changes atomic.Int32
	r.OnChange(func(domain.PresenterView) { changes.Add(1) })

	auto := NewAutoRotator(r, time.Second)
	auto.Start()
	auto.Start()
	assert.True(t, auto.Running())
	defer auto.Stop()

	assert.Eventually(t, func() bool { return changes.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
	assert.NotEqual(t, domain.ViewLive, r.Current())

	auto.Stop()
	assert.False(t, auto.Running())
}

func TestAutoRotatorKeepsScheduleAcrossManualMoves(t *testing.T) {
	r := NewRotation()
	var (
		mu   sync.Mutex
		seen []domain.PresenterView
	)
	r.OnChange(func(v domain.PresenterView) {
		mu.Lock()
		seen = append(seen, v)
		mu.Unlock()
	})
	changes := func() []domain.PresenterView {
		mu.Lock()
		defer mu.Unlock()
		return append([]domain.PresenterView(nil), seen...)
	}
	waitFor := func(n int) {
		t.Helper()
		require.Eventually(t, func() bool { return len(changes()) >= n }, 3*time.Second, 10*time.Millisecond)
	}

	auto := NewAutoRotator(r, time.Second)
	auto.Start()
	defer auto.Stop()

	waitFor(1) // tick: live -> analysis
	require.NoError(t, r.Select(domain.ViewInsights))
	waitFor(3) // tick from insights wraps to live
	r.Prev()   // live -> insights
	waitFor(5) // tick again from insights

	assert.True(t, auto.Running())
	assert.Equal(t, []domain.PresenterView{
		domain.ViewAnalysis,
		domain.ViewInsights,
		domain.ViewLive,
		domain.ViewInsights,
		domain.ViewLive,
	}, changes()[:5])
}

func TestAutoRotatorDisabledWithoutInterval(t *testing.T) {
	auto := NewAutoRotator(NewRotation(), 0)
	auto.Start()
	assert.False(t, auto.Running())
	auto.Stop()
}
