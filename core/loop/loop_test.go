package loop

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoop_RunsTasksInOrder(t *testing.T) {
	l := New()
	go l.Run()
	defer l.Stop()

	var got []int
	for i := range 5 {
		l.Post(func() { got = append(got, i) })
	}
	require.NoError(t, l.Do(func() {}))

	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestLoop_AfterFuncPostsOntoLoop(t *testing.T) {
	l := New()
	go l.Run()
	defer l.Stop()

	fired := make(chan struct{})
	l.AfterFunc(10*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
}

func TestLoop_TimerStop(t *testing.T) {
	l := New()
	go l.Run()
	defer l.Stop()

	var fired atomic.Bool
	timer := l.AfterFunc(20*time.Millisecond, func() { fired.Store(true) })
	assert.True(t, timer.Stop())

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, l.Do(func() {}))
	assert.False(t, fired.Load())
}

func TestLoop_OffloadContinuation(t *testing.T) {
	l := New()
	go l.Run()
	defer l.Stop()

	result := make(chan string, 1)
	l.Offload(func() {
		value := "loaded"
		l.Post(func() { result <- value })
	})

	select {
	case v := <-result:
		assert.Equal(t, "loaded", v)
	case <-time.After(time.Second):
		t.Fatal("continuation did not run")
	}
}

func TestLoop_PanicDoesNotKillLoop(t *testing.T) {
	l := New()
	go l.Run()
	defer l.Stop()

	l.Post(func() { panic("boom") })

	ran := false
	require.NoError(t, l.Do(func() { ran = true }))
	assert.True(t, ran)
}

func TestLoop_DoAfterStop(t *testing.T) {
	l := New()
	go l.Run()
	l.Stop()

	assert.ErrorIs(t, l.Do(func() {}), ErrStopped)
	l.Stop()
}

func TestManual_AdvanceFiresTimersInOrder(t *testing.T) {
	m := NewManual()

	var got []string
	m.AfterFunc(2*time.Second, func() { got = append(got, "b") })
	m.AfterFunc(time.Second, func() {
		got = append(got, "a")
		m.AfterFunc(time.Second, func() { got = append(got, "a2") })
	})
	stopped := m.AfterFunc(1500*time.Millisecond, func() { got = append(got, "never") })
	assert.True(t, stopped.Stop())
	assert.False(t, stopped.Stop())

	m.Advance(time.Second)
	assert.Equal(t, []string{"a"}, got)

	m.Advance(time.Second)
	assert.Equal(t, []string{"a", "b", "a2"}, got)
	assert.Equal(t, 2*time.Second, m.Now())
	assert.Zero(t, m.ActiveTimers())
}

func TestManual_PostQueuesUntilRunPending(t *testing.T) {
	m := NewManual()

	ran := 0
	m.Post(func() {
		ran++
		m.Post(func() { ran++ })
	})
	assert.Equal(t, 1, m.Pending())
	assert.Zero(t, ran)

	m.RunPending()
	assert.Equal(t, 2, ran)
	assert.Zero(t, m.Pending())
}
