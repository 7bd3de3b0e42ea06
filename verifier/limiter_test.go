package verifier

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiterNeverExceedsPerDomainCap(t *testing.T) {
	l := NewDomainLimiter(3, 100)

	var cur, max int32
	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Acquire("dest.test")
			defer l.Release("dest.test")
			n := atomic.AddInt32(&cur, 1)
			for {
				m := atomic.LoadInt32(&max)
				if n <= m || atomic.CompareAndSwapInt32(&max, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&cur, -1)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, max, int32(3))
	d, g := l.InFlight("dest.test")
	assert.Zero(t, d)
	assert.Zero(t, g)
}

func TestLimiterNeverExceedsGlobalCap(t *testing.T) {
	l := NewDomainLimiter(10, 4)
	domains := []string{"a.test", "b.test", "c.test", "d.test", "e.test"}

	var cur, max int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		domain := domains[i%len(domains)]
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Acquire(domain)
			defer l.Release(domain)
			n := atomic.AddInt32(&cur, 1)
			for {
				m := atomic.LoadInt32(&max)
				if n <= m || atomic.CompareAndSwapInt32(&max, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&cur, -1)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, max, int32(4))
	_, g := l.InFlight("a.test")
	assert.Zero(t, g)
}

func TestLimiterReleaseFloorsAtZero(t *testing.T) {
	l := NewDomainLimiter(5, 200)
	l.Release("dest.test")
	l.Release("dest.test")
	d, g := l.InFlight("dest.test")
	assert.Zero(t, d)
	assert.Zero(t, g)

	// A floored limiter must still admit work.
	l.Acquire("dest.test")
	d, g = l.InFlight("dest.test")
	assert.Equal(t, 1, d)
	assert.Equal(t, 1, g)
	l.Release("dest.test")
}

func TestLimiterBlocksUntilRelease(t *testing.T) {
	l := NewDomainLimiter(1, 200)
	l.Acquire("dest.test")

	acquired := make(chan struct{})
	go func() {
		l.Acquire("dest.test")
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire should have blocked")
	case <-time.After(50 * time.Millisecond):
	}

	l.Release("dest.test")
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter was not admitted after release")
	}
	l.Release("dest.test")
}
