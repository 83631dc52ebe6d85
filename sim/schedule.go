package sim

import (
	"container/heap"
	"fmt"
	"math"
)

type event struct {
	at       float64
	seq      uint64
	start    float64
	interval float64
	// fired counts past occurrences; the next one is due at
	// start + fired*interval.
	fired  uint64
	target Steppable
}

type eventQueue []*event

func (q eventQueue) Len() int { return len(q) }

func (q eventQueue) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	return q[i].seq < q[j].seq
}

func (q eventQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *eventQueue) Push(x any) { *q = append(*q, x.(*event)) }

func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return e
}

// Schedule is a discrete-event clock. Repeating events fire in time order;
// events due at the same time fire in the order they were scheduled.
type Schedule struct {
	queue eventQueue
	now   float64
	seq   uint64
}

func NewSchedule() *Schedule {
	return &Schedule{}
}

// Repeat fires target at start and every interval after it.
func (s *Schedule) Repeat(start, interval float64, target Steppable) error {
	if !(interval > 0) || math.IsInf(interval, 0) {
		return fmt.Errorf("repeat interval %v: must be positive", interval)
	}
	if start < s.now || math.IsNaN(start) {
		return fmt.Errorf("repeat start %v before now %v: %w", start, s.now, ErrClockRegression)
	}
	s.seq++
	heap.Push(&s.queue, &event{at: start, seq: s.seq, start: start, interval: interval, target: target})
	return nil
}

// Step fires the earliest event. It returns false when nothing is scheduled.
func (s *Schedule) Step() (bool, error) {
	if len(s.queue) == 0 {
		return false, nil
	}
	e := heap.Pop(&s.queue).(*event)
	s.now = e.at
	err := e.target.Step(e.at)

	s.seq++
	e.fired++
	e.at = e.start + float64(e.fired)*e.interval
	e.seq = s.seq
	heap.Push(&s.queue, e)
	return true, err
}

// RunUntil fires every event due at or before t, then moves the clock to t.
// It stops at the first error.
func (s *Schedule) RunUntil(t float64) error {
	if t < s.now {
		return fmt.Errorf("run until %v before now %v: %w", t, s.now, ErrClockRegression)
	}
	for len(s.queue) > 0 && s.queue[0].at <= t {
		if _, err := s.Step(); err != nil {
			return err
		}
	}
	s.now = t
	return nil
}

// Time returns the current clock value.
func (s *Schedule) Time() float64 {
	return s.now
}

// Next returns the time of the next event.
func (s *Schedule) Next() (float64, bool) {
	if len(s.queue) == 0 {
		return 0, false
	}
	return s.queue[0].at, true
}
