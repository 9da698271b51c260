package testutil

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vk/stagegrid/internal/action"
	"github.com/vk/stagegrid/internal/registry"
)

// MockSleeperModule is a shared, self-contained module for concurrency tests.
// Its `sleeper` action records the execution time of each stage using it.
type MockSleeperModule struct {
	mu             sync.Mutex
	executionTimes map[string]*ExecutionRecord
	sleepDuration  time.Duration
	completionChan chan<- string

	running    atomic.Int32
	maxRunning atomic.Int32
}

// NewMockSleeperModule creates a new sleeper module for testing.
func NewMockSleeperModule(completionChan chan<- string, sleep time.Duration) *MockSleeperModule {
	return &MockSleeperModule{
		executionTimes: make(map[string]*ExecutionRecord),
		sleepDuration:  sleep,
		completionChan: completionChan,
	}
}

type sleeperInput struct {
	ID   string `stagegrid:"id"`
	Fail bool   `stagegrid:"fail,optional"`
	// Sleep overrides the module's sleep duration.
	Sleep string `stagegrid:"sleep,optional"`
}

// Register registers the "sleeper" action.
func (m *MockSleeperModule) Register(r *registry.Registry) {
	r.RegisterAction("sleeper", registry.NewAction("Sleeps and records when it ran.", m.run))
}

func (m *MockSleeperModule) run(ctx context.Context, _ action.Env, input *sleeperInput) action.Result {
	sleep := m.sleepDuration
	if input.Sleep != "" {
		d, err := time.ParseDuration(input.Sleep)
		if err != nil {
			return action.Fail(err)
		}
		sleep = d
	}

	n := m.running.Add(1)
	for {
		peak := m.maxRunning.Load()
		if n <= peak || m.maxRunning.CompareAndSwap(peak, n) {
			break
		}
	}
	startTime := time.Now()
	var res action.Result
	select {
	case <-time.After(sleep):
		res = action.Ok()
	case <-ctx.Done():
		res = action.Fail(ctx.Err())
	}
	endTime := time.Now()
	m.running.Add(-1)

	m.mu.Lock()
	m.executionTimes[input.ID] = &ExecutionRecord{Start: startTime, End: endTime}
	m.mu.Unlock()

	if m.completionChan != nil {
		m.completionChan <- input.ID
	}
	if input.Fail && !res.Failed() {
		return action.Failf("sleeper %s failed on purpose", input.ID)
	}
	return res
}

// Records returns a copy of the execution records keyed by id.
func (m *MockSleeperModule) Records() map[string]*ExecutionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]*ExecutionRecord, len(m.executionTimes))
	for k, v := range m.executionTimes {
		out[k] = v
	}
	return out
}

// MaxConcurrent returns the highest number of sleepers seen running at once.
func (m *MockSleeperModule) MaxConcurrent() int {
	return int(m.maxRunning.Load())
}
