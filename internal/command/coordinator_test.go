package command

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/blink-sync-core/internal/cloud"
)

// fakeAPI completes a command after a configured number of polls.
// A negative count never completes.
type fakeAPI struct {
	mu         sync.Mutex
	completeAt map[int64]int
	polls      map[int64]int
	stops      map[int64]int
	onPoll     func(commandID int64, n int)
	commandErr error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		completeAt: make(map[int64]int),
		polls:      make(map[int64]int),
		stops:      make(map[int64]int),
	}
}

func (f *fakeAPI) Command(_ context.Context, networkID, commandID int64) (*cloud.Command, error) {
	f.mu.Lock()
	if f.commandErr != nil {
		f.mu.Unlock()
		return nil, f.commandErr
	}
	f.polls[commandID]++
	n := f.polls[commandID]
	at, ok := f.completeAt[commandID]
	hook := f.onPoll
	f.mu.Unlock()

	if hook != nil {
		hook(commandID, n)
	}
	return &cloud.Command{
		ID:        commandID,
		NetworkID: networkID,
		Complete:  ok && at >= 0 && n >= at,
	}, nil
}

func (f *fakeAPI) StopCommand(_ context.Context, _, commandID int64) error {
	f.mu.Lock()
	f.stops[commandID]++
	f.mu.Unlock()
	return nil
}

func (f *fakeAPI) stopCount(id int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops[id]
}

func (f *fakeAPI) pollCount(id int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls[id]
}

type fakeMarkers struct {
	mu     sync.Mutex
	active map[int64]int64
}

func newFakeMarkers() *fakeMarkers {
	return &fakeMarkers{active: make(map[int64]int64)}
}

func (m *fakeMarkers) SetActiveCommand(networkID, commandID int64) {
	m.mu.Lock()
	m.active[networkID] = commandID
	m.mu.Unlock()
}

func (m *fakeMarkers) ActiveCommand(networkID int64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active[networkID]
}

func (m *fakeMarkers) ClearActiveCommand(networkID, commandID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active[networkID] != commandID {
		return false
	}
	m.active[networkID] = 0
	return true
}

func testConfig() Config {
	return Config{
		PollInterval: 2 * time.Millisecond,
		Timeout:      time.Second,
		Retry: cloud.RetryPolicy{
			MaxAttempts: 3,
			BusyDelay:   time.Millisecond,
			MaxDelay:    2 * time.Millisecond,
		},
	}
}

func TestWaitForCommand_CompletesWithoutStop(t *testing.T) {
	api := newFakeAPI()
	api.completeAt[11] = 3
	markers := newFakeMarkers()
	coord := New(api, markers, testConfig())

	cmd, err := coord.WaitForCommand(context.Background(), 1, 11, 0)
	if err != nil {
		t.Fatalf("WaitForCommand() error = %v", err)
	}
	if !cmd.Complete || cmd.Stopped || cmd.Cancelled {
		t.Errorf("command = %+v, want complete", cmd)
	}
	if got := api.pollCount(11); got != 3 {
		t.Errorf("polls = %d, want 3", got)
	}
	if got := api.stopCount(11); got != 0 {
		t.Errorf("stop calls = %d, want 0", got)
	}
	if got := markers.ActiveCommand(1); got != 0 {
		t.Errorf("marker after wait = %d, want 0", got)
	}
}

// steppingClock advances by step on every reading.
type steppingClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

func TestWaitForCommand_TimeoutStopsOnce(t *testing.T) {
	api := newFakeAPI()
	api.completeAt[11] = -1
	clock := &steppingClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), step: 10 * time.Second}
	cfg := testConfig()
	cfg.Now = clock.Now
	coord := New(api, newFakeMarkers(), cfg)

	// Deadline is 25s after the first reading; each poll advances 10s.
	cmd, err := coord.WaitForCommand(context.Background(), 1, 11, 25*time.Second)
	if err != nil {
		t.Fatalf("WaitForCommand() error = %v", err)
	}
	if cmd.Complete || !cmd.Stopped {
		t.Errorf("command = %+v, want stopped and incomplete", cmd)
	}
	if got := api.pollCount(11); got != 3 {
		t.Errorf("polls = %d, want 3", got)
	}
	if got := api.stopCount(11); got != 1 {
		t.Errorf("stop calls = %d, want 1", got)
	}
}

func TestWaitForCommand_CancelledByMarker(t *testing.T) {
	api := newFakeAPI()
	api.completeAt[11] = -1
	markers := newFakeMarkers()
	coord := New(api, markers, testConfig())

	api.onPoll = func(_ int64, n int) {
		if n == 2 {
			coord.Cancel(1)
		}
	}

	cmd, err := coord.WaitForCommand(context.Background(), 1, 11, 0)
	if err != nil {
		t.Fatalf("WaitForCommand() error = %v", err)
	}
	if !cmd.Cancelled {
		t.Errorf("command = %+v, want cancelled", cmd)
	}
	if got := api.stopCount(11); got != 0 {
		t.Errorf("stop calls = %d, want 0", got)
	}
}

func TestWaitForCommand_ReleaseKeepsNewerMarker(t *testing.T) {
	api := newFakeAPI()
	api.completeAt[11] = 2
	markers := newFakeMarkers()
	coord := New(api, markers, testConfig())

	api.onPoll = func(_ int64, n int) {
		if n == 1 {
			markers.SetActiveCommand(1, 99)
		}
	}

	cmd, err := coord.WaitForCommand(context.Background(), 1, 11, 0)
	if err != nil {
		t.Fatalf("WaitForCommand() error = %v", err)
	}
	if !cmd.Cancelled {
		t.Errorf("superseded wait not cancelled: %+v", cmd)
	}
	if got := markers.ActiveCommand(1); got != 99 {
		t.Errorf("marker = %d, want newer wait 99 kept", got)
	}
}

func TestWaitForCommand_ContextCancelled(t *testing.T) {
	api := newFakeAPI()
	api.completeAt[11] = -1
	coord := New(api, newFakeMarkers(), testConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := coord.WaitForCommand(ctx, 1, 11, time.Minute); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("WaitForCommand() error = %v, want DeadlineExceeded", err)
	}
}

func TestWaitForAll_SubCommands(t *testing.T) {
	api := newFakeAPI()
	api.completeAt[21] = 1
	api.completeAt[22] = 4
	api.completeAt[23] = 2
	markers := newFakeMarkers()
	coord := New(api, markers, testConfig())

	parent := &cloud.Command{
		ID:        20,
		NetworkID: 1,
		Commands:  []cloud.Command{{ID: 21}, {ID: 22}, {ID: 23}},
	}

	results, err := coord.WaitForAll(context.Background(), parent, 0)
	if err != nil {
		t.Fatalf("WaitForAll() error = %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	for _, r := range results {
		if !r.Complete {
			t.Errorf("sub-command %d incomplete", r.ID)
		}
		if r.NetworkID != 1 {
			t.Errorf("sub-command %d network = %d, want 1", r.ID, r.NetworkID)
		}
	}
	if got := markers.ActiveCommand(1); got != 0 {
		t.Errorf("marker after group = %d, want 0", got)
	}
}

func TestWaitForAll_EnvelopeWithoutParentNetwork(t *testing.T) {
	api := newFakeAPI()
	api.completeAt[21] = 2
	api.completeAt[22] = 3
	markers := newFakeMarkers()
	coord := New(api, markers, testConfig())

	var (
		heldMu sync.Mutex
		held   []int64
	)
	api.onPoll = func(int64, int) {
		heldMu.Lock()
		held = append(held, markers.ActiveCommand(1))
		heldMu.Unlock()
	}

	envelope := &cloud.Command{
		Commands: []cloud.Command{{ID: 21, NetworkID: 1}, {ID: 22, NetworkID: 1}},
	}
	results, err := coord.WaitForAll(context.Background(), envelope, 0)
	if err != nil {
		t.Fatalf("WaitForAll() error = %v", err)
	}
	for _, r := range results {
		if !r.Complete || r.Cancelled {
			t.Errorf("sub-command %d = %+v, want complete", r.ID, r)
		}
	}
	if api.pollCount(21) != 2 || api.pollCount(22) != 3 {
		t.Errorf("polls = %v, want 21:2 22:3", api.polls)
	}
	for _, m := range held {
		if m != 21 {
			t.Errorf("marker during wait = %d, want 21", m)
		}
	}
	if got := markers.ActiveCommand(1); got != 0 {
		t.Errorf("marker after group = %d, want 0", got)
	}
}

func TestWaitForAll_MarkerPerNetwork(t *testing.T) {
	api := newFakeAPI()
	api.completeAt[31] = -1
	api.completeAt[32] = 2
	markers := newFakeMarkers()
	coord := New(api, markers, testConfig())

	// Cancelling network 2 abandons only its sub-command.
	api.onPoll = func(id int64, n int) {
		if id == 31 && n == 1 {
			coord.Cancel(2)
		}
	}

	parent := &cloud.Command{
		ID:        30,
		NetworkID: 1,
		Commands:  []cloud.Command{{ID: 31, NetworkID: 2}, {ID: 32}},
	}
	results, err := coord.WaitForAll(context.Background(), parent, 0)
	if err != nil {
		t.Fatalf("WaitForAll() error = %v", err)
	}
	if !results[0].Cancelled || results[0].NetworkID != 2 {
		t.Errorf("sub 31 = %+v, want cancelled on network 2", results[0])
	}
	if !results[1].Complete || results[1].NetworkID != 1 {
		t.Errorf("sub 32 = %+v, want complete on network 1", results[1])
	}
	if markers.ActiveCommand(1) != 0 || markers.ActiveCommand(2) != 0 {
		t.Errorf("markers = %v, want all released", markers.active)
	}
}

func TestWaitForAll_SynchronousAction(t *testing.T) {
	api := newFakeAPI()
	coord := New(api, newFakeMarkers(), testConfig())

	results, err := coord.WaitForAll(context.Background(), &cloud.Command{}, 0)
	if err != nil {
		t.Fatalf("WaitForAll() error = %v", err)
	}
	if len(results) != 1 {
		t.Errorf("results = %d, want 1", len(results))
	}
	if api.pollCount(0) != 0 {
		t.Error("synchronous action was polled")
	}
}

func TestWaitForAll_PropagatesPollError(t *testing.T) {
	api := newFakeAPI()
	api.commandErr = errors.New("boom")
	coord := New(api, newFakeMarkers(), testConfig())

	_, err := coord.WaitForAll(context.Background(), &cloud.Command{ID: 5, NetworkID: 1}, 0)
	if err == nil {
		t.Fatal("WaitForAll() error = nil, want poll error")
	}
}

func TestRunCommand_RetriesWhileBusy(t *testing.T) {
	api := newFakeAPI()
	api.completeAt[30] = 1
	coord := New(api, newFakeMarkers(), testConfig())

	calls := 0
	cmd, err := coord.RunCommand(context.Background(), func(context.Context) (*cloud.Command, error) {
		calls++
		if calls == 1 {
			return &cloud.Command{Message: "System is busy, please wait"}, nil
		}
		return &cloud.Command{ID: 30, NetworkID: 1}, nil
	})
	if err != nil {
		t.Fatalf("RunCommand() error = %v", err)
	}
	if calls != 2 {
		t.Errorf("action calls = %d, want 2", calls)
	}
	if !cmd.Complete {
		t.Errorf("command = %+v, want complete", cmd)
	}
}

func TestRunCommand_BusyHTTPError(t *testing.T) {
	api := newFakeAPI()
	coord := New(api, newFakeMarkers(), testConfig())

	calls := 0
	_, err := coord.RunCommand(context.Background(), func(context.Context) (*cloud.Command, error) {
		calls++
		return nil, &cloud.HTTPError{Status: http.StatusConflict, Body: []byte(`{"message":"Network is busy"}`)}
	})
	if !errors.Is(err, ErrBusyExhausted) || !errors.Is(err, cloud.ErrRetriesExhausted) {
		t.Fatalf("RunCommand() error = %v, want ErrBusyExhausted", err)
	}
	if calls != 3 {
		t.Errorf("action calls = %d, want 3", calls)
	}
}

func TestRunCommand_NonBusyErrorReturnsImmediately(t *testing.T) {
	coord := New(newFakeAPI(), newFakeMarkers(), testConfig())
	want := &cloud.HTTPError{Status: http.StatusNotFound, Body: []byte(`{"message":"no such camera"}`)}

	calls := 0
	_, err := coord.RunCommand(context.Background(), func(context.Context) (*cloud.Command, error) {
		calls++
		return nil, want
	})
	if !errors.Is(err, want) {
		t.Errorf("RunCommand() error = %v, want %v", err, want)
	}
	if calls != 1 {
		t.Errorf("action calls = %d, want 1", calls)
	}
}

func TestRunCommand_SummarizesSubCommands(t *testing.T) {
	api := newFakeAPI()
	api.completeAt[41] = 1
	api.completeAt[42] = -1
	cfg := testConfig()
	cfg.Timeout = 15 * time.Millisecond
	coord := New(api, newFakeMarkers(), cfg)

	cmd, err := coord.RunCommand(context.Background(), func(context.Context) (*cloud.Command, error) {
		return &cloud.Command{ID: 40, NetworkID: 1, Commands: []cloud.Command{{ID: 41}, {ID: 42}}}, nil
	})
	if err != nil {
		t.Fatalf("RunCommand() error = %v", err)
	}
	if cmd.Complete || !cmd.Stopped {
		t.Errorf("summary = %+v, want incomplete and stopped", cmd)
	}
	if api.stopCount(42) != 1 || api.stopCount(41) != 0 {
		t.Errorf("stops = %v", api.stops)
	}
}
