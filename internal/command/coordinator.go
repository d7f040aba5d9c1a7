package command

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/blink-sync-core/internal/cloud"
)

const (
	defaultPollInterval = 400 * time.Millisecond
	defaultTimeout      = 2 * time.Minute
)

// ErrBusyExhausted is returned when the service stays busy past the retry ceiling.
var ErrBusyExhausted = fmt.Errorf("command: service busy: %w", cloud.ErrRetriesExhausted)

var busyPattern = regexp.MustCompile(`(?i)\bbusy\b`)

// API is the subset of the cloud client the coordinator needs.
type API interface {
	Command(ctx context.Context, networkID, commandID int64) (*cloud.Command, error)
	StopCommand(ctx context.Context, networkID, commandID int64) error
}

// Markers tracks the active command per network. Clearing a marker (setting
// it to 0) cancels whatever wait holds it at the next poll tick.
type Markers interface {
	SetActiveCommand(networkID, commandID int64)
	ActiveCommand(networkID int64) int64
	// ClearActiveCommand clears the marker only if it still holds commandID.
	ClearActiveCommand(networkID, commandID int64) bool
}

// Logger is the logging interface used by the coordinator.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Action issues one mutating call and returns its command descriptor.
type Action func(ctx context.Context) (*cloud.Command, error)

// Config holds polling and retry timing.
type Config struct {
	PollInterval time.Duration
	Timeout      time.Duration
	Retry        cloud.RetryPolicy

	// Now is the clock for command deadlines. Defaults to time.Now.
	Now func() time.Time
}

// Coordinator polls commands to completion.
//
// Thread Safety:
//   - Waits on different networks, or on sub-commands of one action, run
//     concurrently. Each wait blocks only its own goroutine.
type Coordinator struct {
	api     API
	markers Markers
	cfg     Config
	logger  Logger
}

// New creates a coordinator. Zero durations fall back to 400ms polling and
// a two minute timeout.
func New(api API, markers Markers, cfg Config) *Coordinator {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = cloud.DefaultRetryPolicy()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Coordinator{api: api, markers: markers, cfg: cfg, logger: noopLogger{}}
}

// SetLogger sets the logger.
func (c *Coordinator) SetLogger(logger Logger) {
	c.logger = logger
}

// WaitForCommand polls until the command completes, the network's marker is
// cleared, or timeout elapses. A timed-out command is stopped remotely and
// returned with Stopped set; that is not an error. timeout <= 0 uses the
// configured default.
func (c *Coordinator) WaitForCommand(ctx context.Context, networkID, commandID int64, timeout time.Duration) (*cloud.Command, error) {
	c.markers.SetActiveCommand(networkID, commandID)
	defer c.release(networkID, commandID)

	return c.poll(ctx, networkID, commandID, commandID, timeout)
}

// WaitForAll waits for every command in cmd. An action that spawned
// sub-commands reports them in cmd.Commands; otherwise cmd itself is waited
// on. The marker is held by the parent id on every network the group
// touches, so clearing a network's marker cancels the sub-waits on it.
// Sub-commands without a network id inherit the parent's, or the first
// sub-command's when the envelope carries none.
func (c *Coordinator) WaitForAll(ctx context.Context, cmd *cloud.Command, timeout time.Duration) ([]*cloud.Command, error) {
	if cmd == nil {
		return nil, nil
	}

	targets := cmd.Commands
	if len(targets) == 0 {
		targets = []cloud.Command{*cmd}
	}
	if cmd.ID == 0 && len(cmd.Commands) == 0 {
		// Synchronous action, nothing to poll.
		return []*cloud.Command{cmd}, nil
	}

	marker := cmd.ID
	if marker == 0 {
		marker = targets[0].ID
	}
	parentNetwork := cmd.NetworkID
	if parentNetwork == 0 {
		parentNetwork = targets[0].NetworkID
	}
	networkOf := func(sub cloud.Command) int64 {
		if sub.NetworkID != 0 {
			return sub.NetworkID
		}
		return parentNetwork
	}

	held := make(map[int64]bool, 1)
	for _, sub := range targets {
		networkID := networkOf(sub)
		if held[networkID] {
			continue
		}
		held[networkID] = true
		c.markers.SetActiveCommand(networkID, marker)
		defer c.release(networkID, marker)
	}

	results := make([]*cloud.Command, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	for i, sub := range targets {
		i, sub := i, sub
		networkID := networkOf(sub)
		g.Go(func() error {
			res, err := c.poll(gctx, networkID, sub.ID, marker, timeout)
			if err != nil {
				return fmt.Errorf("command %d: %w", sub.ID, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// RunCommand invokes action, retrying it with capped backoff while the
// service reports it is busy, then waits for the resulting commands.
func (c *Coordinator) RunCommand(ctx context.Context, action Action) (*cloud.Command, error) {
	for attempt := 0; ; attempt++ {
		cmd, err := action(ctx)
		if !isBusy(cmd, err) {
			if err != nil {
				return nil, err
			}
			results, err := c.WaitForAll(ctx, cmd, 0)
			if err != nil {
				return cmd, err
			}
			return summarize(cmd, results), nil
		}

		if attempt+1 >= c.cfg.Retry.MaxAttempts {
			return nil, ErrBusyExhausted
		}
		delay := c.cfg.Retry.Delay(c.cfg.Retry.BusyDelay, attempt)
		c.logger.Debug("cloud busy, retrying command", "attempt", attempt+1, "delay", delay)
		if err := cloud.Sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

func (c *Coordinator) poll(ctx context.Context, networkID, commandID, marker int64, timeout time.Duration) (*cloud.Command, error) {
	if timeout <= 0 {
		timeout = c.cfg.Timeout
	}
	deadline := c.cfg.Now().Add(timeout)

	for {
		if c.markers.ActiveCommand(networkID) != marker {
			c.logger.Debug("command wait cancelled", "network_id", networkID, "command_id", commandID)
			return &cloud.Command{ID: commandID, NetworkID: networkID, Cancelled: true}, nil
		}

		status, err := c.api.Command(ctx, networkID, commandID)
		if err != nil {
			return nil, err
		}
		if status.Complete {
			return status, nil
		}

		if !c.cfg.Now().Before(deadline) {
			c.logger.Warn("command timed out, stopping", "network_id", networkID, "command_id", commandID)
			if err := c.api.StopCommand(ctx, networkID, commandID); err != nil {
				return status, fmt.Errorf("stopping timed-out command: %w", err)
			}
			status.Stopped = true
			return status, nil
		}

		if err := cloud.Sleep(ctx, c.cfg.PollInterval); err != nil {
			return nil, err
		}
	}
}

// release clears the marker unless a newer wait has replaced it.
func (c *Coordinator) release(networkID, commandID int64) {
	c.markers.ClearActiveCommand(networkID, commandID)
}

// Cancel clears the network's marker.
func (c *Coordinator) Cancel(networkID int64) {
	c.markers.SetActiveCommand(networkID, 0)
}

// summarize folds sub-command results back into the parent descriptor.
func summarize(parent *cloud.Command, results []*cloud.Command) *cloud.Command {
	if len(parent.Commands) == 0 && len(results) == 1 {
		return results[0]
	}
	out := *parent
	out.Commands = make([]cloud.Command, 0, len(results))
	out.Complete = true
	for _, r := range results {
		out.Commands = append(out.Commands, *r)
		out.Complete = out.Complete && r.Complete
		out.Stopped = out.Stopped || r.Stopped
		out.Cancelled = out.Cancelled || r.Cancelled
	}
	return &out
}

func isBusy(cmd *cloud.Command, err error) bool {
	if err != nil {
		var httpErr *cloud.HTTPError
		return errors.As(err, &httpErr) && busyPattern.MatchString(httpErr.Message())
	}
	return cmd != nil && busyPattern.MatchString(cmd.Message)
}
