package statepub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/blink-sync-core/internal/device"
	"github.com/nerrad567/blink-sync-core/internal/fleet"
	"github.com/nerrad567/blink-sync-core/internal/infrastructure/mqtt"
)

const (
	intentQoS     = 1
	intentTimeout = 3 * time.Minute
)

// ErrInvalidIntent is returned for payloads that name no known action.
var ErrInvalidIntent = errors.New("statepub: invalid intent")

// Broker is the MQTT surface the publisher needs. *mqtt.Client implements it.
type Broker interface {
	Topics() mqtt.Topics
	Publish(topic string, payload []byte, qos byte, retained bool) error
	PublishRetained(topic string, payload []byte) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Intents is the fleet surface intents are dispatched to.
// *fleet.Orchestrator implements it.
type Intents interface {
	Registry() *device.Registry
	RefreshData(ctx context.Context, force bool) error
	SetCameraMotionSensorState(ctx context.Context, cameraID int64, enabled bool) error
	RequestCameraThumbnail(ctx context.Context, cameraID int64) error
	RequestCameraClip(ctx context.Context, cameraID int64) error
	CancelCommand(networkID int64) bool
}

// Logger is the logging interface used by the publisher.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// NetworkIntent is the payload accepted on a network command topic.
type NetworkIntent struct {
	Armed   *bool `json:"armed,omitempty"`
	Cancel  bool  `json:"cancel,omitempty"`
	Refresh bool  `json:"refresh,omitempty"`
}

// CameraIntent is the payload accepted on a camera command topic.
type CameraIntent struct {
	MotionEnabled    *bool `json:"motion_enabled,omitempty"`
	Privacy          *bool `json:"privacy,omitempty"`
	RefreshThumbnail bool  `json:"refresh_thumbnail,omitempty"`
	RefreshClip      bool  `json:"refresh_clip,omitempty"`
}

// Ack reports the outcome of one MQTT intent.
type Ack struct {
	Topic string    `json:"topic"`
	Kind  string    `json:"kind"`
	ID    int64     `json:"id"`
	OK    bool      `json:"ok"`
	Error string    `json:"error,omitempty"`
	Time  time.Time `json:"time"`
}

// Publisher publishes fleet state and dispatches MQTT intents.
//
// Thread Safety:
//   - HandleEvent may be called from any goroutine.
//   - Each intent runs on its own goroutine; Stop cancels and waits for them.
type Publisher struct {
	broker  Broker
	intents Intents
	topics  mqtt.Topics
	logger  Logger

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New creates a publisher.
func New(broker Broker, intents Intents) *Publisher {
	return &Publisher{
		broker:  broker,
		intents: intents,
		topics:  broker.Topics(),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger.
func (p *Publisher) SetLogger(logger Logger) {
	p.logger = logger
}

// Start subscribes to the intent topics and publishes the current state.
// Intents run under a context derived from ctx.
func (p *Publisher) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	topic := p.topics.AllCommands()
	if err := p.broker.Subscribe(topic, intentQoS, p.handleMessage); err != nil {
		p.cancel()
		return fmt.Errorf("subscribe to intents: %w", err)
	}
	p.logger.Info("subscribed to intents", "topic", topic)

	p.PublishAll()
	return nil
}

// Stop cancels in-flight intents and waits for them to return.
func (p *Publisher) Stop() {
	p.stopOnce.Do(func() {
		if p.cancel != nil {
			p.cancel()
		}
		p.wg.Wait()
	})
}

// HandleEvent is a fleet.Listener. Refreshes republish all state; finished
// intents are forwarded as events.
func (p *Publisher) HandleEvent(e fleet.Event) {
	switch e.Kind {
	case fleet.EventRefreshed:
		p.PublishAll()
	case fleet.EventIntent:
		p.publishJSON(p.topics.Event(string(fleet.EventIntent)), e, false)
	}
}

// PublishAll publishes the retained state of every known entity.
func (p *Publisher) PublishAll() {
	reg := p.intents.Registry()
	for _, n := range reg.Networks() {
		p.publishJSON(p.topics.NetworkState(n.ID()), fleet.NetworkStateOf(n), true)
	}
	for _, c := range reg.Cameras() {
		p.publishJSON(p.topics.CameraState(c.ID()), fleet.CameraStateOf(c), true)
	}
}

func (p *Publisher) publishJSON(topic string, v any, retained bool) {
	payload, err := json.Marshal(v)
	if err != nil {
		p.logger.Error("failed to marshal payload", "topic", topic, "error", err)
		return
	}

	if retained {
		err = p.broker.PublishRetained(topic, payload)
	} else {
		err = p.broker.Publish(topic, payload, intentQoS, false)
	}
	if err != nil {
		p.logger.Warn("failed to publish", "topic", topic, "error", err)
	}
}

func (p *Publisher) handleMessage(topic string, payload []byte) error {
	kind, id, ok := p.topics.ParseCommand(topic)
	if !ok {
		return fmt.Errorf("%w: unexpected topic %s", ErrInvalidIntent, topic)
	}

	var run func(ctx context.Context) error
	switch kind {
	case "network":
		var intent NetworkIntent
		if err := json.Unmarshal(payload, &intent); err != nil {
			p.ack(topic, kind, id, fmt.Errorf("%w: %w", ErrInvalidIntent, err))
			return nil
		}
		run = func(ctx context.Context) error { return p.runNetwork(ctx, id, intent) }
	case "camera":
		var intent CameraIntent
		if err := json.Unmarshal(payload, &intent); err != nil {
			p.ack(topic, kind, id, fmt.Errorf("%w: %w", ErrInvalidIntent, err))
			return nil
		}
		run = func(ctx context.Context) error { return p.runCamera(ctx, id, intent) }
	}

	p.logger.Debug("received intent", "kind", kind, "id", id)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(fleet.WithSource(p.ctx, "mqtt"), intentTimeout)
		defer cancel()
		p.ack(topic, kind, id, run(ctx))
	}()
	return nil
}

func (p *Publisher) runNetwork(ctx context.Context, networkID int64, intent NetworkIntent) error {
	network, ok := p.intents.Registry().Network(networkID)
	if !ok {
		return fmt.Errorf("network %d: %w", networkID, device.ErrNetworkNotFound)
	}

	switch {
	case intent.Cancel:
		p.intents.CancelCommand(networkID)
		return nil
	case intent.Armed != nil:
		return network.SetArmedState(ctx, *intent.Armed)
	case intent.Refresh:
		return p.intents.RefreshData(ctx, true)
	default:
		return ErrInvalidIntent
	}
}

func (p *Publisher) runCamera(ctx context.Context, cameraID int64, intent CameraIntent) error {
	cam, ok := p.intents.Registry().Camera(cameraID)
	if !ok {
		return fmt.Errorf("camera %d: %w", cameraID, device.ErrCameraNotFound)
	}

	switch {
	case intent.Privacy != nil:
		cam.SetPrivacyMode(*intent.Privacy)
		p.publishJSON(p.topics.CameraState(cameraID), fleet.CameraStateOf(cam), true)
		return nil
	case intent.MotionEnabled != nil:
		return p.intents.SetCameraMotionSensorState(ctx, cameraID, *intent.MotionEnabled)
	case intent.RefreshThumbnail:
		return p.intents.RequestCameraThumbnail(ctx, cameraID)
	case intent.RefreshClip:
		return p.intents.RequestCameraClip(ctx, cameraID)
	default:
		return ErrInvalidIntent
	}
}

func (p *Publisher) ack(topic, kind string, id int64, err error) {
	ack := Ack{Topic: topic, Kind: kind, ID: id, OK: err == nil, Time: time.Now().UTC()}
	if err != nil {
		ack.Error = err.Error()
		p.logger.Warn("intent failed", "topic", topic, "error", err)
	}
	p.publishJSON(p.topics.Event("ack"), ack, false)
}
