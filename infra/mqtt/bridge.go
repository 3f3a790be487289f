package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/tellocmd/core/cockpit"
	coremon "github.com/kilianp07/tellocmd/core/monitoring"
	"github.com/kilianp07/tellocmd/infra/logger"
)

// Topic suffixes under Config.TopicPrefix.
const (
	TopicStatus       = "status"
	TopicAvailability = "availability"
	TopicButtons      = "controls/buttons"
	TopicCommToggle   = "controls/comm"
	TopicMotorsToggle = "controls/motors"
)

// Cockpit is the session surface the bridge drives.
type Cockpit interface {
	ToggleComm(ctx context.Context) error
	ToggleMotors(ctx context.Context) error
	UpdateButtons(ctx context.Context, b cockpit.Buttons) error
	Status() cockpit.Status
	Subscribe() <-chan cockpit.Status
	Unsubscribe(ch <-chan cockpit.Status)
}

// actionTimeout bounds one remote control action. Takeoff is acknowledged
// only once the drone hovers, which takes a few seconds.
const actionTimeout = 20 * time.Second

// Bridge publishes cockpit statuses and turns control messages into
// cockpit calls. Control actions run one at a time in arrival order.
type Bridge struct {
	cfg     Config
	cli     pahoClient
	cockpit Cockpit
	log     logger.Logger
	actions chan action
}

type action struct {
	name string
	run  func(ctx context.Context) error
}

// NewBridge connects to the broker. The availability topic carries a
// retained "online", and the broker publishes "offline" as last will.
func NewBridge(cfg Config, c Cockpit) (*Bridge, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	b := &Bridge{
		cfg:     cfg,
		cockpit: c,
		log:     logger.New("mqtt_bridge"),
		actions: make(chan action, 16),
	}
	opts.SetWill(b.topic(TopicAvailability), "offline", cfg.qos("availability"), true)
	opts.OnConnect = b.onConnect
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		b.log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		b.log.Warnf("reconnecting to MQTT broker")
	}
	cli := newMQTTClient(opts)
	b.cli = cli
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, token.Error())
	}
	return b, nil
}

func (b *Bridge) topic(suffix string) string { return b.cfg.TopicPrefix + "/" + suffix }

// onConnect runs on every (re)connection, so subscriptions survive a broker restart.
func (b *Bridge) onConnect(paho.Client) {
	b.log.Infof("MQTT connected")
	subs := map[string]paho.MessageHandler{
		b.topic(TopicButtons):      b.onButtons,
		b.topic(TopicCommToggle):   b.onCommToggle,
		b.topic(TopicMotorsToggle): b.onMotorsToggle,
	}
	for topic, h := range subs {
		if token := b.cli.Subscribe(topic, b.cfg.qos("controls"), h); token.Wait() && token.Error() != nil {
			b.log.Errorf("subscribe %s: %v", topic, token.Error())
		}
	}
	if token := b.cli.Publish(b.topic(TopicAvailability), b.cfg.qos("availability"), true, "online"); token.Wait() && token.Error() != nil {
		b.log.Errorf("publish availability: %v", token.Error())
	}
}

func (b *Bridge) onButtons(_ paho.Client, msg paho.Message) {
	var btn cockpit.Buttons
	if err := json.Unmarshal(msg.Payload(), &btn); err != nil {
		b.log.Warnf("decode buttons: %v", err)
		return
	}
	b.enqueue(action{name: "buttons", run: func(ctx context.Context) error {
		return b.cockpit.UpdateButtons(ctx, btn)
	}})
}

func (b *Bridge) onCommToggle(paho.Client, paho.Message) {
	b.enqueue(action{name: "comm", run: b.cockpit.ToggleComm})
}

func (b *Bridge) onMotorsToggle(paho.Client, paho.Message) {
	b.enqueue(action{name: "motors", run: b.cockpit.ToggleMotors})
}

func (b *Bridge) enqueue(a action) {
	select {
	case b.actions <- a:
	default:
		b.log.Warnf("control queue full, dropping %s", a.name)
	}
}

// Run publishes statuses and executes control actions until ctx is done.
func (b *Bridge) Run(ctx context.Context) error {
	sub := b.cockpit.Subscribe()
	defer b.cockpit.Unsubscribe(sub)
	b.publishStatus(b.cockpit.Status())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer coremon.Recover()
		b.runActions(ctx)
	}()
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case st, ok := <-sub:
			if !ok {
				return nil
			}
			b.publishStatus(st)
		}
	}
}

func (b *Bridge) runActions(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case a := <-b.actions:
			actx, cancel := context.WithTimeout(ctx, actionTimeout)
			if err := a.run(actx); err != nil {
				// the cockpit already put the error on its status line
				b.log.Warnf("control %s: %v", a.name, err)
			}
			cancel()
		}
	}
}

func (b *Bridge) publishStatus(st cockpit.Status) {
	payload, err := json.Marshal(st)
	if err != nil {
		b.log.Errorf("encode status: %v", err)
		return
	}
	if err := b.publish(b.topic(TopicStatus), b.cfg.qos("status"), true, payload); err != nil {
		coremon.CaptureException(err, map[string]string{"module": "mqtt", "topic": TopicStatus})
	}
}

// publish retries with exponential backoff.
func (b *Bridge) publish(topic string, qos byte, retained bool, payload []byte) error {
	backoff := time.Duration(b.cfg.BackoffMS) * time.Millisecond
	var err error
	for attempt := 0; attempt <= b.cfg.MaxRetries; attempt++ {
		token := b.cli.Publish(topic, qos, retained, payload)
		token.Wait()
		if err = token.Error(); err == nil {
			return nil
		}
		b.log.Errorf("publish %s attempt %d failed: %v", topic, attempt+1, err)
		if attempt < b.cfg.MaxRetries {
			time.Sleep(backoff * time.Duration(1<<attempt))
		}
	}
	return err
}

// Close publishes "offline" and disconnects.
func (b *Bridge) Close() {
	if b.cli == nil || !b.cli.IsConnected() {
		return
	}
	token := b.cli.Publish(b.topic(TopicAvailability), b.cfg.qos("availability"), true, "offline")
	token.WaitTimeout(time.Second)
	b.cli.Disconnect(250)
}
