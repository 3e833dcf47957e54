// Package mqttbridge connects an image sequence engine to an MQTT broker:
// engine events are published as JSON and scroll offsets can be received
// from a topic.
package mqttbridge

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"image-sequence/internal/sequence"
)

const publishTimeout = 5 * time.Second

// Publisher is the part of mqtt.Client used to publish events.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Subscriber is the part of mqtt.Client used to receive scroll offsets.
type Subscriber interface {
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Unsubscribe(topics ...string) mqtt.Token
}

// Bridge publishes events under <prefix>/<engine id>/<event kind>.
type Bridge struct {
	pub    Publisher
	prefix string
	qos    byte
	log    *slog.Logger
}

// New returns a Bridge publishing with QoS 1 below prefix/engineID.
func New(pub Publisher, prefix, engineID string, log *slog.Logger) *Bridge {
	return &Bridge{
		pub:    pub,
		prefix: strings.TrimSuffix(prefix, "/") + "/" + engineID,
		qos:    1,
		log:    log,
	}
}

// Topic returns the topic an event kind is published on.
func (b *Bridge) Topic(kind sequence.EventKind) string {
	return b.prefix + "/" + string(kind)
}

// Publish is a sequence.Listener. It never blocks on the broker; delivery
// errors are logged.
func (b *Bridge) Publish(ev sequence.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		b.log.Error("encode event", slog.String("kind", string(ev.Kind)), slog.String("error", err.Error()))
		return
	}
	topic := b.Topic(ev.Kind)
	// Terminal events are retained so late subscribers see the final state.
	retained := ev.Kind == sequence.EventReadyToScroll || ev.Kind == sequence.EventLoadingComplete
	token := b.pub.Publish(topic, b.qos, retained, payload)
	go func() {
		if !token.WaitTimeout(publishTimeout) {
			b.log.Warn("mqtt publish timed out", slog.String("topic", topic))
			return
		}
		if err := token.Error(); err != nil {
			b.log.Warn("mqtt publish failed", slog.String("topic", topic), slog.String("error", err.Error()))
		}
	}()
}

// SubscribeScroll forwards float payloads on topic to scrollTo. Payloads
// that are not numbers are logged and dropped. The returned function
// unsubscribes.
func SubscribeScroll(sub Subscriber, topic string, scrollTo func(offset float64), log *slog.Logger) (func(), error) {
	token := sub.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		raw := strings.TrimSpace(string(msg.Payload()))
		offset, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			log.Debug("invalid scroll payload", slog.String("topic", msg.Topic()), slog.String("payload", raw))
			return
		}
		scrollTo(offset)
	})
	if token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return func() {
		t := sub.Unsubscribe(topic)
		t.WaitTimeout(publishTimeout)
	}, nil
}
