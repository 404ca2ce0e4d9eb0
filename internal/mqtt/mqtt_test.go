package mqtt

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"fire-backend/internal/models"
)

func TestParseReading(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		topic   string
		level   int
		payload string
		want    float64
		wantID  int
		wantAt  time.Time
		wantErr string
	}{
		{name: "temperature", topic: "sensor/12/temperature", payload: "48.25", want: 48.25, wantID: 12},
		{name: "whitespace", topic: "sensor/3/smoke", payload: " 310\n", want: 310, wantID: 3},
		{name: "non-numeric id", topic: "sensor/abc/smoke", payload: "1", wantErr: "invalid sensor id"},
		{name: "short topic", topic: "sensor", payload: "1", wantErr: "no sensor id"},
		{name: "bad value", topic: "sensor/1/smoke", payload: "high", wantErr: "invalid value"},
		{name: "nan", topic: "sensor/1/smoke", payload: "NaN", wantErr: "non-finite"},
		{name: "json", topic: "sensor/4/temperature", payload: `{"value": 71.5}`, want: 71.5, wantID: 4},
		{
			name:    "json with timestamp",
			topic:   "sensor/4/smoke",
			payload: `{"value": 420, "timestamp": "2026-03-01T11:59:30Z"}`,
			want:    420,
			wantID:  4,
			wantAt:  time.Date(2026, 3, 1, 11, 59, 30, 0, time.UTC),
		},
		{name: "json bad timestamp", topic: "sensor/4/smoke", payload: `{"value": 5, "timestamp": "yesterday"}`, want: 5, wantID: 4},
		{name: "json without value", topic: "sensor/4/smoke", payload: `{"timestamp": "2026-03-01T11:59:30Z"}`, wantErr: "no value"},
		{name: "broken json", topic: "sensor/4/smoke", payload: `{"value":`, wantErr: "invalid json"},
		{
			name:    "json clock far ahead",
			topic:   "sensor/4/smoke",
			payload: `{"value": 21.5, "timestamp": "2030-01-01T00:00:00Z"}`,
			want:    21.5,
			wantID:  4,
		},
		{
			name:    "json clock within skew",
			topic:   "sensor/4/smoke",
			payload: `{"value": 22, "timestamp": "2026-03-01T12:00:04Z"}`,
			want:    22,
			wantID:  4,
			wantAt:  time.Date(2026, 3, 1, 12, 0, 4, 0, time.UTC),
		},
		{
			name:    "json clock never synced",
			topic:   "sensor/4/smoke",
			payload: `{"value": 23, "timestamp": "1970-01-01T00:00:00Z"}`,
			want:    23,
			wantID:  4,
			wantAt:  time.Unix(0, 0).UTC(),
		},
		{name: "deeper id level", topic: "building/east/sensor/9/smoke", level: 3, payload: "12", want: 12, wantID: 9},
		{name: "id level beyond topic", topic: "sensor/9", level: 3, payload: "12", wantErr: "no sensor id"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			level := tc.level
			if level == 0 {
				level = 1
			}
			r, err := parseReading(models.MetricSmoke, tc.topic, level, []byte(tc.payload), at)
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseReading: %v", err)
			}
			wantAt := tc.wantAt
			if wantAt.IsZero() {
				wantAt = at
			}
			if r.SensorID != tc.wantID || r.Value != tc.want || !r.ReceivedAt.Equal(wantAt) {
				t.Fatalf("got %+v", r)
			}
		})
	}
}

type fakeMessage struct {
	mqtt.Message
	topic   string
	payload []byte
}

func (m *fakeMessage) Topic() string   { return m.topic }
func (m *fakeMessage) Payload() []byte { return m.payload }

func TestSensorIDSegment(t *testing.T) {
	tests := []struct {
		filter string
		want   int
	}{
		{filter: "sensor/+/temperature", want: 1},
		{filter: "building/sensor/+/temperature", want: 2},
		{filter: "site/+/sensor/+/smoke", want: 3},
		{filter: "sensor/7/smoke", want: 1},
	}

	for _, tc := range tests {
		if got := sensorIDSegment(tc.filter); got != tc.want {
			t.Errorf("sensorIDSegment(%q) = %d, want %d", tc.filter, got, tc.want)
		}
	}
}

func TestSubscriberForwardsReadings(t *testing.T) {
	ch := make(chan *models.Reading, 1)
	s := NewSubscriber(nil, SubscriberConfig{
		TemperatureTopic: "building/sensor/+/temperature",
		SmokeTopic:       "building/sensor/+/smoke",
	}, ch)
	if len(s.routes) != 2 {
		t.Fatalf("expected 2 routes, got %d", len(s.routes))
	}
	temperature, smoke := s.routes[0], s.routes[1]

	s.handleMessage(temperature, &fakeMessage{topic: "building/sensor/5/temperature", payload: []byte("61.5")})

	select {
	case r := <-ch:
		if r.SensorID != 5 || r.Metric != models.MetricTemperature || r.Value != 61.5 {
			t.Fatalf("got %+v", r)
		}
	default:
		t.Fatalf("no reading forwarded")
	}

	// Malformed messages are dropped
	s.handleMessage(smoke, &fakeMessage{topic: "building/sensor/5/smoke", payload: []byte("?")})
	if len(ch) != 0 {
		t.Fatalf("malformed reading was forwarded")
	}
}

func TestSubscribeAll(t *testing.T) {
	client := &fakeClient{token: completedToken(nil)}
	ch := make(chan *models.Reading, 1)
	s := NewSubscriber(client, SubscriberConfig{
		TemperatureTopic: "sensor/+/temperature",
		SmokeTopic:       "sensor/+/smoke",
	}, ch)

	if err := s.SubscribeAll(); err != nil {
		t.Fatalf("SubscribeAll: %v", err)
	}
	handler, ok := client.subscribed["sensor/+/smoke"]
	if !ok || len(client.subscribed) != 2 {
		t.Fatalf("subscribed: %v", client.subscribed)
	}

	handler(client, &fakeMessage{topic: "sensor/2/smoke", payload: []byte("350")})
	if r := <-ch; r.Metric != models.MetricSmoke || r.SensorID != 2 || r.Value != 350 {
		t.Fatalf("got %+v", r)
	}

	failing := NewSubscriber(&fakeClient{token: completedToken(errors.New("not authorized"))},
		SubscriberConfig{SmokeTopic: "sensor/+/smoke"}, ch)
	if err := failing.SubscribeAll(); err == nil || !strings.Contains(err.Error(), "not authorized") {
		t.Fatalf("expected subscribe error, got %v", err)
	}
}

func TestNewSubscriberSkipsEmptyTopics(t *testing.T) {
	s := NewSubscriber(nil, SubscriberConfig{SmokeTopic: "sensor/+/smoke"}, make(chan *models.Reading))
	if len(s.routes) != 1 || s.routes[0].metric != models.MetricSmoke {
		t.Fatalf("routes: got %+v", s.routes)
	}
}

type fakeToken struct {
	err  error
	done chan struct{}
}

func completedToken(err error) *fakeToken {
	t := &fakeToken{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { <-t.done; return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type fakeClient struct {
	mqtt.Client
	token      mqtt.Token
	published  []string
	payloads   [][]byte
	subscribed map[string]mqtt.MessageHandler
}

func (c *fakeClient) Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token {
	if c.subscribed == nil {
		c.subscribed = make(map[string]mqtt.MessageHandler)
	}
	c.subscribed[topic] = callback
	return c.token
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.published = append(c.published, topic)
	c.payloads = append(c.payloads, payload.([]byte))
	return c.token
}

func TestPublisherPublish(t *testing.T) {
	client := &fakeClient{token: completedToken(nil)}
	p := NewPublisher(client, PublisherConfig{})

	alert := &models.DispatchedAlert{
		Record:  models.AlertRecord{Location: "Room A, Floor 1"},
		Payload: []byte(`{"location":"Room A, Floor 1"}`),
	}
	if err := p.Publish(context.Background(), alert); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(client.published) != 1 || client.published[0] != models.FireAlertTopic {
		t.Fatalf("published to %v", client.published)
	}
	if string(client.payloads[0]) != string(alert.Payload) {
		t.Errorf("payload: got %s", client.payloads[0])
	}
}

func TestPublisherPublishError(t *testing.T) {
	brokerErr := errors.New("not connected")
	p := NewPublisher(&fakeClient{token: completedToken(brokerErr)}, PublisherConfig{AlertTopic: "test/alerts"})

	err := p.Publish(context.Background(), &models.DispatchedAlert{Payload: []byte("{}")})
	if !errors.Is(err, brokerErr) {
		t.Fatalf("expected broker error, got %v", err)
	}
}

func TestPublisherPublishCancelled(t *testing.T) {
	pending := &fakeToken{done: make(chan struct{})}
	p := NewPublisher(&fakeClient{token: pending}, PublisherConfig{PublishTimeout: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Publish(ctx, &models.DispatchedAlert{Payload: []byte("{}")})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestClientRunsHooksOnlyOnReconnect(t *testing.T) {
	c := &Client{config: ClientConfig{Broker: "tcp://broker:1883"}}

	calls := 0
	c.OnReconnect(func() { calls++ })

	c.handleConnect(nil)
	if calls != 0 {
		t.Fatalf("hooks ran on first connect")
	}

	c.handleConnect(nil)
	c.handleConnect(nil)
	if calls != 2 {
		t.Fatalf("expected 2 hook runs, got %d", calls)
	}
}

func TestClientConfigDefaults(t *testing.T) {
	var cfg ClientConfig
	if cfg.retryInterval() != 5*time.Second || cfg.connectTimeout() != 30*time.Second {
		t.Fatalf("unexpected defaults %v / %v", cfg.retryInterval(), cfg.connectTimeout())
	}

	cfg = ClientConfig{ConnectRetryInterval: time.Second, ConnectTimeout: 2 * time.Second}
	if cfg.retryInterval() != time.Second || cfg.connectTimeout() != 2*time.Second {
		t.Fatalf("overrides ignored")
	}
}
