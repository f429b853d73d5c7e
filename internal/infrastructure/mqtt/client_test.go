package mqtt

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

// disconnectedClient returns a client that was never connected, for
// exercising validation paths without a broker.
func disconnectedClient() *Client {
	return &Client{
		subscriptions: make(map[string]subscription),
	}
}

// mockLogger implements Logger for testing.
type mockLogger struct {
	errors []string
	warns  []string
	mu     sync.Mutex
}

func (l *mockLogger) Error(msg string, args ...any) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
}

func (l *mockLogger) Warn(msg string, args ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}

func TestTopicBuilders(t *testing.T) {
	topics := Topics{}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{
			name: "device state",
			got:  topics.DeviceState("D0:F0:18:00:00:01"),
			want: "inode/device/d0f018000001/state",
		},
		{
			name: "device state from dashed mac",
			got:  topics.DeviceState("d0-f0-18-00-00-01"),
			want: "inode/device/d0f018000001/state",
		},
		{
			name: "device availability",
			got:  topics.DeviceAvailability("D0:F0:18:00:00:01"),
			want: "inode/device/d0f018000001/availability",
		},
		{
			name: "gateway status",
			got:  topics.GatewayStatus(),
			want: "inode/gateway/status",
		},
		{
			name: "all device states",
			got:  topics.AllDeviceStates(),
			want: "inode/device/+/state",
		},
		{
			name: "all device availability",
			got:  topics.AllDeviceAvailability(),
			want: "inode/device/+/availability",
		},
		{
			name: "all topics",
			got:  topics.AllTopics(),
			want: "inode/#",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("topic = %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestCloseNil(t *testing.T) {
	client := &Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on never-connected client error = %v, want nil", err)
	}
}

func TestIsConnected_InitialState(t *testing.T) {
	client := disconnectedClient()
	if client.IsConnected() {
		t.Error("IsConnected() = true for a never-connected client")
	}
}

func TestPublish_Validation(t *testing.T) {
	client := disconnectedClient()

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		want    error
	}{
		{
			name: "empty topic",
			want: ErrInvalidTopic,
		},
		{
			name:  "invalid qos",
			topic: "inode/gateway/status",
			qos:   3,
			want:  ErrInvalidQoS,
		},
		{
			name:    "oversized payload",
			topic:   "inode/gateway/status",
			qos:     1,
			payload: make([]byte, maxPayloadSize+1),
			want:    ErrPublishFailed,
		},
		{
			name:  "not connected",
			topic: "inode/gateway/status",
			qos:   1,
			want:  ErrNotConnected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.Publish(tt.topic, tt.payload, tt.qos, false)
			if !errors.Is(err, tt.want) {
				t.Errorf("Publish() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSubscribe_Validation(t *testing.T) {
	client := disconnectedClient()
	handler := func(string, []byte) error { return nil }

	if err := client.Subscribe("", 1, handler); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Subscribe(empty topic) error = %v, want ErrInvalidTopic", err)
	}
	if err := client.Subscribe("inode/#", 3, handler); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Subscribe(qos 3) error = %v, want ErrInvalidQoS", err)
	}
	if err := client.Subscribe("inode/#", 1, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("Subscribe(nil handler) error = %v, want ErrSubscribeFailed", err)
	}
	if err := client.Subscribe("inode/#", 1, handler); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Subscribe() error = %v, want ErrNotConnected", err)
	}

	// Failed subscriptions must not be tracked.
	if client.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", client.SubscriptionCount())
	}
}

func TestUnsubscribe_Validation(t *testing.T) {
	client := disconnectedClient()

	if err := client.Unsubscribe(""); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Unsubscribe(empty topic) error = %v, want ErrInvalidTopic", err)
	}
	if err := client.Unsubscribe("inode/#"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Unsubscribe() error = %v, want ErrNotConnected", err)
	}
}

func TestSubscriptionCount_Empty(t *testing.T) {
	client := disconnectedClient()
	if got := client.SubscriptionCount(); got != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", got)
	}
}

func TestHasSubscription_NotSubscribed(t *testing.T) {
	client := disconnectedClient()
	if client.HasSubscription("inode/device/+/state") {
		t.Error("HasSubscription() = true for empty client")
	}
}

func TestHealthCheck_Disconnected(t *testing.T) {
	client := disconnectedClient()
	if err := client.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

func TestHealthCheck_Cancelled(t *testing.T) {
	client := disconnectedClient()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := client.HealthCheck(ctx)
	if err == nil {
		t.Error("HealthCheck() expected error for cancelled context")
	}
	if errors.Is(err, ErrNotConnected) {
		t.Error("cancelled context should be reported before connection state")
	}
}

func TestSetLogger(t *testing.T) {
	client := disconnectedClient()

	logger := &mockLogger{}
	client.SetLogger(logger)
	if client.getLogger() == nil {
		t.Error("getLogger() = nil after SetLogger()")
	}

	client.SetLogger(nil)
	if client.getLogger() != nil {
		t.Error("getLogger() should be nil after SetLogger(nil)")
	}
}

func TestStatusPayloads(t *testing.T) {
	online := buildOnlinePayload("gw-test")
	if !strings.Contains(online, `"status":"online"`) || !strings.Contains(online, "gw-test") {
		t.Errorf("online payload = %s", online)
	}

	offline := buildOfflinePayload("gw-test")
	if !strings.Contains(offline, `"status":"offline"`) {
		t.Errorf("offline payload = %s", offline)
	}
	if !strings.Contains(offline, "graceful_shutdown") {
		t.Error("graceful offline payload must be distinguishable from the LWT")
	}
}
