// Package mqtt pushes optimized schedules to smart plugs over MQTT.
package mqtt

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/optiwatt/core/model"
	"github.com/kilianp07/optiwatt/infra/logger"
)

// Config defines the connection parameters for the Paho MQTT publisher.
type Config struct {
	Enabled     bool   `json:"enabled"`
	Broker      string `json:"broker"`
	ClientID    string `json:"client_id"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	TopicPrefix string `json:"topic_prefix"`
	// QoS is a pointer so an explicit 0 survives defaulting.
	QoS            *byte `json:"qos"`
	TimeoutSeconds int   `json:"timeout_seconds"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "optiwatt"
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = "optiwatt"
	}
	if c.QoS == nil {
		qos := byte(1)
		c.QoS = &qos
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 5
	}
}

// schedulePayload is the wire format consumed by smart plugs.
type schedulePayload struct {
	RunID         string  `json:"run_id"`
	TaskID        string  `json:"task_id"`
	Name          string  `json:"name"`
	StartHour     int     `json:"start_hour"`
	DurationHours int     `json:"duration_hours"`
	PowerKW       float64 `json:"power_kw"`
}

// Publisher pushes one schedule assignment to its appliance topic.
// Publishing is best-effort: callers log errors but never fail the
// optimization request on them.
type Publisher interface {
	PublishAssignment(runID string, a model.ScheduleAssignment) error
	Close() error
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// PahoPublisher implements Publisher using Eclipse Paho.
type PahoPublisher struct {
	cli     pahoClient
	prefix  string
	qos     byte
	timeout time.Duration
	log     logger.Logger
}

// NewPahoPublisher connects to the broker and returns the publisher.
func NewPahoPublisher(cfg Config) (*PahoPublisher, error) {
	cfg.SetDefaults()
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	cli := newMQTTClient(opts)
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	token := cli.Connect()
	if !token.WaitTimeout(timeout) {
		return nil, fmt.Errorf("mqtt connect timeout after %s", timeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}
	return &PahoPublisher{
		cli:     cli,
		prefix:  cfg.TopicPrefix,
		qos:     *cfg.QoS,
		timeout: timeout,
		log:     logger.New("mqtt-publisher"),
	}, nil
}

// PublishAssignment sends the assignment to <prefix>/schedule/<taskID>.
func (p *PahoPublisher) PublishAssignment(runID string, a model.ScheduleAssignment) error {
	payload, err := json.Marshal(schedulePayload{
		RunID:         runID,
		TaskID:        a.Task.ID,
		Name:          a.Task.Name,
		StartHour:     a.AssignedHour,
		DurationHours: a.Task.DurationHours,
		PowerKW:       a.Task.PowerKW,
	})
	if err != nil {
		return err
	}
	topic := fmt.Sprintf("%s/schedule/%s", p.prefix, a.Task.ID)
	token := p.cli.Publish(topic, p.qos, false, payload)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("publish timeout on %s", topic)
	}
	return token.Error()
}

// Close disconnects from the broker.
func (p *PahoPublisher) Close() error {
	p.cli.Disconnect(250)
	return nil
}

// MockPublisher records published assignments for tests.
type MockPublisher struct {
	mu       sync.Mutex
	Messages map[string]int // task ID -> start hour
	FailIDs  map[string]bool
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{Messages: make(map[string]int), FailIDs: make(map[string]bool)}
}

// PublishAssignment records the assignment or fails if configured to.
func (m *MockPublisher) PublishAssignment(runID string, a model.ScheduleAssignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailIDs[a.Task.ID] {
		return fmt.Errorf("publish failed")
	}
	m.Messages[a.Task.ID] = a.AssignedHour
	return nil
}

// Close implements Publisher.
func (m *MockPublisher) Close() error { return nil }
