// Package mqtt receives incident events from operations control over MQTT and
// forwards them onto the internal event bus. The engine core never touches
// the broker; it only ever sees ordered IncidentEvents.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/rosterd/core/events"
	"github.com/kilianp07/rosterd/core/model"
	"github.com/kilianp07/rosterd/infra/logger"
	"github.com/kilianp07/rosterd/internal/eventbus"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker                string `json:"broker"`
	ClientID              string `json:"client_id"`
	Username              string `json:"username"`
	Password              string `json:"password"`
	IncidentTopic         string `json:"incident_topic"`
	QoS                   byte   `json:"qos"`
	ConnectTimeoutSeconds int    `json:"connect_timeout_seconds"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.IncidentTopic == "" {
		c.IncidentTopic = "roster/incidents"
	}
	if c.ClientID == "" {
		c.ClientID = "rosterd"
	}
	if c.ConnectTimeoutSeconds <= 0 {
		c.ConnectTimeoutSeconds = 10
	}
}

// Validate checks required fields.
func (c Config) Validate() error {
	if c.Broker == "" {
		return fmt.Errorf("mqtt: broker is required")
	}
	return nil
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// IncidentIntake subscribes to the incident topic and publishes decoded
// incidents on the bus.
type IncidentIntake struct {
	cli pahoClient
	cfg Config
	bus *eventbus.Bus[events.IncidentEvent]
	log logger.Logger
}

// NewIncidentIntake connects to the broker and subscribes to the incident
// topic.
func NewIncidentIntake(cfg Config, bus *eventbus.Bus[events.IncidentEvent]) (*IncidentIntake, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logger.New("incident-intake")
	in := &IncidentIntake{cfg: cfg, bus: bus, log: log}

	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	opts.ConnectTimeout = time.Duration(cfg.ConnectTimeoutSeconds) * time.Second
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		if token := c.Subscribe(cfg.IncidentTopic, cfg.QoS, in.onMessage); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe error: %v", token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}

	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	in.cli = c
	return in, nil
}

func (in *IncidentIntake) onMessage(_ paho.Client, msg paho.Message) {
	var inc model.IncidentSpec
	if err := json.Unmarshal(msg.Payload(), &inc); err != nil {
		in.log.Errorf("discarding malformed incident payload: %v", err)
		return
	}
	if inc.DriverID == "" || !inc.To.After(inc.From) {
		in.log.Warnf("discarding invalid incident for driver %q", inc.DriverID)
		return
	}
	in.bus.Publish(events.IncidentEvent{Incident: inc, Received: time.Now().UTC()})
}

// Close disconnects from the broker.
func (in *IncidentIntake) Close() {
	if in.cli != nil && in.cli.IsConnected() {
		in.cli.Disconnect(250)
	}
}
