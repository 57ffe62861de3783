// Package events publishes gateway lifecycle notifications.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

// Type names a gateway event.
type Type string

const (
	CooldownStarted     Type = "cooldown.started"
	ExportCreated       Type = "export.created"
	EnvironmentSwitched Type = "environment.switched"
)

// Event is the payload published for every notification.
type Event struct {
	Type        Type           `json:"type"`
	Environment string         `json:"environment"`
	RequestID   string         `json:"request_id,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
	At          time.Time      `json:"at"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close()
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close()                               {}

const (
	qos            = 1
	publishTimeout = 5 * time.Second
)

// MQTTPublisher publishes events as JSON to "<prefix>/<type>".
type MQTTPublisher struct {
	client mqtt.Client
	prefix string
}

// NewMQTTPublisher connects to broker and returns a publisher.
func NewMQTTPublisher(broker, clientID, prefix string) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.WithError(err).Warn("mqtt connection lost")
		})
	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(15 * time.Second) {
		return nil, fmt.Errorf("mqtt connect to %s: timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", broker, err)
	}
	return newMQTTPublisher(client, prefix), nil
}

func newMQTTPublisher(client mqtt.Client, prefix string) *MQTTPublisher {
	return &MQTTPublisher{client: client, prefix: strings.TrimSuffix(prefix, "/")}
}

// Topic returns the topic an event type is published on.
func (p *MQTTPublisher) Topic(t Type) string {
	if p.prefix == "" {
		return string(t)
	}
	return p.prefix + "/" + string(t)
}

// Publish sends ev and waits for the broker acknowledgement.
func (p *MQTTPublisher) Publish(ctx context.Context, ev Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	token := p.client.Publish(p.Topic(ev.Type), qos, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(publishTimeout):
		return fmt.Errorf("publish %s: timed out", ev.Type)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}

// Emit publishes ev in the background and logs failures. Handlers use it so a
// slow broker never delays a response.
func Emit(p Publisher, ev Event) {
	if p == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := p.Publish(ctx, ev); err != nil {
			log.WithFields(log.Fields{
				"event": ev.Type,
				"error": err,
			}).Warn("event publish failed")
		}
	}()
}
