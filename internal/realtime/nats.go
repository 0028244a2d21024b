package realtime

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/nats-io/nats.go"
)

// NATSBridge subscribes to NATS subjects and pushes messages into the Hub.
type NATSBridge struct {
	conn *nats.Conn
	hub  *Hub
}

func NewNATSBridge(natsURL string, hub *Hub) (*NATSBridge, error) {
	nc, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &NATSBridge{conn: nc, hub: hub}, nil
}

// Subscribe listens for progress messages on user.*.workflow.*.progress
func (b *NATSBridge) Subscribe() error {
	subject := "user.*.workflow.*.progress"
	_, err := b.conn.Subscribe(subject, func(msg *nats.Msg) {
		workflowID, err := parseWorkflowIDFromSubject(msg.Subject)
		if err != nil {
			log.Printf("nats: bad subject %q: %v", msg.Subject, err)
			return
		}

		// Wrap the raw progress payload in the outgoing envelope
		envelope := outgoingMsg{
			Type:       "workflow.progress",
			WorkflowID: workflowID,
			Payload:    json.RawMessage(msg.Data),
		}
		data, err := json.Marshal(envelope)
		if err != nil {
			log.Printf("nats: marshal envelope: %v", err)
			return
		}

		b.hub.broadcast <- broadcastMsg{workflowID: workflowID, payload: data}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe %q: %w", subject, err)
	}

	log.Printf("NATS bridge subscribed to: %s", subject)
	return nil
}

// Close drains the NATS connection.
func (b *NATSBridge) Close() {
	if err := b.conn.Drain(); err != nil {
		log.Printf("nats drain: %v", err)
	}
}

// Publisher emits workflow progress events for the bridge to pick up.
type Publisher struct {
	conn *nats.Conn
}

func NewPublisher(natsURL string) (*Publisher, error) {
	nc, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &Publisher{conn: nc}, nil
}

// Publish sends one progress event on user.<ownerID>.workflow.<workflowID>.progress.
func (p *Publisher) Publish(ownerID, workflowID uint, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("user.%d.workflow.%d.progress", ownerID, workflowID)
	return p.conn.Publish(subject, data)
}

func (p *Publisher) Close() {
	if err := p.conn.Drain(); err != nil {
		log.Printf("nats drain: %v", err)
	}
}

// parseWorkflowIDFromSubject extracts the id from "user.<uid>.workflow.<id>.progress"
func parseWorkflowIDFromSubject(subject string) (uint, error) {
	parts := strings.Split(subject, ".")
	if len(parts) != 5 {
		return 0, fmt.Errorf("expected 5 parts, got %d", len(parts))
	}
	id, err := strconv.ParseUint(parts[3], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid workflow id %q: %w", parts[3], err)
	}
	return uint(id), nil
}
