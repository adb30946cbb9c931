package events

import (
	"context"
	"log"

	"proposal-access-service/internal/models"
)

type Publisher interface {
	PublishGrantIssued(ctx context.Context, grant *models.Grant) error
	PublishGrantRevoked(ctx context.Context, grantID, resourceID string) error
	PublishGrantAccessed(ctx context.Context, grantID, resourceID string) error

	// Close closes the publisher and releases resources
	Close() error
}

type EventPublisher struct {
	rabbitMQ *RabbitMQClient
	enabled  bool
}

func NewEventPublisher(rabbitURI string) (*EventPublisher, error) {
	if rabbitURI == "" {
		log.Println("Warning: RabbitMQ URI is empty, event publishing is disabled")
		return &EventPublisher{
			rabbitMQ: nil,
			enabled:  false,
		}, nil
	}

	client, err := NewRabbitMQClient(rabbitURI)
	if err != nil {
		return nil, err
	}

	if err := client.setupExchanges(); err != nil {
		client.Close()
		return nil, err
	}

	return &EventPublisher{
		rabbitMQ: client,
		enabled:  true,
	}, nil
}

func (p *EventPublisher) PublishGrantIssued(ctx context.Context, grant *models.Grant) error {
	event := NewGrantEvent(GrantIssued, grant.GrantID, grant.ResourceID, grant.Recipient.Email, grant.ExpiresAt.Unix())
	return p.publish(event)
}

func (p *EventPublisher) PublishGrantRevoked(ctx context.Context, grantID, resourceID string) error {
	event := NewGrantEvent(GrantRevoked, grantID, resourceID, "", 0)
	return p.publish(event)
}

func (p *EventPublisher) PublishGrantAccessed(ctx context.Context, grantID, resourceID string) error {
	event := NewGrantEvent(GrantAccessed, grantID, resourceID, "", 0)
	return p.publish(event)
}

func (p *EventPublisher) publish(event *GrantEvent) error {
	if !p.enabled {
		log.Printf("Event publishing is disabled, skipping event: %s", event.Type)
		return nil
	}

	eventData, err := event.ToJSON()
	if err != nil {
		return err
	}

	if err := p.rabbitMQ.PublishEvent(accessEventsExchange, string(event.Type), eventData); err != nil {
		return err
	}

	log.Printf("Published event: %s", event.Type)
	return nil
}

func (p *EventPublisher) Close() error {
	if p.rabbitMQ != nil {
		return p.rabbitMQ.Close()
	}
	return nil
}
