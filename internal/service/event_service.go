package service

import (
	"encoding/json"
	"log"

	"github.com/streadway/amqp"

	"autorenta/internal/entities"
)

const reservationsExchange = "reservations"

// EventService publishes reservation events to a fanout exchange. Downstream
// tooling subscribes to it; in particular, cancellations flagged as
// fraud-suspected land in a manual review queue. The engine itself never
// blocks a cancellation on the flag.
type EventService struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewEventService(url string) (*EventService, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	err = channel.ExchangeDeclare(reservationsExchange, "fanout", true, false, false, false, nil)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}
	return &EventService{conn: conn, channel: channel}, nil
}

func (e *EventService) Publish(event entities.ReservationEvent) {
	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("events: could not marshal %s for reservation %s: %v", event.Type, event.ReservationID, err)
		return
	}
	err = e.channel.Publish(reservationsExchange, "", false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Body:         body,
	})
	if err != nil {
		log.Printf("events: publish %s for reservation %s failed: %v", event.Type, event.ReservationID, err)
	}
}

func (e *EventService) Close() {
	if e.channel != nil {
		e.channel.Close()
	}
	if e.conn != nil {
		e.conn.Close()
	}
}
