package rabbitmq

import (
	"context"
	"fmt"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Handler processes one message received on topic.
type Handler func(topic string, message mqtt.Message) error

type IConsumer interface {
	ConsumeMessage(ctx context.Context) error
	SetHandler(handler Handler)
}

// Consumer sottoscrive un handler a uno o più topic
type Consumer struct {
	client  mqtt.Client
	handler Handler
	topics  []string
	qos     byte
}

func NewConsumer(client mqtt.Client, handler Handler, qos byte, topics ...string) *Consumer {
	return &Consumer{
		client:  client,
		topics:  topics,
		handler: handler,
		qos:     qos,
	}
}

func (c *Consumer) SetHandler(handler Handler) {
	c.handler = handler
}

// ConsumeMessage subscribes to every topic and blocks until ctx is cancelled,
// then unsubscribes. It returns early if a subscription fails.
func (c *Consumer) ConsumeMessage(ctx context.Context) error {
	if len(c.topics) == 0 {
		return fmt.Errorf("no topics to consume")
	}
	filters := make(map[string]byte, len(c.topics))
	for _, t := range c.topics {
		filters[t] = c.qos
	}

	token := c.client.SubscribeMultiple(filters, func(_ mqtt.Client, msg mqtt.Message) {
		if c.handler == nil {
			log.Printf("mqtt: no handler set for topic %s", msg.Topic())
			return
		}
		if err := c.handler(msg.Topic(), msg); err != nil {
			log.Printf("mqtt: error handling message on %s: %v", msg.Topic(), err)
		}
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe %v: %w", c.topics, token.Error())
	}
	log.Printf("mqtt: subscribed to %v (qos %d)", c.topics, c.qos)

	<-ctx.Done()

	if c.client.IsConnected() {
		c.client.Unsubscribe(c.topics...).Wait()
	}
	return nil
}
