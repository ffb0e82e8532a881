package messaging

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"fleetview/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	kafkago "github.com/segmentio/kafka-go"
)

// BrokerTransport carries the simulation stream over MQTT or Kafka for
// deployments that bridge the backend's topics onto a broker.
type BrokerTransport struct {
	mu       sync.RWMutex
	cfg      *config.MessagingConfig
	backend  string
	logFn    LogFunc
	mqttConn mqtt.Client
	kafkaW   *kafkago.Writer
	kafkaR   []*kafkago.Reader
	handlers map[string]func([]byte)
	status   StatusFunc
}

// NewBrokerTransport creates an MQTT or Kafka transport based on cfg.Backend.
func NewBrokerTransport(cfg *config.MessagingConfig, logFn LogFunc) *BrokerTransport {
	return &BrokerTransport{
		cfg:      cfg,
		backend:  cfg.Backend,
		logFn:    logFn,
		handlers: make(map[string]func([]byte)),
	}
}

// KafkaTopic maps a STOMP-style destination to a legal Kafka topic name:
// "/topic/simulation" becomes "topic.simulation".
func KafkaTopic(dest string) string {
	return strings.ReplaceAll(strings.Trim(dest, "/"), "/", ".")
}

func (c *BrokerTransport) SetStatusHandler(fn StatusFunc) {
	c.mu.Lock()
	c.status = fn
	c.mu.Unlock()
}

// Connect establishes the messaging connection.
func (c *BrokerTransport) Connect(ctx context.Context) error {
	c.mu.Lock()
	var err error
	switch c.backend {
	case "mqtt":
		err = c.connectMQTT(ctx)
	case "kafka":
		err = c.connectKafka(ctx)
	default:
		err = fmt.Errorf("unknown messaging backend: %s", c.backend)
	}
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.notify(true, nil)
	return nil
}

func (c *BrokerTransport) connectMQTT(ctx context.Context) error {
	if c.mqttConn != nil && c.mqttConn.IsConnected() {
		return nil
	}
	broker := fmt.Sprintf("tcp://%s:%d", c.cfg.MQTT.Broker, c.cfg.MQTT.Port)
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(c.cfg.MQTT.ClientID).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(c.cfg.STOMP.ReconnectDelay).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			c.logFn("messaging: mqtt connection lost: %v", err)
			c.notify(false, err)
		}).
		SetOnConnectHandler(func(client mqtt.Client) {
			// paho drops subscriptions on a clean-session reconnect
			c.mu.RLock()
			for topic, h := range c.handlers {
				c.subscribeMQTT(client, topic, h)
			}
			c.mu.RUnlock()
			c.notify(true, nil)
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	timeout := 10 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		timeout = time.Until(dl)
	}
	if !token.WaitTimeout(timeout) {
		client.Disconnect(0)
		return fmt.Errorf("mqtt connect: timed out after %v", timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	c.mqttConn = client
	return nil
}

func (c *BrokerTransport) subscribeMQTT(client mqtt.Client, topic string, handler func([]byte)) error {
	token := client.Subscribe(topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Payload())
	})
	token.Wait()
	if err := token.Error(); err != nil {
		c.logFn("messaging: mqtt subscribe %s: %v", topic, err)
		return err
	}
	return nil
}

func (c *BrokerTransport) connectKafka(ctx context.Context) error {
	if c.kafkaW != nil {
		return nil
	}
	// Writers and readers dial lazily; probe a seed broker so an
	// unreachable cluster fails here rather than on the first publish.
	if err := c.dialKafkaSeed(ctx); err != nil {
		return err
	}
	c.kafkaW = &kafkago.Writer{
		Addr:                   kafkago.TCP(c.cfg.Kafka.Brokers...),
		Balancer:               &kafkago.LeastBytes{},
		RequiredAcks:           kafkago.RequireOne,
		AllowAutoTopicCreation: true,
	}
	for topic, h := range c.handlers {
		c.startKafkaReader(topic, h)
	}
	return nil
}

func (c *BrokerTransport) dialKafkaSeed(ctx context.Context) error {
	if len(c.cfg.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka connect: no brokers configured")
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
	}
	var lastErr error
	for _, addr := range c.cfg.Kafka.Brokers {
		conn, err := kafkago.DialContext(ctx, "tcp", addr)
		if err != nil {
			lastErr = err
			continue
		}
		conn.Close()
		return nil
	}
	return fmt.Errorf("kafka connect: %w", lastErr)
}

func (c *BrokerTransport) startKafkaReader(dest string, handler func([]byte)) {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers: c.cfg.Kafka.Brokers,
		Topic:   KafkaTopic(dest),
		GroupID: c.cfg.Kafka.GroupID,
	})
	c.kafkaR = append(c.kafkaR, r)
	go func() {
		for {
			msg, err := r.ReadMessage(context.Background())
			if err != nil {
				c.logFn("messaging: kafka read %s: %v", dest, err)
				return
			}
			handler(msg.Value)
		}
	}()
}

// Publish sends a message to the given destination.
func (c *BrokerTransport) Publish(dest string, payload []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch c.backend {
	case "mqtt":
		if c.mqttConn == nil || !c.mqttConn.IsConnected() {
			return ErrNotConnected
		}
		token := c.mqttConn.Publish(dest, 1, false, payload)
		token.Wait()
		return token.Error()
	case "kafka":
		if c.kafkaW == nil {
			return ErrNotConnected
		}
		return c.kafkaW.WriteMessages(context.Background(), kafkago.Message{
			Topic: KafkaTopic(dest),
			Value: payload,
		})
	default:
		return fmt.Errorf("unknown backend: %s", c.backend)
	}
}

// Subscribe registers a handler for messages on dest.
func (c *BrokerTransport) Subscribe(dest string, handler func([]byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[dest] = handler

	switch c.backend {
	case "mqtt":
		if c.mqttConn == nil {
			return nil
		}
		return c.subscribeMQTT(c.mqttConn, dest, handler)
	case "kafka":
		if c.kafkaW != nil {
			c.startKafkaReader(dest, handler)
		}
		return nil
	default:
		return fmt.Errorf("unknown backend: %s", c.backend)
	}
}

// IsConnected returns whether the messaging client is connected.
func (c *BrokerTransport) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	switch c.backend {
	case "mqtt":
		return c.mqttConn != nil && c.mqttConn.IsConnected()
	case "kafka":
		return c.kafkaW != nil
	default:
		return false
	}
}

// Close shuts down the messaging connection.
func (c *BrokerTransport) Close() {
	c.mu.Lock()
	was := c.mqttConn != nil || c.kafkaW != nil
	if c.mqttConn != nil {
		c.mqttConn.Disconnect(1000)
		c.mqttConn = nil
	}
	if c.kafkaW != nil {
		c.kafkaW.Close()
		c.kafkaW = nil
	}
	for _, r := range c.kafkaR {
		r.Close()
	}
	c.kafkaR = nil
	c.mu.Unlock()
	if was {
		c.notify(false, nil)
	}
}

func (c *BrokerTransport) notify(connected bool, err error) {
	c.mu.RLock()
	fn := c.status
	c.mu.RUnlock()
	if fn != nil {
		fn(connected, err)
	}
}
