package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Client owns the broker connection shared by the sensor Subscriber and the alert Publisher
type Client struct {
	client mqtt.Client
	config ClientConfig

	mu          sync.Mutex
	connects    int
	onReconnect []func()
}

// ClientConfig holds MQTT client configuration
type ClientConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string

	// ConnectRetryInterval is the delay between initial connection attempts
	ConnectRetryInterval time.Duration
	// ConnectTimeout bounds how long NewClient waits for the first connection
	ConnectTimeout time.Duration
}

func (c ClientConfig) retryInterval() time.Duration {
	if c.ConnectRetryInterval <= 0 {
		return 5 * time.Second
	}
	return c.ConnectRetryInterval
}

func (c ClientConfig) connectTimeout() time.Duration {
	if c.ConnectTimeout <= 0 {
		return 30 * time.Second
	}
	return c.ConnectTimeout
}

// NewClient connects to the broker, retrying until ConnectTimeout elapses
func NewClient(config ClientConfig) (*Client, error) {
	c := &Client{config: config}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)
	opts.SetCleanSession(false)
	opts.SetUsername(config.Username)
	opts.SetPassword(config.Password)
	opts.SetOnConnectHandler(c.handleConnect)
	opts.SetConnectionLostHandler(c.handleConnectionLost)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(config.retryInterval())
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	c.client = mqtt.NewClient(opts)

	token := c.client.Connect()
	if !token.WaitTimeout(config.connectTimeout()) {
		c.client.Disconnect(0)
		return nil, fmt.Errorf("timed out connecting to MQTT broker %s", config.Broker)
	}
	if token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	log.Println("MQTT Client: Connected to broker:", config.Broker)

	return c, nil
}

// OnReconnect registers fn to run every time the connection is re-established
// after the first successful connect (e.g. to restore subscriptions)
func (c *Client) OnReconnect(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onReconnect = append(c.onReconnect, fn)
}

// GetNativeClient returns the underlying paho MQTT client
// This is used by Subscriber and Publisher
func (c *Client) GetNativeClient() mqtt.Client {
	return c.client
}

// IsConnected returns whether the client is currently connected
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

// Close closes the MQTT client connection
func (c *Client) Close() {
	c.client.Disconnect(250)
	log.Println("MQTT Client: Disconnected")
}

func (c *Client) handleConnect(mqtt.Client) {
	c.mu.Lock()
	c.connects++
	first := c.connects == 1
	hooks := append([]func(){}, c.onReconnect...)
	c.mu.Unlock()

	if first {
		log.Println("MQTT Client: Connection established")
		return
	}

	log.Printf("MQTT Client: Reconnected to %s, running %d hooks", c.config.Broker, len(hooks))
	for _, fn := range hooks {
		fn()
	}
}

func (c *Client) handleConnectionLost(_ mqtt.Client, err error) {
	log.Printf("MQTT Client: Connection lost: %v", err)
}
