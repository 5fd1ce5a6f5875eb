// Package mqtt mirrors live events onto an MQTT broker so that devices and
// dashboards outside the browser can follow new reports.
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

var ErrNotConnected = errors.New("mqtt not connected")

// Config は MQTT ブローカーへの接続設定。
type Config struct {
	Broker      string
	ClientID    string
	TopicPrefix string
	QoS         byte
	Logger      *log.Logger
}

// Publisher は live.Sink を満たし、イベントを <prefix>/<eventType> に配信する。
type Publisher struct {
	cfg    Config
	client paho.Client

	mu        sync.RWMutex
	connected bool
	published uint64
	failures  uint64
}

func NewPublisher(cfg Config) *Publisher {
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "hushmap"
	}
	return &Publisher{cfg: cfg}
}

// Connect はブローカーに接続する。切断後は paho が自動で再接続する。
func (p *Publisher) Connect(ctx context.Context) error {
	opts := paho.NewClientOptions()
	opts.AddBroker(brokerURL(p.cfg.Broker))
	opts.SetClientID(p.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c paho.Client) {
		p.setConnected(true)
		p.logf("MQTT ブローカーに接続しました: broker=%s client_id=%s", p.cfg.Broker, p.cfg.ClientID)
	}
	opts.OnConnectionLost = func(c paho.Client, err error) {
		p.setConnected(false)
		p.logf("MQTT 接続が切れました (自動再接続します): %v", err)
	}

	p.client = paho.NewClient(opts)

	timeout := 5 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	token := p.client.Connect()
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connection failed: %w", err)
	}
	p.setConnected(true)
	return nil
}

// Publish は 1 フレームを送信する。未接続時はエラーを返し、呼び出し側でログに残す。
func (p *Publisher) Publish(eventType string, frame []byte) error {
	if p.client == nil || !p.isConnected() {
		p.countFailure()
		return ErrNotConnected
	}

	topic := p.Topic(eventType)
	token := p.client.Publish(topic, p.cfg.QoS, false, frame)
	if !token.WaitTimeout(2 * time.Second) {
		p.countFailure()
		return fmt.Errorf("publish %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		p.countFailure()
		return fmt.Errorf("publish %s: %w", topic, err)
	}

	p.mu.Lock()
	p.published++
	p.mu.Unlock()
	return nil
}

func (p *Publisher) Topic(eventType string) string {
	return strings.TrimSuffix(p.cfg.TopicPrefix, "/") + "/" + eventType
}

func (p *Publisher) Disconnect() {
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(250)
		p.logf("MQTT から切断しました")
	}
	p.setConnected(false)
}

// Stats returns the publish and failure counters.
func (p *Publisher) Stats() (published, failures uint64) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.published, p.failures
}

func (p *Publisher) setConnected(v bool) {
	p.mu.Lock()
	p.connected = v
	p.mu.Unlock()
}

func (p *Publisher) isConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.connected
}

func (p *Publisher) countFailure() {
	p.mu.Lock()
	p.failures++
	p.mu.Unlock()
}

func (p *Publisher) logf(format string, args ...any) {
	if p.cfg.Logger != nil {
		p.cfg.Logger.Printf(format, args...)
	}
}

func brokerURL(broker string) string {
	if strings.Contains(broker, "://") {
		return broker
	}
	return "tcp://" + broker
}
