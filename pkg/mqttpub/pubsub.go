// Package mqttpub adapts the teacher repo's PubSub wrapper around
// paho.mqtt.golang into a minimal publish-only client, which is all the
// result-report sink (pkg/report) needs.
package mqttpub

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

const (
	connTimeout    = 10 * time.Second
	disconnTimeout = 250
)

var (
	errEmptyTopic     = errors.New("mqttpub: empty topic")
	errPublishTimeout = errors.New("mqttpub: publish timed out")
)

// Publisher is the narrow capability pkg/report needs: publish one JSON
// message to a topic. A real PubSub (subscribe included) lives in a larger
// deployment; the scheduler core only ever publishes reports.
type Publisher interface {
	Publish(ctx context.Context, topic string, msg any) error
	Disconnect(ctx context.Context) error
}

type client struct {
	mqtt    mqtt.Client
	qos     byte
	timeout time.Duration
	logger  *slog.Logger
}

// Options configures a new MQTT publisher.
type Options struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string
	QoS       byte
	Timeout   time.Duration
	CAPath    string
	CertPath  string
	KeyPath   string
	Logger    *slog.Logger
}

// New connects to the broker and returns a Publisher. A blank ClientID is
// filled in with a random one, following the teacher's practice of
// stamping generated records with uuid.NewString() rather than requiring
// the caller to invent an identifier.
func New(opts Options) (Publisher, error) {
	if opts.ClientID == "" {
		opts.ClientID = "schedrt-" + uuid.NewString()
	}
	if opts.Timeout == 0 {
		opts.Timeout = connTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mopts := mqtt.NewClientOptions().
		AddBroker(opts.BrokerURL).
		SetClientID(opts.ClientID).
		SetUsername(opts.Username).
		SetPassword(opts.Password).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectTimeout(opts.Timeout)

	if err := applyTLSConfig(mopts, opts.CAPath, opts.CertPath, opts.KeyPath); err != nil {
		return nil, err
	}

	mopts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("mqtt connection lost", "error", err)
	})

	c := mqtt.NewClient(mopts)
	token := c.Connect()
	if token.Error() != nil {
		return nil, fmt.Errorf("mqttpub: connect: %w", token.Error())
	}
	if ok := token.WaitTimeout(opts.Timeout); !ok {
		return nil, fmt.Errorf("mqttpub: timed out connecting to %s", opts.BrokerURL)
	}

	return &client{mqtt: c, qos: opts.QoS, timeout: opts.Timeout, logger: logger}, nil
}

func (c *client) Publish(_ context.Context, topic string, msg any) error {
	if topic == "" {
		return errEmptyTopic
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("mqttpub: marshal: %w", err)
	}
	token := c.mqtt.Publish(topic, c.qos, false, data)
	if token.Error() != nil {
		return token.Error()
	}
	if ok := token.WaitTimeout(c.timeout); !ok {
		return errPublishTimeout
	}
	return nil
}

func (c *client) Disconnect(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		c.mqtt.Disconnect(disconnTimeout)
		return nil
	}
}

func applyTLSConfig(opts *mqtt.ClientOptions, caPath, certPath, keyPath string) error {
	if caPath == "" {
		return nil
	}
	caCert, err := os.ReadFile(caPath)
	if err != nil {
		return fmt.Errorf("mqttpub: read CA cert: %w", err)
	}
	pool := x509.NewCertPool()
	if ok := pool.AppendCertsFromPEM(caCert); !ok {
		return errors.New("mqttpub: failed to parse CA cert")
	}
	tlsCfg := &tls.Config{RootCAs: pool}
	if certPath != "" && keyPath != "" {
		cert, err := tls.LoadX509KeyPair(certPath, keyPath)
		if err != nil {
			return fmt.Errorf("mqttpub: load client key pair: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}
	opts.SetTLSConfig(tlsCfg)
	return nil
}
