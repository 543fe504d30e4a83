package rabbit

import (
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Logger defines the interface for logging operations in the rabbit package.
//
//go:generate mockgen -source=setup.go -destination=mock_logger.go -package=rabbit
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Debug(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
	Fatal(msg string, err error, fields ...map[string]interface{})
}

// Rabbit is a publisher client for RabbitMQ. It manages the connection
// and channel, declares the target exchange, and reconnects automatically
// when the broker drops the connection.
type Rabbit struct {
	cfg Config

	// Channel is the AMQP channel messages are published on.
	Channel *amqp.Channel

	conn   *amqp.Connection
	logger Logger

	mu sync.RWMutex

	// shutdownSignal is closed when the client is being shut down
	shutdownSignal chan struct{}
}

// NewClient establishes the initial connection and channel. A failure to
// connect or to declare the exchange is fatal; the service cannot emit
// change events without a broker.
func NewClient(config Config, logger Logger) *Rabbit {
	con, err := newConnection(config, logger)
	if err != nil {
		logger.Fatal("error in connecting to rabbit", err, nil)
	}

	ch, err := connectToChannel(con, config, logger)
	if ch == nil || err != nil {
		logger.Fatal("error in declaring channel", err, nil)
	}

	return &Rabbit{
		cfg:            config,
		conn:           con,
		Channel:        ch,
		logger:         logger,
		shutdownSignal: make(chan struct{}),
	}
}

// connectToChannel opens a channel with publisher confirms enabled and
// declares the configured exchange. Publishers declare the exchange
// themselves because nothing on the consuming side is under this
// service's control.
func connectToChannel(conn *amqp.Connection, cfg Config, logger Logger) (*amqp.Channel, error) {
	ch, err := conn.Channel()
	if err != nil {
		logger.Error("failed to create channel", err, nil)
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	if err = ch.Confirm(false); err != nil {
		logger.Error("failed to enable publisher confirms", err, nil)
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	exchangeType := cfg.Channel.ExchangeType
	if exchangeType == "" {
		exchangeType = "topic"
	}

	err = ch.ExchangeDeclare(
		cfg.Channel.ExchangeName,
		exchangeType,
		true,  // Durable
		false, // AutoDelete
		false, // Internal
		false, // NoWait
		nil,   // Arguments
	)
	if err != nil {
		logger.Error("failed to declare exchange", err, map[string]interface{}{
			"exchange": cfg.Channel.ExchangeName,
		})
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return ch, nil
}

// retryConnection monitors the connection for closure events and
// re-establishes the connection and channel until shutdown is requested.
func (rb *Rabbit) retryConnection(logger Logger, cfg Config) {
outerLoop:
	for {
		errChan := make(chan *amqp.Error, 1)
		rb.conn.NotifyClose(errChan)

		select {
		case <-rb.shutdownSignal:
			logger.Info("Stopping retryConnection loop due to shutdown signal", nil, nil)
			return

		case amqpErr := <-errChan:
			logger.Warn("RabbitMQ connection closed, retrying...", amqpErr, nil)
		reconnectLoop:
			for {
				select {
				case <-rb.shutdownSignal:
					logger.Info("Stopping retryConnection loop due to shutdown signal inside reconnect", nil, nil)
					return
				default:
					newConn, err := newConnection(cfg, logger)
					if err != nil {
						logger.Error("Reconnection failed", err, nil)
						time.Sleep(time.Second)
						continue reconnectLoop
					}

					rb.mu.Lock()
					rb.conn = newConn
					if rb.Channel != nil {
						_ = rb.Channel.Close()
					}
					rb.Channel, err = connectToChannel(newConn, cfg, logger)
					rb.mu.Unlock()

					if err != nil {
						logger.Error("Failed to reopen channel, retrying...", err, nil)
						continue reconnectLoop
					}

					logger.Info("Reconnected to RabbitMQ", nil, nil)
					continue outerLoop
				}
			}
		}
	}
}

// newConnection dials the broker over amqp or amqps depending on the
// configuration. All connections use a 2-second heartbeat so broken
// connections are detected quickly.
func newConnection(cfg Config, logger Logger) (*amqp.Connection, error) {
	logger.Info("Connecting to Rabbit", nil, nil)

	scheme := "amqp"
	if cfg.Connection.IsSSLEnabled {
		scheme = "amqps"
	}

	hostURL := fmt.Sprintf("%v://%v:%v@%v:%v", scheme, cfg.Connection.User, cfg.Connection.Password, cfg.Connection.Host, cfg.Connection.Port)
	conn, err := amqp.DialConfig(hostURL, amqp.Config{
		Heartbeat: 2 * time.Second,
	})
	if err != nil {
		logger.Error("error in connecting to rabbit", err, map[string]interface{}{
			"rabbit_host": cfg.Connection.Host,
		})
		return nil, fmt.Errorf("failed to connect to Rabbit: %w", err)
	}

	logger.Info("Connected to Rabbit", nil, map[string]interface{}{
		"rabbit_host": cfg.Connection.Host,
	})
	return conn, nil
}
