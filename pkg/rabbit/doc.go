// Package rabbit provides the RabbitMQ publisher used to emit listing
// change events.
//
// The client dials the broker from environment configuration
// (RABBIT_HOST, RABBIT_PORT, RABBIT_USER, RABBIT_PASSWORD, plus exchange
// settings), opens a channel with publisher confirms, and declares the
// target exchange. A background loop watches for connection closure and
// re-establishes both connection and channel until shutdown.
//
// Only the publishing side of AMQP is implemented; the catalog service
// has no inbound queues. Messages go out with Publish (configured
// routing key) or PublishWithKey.
package rabbit
