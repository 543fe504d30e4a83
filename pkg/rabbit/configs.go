package rabbit

type Config struct {
	Connection Connection
	Channel    Channel
}

type Connection struct {
	Host         string `envconfig:"RABBIT_HOST"`
	Port         uint   `envconfig:"RABBIT_PORT"`
	User         string `envconfig:"RABBIT_USER"`
	Password     string `envconfig:"RABBIT_PASSWORD"`
	IsSSLEnabled bool   `envconfig:"RABBIT_SSL_ENABLED"`
}

type Channel struct {
	ExchangeName string `envconfig:"RABBIT_EXCHANGE_NAME"`
	ExchangeType string `envconfig:"RABBIT_EXCHANGE_TYPE"`
	RoutingKey   string `envconfig:"RABBIT_ROUTING_KEY"`
	ContentType  string `envconfig:"RABBIT_CONTENT_TYPE"`
}
