package postgres

import "time"

type Config struct {
	Connection        Connection
	ConnectionDetails ConnectionDetails
}

type Connection struct {
	Host     string `envconfig:"DATABASE_HOST"`
	Port     string `envconfig:"DATABASE_PORT"`
	User     string `envconfig:"DATABASE_USER"`
	Password string `envconfig:"DATABASE_PASSWORD"`
	DbName   string `envconfig:"DATABASE_NAME"`
	SSLMode  string `envconfig:"DATABASE_SSL_MODE"`
}

type ConnectionDetails struct {
	MaxOpenConns    int           `envconfig:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `envconfig:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `envconfig:"DATABASE_CONN_MAX_LIFETIME"`
}
