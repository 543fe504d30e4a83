package api

// Default listen address for the HTTP API if none is specified.
const DefaultHTTPAddress = ":8080"

type Config struct {
	// Address is the network address the HTTP API listens on.
	Address string `yaml:"address" envconfig:"HTTP_ADDRESS"`
}
