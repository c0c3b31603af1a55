package config

import (
	"errors"
	"fmt"
	"net"
)

// DefaultMetricsListenAddress is where prometheus scrapes the relay.
const DefaultMetricsListenAddress = "0.0.0.0:6785"

var errMetricsInvalidListenAddress = errors.New("invalid metrics listen address")

// Metrics configures the server that exposes relay metrics in prometheus
// format.
type Metrics struct {
	ListenAddress string `yaml:"listen_address"`
}

func (cfg *Metrics) Validate() error {
	addr, err := net.ResolveTCPAddr("tcp", cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("%w: %s: %w",
			errMetricsInvalidListenAddress, cfg.ListenAddress, err,
		)
	}
	if addr.Port == 0 {
		return fmt.Errorf("%w: %s: port must be set",
			errMetricsInvalidListenAddress, cfg.ListenAddress,
		)
	}

	return nil
}
