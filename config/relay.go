package config

import (
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/storeops/opsrelay/utils"
)

type Relay struct {
	BackendTimeout              time.Duration `yaml:"backend_timeout"`
	ClientIdleConnectionTimeout time.Duration `yaml:"client_idle_connection_timeout"`
	ForwardStatus               bool          `yaml:"forward_status"`
	ListenAddress               string        `yaml:"listen_address"`
	LogResponses                bool          `yaml:"log_responses"`
	LogResponsesMaxSize         int           `yaml:"log_responses_max_size"`
	MaxClientConnectionsPerIP   int           `yaml:"max_client_connections_per_ip"`
	MaxResponseSizeMb           int           `yaml:"max_response_size_mb"`
	TLSCertificate              string        `yaml:"tls_crt"`
	TLSKey                      string        `yaml:"tls_key"`
}

var (
	errRelayInvalidBackendTimeout              = errors.New("invalid backend timeout")
	errRelayInvalidClientIdleConnectionTimeout = errors.New("invalid client idle connection timeout")
	errRelayInvalidListenAddress               = errors.New("invalid relay listen address")
	errRelayInvalidLogResponsesMaxSize         = errors.New("invalid max size of logged responses")
	errRelayInvalidMaxClientConnectionsPerIP   = errors.New("invalid max client connections per ip")
	errRelayInvalidMaxResponseSize             = errors.New("invalid max response size")
	errRelayInvalidTLSConfig                   = errors.New("invalid tls configuration")
)

func (cfg *Relay) Validate() error {
	errs := make([]error, 0)

	{ // BackendTimeout
		if cfg.BackendTimeout <= 0 {
			errs = append(errs, fmt.Errorf("%w: must be positive: %s",
				errRelayInvalidBackendTimeout, cfg.BackendTimeout,
			))
		}
		if cfg.BackendTimeout > 5*time.Minute {
			errs = append(errs, fmt.Errorf("%w: too high, must be <=5m: %s",
				errRelayInvalidBackendTimeout, cfg.BackendTimeout,
			))
		}
	}

	{ // ClientIdleConnectionTimeout
		if cfg.ClientIdleConnectionTimeout <= 0 {
			errs = append(errs, fmt.Errorf("%w: must be positive: %s",
				errRelayInvalidClientIdleConnectionTimeout, cfg.ClientIdleConnectionTimeout,
			))
		}
		if cfg.ClientIdleConnectionTimeout > time.Hour {
			errs = append(errs, fmt.Errorf("%w: too high, must be <=1h: %s",
				errRelayInvalidClientIdleConnectionTimeout, cfg.ClientIdleConnectionTimeout,
			))
		}
	}

	{ // ListenAddress
		if _, err := net.ResolveTCPAddr("tcp", cfg.ListenAddress); err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %w",
				errRelayInvalidListenAddress, cfg.ListenAddress, err,
			))
		}
	}

	{ // LogResponsesMaxSize
		if cfg.LogResponsesMaxSize < 0 {
			errs = append(errs, fmt.Errorf("%w: can't be negative: %d",
				errRelayInvalidLogResponsesMaxSize, cfg.LogResponsesMaxSize,
			))
		}
	}

	{ // MaxClientConnectionsPerIP
		if cfg.MaxClientConnectionsPerIP < 0 {
			errs = append(errs, fmt.Errorf("%w: can't be negative: %d",
				errRelayInvalidMaxClientConnectionsPerIP, cfg.MaxClientConnectionsPerIP,
			))
		}
		if cfg.MaxClientConnectionsPerIP > 1024 {
			errs = append(errs, fmt.Errorf("%w: too high, must be <=1024: %d",
				errRelayInvalidMaxClientConnectionsPerIP, cfg.MaxClientConnectionsPerIP,
			))
		}
	}

	{ // MaxResponseSizeMb
		if cfg.MaxResponseSizeMb < 1 {
			errs = append(errs, fmt.Errorf("%w: too low, must be >=1: %d",
				errRelayInvalidMaxResponseSize, cfg.MaxResponseSizeMb,
			))
		}
		if cfg.MaxResponseSizeMb > 1024 {
			errs = append(errs, fmt.Errorf("%w: too high, must be <=1024: %d",
				errRelayInvalidMaxResponseSize, cfg.MaxResponseSizeMb,
			))
		}
	}

	{ // TLSCertificate + TLSKey
		if cfg.TLSCertificate != "" || cfg.TLSKey != "" {
			if cfg.TLSCertificate == "" {
				errs = append(errs, fmt.Errorf("%w: tls certificate must also be configured",
					errRelayInvalidTLSConfig,
				))
			} else if cfg.TLSKey == "" {
				errs = append(errs, fmt.Errorf("%w: tls key must also be configured",
					errRelayInvalidTLSConfig,
				))
			} else if _, err := cfg.LoadTLSCertificate(); err != nil {
				errs = append(errs, fmt.Errorf("%w: %w",
					errRelayInvalidTLSConfig, err,
				))
			}
		}
	}

	return utils.FlattenErrors(errs)
}

func (cfg *Relay) TLSEnabled() bool {
	return cfg.TLSCertificate != "" && cfg.TLSKey != ""
}

// LoadTLSCertificate accepts both plain and base64-encoded pem files.
func (cfg *Relay) LoadTLSCertificate() (tls.Certificate, error) {
	crt, err := os.ReadFile(cfg.TLSCertificate)
	if err != nil {
		return tls.Certificate{}, err
	}
	key, err := os.ReadFile(cfg.TLSKey)
	if err != nil {
		return tls.Certificate{}, err
	}

	if decoded, err := base64.StdEncoding.DecodeString(string(crt)); err == nil {
		crt = decoded
	}
	if decoded, err := base64.StdEncoding.DecodeString(string(key)); err == nil {
		key = decoded
	}

	return tls.X509KeyPair(crt, key)
}
