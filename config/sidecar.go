package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/storeops/opsrelay/utils"
)

// Sidecar describes the co-located service-invocation sidecar and the
// apps/methods the relay reaches through it.
type Sidecar struct {
	Host     string `yaml:"host"`
	HTTPPort int    `yaml:"http_port"`

	OrdersApp    string `yaml:"orders_app"`
	OrdersMethod string `yaml:"orders_method"`

	QueueApp    string `yaml:"queue_app"`
	QueueMethod string `yaml:"queue_method"`
}

const (
	DefaultSidecarHTTPPort = 3603

	invokePathPrefix = "/v1.0/invoke/"
)

var (
	errSidecarInvalidApp    = errors.New("invalid sidecar app id")
	errSidecarInvalidHost   = errors.New("invalid sidecar host")
	errSidecarInvalidMethod = errors.New("invalid sidecar method")
	errSidecarInvalidPort   = errors.New("invalid sidecar http port")
)

func (cfg *Sidecar) Validate() error {
	errs := make([]error, 0)

	{ // Host
		if strings.TrimSpace(cfg.Host) == "" {
			errs = append(errs, fmt.Errorf("%w: must not be empty",
				errSidecarInvalidHost,
			))
		}
	}

	{ // HTTPPort
		if cfg.HTTPPort < 1 || cfg.HTTPPort > 65535 {
			errs = append(errs, fmt.Errorf("%w: must be in [1, 65535]: %d",
				errSidecarInvalidPort, cfg.HTTPPort,
			))
		}
	}

	for _, app := range []struct{ name, value string }{
		{"orders", cfg.OrdersApp},
		{"queue", cfg.QueueApp},
	} {
		if strings.TrimSpace(app.value) == "" {
			errs = append(errs, fmt.Errorf("%w: %s app must not be empty",
				errSidecarInvalidApp, app.name,
			))
		} else if strings.Contains(app.value, "/") {
			errs = append(errs, fmt.Errorf("%w: %s app must not contain '/': %s",
				errSidecarInvalidApp, app.name, app.value,
			))
		}
	}

	for _, method := range []struct{ name, value string }{
		{"orders", cfg.OrdersMethod},
		{"queue", cfg.QueueMethod},
	} {
		if strings.TrimSpace(method.value) == "" {
			errs = append(errs, fmt.Errorf("%w: %s method must not be empty",
				errSidecarInvalidMethod, method.name,
			))
		} else if strings.HasPrefix(method.value, "/") {
			errs = append(errs, fmt.Errorf("%w: %s method must not start with '/': %s",
				errSidecarInvalidMethod, method.name, method.value,
			))
		}
	}

	return utils.FlattenErrors(errs)
}

// Address returns host:port of the sidecar's http endpoint.
func (cfg *Sidecar) Address() string {
	return net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.HTTPPort))
}

// InvokeURL builds the service-invocation url for the method of the app.
func (cfg *Sidecar) InvokeURL(app, method string) string {
	return "http://" + cfg.Address() + invokePathPrefix + url.PathEscape(app) + "/method/" + method
}

func (cfg *Sidecar) OrdersURL() string {
	return cfg.InvokeURL(cfg.OrdersApp, cfg.OrdersMethod)
}

func (cfg *Sidecar) QueueURL() string {
	return cfg.InvokeURL(cfg.QueueApp, cfg.QueueMethod)
}

// URL builds a url of an arbitrary sidecar endpoint (e.g. its healthz).
func (cfg *Sidecar) URL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return "http://" + cfg.Address() + path
}
