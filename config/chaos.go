package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/storeops/opsrelay/utils"
)

type Chaos struct {
	Enabled bool `yaml:"enabled"`

	InjectedHttpErrorProbability float64       `yaml:"injected_http_error_probability"`
	MaxInjectedLatency           time.Duration `yaml:"max_injected_latency"`
	MinInjectedLatency           time.Duration `yaml:"min_injected_latency"`
}

var (
	errChaosInvalidInjectedHttpErrorProbability = errors.New("injected http error probability must be in [0, 100] range")
	errChaosInvalidMaxInjectedLatency           = errors.New("invalid max injected latency")
	errChaosInvalidMinInjectedLatency           = errors.New("invalid min injected latency")
)

func (cfg *Chaos) Validate() error {
	if !cfg.Enabled {
		return nil
	}

	errs := make([]error, 0)

	{ // min injected latency
		if cfg.MinInjectedLatency < 0 {
			errs = append(errs, fmt.Errorf("%w: can not be negative: %s",
				errChaosInvalidMinInjectedLatency, cfg.MinInjectedLatency,
			))
		}
		if cfg.MinInjectedLatency > time.Minute {
			errs = append(errs, fmt.Errorf("%w: can not be more than 1 minute: %s",
				errChaosInvalidMinInjectedLatency, cfg.MinInjectedLatency,
			))
		}

		if cfg.MaxInjectedLatency == 0 {
			cfg.MaxInjectedLatency = cfg.MinInjectedLatency
		}
	}

	{ // max injected latency
		if cfg.MaxInjectedLatency < 0 {
			errs = append(errs, fmt.Errorf("%w: can not be negative: %s",
				errChaosInvalidMaxInjectedLatency, cfg.MaxInjectedLatency,
			))
		}
		if cfg.MaxInjectedLatency > time.Minute {
			errs = append(errs, fmt.Errorf("%w: can not be more than 1 minute: %s",
				errChaosInvalidMaxInjectedLatency, cfg.MaxInjectedLatency,
			))
		}
		if cfg.MaxInjectedLatency < cfg.MinInjectedLatency {
			errs = append(errs, fmt.Errorf("%w: can not be less than min injected latency: %s < %s",
				errChaosInvalidMaxInjectedLatency, cfg.MaxInjectedLatency, cfg.MinInjectedLatency,
			))
		}
	}

	{ // injected http error probability
		if cfg.InjectedHttpErrorProbability < 0 || cfg.InjectedHttpErrorProbability > 100 {
			errs = append(errs, fmt.Errorf("%w: %f",
				errChaosInvalidInjectedHttpErrorProbability, cfg.InjectedHttpErrorProbability,
			))
		}
	}

	return utils.FlattenErrors(errs)
}
