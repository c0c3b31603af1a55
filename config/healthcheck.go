package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/storeops/opsrelay/utils"
)

type Healthcheck struct {
	Enabled            bool          `yaml:"enabled"`
	Interval           time.Duration `yaml:"interval"`
	Path               string        `yaml:"path"`
	ThresholdHealthy   int           `yaml:"threshold_healthy"`
	ThresholdUnhealthy int           `yaml:"threshold_unhealthy"`
}

var (
	errHealthcheckInvalidInterval           = errors.New("invalid healthcheck interval")
	errHealthcheckInvalidPath               = errors.New("invalid healthcheck path")
	errHealthcheckInvalidThresholdHealthy   = errors.New("invalid healthcheck healthy threshold")
	errHealthcheckInvalidThresholdUnhealthy = errors.New("invalid healthcheck unhealthy threshold")
)

func (cfg *Healthcheck) Validate() error {
	if !cfg.Enabled {
		return nil
	}

	errs := make([]error, 0)

	{ // Interval
		if cfg.Interval < time.Second {
			errs = append(errs, fmt.Errorf("%w: too low, must be >=1s: %s",
				errHealthcheckInvalidInterval, cfg.Interval,
			))
		}
		if cfg.Interval > time.Minute {
			errs = append(errs, fmt.Errorf("%w: too high, must be <=1m: %s",
				errHealthcheckInvalidInterval, cfg.Interval,
			))
		}
	}

	{ // Path
		if !strings.HasPrefix(cfg.Path, "/") {
			errs = append(errs, fmt.Errorf("%w: must start with '/': %s",
				errHealthcheckInvalidPath, cfg.Path,
			))
		}
	}

	{ // ThresholdHealthy
		if cfg.ThresholdHealthy < 1 {
			errs = append(errs, fmt.Errorf("%w: too low, must be >=1: %d",
				errHealthcheckInvalidThresholdHealthy, cfg.ThresholdHealthy,
			))
		}
		if cfg.ThresholdHealthy > 10 {
			errs = append(errs, fmt.Errorf("%w: too high, must be <=10: %d",
				errHealthcheckInvalidThresholdHealthy, cfg.ThresholdHealthy,
			))
		}
	}

	{ // ThresholdUnhealthy
		if cfg.ThresholdUnhealthy < 1 {
			errs = append(errs, fmt.Errorf("%w: too low, must be >=1: %d",
				errHealthcheckInvalidThresholdUnhealthy, cfg.ThresholdUnhealthy,
			))
		}
		if cfg.ThresholdUnhealthy > 10 {
			errs = append(errs, fmt.Errorf("%w: too high, must be <=10: %d",
				errHealthcheckInvalidThresholdUnhealthy, cfg.ThresholdUnhealthy,
			))
		}
	}

	return utils.FlattenErrors(errs)
}
