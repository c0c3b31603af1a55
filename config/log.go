package config

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/storeops/opsrelay/utils"
)

type Log struct {
	Level string `yaml:"level"`
	Mode  string `yaml:"mode"`
}

var (
	errLogInvalidLevel = errors.New("invalid log level")
	errLogInvalidMode  = errors.New("invalid log mode")
)

func (cfg *Log) Validate() error {
	errs := make([]error, 0)

	{ // Level
		if _, err := zap.ParseAtomicLevel(cfg.Level); err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %w",
				errLogInvalidLevel, cfg.Level, err,
			))
		}
	}

	{ // Mode
		switch strings.ToLower(cfg.Mode) {
		case "dev", "prod":
		default:
			errs = append(errs, fmt.Errorf("%w: must be one of dev, prod: %s",
				errLogInvalidMode, cfg.Mode,
			))
		}
	}

	return utils.FlattenErrors(errs)
}
