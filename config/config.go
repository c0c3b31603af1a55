package config

import (
	"reflect"

	"github.com/storeops/opsrelay/utils"
)

type Config struct {
	Chaos       *Chaos       `yaml:"chaos"`
	Healthcheck *Healthcheck `yaml:"healthcheck"`
	Log         *Log         `yaml:"log"`
	Metrics     *Metrics     `yaml:"metrics"`
	Relay       *Relay       `yaml:"relay"`
	Sidecar     *Sidecar     `yaml:"sidecar"`
}

type validatee interface {
	Validate() error
}

func New() *Config {
	return &Config{
		Chaos:       &Chaos{},
		Healthcheck: &Healthcheck{},
		Log:         &Log{},
		Metrics:     &Metrics{},
		Relay:       &Relay{},
		Sidecar:     &Sidecar{},
	}
}

func (c *Config) Validate() error {
	return validate(c)
}

func validate(item interface{}) error {
	v := reflect.ValueOf(item)

	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return nil
	}

	errs := []error{}
	for idx := 0; idx < v.NumField(); idx++ {
		field := v.Field(idx)

		if !field.CanInterface() {
			continue
		}

		if field.Kind() == reflect.Ptr && field.IsNil() {
			continue
		}

		if v, ok := field.Interface().(validatee); ok {
			if err := v.Validate(); err != nil {
				errs = append(errs, err)
			}
		}

		if field.Kind() == reflect.Ptr {
			field = field.Elem()
		}

		switch field.Kind() {
		case reflect.Struct:
			if err := validate(field.Addr().Interface()); err != nil {
				errs = append(errs, err)
			}
		case reflect.Slice, reflect.Array:
			for jdx := 0; jdx < field.Len(); jdx++ {
				if err := validate(field.Index(jdx).Interface()); err != nil {
					errs = append(errs, err)
				}
			}
		}
	}

	return utils.FlattenErrors(errs)
}
