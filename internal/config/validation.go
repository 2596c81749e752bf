package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// fieldKeys maps Go field names to their config keys, for validator params
// such as required_without that name a sibling field.
var fieldKeys = collectFieldKeys(reflect.TypeOf(Config{}), map[string]string{})

// newValidator reports fields by their mapstructure key so messages name
// what users actually write in the config file.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return mapstructureKey(f)
	})
	return v
}

func mapstructureKey(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}

func collectFieldKeys(t reflect.Type, keys map[string]string) map[string]string {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		keys[f.Name] = mapstructureKey(f)
		if f.Type.Kind() == reflect.Struct && f.Type.PkgPath() == t.PkgPath() {
			collectFieldKeys(f.Type, keys)
		}
	}
	return keys
}

// paramKey returns the config key of a sibling field named in a validator
// param.
func paramKey(param string) string {
	if key, ok := fieldKeys[param]; ok {
		return key
	}
	return strings.ToLower(param)
}

// Validate checks struct constraints and then the SMB settings' own rules
// (path segments, NT hash format).
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return formatValidationErrors(verrs)
		}
		return err
	}

	if err := cfg.SMBConfig().Validate(); err != nil {
		return err
	}

	// A write that outlives the request would answer 500 after chi's timeout
	// handler has already been armed to send 504.
	if cfg.SMB.OpTimeout > 0 && cfg.Server.RequestTimeout <= cfg.SMB.OpTimeout {
		return fmt.Errorf("server.request_timeout (%s) must be greater than smb.op_timeout (%s)",
			cfg.Server.RequestTimeout, cfg.SMB.OpTimeout)
	}

	return nil
}

// formatValidationErrors turns validator output into one readable error
// naming config keys rather than Go fields.
func formatValidationErrors(verrs validator.ValidationErrors) error {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: %s", configKey(fe.Namespace()), describe(fe)))
	}
	return errors.New(strings.Join(msgs, "; "))
}

// configKey maps the namespace "Config.smb.folder_path" to "smb.folder_path".
func configKey(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	return strings.ToLower(strings.Join(parts, "."))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_without":
		return fmt.Sprintf("is required when %s is not set", paramKey(fe.Param()))
	case "excluded_with":
		return fmt.Sprintf("must not be set together with %s", paramKey(fe.Param()))
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max", "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}
