package config

import (
	"fmt"
	"strings"
)

// ValidationError reports a config field with an unusable value.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks constraints that parsing alone cannot enforce. All
// violations are reported together so the user fixes the file once.
func Validate(c *Config) error {
	var errs []string

	if c.Concurrency < 0 || c.Concurrency > 32 {
		errs = append(errs, ValidationError{
			Field:   "concurrency",
			Message: fmt.Sprintf("must be between 1 and 32, got %d", c.Concurrency),
		}.Error())
	}

	if err := validatePath("install_dir", c.InstallDir); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validatePath("token_file", c.TokenFile); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// validatePath rejects relative paths. They would resolve against whatever
// directory binge happens to run in.
func validatePath(field, p string) error {
	if p == "" || strings.HasPrefix(p, "/") || p == "~" || strings.HasPrefix(p, "~/") {
		return nil
	}
	return ValidationError{
		Field:   field,
		Message: fmt.Sprintf("must be an absolute or ~-prefixed path, got %q", p),
	}
}
