package conf

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/precivox/precivox-images/internal/errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidationError collects every problem found in a Settings value
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation errors: %s", strings.Join(ve.Errors, "; "))
}

// ErrorCategory marks configuration problems for the error builder.
func (ve ValidationError) ErrorCategory() errors.ErrorCategory {
	return errors.CategoryConfiguration
}

// ValidateSettings runs struct tag validation plus checks that span fields.
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validate.Struct(settings); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			ve.Errors = append(ve.Errors, describeFieldError(fe))
		}
	}

	if settings.Telemetry.Enabled && settings.Telemetry.DSN != "" {
		if u, err := url.Parse(settings.Telemetry.DSN); err != nil || u.Scheme == "" || u.Host == "" {
			ve.Errors = append(ve.Errors, "telemetry.dsn must be a valid Sentry DSN")
		}
	}

	if settings.Metrics.Enabled && settings.Metrics.Listen != "" {
		if _, _, err := net.SplitHostPort(settings.Metrics.Listen); err != nil {
			ve.Errors = append(ve.Errors, "metrics.listen must be host:port")
		}
	}

	if settings.Database.Driver == "sqlite" && settings.Database.SQLite.Path == "" && settings.Database.DSN == "" {
		ve.Errors = append(ve.Errors, "database.sqlite.path is required for the sqlite driver")
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

// describeFieldError renders a validator failure using the config key path,
// e.g. "ImageProvider.BatchSize failed gte=1".
func describeFieldError(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		ns = ns[i+1:]
	}
	if fe.Param() != "" {
		return fmt.Sprintf("%s failed %s=%s", ns, fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("%s failed %s", ns, fe.Tag())
}
