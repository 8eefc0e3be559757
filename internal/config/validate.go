package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

// Validate checks field formats and cross-field rules. It expects defaults to
// have been applied.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		_, err := time.ParseDuration(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("cron", func(fl validator.FieldLevel) bool {
		_, err := cron.ParseStandard(fl.Field().String())
		return err == nil
	})

	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid config:\n  %s", strings.Join(msgs, "\n  "))
		}
		return fmt.Errorf("validating config: %w", err)
	}

	for _, n := range c.Notify {
		if _, ok := c.Services[n.Service]; !ok {
			return fmt.Errorf("notify references unknown service %q", n.Service)
		}
	}
	if c.Trigger.Interval != "" && c.Trigger.Cron != "" {
		return fmt.Errorf("trigger: interval and cron are mutually exclusive")
	}
	if c.Email.Username != "" && len(c.Email.To) == 0 {
		return fmt.Errorf("email: username set but no recipient in email.to")
	}
	return nil
}
