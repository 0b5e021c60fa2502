package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validate checks the configuration against its struct tags plus the
// cross-field rules the tags cannot express.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range errs {
				return fmt.Errorf("invalid value for %s: failed %q constraint", fe.Namespace(), fe.Tag())
			}
		}
		return err
	}

	if err := cfg.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if cfg.Storage.Backend == "s3" {
		if err := cfg.Storage.S3.Validate(); err != nil {
			return fmt.Errorf("storage: %w", err)
		}
	}
	if cfg.Storage.Backend == "local" && cfg.Storage.Local.Dir == "" {
		return fmt.Errorf("storage: local dir is required")
	}

	// The dispatcher constructor enforces this too; catching it here gives
	// the operator the message before anything is built.
	if cfg.Outbox.DispatchStrategy == "broker" && cfg.Broker.Driver == "none" {
		return fmt.Errorf("outbox: broker dispatch strategy requires broker.driver to be set")
	}

	if cfg.Messengers.Whatsapp.Enabled && cfg.Messengers.Whatsapp.BaseURL == "" {
		return fmt.Errorf("messengers: whatsapp base_url is required when enabled")
	}
	if cfg.Messengers.Telegram.Enabled {
		if cfg.Messengers.Telegram.APIID == 0 || cfg.Messengers.Telegram.APIHash == "" {
			return fmt.Errorf("messengers: telegram api_id and api_hash are required when enabled")
		}
	}

	return nil
}
