package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDefaultConfig(t *testing.T) {
	require.NoError(t, Validate(GetDefaultConfig()))
}

func TestValidateNilConfig(t *testing.T) {
	require.Error(t, Validate(nil))
}

func TestValidateInvalidLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "VERBOSE"

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Logging.Level")
}

func TestValidateInvalidBrokerDriver(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Broker.Driver = "kafka"

	require.Error(t, Validate(cfg))
}

func TestValidateBrokerStrategyWithoutDriver(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Outbox.DispatchStrategy = "broker"

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker.driver")
}

func TestValidateS3NeedsBucket(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Storage.Backend = "s3"

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket")

	cfg.Storage.S3.Bucket = "blast-files"
	require.NoError(t, Validate(cfg))
}

func TestValidateWhatsappNeedsBaseURL(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Messengers.Whatsapp.Enabled = true

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base_url")
}

func TestValidateTelegramNeedsCredentials(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Messengers.Telegram.Enabled = true

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_id")

	cfg.Messengers.Telegram.APIID = 12345
	cfg.Messengers.Telegram.APIHash = "deadbeef"
	require.NoError(t, Validate(cfg))
}
