package logging_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/semstore/internal/config"
	"github.com/fyrsmithlabs/semstore/internal/logging"
)

func TestNew(t *testing.T) {
	logger, err := logging.New(config.LoggingConfig{Level: "debug", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, logger)
	logger.Debug("test entry")
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := logging.New(config.LoggingConfig{Level: "verbose", Format: "json"})
	assert.Error(t, err)
}
