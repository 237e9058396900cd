package logging

import (
	"bytes"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNewPrefixesAppName(t *testing.T) {
	t.Setenv(LevelEnv, "debug")
	var buf bytes.Buffer
	logger := New("rentledger", &buf)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	logger.WithField("component", "store").Debug("loaded")
	out := buf.String()
	assert.Contains(t, out, "[rentledger] loaded")
	assert.Contains(t, out, "component=store")
}

func TestParseLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)

	assert.Equal(t, logrus.InfoLevel, ParseLevel(logger, ""))
	assert.Equal(t, logrus.WarnLevel, ParseLevel(logger, " WARN "))
	assert.Equal(t, logrus.InfoLevel, ParseLevel(logger, "loud"))
	assert.Contains(t, buf.String(), "Invalid RENTLEDGER_LOG_LEVEL 'loud'")
}

func TestComponentWithoutLogger(t *testing.T) {
	entry := Component(nil, "session")
	assert.Equal(t, "session", entry.Data["component"])
	assert.Equal(t, io.Discard, entry.Logger.Out)
}
