package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerInitialization(t *testing.T) {
	assert.NotNil(t, User, "User logger should not be nil after init")
	assert.NotNil(t, Op, "Op logger should not be nil after init")

	ul := GetLogger()
	require.NotNil(t, ul)
	assert.Same(t, ul, GetLogger(), "GetLogger should return the same instance")
}

func TestLoggerSetup(t *testing.T) {
	tests := []struct {
		name     string
		verbose  bool
		jsonLogs bool
		quiet    bool
		level    logrus.Level
	}{
		{"Default", false, false, false, logrus.InfoLevel},
		{"Verbose", true, false, false, logrus.DebugLevel},
		{"Quiet", false, false, true, logrus.ErrorLevel},
		{"JSON", false, true, false, logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LOG_MODE", "")
			t.Setenv("LOG_FORMAT", "")
			Setup(tt.verbose, tt.jsonLogs, tt.quiet)

			assert.NotNil(t, User)
			assert.NotNil(t, Op)
			assert.Equal(t, tt.level, GetLogger().GetInternalLogger().GetLevel())
		})
	}
}

func TestLogModeEnvOverridesFlags(t *testing.T) {
	t.Setenv("LOG_MODE", "quiet")
	t.Setenv("LOG_FORMAT", "")
	Setup(true, false, false)
	assert.Equal(t, logrus.ErrorLevel, GetLogger().GetInternalLogger().GetLevel())
}

func TestOutputRouting(t *testing.T) {
	t.Setenv("LOG_MODE", "")
	t.Setenv("LOG_FORMAT", "")

	var userBuf, opBuf bytes.Buffer
	SetupWithOptions(Options{UserWriter: &userBuf, OpWriter: &opBuf})
	defer Setup(false, false, false)

	User.Successf("section %s drafted", "research")
	Op.WithFields(map[string]interface{}{"task": "research"}).Info("llm call finished")

	assert.Equal(t, "✅ section research drafted\n", userBuf.String())
	assert.NotContains(t, userBuf.String(), "llm call finished")

	assert.Contains(t, opBuf.String(), "INFO: llm call finished")
	assert.Contains(t, opBuf.String(), "task=research")
	assert.NotContains(t, opBuf.String(), "log_type")
}

func TestJSONOutput(t *testing.T) {
	t.Setenv("LOG_MODE", "")
	t.Setenv("LOG_FORMAT", "json")

	var userBuf, opBuf bytes.Buffer
	SetupWithOptions(Options{UserWriter: &userBuf, OpWriter: &opBuf})
	defer func() {
		t.Setenv("LOG_FORMAT", "")
		Setup(false, false, false)
	}()

	User.Cachedf("served %s from cache", "analysis")

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(userBuf.String())), &payload))
	assert.Equal(t, "user", payload["log_type"])
	assert.Equal(t, "💾 served analysis from cache", payload["msg"])
}

func TestCLIFormatter(t *testing.T) {
	entry := logrus.NewEntry(logrus.New())
	entry.Level = logrus.WarnLevel
	entry.Message = "retrying"
	entry.Data = logrus.Fields{"b": 2, "a": 1, "log_type": "op"}

	f := &CLIFormatter{DisableTimestamp: true, DisableColors: true}
	out, err := f.Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "WARNING: retrying a=1 b=2\n", string(out))
}

func TestLogTypeRouting(t *testing.T) {
	captureHook := &testHook{}
	ul := GetLogger()
	ul.GetInternalLogger().AddHook(captureHook)

	User.Info("user message")
	require.NotEmpty(t, captureHook.entries)
	assert.Equal(t, string(UserLog), captureHook.entries[len(captureHook.entries)-1].Data["log_type"])

	Op.Info("op message")
	assert.Equal(t, string(OpLog), captureHook.entries[len(captureHook.entries)-1].Data["log_type"])
}

// testHook is a simple hook for capturing log entries in tests
type testHook struct {
	entries []*logrus.Entry
}

func (h *testHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *testHook) Fire(entry *logrus.Entry) error {
	h.entries = append(h.entries, entry)
	return nil
}
