package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigure(t *testing.T) {
	t.Cleanup(func() {
		_ = Configure("info", "text", os.Stderr)
	})

	var buf bytes.Buffer
	require.NoError(t, Configure("debug", "json", &buf))
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())

	For("block_table").WithField("index", 3).Debug("allocated")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "block_table", line["component"])
	assert.Equal(t, "allocated", line["msg"])
	assert.Equal(t, float64(3), line["index"])
}

func TestConfigureRejectsBadInput(t *testing.T) {
	assert.Error(t, Configure("loud", "text", nil))
	assert.Error(t, Configure("info", "xml", nil))
}
