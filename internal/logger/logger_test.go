package logger

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	for _, env := range []string{"production", "local"} {
		log, err := New(env, nil)
		require.NoError(t, err)
		assert.NotNil(t, log)
	}
}

func TestTimeEncoder(t *testing.T) {
	loc := time.FixedZone("WIB", 7*60*60)
	var buf bytes.Buffer

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = TimeEncoder(loc)
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(&buf), zap.InfoLevel)

	zap.New(core).Info("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	ts, ok := entry["ts"].(string)
	require.True(t, ok)
	assert.Contains(t, ts, "+07:00")
}
