package entlog

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestZerologAdapterRoutesLevels(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewZerologAdapter(zerolog.New(&buf).Level(zerolog.WarnLevel))

	adapter.Debugf("dropped %d", 1)
	adapter.Infof("dropped %d", 2)
	require.Empty(t, buf.String())

	adapter.Warnf("kept %d", 3)
	adapter.Errorf("kept %d", 4)
	out := buf.String()
	require.Contains(t, out, `"kept 3"`)
	require.Contains(t, out, `"kept 4"`)
	require.Contains(t, out, `"level":"warn"`)
	require.Contains(t, out, `"level":"error"`)
}

func TestSetDefaultSwapsAndOrDefaultFunnels(t *testing.T) {
	prev := Default()
	defer SetDefault(prev)

	var buf bytes.Buffer
	custom := NewZerologAdapter(zerolog.New(&buf))
	SetDefault(custom)

	require.Equal(t, Logger(custom), Default())
	require.Equal(t, Logger(custom), OrDefault(nil))

	explicit := NoOp()
	require.Equal(t, explicit, OrDefault(explicit))

	Default().Warnf("through default")
	require.Contains(t, buf.String(), "through default")
}
