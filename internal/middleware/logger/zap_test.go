package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	for _, dev := range []bool{true, false} {
		log, err := NewLogger(dev)
		require.NoError(t, err)
		require.NotNil(t, log)
		require.Equal(t, dev, log.Core().Enabled(-1))
	}
}
