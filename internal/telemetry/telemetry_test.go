package telemetry

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/carepulse-dev/carepulse/internal/config"
)

func TestSetup_DisabledWithoutEndpoint(t *testing.T) {
	shutdown := Setup(context.Background(), config.TelemetryConfig{ServiceName: "test"}, zerolog.Nop())
	require.NotNil(t, shutdown)
	require.NoError(t, shutdown(context.Background()))
}
