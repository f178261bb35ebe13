package telemetry

import (
	"context"
	"log"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/cleitonmarx/symbiont/depend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitOpenTelemetry_Initialize_Close(t *testing.T) {
	init := &InitOpenTelemetry{Logger: log.New(&strings.Builder{}, "", 0)}
	ctx := context.Background()
	ctx, err := init.Initialize(ctx)
	assert.NoError(t, err)
	assert.NotNil(t, ctx)
	init.Close()
}

func TestInitHttpClient_Initialize(t *testing.T) {
	init := InitHttpClient{
		Logger:  log.New(&strings.Builder{}, "", 0),
		Timeout: 30 * time.Second,
	}
	ctx := context.Background()
	ctx, err := init.Initialize(ctx)
	assert.NoError(t, err)
	assert.NotNil(t, ctx)

	client, err := depend.Resolve[*http.Client]()
	require.NoError(t, err)
	assert.NotNil(t, client.Transport)
}
