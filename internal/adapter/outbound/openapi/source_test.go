package openapi_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i2y/orchestrate/internal/adapter/outbound/openapi"
	"github.com/i2y/orchestrate/internal/domain"
)

func TestSource_SynthesizeAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weather.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
openapi: 3.0.0
info: {title: Weather, version: "1"}
servers:
  - url: https://weather.example.com
paths:
  /forecast:
    get:
      operationId: getForecast
      summary: Forecast for a city
      parameters:
        - {name: city, in: query, required: true, schema: {type: string}}
      responses:
        "200": {description: ok}
`), 0o644))

	logger := testLogger()
	source := openapi.NewSource(openapi.NewFetcher(nil, nil, logger), openapi.NewGenerator(logger))

	specs, err := source.SynthesizeAll(context.Background(), path, domain.PermissionReadWrite)
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, "getForecast", specs[0].Name)
	assert.Equal(t, domain.PermissionReadWrite, specs[0].Permission)
	assert.Equal(t, "https://weather.example.com", specs[0].Binding.OpenAPI.Server())

	_, err = source.SynthesizeAll(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"), domain.PermissionReadOnly)
	assert.Error(t, err)
}
