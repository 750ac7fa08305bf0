package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/theverygaming/meshtastic-bridge/internal/config"
	"github.com/theverygaming/meshtastic-bridge/internal/storage"
	"github.com/theverygaming/meshtastic-bridge/internal/test"
)

func TestServeMux(t *testing.T) {
	tests := []struct {
		Name           string
		Prometheus     bool
		Healthcheck    bool
		Path           string
		ExpectedStatus int
	}{
		{
			Name:           "prometheus enabled",
			Prometheus:     true,
			Path:           "/metrics",
			ExpectedStatus: http.StatusOK,
		},
		{
			Name:           "prometheus disabled",
			Path:           "/metrics",
			ExpectedStatus: http.StatusNotFound,
		},
		{
			Name:           "healthcheck disabled",
			Prometheus:     true,
			Path:           "/health",
			ExpectedStatus: http.StatusNotFound,
		},
	}

	for _, tst := range tests {
		t.Run(tst.Name, func(t *testing.T) {
			assert := require.New(t)

			var c config.Config
			c.Monitoring.PrometheusEndpoint = tst.Prometheus
			c.Monitoring.HealthcheckEndpoint = tst.Healthcheck

			srv := httptest.NewServer(newServeMux(c))
			defer srv.Close()

			resp, err := http.Get(srv.URL + tst.Path)
			assert.NoError(err)
			resp.Body.Close()
			assert.Equal(tst.ExpectedStatus, resp.StatusCode)
		})
	}
}

func TestHealthcheck(t *testing.T) {
	if !test.StorageAvailable() {
		t.Skip("TEST_POSTGRES_DSN and TEST_REDIS_URL must be set")
	}

	assert := require.New(t)
	assert.NoError(storage.Setup(test.GetConfig()))

	var c config.Config
	c.Monitoring.HealthcheckEndpoint = true

	srv := httptest.NewServer(newServeMux(c))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	assert.NoError(err)
	resp.Body.Close()
	assert.Equal(http.StatusOK, resp.StatusCode)
}
