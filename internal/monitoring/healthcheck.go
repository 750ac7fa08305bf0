package monitoring

import (
	"net/http"

	"github.com/pkg/errors"

	"github.com/theverygaming/meshtastic-bridge/internal/storage"
)

func healthCheckHandlerFunc(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := storage.RedisClient().Ping(ctx).Err(); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(errors.Wrap(err, "redis ping error").Error()))
		return
	}

	if err := storage.DB().PingContext(ctx); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(errors.Wrap(err, "postgresql ping error").Error()))
		return
	}

	w.WriteHeader(http.StatusOK)
}
