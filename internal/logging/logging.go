package logging

import (
	"context"

	"github.com/gofrs/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/logrus/ctxlogrus"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// ContextKey defines the context key type.
type ContextKey string

// ContextIDKey holds the key of the context ID.
const ContextIDKey ContextKey = "ctx_id"

// NewContext returns a context carrying a random ContextIDKey value and a
// logger with the ctx_id field set.
func NewContext(ctx context.Context) (context.Context, error) {
	ctxID, err := uuid.NewV4()
	if err != nil {
		return nil, errors.Wrap(err, "new uuid error")
	}

	ctx = context.WithValue(ctx, ContextIDKey, ctxID)
	ctx = ctxlogrus.ToContext(ctx, log.WithFields(log.Fields{
		"ctx_id": ctxID,
	}))

	return ctx, nil
}

// AddFields adds the given fields to the logger of the context.
func AddFields(ctx context.Context, fields log.Fields) {
	ctxlogrus.AddFields(ctx, fields)
}

// Logger returns the logger of the given context. When the context was not
// created by NewContext, the standard logger is returned.
func Logger(ctx context.Context) *log.Entry {
	if ctx.Value(ContextIDKey) == nil {
		return log.NewEntry(log.StandardLogger())
	}
	return ctxlogrus.Extract(ctx)
}
