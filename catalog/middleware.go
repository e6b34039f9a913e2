package catalog

import (
	"context"
	"net/http"

	"github.com/jaxron/axonet/pkg/client/logger"
	"github.com/jaxron/axonet/pkg/client/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// rateLimiter holds outbound requests to the configured rate.
type rateLimiter struct {
	limiter *rate.Limiter
	logger  logger.Logger
}

// newRateLimiter allows rps requests per second with an equal burst.
// A non-positive rps disables the limit.
func newRateLimiter(rps float64) *rateLimiter {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &rateLimiter{
		limiter: rate.NewLimiter(limit, max(1, int(rps))),
		logger:  &logger.NoOpLogger{},
	}
}

// Process waits for capacity before passing the request on.
func (m *rateLimiter) Process(ctx context.Context, httpClient *http.Client, req *http.Request, next middleware.NextFunc) (*http.Response, error) {
	if err := m.limiter.Wait(ctx); err != nil {
		m.logger.WithFields(logger.String("url", req.URL.Path)).Debug("catalog rate limit wait aborted")
		return nil, err
	}
	return next(ctx, httpClient, req)
}

func (m *rateLimiter) SetLogger(l logger.Logger) {
	m.logger = l
}

// zapLogger adapts zap to the HTTP client's logger interface.
type zapLogger struct {
	zap *zap.Logger
}

func newLogger(l *zap.Logger) logger.Logger {
	return &zapLogger{zap: l.Named("catalog")}
}

func (l *zapLogger) Debug(msg string)                  { l.zap.Debug(msg) }
func (l *zapLogger) Info(msg string)                   { l.zap.Info(msg) }
func (l *zapLogger) Warn(msg string)                   { l.zap.Warn(msg) }
func (l *zapLogger) Error(msg string)                  { l.zap.Error(msg) }
func (l *zapLogger) Debugf(format string, args ...any) { l.zap.Sugar().Debugf(format, args...) }
func (l *zapLogger) Infof(format string, args ...any)  { l.zap.Sugar().Infof(format, args...) }
func (l *zapLogger) Warnf(format string, args ...any)  { l.zap.Sugar().Warnf(format, args...) }
func (l *zapLogger) Errorf(format string, args ...any) { l.zap.Sugar().Errorf(format, args...) }

func (l *zapLogger) WithFields(fields ...logger.Field) logger.Logger {
	zapFields := make([]zap.Field, len(fields))
	for i, f := range fields {
		zapFields[i] = zap.Any(f.Key, f.Value)
	}
	return &zapLogger{zap: l.zap.With(zapFields...)}
}
