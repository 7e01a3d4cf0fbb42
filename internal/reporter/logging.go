package reporter

import (
	"github.com/simaofelgueirasJM/flipper/internal/logging"
	"github.com/simaofelgueirasJM/flipper/internal/model"
)

// Logging writes one structured log line per record. Bodies are summarized
// by size only.
type Logging struct {
	logger logging.Logger
}

// NewLogging scopes logger to the "network" component.
func NewLogging(logger logging.Logger) *Logging {
	return &Logging{logger: logging.OrNop(logger).With(logging.Field{Key: "component", Value: "network"})}
}

func (l *Logging) ReportRequest(req model.RequestInfo) {
	l.logger.Info("request",
		logging.Field{Key: "id", Value: req.RequestID},
		logging.Field{Key: "method", Value: req.Method},
		logging.Field{Key: "url", Value: req.URL},
		logging.Field{Key: "headers", Value: len(req.Headers)},
		logging.Field{Key: "body_bytes", Value: len(req.Body)})
}

func (l *Logging) ReportResponse(resp model.ResponseInfo) {
	fields := []logging.Field{
		{Key: "id", Value: resp.RequestID},
		{Key: "status", Value: resp.StatusCode},
		{Key: "headers", Value: len(resp.Headers)},
		{Key: "body_bytes", Value: len(resp.Body)},
	}
	if resp.BodyError != "" {
		fields = append(fields, logging.Field{Key: "body_error", Value: resp.BodyError})
		l.logger.Warn("response", fields...)
		return
	}
	l.logger.Info("response", fields...)
}
