package sources

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/i474232898/agri-weather/internal/forecast"
)

// FallbackSource prefers the local file and only contacts the remote source
// when the file is missing or not JSON.
type FallbackSource struct {
	local  forecast.Source
	remote forecast.Source
	logger *zap.Logger
}

func NewFallbackSource(local, remote forecast.Source, logger *zap.Logger) *FallbackSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FallbackSource{
		local:  local,
		remote: remote,
		logger: logger,
	}
}

func (f *FallbackSource) Name() string {
	return f.local.Name() + "+" + f.remote.Name()
}

// Fetch returns the first parseable document. When neither source yields one the
// error is a *forecast.FetchError carrying both causes.
func (f *FallbackSource) Fetch(ctx context.Context) (forecast.Payload, error) {
	payload, localErr := f.local.Fetch(ctx)
	if localErr == nil {
		f.logger.Info("using local payload", zap.String("origin", payload.Origin))
		return payload, nil
	}

	if errors.Is(localErr, ErrLocalUnavailable) {
		f.logger.Info("no local payload; contacting remote source", zap.String("source", f.remote.Name()))
	} else {
		f.logger.Warn("local payload unusable; contacting remote source", zap.Error(localErr))
	}

	payload, remoteErr := f.remote.Fetch(ctx)
	if remoteErr == nil {
		f.logger.Info("using remote payload", zap.String("origin", payload.Origin))
		return payload, nil
	}

	return forecast.Payload{}, &forecast.FetchError{Err: errors.Join(localErr, remoteErr)}
}
