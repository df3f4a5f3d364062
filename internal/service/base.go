// Package service contains business logic and integrations backing HTTP handlers.
package service

import "log/slog"

// BaseService provides common dependencies for service types.
type BaseService struct {
	logger *slog.Logger
	engine *Engine
}

func newBase(logger *slog.Logger, engine *Engine) BaseService {
	return BaseService{logger: logger, engine: engine}
}
