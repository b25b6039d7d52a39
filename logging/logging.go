package logging

import "go.uber.org/zap"

// Named returns a sugared logger scoped to a component. It is derived from the
// global logger, so it picks up whatever config.New installed.
func Named(component string) *zap.SugaredLogger {
	return zap.S().Named(component)
}

// Nop returns a logger that discards everything, for tests
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
