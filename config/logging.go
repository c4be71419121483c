package config

import "go.uber.org/zap"

// setLogger builds the zap logger matching the running environment. Anything
// that is not development or production gets the example logger, which logs
// everything from debug up.
func setLogger(env string) (*zap.Logger, error) {
	switch env {
	case "development":
		return zap.NewDevelopment()
	case "production":
		return zap.NewProduction()
	default:
		return zap.NewExample(), nil
	}
}
