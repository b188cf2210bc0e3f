package logger

import (
	"go.uber.org/zap"
)

type Sugared = *zap.SugaredLogger

// New returns a production JSON logger for env "prod" and a development
// console logger otherwise.
func New(env string) Sugared {
	var z *zap.Logger
	var err error
	if env == "prod" {
		z, err = zap.NewProduction()
	} else {
		z, err = zap.NewDevelopment()
	}
	if err != nil {
		z = zap.NewNop()
	}
	return z.Sugar().With("service", "svario-relay")
}

// Nop is used by tests and by callers that do not care about output.
func Nop() Sugared {
	return zap.NewNop().Sugar()
}
