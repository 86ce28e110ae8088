package log

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var logger atomic.Pointer[zap.Logger]

func init() {
	logger.Store(zap.NewNop())
}

// Init builds the global logger. dev=true enables the human-readable
// development encoder.
func Init(dev bool) (*zap.Logger, error) {
	var (
		l   *zap.Logger
		err error
	)
	if dev {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	logger.Store(l)
	return l, nil
}

// L returns the global logger. Safe to call before Init; logs go nowhere
// until Init runs.
func L() *zap.Logger {
	return logger.Load()
}

func Sync() {
	_ = logger.Load().Sync()
}
