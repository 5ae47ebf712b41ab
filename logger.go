package wsession

// logger is the structured logging contract used across the package. It
// matches the method set of logrus-style loggers, so those can be plugged in
// through a thin adapter.
type logger interface {
	WithField(key string, value any) logger
	Debug(args ...any)
	Debugf(format string, args ...any)
	Debugln(args ...any)
	Info(args ...any)
	Infof(format string, args ...any)
	Infoln(args ...any)
	Warn(args ...any)
	Warnf(format string, args ...any)
	Warnln(args ...any)
	Error(args ...any)
	Errorf(format string, args ...any)
	Errorln(args ...any)
}

type noopLogger struct{}

func (l noopLogger) WithField(string, any) logger { return l }

func (noopLogger) Debug(...any) {}

func (noopLogger) Debugf(string, ...any) {}

func (noopLogger) Debugln(...any) {}

func (noopLogger) Info(...any) {}

func (noopLogger) Infof(string, ...any) {}

func (noopLogger) Infoln(...any) {}

func (noopLogger) Warn(...any) {}

func (noopLogger) Warnf(string, ...any) {}

func (noopLogger) Warnln(...any) {}

func (noopLogger) Error(...any) {}

func (noopLogger) Errorf(string, ...any) {}

func (noopLogger) Errorln(...any) {}
