// Package logger declares the logging contract shared by every package.
// The zerolog implementation lives in infra/logger.
package logger

// Logger exposes printf-style and field-style methods per level. Field
// methods are used for anything a log pipeline should be able to filter on,
// such as run ids, generator ids and publisher names.
type Logger interface {
	Debugf(format string, args ...any)
	Debugw(msg string, fields map[string]any)
	Infof(format string, args ...any)
	Infow(msg string, fields map[string]any)
	Warnf(format string, args ...any)
	Warnw(msg string, fields map[string]any)
	Errorf(format string, args ...any)
	Errorw(msg string, fields map[string]any)
}
