package security

import (
	"fmt"

	"github.com/intinstall/intinstall/internal/log"
)

type redactingLogger struct {
	next log.Logger
}

// NewRedactingLogger wraps a logger so every record is secret-masked at the
// sink. Components receive this wrapped logger by injection, so no call site
// needs to remember to mask.
func NewRedactingLogger(next log.Logger) log.Logger {
	return redactingLogger{next: next}
}

func (l redactingLogger) Infof(format string, args ...any) {
	l.next.Infof("%s", MaskSecrets(fmt.Sprintf(format, args...)))
}

func (l redactingLogger) Warningf(format string, args ...any) {
	l.next.Warningf("%s", MaskSecrets(fmt.Sprintf(format, args...)))
}

func (l redactingLogger) Errorf(format string, args ...any) {
	l.next.Errorf("%s", MaskSecrets(fmt.Sprintf(format, args...)))
}

func (l redactingLogger) Debugf(format string, args ...any) {
	l.next.Debugf("%s", MaskSecrets(fmt.Sprintf(format, args...)))
}

func (l redactingLogger) WithValues(values map[string]any) log.Logger {
	masked := make(map[string]any, len(values))
	for k, v := range values {
		if s, ok := v.(string); ok {
			masked[k] = MaskSecrets(s)
			continue
		}
		masked[k] = v
	}
	return redactingLogger{next: l.next.WithValues(masked)}
}
