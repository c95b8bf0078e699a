package events

import (
	"go.uber.org/zap"

	"github.com/teranos/composr/logger"
)

// LoggerSink mirrors every bus event into log at the matching level.
// It returns the subscription name so callers can detach it.
func LoggerSink(b *Bus, log *zap.SugaredLogger) string {
	log = logger.OrNop(log)
	return b.OnAll("logger-sink", func(ev Event) {
		fields := []interface{}{logger.FieldEvent, ev.Key}
		if len(ev.Payload) > 0 {
			fields = append(fields, "payload", ev.Payload)
		}
		switch ev.Level {
		case LevelDebug:
			log.Debugw(ev.Key, fields...)
		case LevelInfo:
			log.Infow(ev.Key, fields...)
		case LevelWarn:
			log.Warnw(ev.Key, fields...)
		default:
			log.Errorw(ev.Key, fields...)
		}
	})
}
