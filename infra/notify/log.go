package notify

import (
	"context"

	corenotify "github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/notify"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/infra/logger"
)

// LogNotifier writes messages to the structured log. It is the default when
// no notifier is configured.
type LogNotifier struct {
	log logger.Logger
}

func NewLogNotifier(log logger.Logger) *LogNotifier {
	if log == nil {
		log = logger.New("notify")
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(_ context.Context, m corenotify.Message) error {
	n.log.Debugw("notification", map[string]any{
		"kind":       m.Kind,
		"to":         m.To,
		"journey_id": m.JourneyID,
		"vehicle_id": m.VehicleID,
	})
	n.log.Infof("notify %s to %s: %s", m.Kind, m.To, m.Subject)
	return nil
}
