package notify

import (
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/factory"
	corenotify "github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/notify"
	"github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/infra/logger"
)

var registry = factory.NewRegistry[corenotify.Notifier]()

// Register adds a notifier factory identified by name.
func Register(name string, f factory.Factory[corenotify.Notifier]) error {
	return registry.Register(name, f)
}

func init() {
	_ = Register("nop", func(map[string]any) (corenotify.Notifier, error) {
		return corenotify.Nop{}, nil
	})
	_ = Register("log", func(map[string]any) (corenotify.Notifier, error) {
		return NewLogNotifier(nil), nil
	})
	_ = Register("amqp", func(conf map[string]any) (corenotify.Notifier, error) {
		var c AMQPConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewAMQPNotifier(c), nil
	})
	_ = Register("mqtt", func(conf map[string]any) (corenotify.Notifier, error) {
		var c MQTTConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewMQTTNotifier(c)
	})
	_ = Register("webhook", func(conf map[string]any) (corenotify.Notifier, error) {
		var c WebhookConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewWebhookNotifier(c)
	})
}

// New builds a notifier from module configs. No config yields a LogNotifier
// and several modules are fanned out through a MultiNotifier.
func New(cfgs []factory.ModuleConfig, log logger.Logger) (corenotify.Notifier, error) {
	return factory.Assemble(registry, cfgs,
		func() corenotify.Notifier { return NewLogNotifier(log) },
		func(ns ...corenotify.Notifier) corenotify.Notifier { return NewMultiNotifier(ns...) })
}
