// Package factory instantiates pluggable modules, such as notifiers and
// metrics sinks, from configuration. A module is selected by a type string
// and configured by a map of raw settings that the factory decodes into its
// own config struct.
//
// A package owning an extension point keeps one registry and assembles the
// configured list into a single value:
//
//	var registry = factory.NewRegistry[notify.Notifier]()
//
//	_ = registry.Register("webhook", func(conf map[string]any) (notify.Notifier, error) {
//	    var c WebhookConfig
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return NewWebhookNotifier(c)
//	})
//
//	n, err := factory.Assemble(registry, cfg.Notify.Sinks,
//	    func() notify.Notifier { return NewLogNotifier(log) },
//	    func(ns ...notify.Notifier) notify.Notifier { return NewMultiNotifier(ns...) })
package factory
