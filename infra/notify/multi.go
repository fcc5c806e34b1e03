package notify

import (
	"context"
	"errors"
	"io"

	corenotify "github.com/paulfairbrother1000/pace-shuttles-cloud-sub002/core/notify"
)

// MultiNotifier delivers each message to every notifier. All notifiers are
// tried; their errors are joined.
type MultiNotifier struct {
	Notifiers []corenotify.Notifier
}

func NewMultiNotifier(ns ...corenotify.Notifier) *MultiNotifier {
	return &MultiNotifier{Notifiers: ns}
}

func (m *MultiNotifier) Notify(ctx context.Context, msg corenotify.Message) error {
	var errs []error
	for _, n := range m.Notifiers {
		if err := n.Notify(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every notifier that holds a connection.
func (m *MultiNotifier) Close() error {
	var errs []error
	for _, n := range m.Notifiers {
		if c, ok := n.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
