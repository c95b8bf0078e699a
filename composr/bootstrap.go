package composr

import (
	"context"

	"github.com/google/uuid"

	"github.com/teranos/composr/errors"
	"github.com/teranos/composr/logger"
	"github.com/teranos/composr/manager"
)

// Report collects the registration results of a bootstrap or restore.
type Report struct {
	VirtualDomains []manager.RegistrationResult
	Phrases        []manager.RegistrationResult
	Snippets       []manager.RegistrationResult

	// Restored is set when the items came from the local snapshot.
	Restored bool
}

// Registered counts successful registrations.
func (r *Report) Registered() int {
	return count(r, true)
}

// Failed counts rejected items.
func (r *Report) Failed() int {
	return count(r, false)
}

func count(r *Report, registered bool) int {
	n := 0
	for _, set := range [][]manager.RegistrationResult{r.VirtualDomains, r.Phrases, r.Snippets} {
		for _, res := range set {
			if res.Registered == registered {
				n++
			}
		}
	}
	return n
}

// Bootstrap loads every collection from the remote: virtual domains first,
// then phrases, then snippets. When the remote cannot be reached and a
// snapshot is configured, the Core is restored from the snapshot instead.
func (c *Core) Bootstrap(ctx context.Context) (*Report, error) {
	ctx = withRequestID(ctx)
	log := c.logger.With(logger.FieldsFromContext(ctx)...)

	report, err := c.loadAll(ctx)
	if err == nil {
		return report, nil
	}
	if c.snapshot == nil || !unreachable(err) {
		return nil, err
	}

	log.Warnw("remote unavailable, restoring from snapshot", logger.FieldError, err.Error())
	c.Reset()
	return c.Restore(ctx)
}

func (c *Core) loadAll(ctx context.Context) (*Report, error) {
	var (
		report Report
		err    error
	)
	if report.VirtualDomains, err = c.VirtualDomains.Load(ctx, ""); err != nil {
		return nil, errors.Wrap(err, "load virtual domains")
	}
	if report.Phrases, err = c.Phrases.Load(ctx, ""); err != nil {
		return nil, errors.Wrap(err, "load phrases")
	}
	if report.Snippets, err = c.Snippets.Load(ctx, ""); err != nil {
		return nil, errors.Wrap(err, "load snippets")
	}
	return &report, nil
}

// BootstrapVirtualDomain loads one virtual domain and then only the phrases
// and snippets it references.
func (c *Core) BootstrapVirtualDomain(ctx context.Context, id string) (*Report, error) {
	if id == "" {
		return nil, errors.NewMissingInput("missing:id")
	}
	ctx = withRequestID(ctx)

	var (
		report Report
		err    error
	)
	if report.VirtualDomains, err = c.VirtualDomains.Load(ctx, id); err != nil {
		return nil, errors.Wrapf(err, "load virtual domain %s", id)
	}

	vd, ok := c.VirtualDomains.GetByID(id)
	if !ok {
		// rejected by the pipeline; the reason is in the results
		return &report, nil
	}

	if ids := vd.Phrases(); len(ids) > 0 {
		if report.Phrases, err = c.Phrases.LoadSome(ctx, ids); err != nil {
			return nil, errors.Wrapf(err, "load phrases of %s", id)
		}
	}
	if ids := vd.Snippets(); len(ids) > 0 {
		if report.Snippets, err = c.Snippets.LoadSome(ctx, ids); err != nil {
			return nil, errors.Wrapf(err, "load snippets of %s", id)
		}
	}
	return &report, nil
}

// Restore re-registers every item held in the local snapshot.
func (c *Core) Restore(ctx context.Context) (*Report, error) {
	if c.snapshot == nil {
		return nil, errors.WithHint(errors.New("snapshot is disabled"), "set snapshot.enabled = true in am.toml")
	}

	report := Report{Restored: true}
	var err error
	if report.VirtualDomains, err = restore(ctx, c, c.cfg.Collections.VirtualDomains, c.VirtualDomains); err != nil {
		return nil, err
	}
	if report.Phrases, err = restore(ctx, c, c.cfg.Collections.Phrases, c.Phrases); err != nil {
		return nil, err
	}
	if report.Snippets, err = restore(ctx, c, c.cfg.Collections.Snippets, c.Snippets); err != nil {
		return nil, err
	}

	c.logger.Infow("restored from snapshot",
		"registered", report.Registered(),
		"failed", report.Failed(),
	)
	return &report, nil
}

func restore[T manager.Item](ctx context.Context, c *Core, collection string, m *manager.Manager[T]) ([]manager.RegistrationResult, error) {
	raws, err := c.snapshot.Raws(ctx, collection)
	if err != nil {
		return nil, errors.Wrapf(err, "read snapshot of %s", collection)
	}
	if len(raws) == 0 {
		return []manager.RegistrationResult{}, nil
	}
	return m.RegisterWithoutDomain(ctx, raws)
}

// unreachable reports whether err means the remote could not serve the
// request at all, as opposed to a context cancellation.
func unreachable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return errors.IsRemote(err) || errors.IsMissingDriver(err)
}

func withRequestID(ctx context.Context) context.Context {
	if logger.RequestIDFromContext(ctx) != "" {
		return ctx
	}
	return logger.WithRequestID(ctx, uuid.NewString())
}
