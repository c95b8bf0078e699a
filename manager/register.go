package manager

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/teranos/composr/errors"
	"github.com/teranos/composr/events"
	"github.com/teranos/composr/identifier"
	"github.com/teranos/composr/logger"
)

// Register runs every raw item through the pipeline under domain. It
// returns one result per item in input order, and an error only when
// domain or the item list is missing. A list holding only nil items counts
// as missing; a nil item inside a batch is rejected on its own.
func (m *Manager[T]) Register(ctx context.Context, domain string, raws ...Raw) ([]RegistrationResult, error) {
	if domain == "" {
		return nil, errors.NewMissingInput(errors.CodeMissingDomain)
	}
	if !anyRaw(raws) {
		return nil, errors.NewMissingInput(errors.CodeMissingItems)
	}

	results := make([]RegistrationResult, len(raws))
	if m.concurrency == 1 || len(raws) == 1 {
		for i, raw := range raws {
			results[i] = m.register(ctx, domain, raw)
		}
		return results, nil
	}

	var g errgroup.Group
	g.SetLimit(m.concurrency)
	for i, raw := range raws {
		g.Go(func() error {
			results[i] = m.register(ctx, domain, raw)
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}

// register is the per-item pipeline. It never returns an error; failures
// are carried in the result.
func (m *Manager[T]) register(ctx context.Context, domain string, raw Raw) RegistrationResult {
	ctx = withDomain(ctx, domain)

	item, id, err := m.build(ctx, raw)
	if err != nil {
		return m.notRegistered(domain, id, err)
	}

	unlock := m.locks.lock(domain, id)
	defer unlock()

	if m.hooks.PreAdd != nil {
		if err := m.hooks.PreAdd(ctx, domain, item); err != nil {
			return m.notRegistered(domain, id, errors.NewValidationFailure(id, errors.Wrap(err, "pre-add hook")))
		}
	}

	var (
		prior    T
		hadPrior bool
	)
	if m.hooks.PostAdd != nil {
		prior, hadPrior = m.store.Get(domain, id)
	}

	m.addToStore(domain, item)

	if m.hooks.PostAdd != nil {
		if err := m.hooks.PostAdd(ctx, domain, item); err != nil {
			// put back what the store held before this registration
			if hadPrior {
				m.store.Add(domain, prior)
			} else {
				m.store.Remove(domain, id)
			}
			return m.notRegistered(domain, id, errors.NewValidationFailure(id, errors.Wrap(err, "post-add hook")))
		}
	}

	m.emit(events.LevelDebug, m.key("registered"), id)
	return RegistrationResult{ID: id, Registered: true}
}

// Build runs raw through compile, model and validate under domain without
// touching the store. The error is the one Register would report for the
// item.
func (m *Manager[T]) Build(ctx context.Context, domain string, raw Raw) (T, error) {
	item, _, err := m.build(withDomain(ctx, domain), raw)
	return item, err
}

// build returns the item with the id it is stored under. On failure the id
// is the best one known so far.
func (m *Manager[T]) build(ctx context.Context, raw Raw) (T, string, error) {
	var zero T
	if raw == nil {
		return zero, "", errors.NewMissingInput(errors.CodeMissingID)
	}
	id := rawID(raw)

	compiled, ok, err := m.Compile(ctx, raw)
	if err != nil || !ok || compiled == nil {
		return zero, id, errors.NewCompilationFailure(id, err)
	}

	item, err := m.model(compiled)
	if err != nil {
		return zero, id, errors.NewValidationFailure(id, err)
	}
	if itemID := item.ID(); itemID != "" {
		id = itemID
	}

	item, err = m.Validate(ctx, item)
	if err != nil {
		return zero, id, errors.NewValidationFailure(id, err)
	}
	if item.ID() != "" {
		id = item.ID()
	}
	if id == "" {
		return zero, "", errors.NewMissingInput(errors.CodeMissingID)
	}
	return item, id, nil
}

func (m *Manager[T]) addToStore(domain string, item T) {
	m.store.Add(domain, item)
}

func (m *Manager[T]) notRegistered(domain, id string, err error) RegistrationResult {
	m.emit(events.LevelWarn, m.key("not", "registered"), id, err)
	m.logger.Debugw("item not registered",
		logger.FieldDomain, domain,
		logger.FieldItemID, id,
		logger.FieldError, err.Error(),
	)
	return RegistrationResult{ID: id, Registered: false, Err: err}
}

// RegisterWithoutDomain derives each item's domain from its id, groups the
// items by domain in first-seen order and registers each group. Results are
// concatenated group by group; items whose id yields no domain are reported
// after the groups.
func (m *Manager[T]) RegisterWithoutDomain(ctx context.Context, raws []Raw) ([]RegistrationResult, error) {
	if len(raws) == 0 {
		return nil, errors.NewMissingInput(errors.CodeMissingItems)
	}

	var (
		order   []string
		groups  = make(map[string][]Raw)
		invalid []RegistrationResult
	)
	for _, raw := range raws {
		id := rawID(raw)
		domain := identifier.ExtractDomain(id)
		if domain == "" {
			code := errors.CodeMissingDomain
			if id == "" {
				code = errors.CodeMissingID
			}
			err := errors.NewMissingInput(code)
			m.emit(events.LevelWarn, m.key("not", "registered"), id, err)
			invalid = append(invalid, RegistrationResult{ID: id, Err: err})
			continue
		}
		if _, seen := groups[domain]; !seen {
			order = append(order, domain)
		}
		groups[domain] = append(groups[domain], raw)
	}

	results := make([]RegistrationResult, 0, len(raws))
	for _, domain := range order {
		res, err := m.Register(ctx, domain, groups[domain]...)
		if err != nil {
			return nil, err
		}
		results = append(results, res...)
	}
	return append(results, invalid...), nil
}

// Unregister removes ids from domain. Every id produces exactly one event:
// a debug confirmation or a not-found warning.
func (m *Manager[T]) Unregister(ctx context.Context, domain string, ids ...string) error {
	if domain == "" {
		return errors.NewMissingInput(errors.CodeMissingDomain)
	}
	if len(ids) == 0 {
		return errors.NewMissingInput(errors.CodeMissingIDs)
	}

	for _, id := range ids {
		if !m.store.Exists(domain, id) {
			m.emit(events.LevelWarn, m.key("unregister", "not", "found"), domain, id)
			continue
		}
		m.unregister(ctx, domain, id)
	}
	return nil
}

func (m *Manager[T]) unregister(ctx context.Context, domain, id string) {
	unlock := m.locks.lock(domain, id)
	defer unlock()

	m.store.Remove(domain, id)
	m.emit(events.LevelDebug, m.key("unregister", id), domain)

	if m.hooks.PostRemove == nil {
		return
	}
	// the item is already gone from the store, so a hook error is only logged
	if err := m.hooks.PostRemove(withDomain(ctx, domain), domain, id); err != nil {
		m.logger.Warnw("post-remove hook failed",
			logger.FieldDomain, domain,
			logger.FieldItemID, id,
			logger.FieldError, err.Error(),
		)
	}
}

// ResetItems clears the whole store.
func (m *Manager[T]) ResetItems() {
	m.store.Reset()
	m.emit(events.LevelDebug, m.key("reset"))
}

func anyRaw(raws []Raw) bool {
	for _, raw := range raws {
		if raw != nil {
			return true
		}
	}
	return false
}

func rawID(raw Raw) string {
	id, _ := raw["id"].(string)
	return id
}
