package manager

import (
	"context"

	"github.com/teranos/composr/errors"
	"github.com/teranos/composr/events"
	"github.com/teranos/composr/identifier"
	"github.com/teranos/composr/logger"
)

// ShouldSave reports whether item differs from the stored copy. It is false
// only when a stored item exists with the same MD5.
func (m *Manager[T]) ShouldSave(item T) bool {
	id := item.ID()
	stored, ok := m.store.Get(identifier.ExtractDomain(id), id)
	if !ok {
		return true
	}
	return stored.MD5() != item.MD5()
}

// Save writes item to the remote collection unless the stored copy is
// unchanged.
func (m *Manager[T]) Save(ctx context.Context, item T) error {
	if m.dao == nil {
		return errors.NewMissingDriver()
	}
	id := item.ID()
	if !m.ShouldSave(item) {
		m.emit(events.LevelDebug, m.key("save", "unchanged"), id)
		return nil
	}

	if err := m.dao.Save(ctx, item.RawModel()); err != nil {
		m.emit(events.LevelError, m.key("save", "failed"), id, err)
		return err
	}
	m.logger.Debugw("item saved", logger.FieldItemID, id, logger.FieldMD5, item.MD5())
	return nil
}

// Push saves every raw item to the remote and then registers it. Each item
// is compared against the store before it is registered, so an item whose
// MD5 matches the copy already held is not written. An empty domain derives
// each item's domain from its id. Items rejected by the pipeline or by the
// remote are reported in their result and not registered.
func (m *Manager[T]) Push(ctx context.Context, domain string, raws ...Raw) ([]RegistrationResult, error) {
	if m.dao == nil {
		return nil, errors.NewMissingDriver()
	}
	if !anyRaw(raws) {
		return nil, errors.NewMissingInput(errors.CodeMissingItems)
	}

	results := make([]RegistrationResult, 0, len(raws))
	for _, raw := range raws {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		d := domain
		if d == "" {
			d = identifier.ExtractDomain(rawID(raw))
		}
		if d == "" {
			results = append(results, m.notRegistered(d, rawID(raw), errors.NewMissingInput(errors.CodeMissingDomain)))
			continue
		}

		item, err := m.Build(ctx, d, raw)
		if err != nil {
			results = append(results, m.notRegistered(d, rawID(raw), err))
			continue
		}
		if err := m.Save(ctx, item); err != nil {
			results = append(results, RegistrationResult{ID: item.ID(), Err: err})
			continue
		}
		results = append(results, m.register(ctx, d, raw))
	}
	return results, nil
}

// Delete removes id from the remote collection, then from the store.
func (m *Manager[T]) Delete(ctx context.Context, id string) error {
	if m.dao == nil {
		return errors.NewMissingDriver()
	}
	if id == "" {
		return errors.NewMissingInput(errors.CodeMissingID)
	}
	if err := m.dao.Delete(ctx, id); err != nil {
		m.emit(events.LevelError, m.key("delete", "failed"), id, err)
		return err
	}
	return m.Unregister(ctx, identifier.ExtractDomain(id), id)
}

// Load fetches id from the remote collection and registers it under the
// domain derived from id. An empty id loads the whole collection and
// derives the domain of each item independently.
func (m *Manager[T]) Load(ctx context.Context, id string) ([]RegistrationResult, error) {
	if m.dao == nil {
		return nil, errors.NewMissingDriver()
	}

	if id == "" {
		raws, err := m.dao.LoadAll(ctx)
		if err != nil {
			return nil, err
		}
		m.logger.Infow("collection loaded", logger.FieldCount, len(raws))
		if len(raws) == 0 {
			return []RegistrationResult{}, nil
		}
		return m.RegisterWithoutDomain(ctx, raws)
	}

	raw, err := m.dao.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return m.Register(ctx, identifier.ExtractDomain(id), raw)
}

// LoadSome fetches ids from the remote collection and registers them.
func (m *Manager[T]) LoadSome(ctx context.Context, ids []string) ([]RegistrationResult, error) {
	if m.dao == nil {
		return nil, errors.NewMissingDriver()
	}
	raws, err := m.dao.LoadSome(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(raws) == 0 {
		return []RegistrationResult{}, nil
	}
	return m.RegisterWithoutDomain(ctx, raws)
}
