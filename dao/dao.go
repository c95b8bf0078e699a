// Package dao maps manager persistence calls onto a named remote collection.
package dao

import (
	"context"

	"go.uber.org/zap"

	"github.com/teranos/composr/driver"
	"github.com/teranos/composr/errors"
	"github.com/teranos/composr/logger"
)

// DAO reads and writes one remote collection through the driver installed
// in a Holder. The driver is looked up on every call, so a DAO can be built
// before the driver exists.
type DAO struct {
	collection string
	holder     *driver.Holder
	pageSize   int
	logger     *zap.SugaredLogger
}

// Option configures a DAO.
type Option func(*DAO)

// WithPageSize sets the page size used when draining the collection.
func WithPageSize(n int) Option {
	return func(d *DAO) {
		if n > 0 {
			d.pageSize = n
		}
	}
}

// WithLogger sets the logger used for paging diagnostics.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(d *DAO) {
		d.logger = logger.OrNop(l)
	}
}

// New creates a DAO for collection.
func New(collection string, holder *driver.Holder, opts ...Option) *DAO {
	d := &DAO{
		collection: collection,
		holder:     holder,
		pageSize:   DefaultPageSize,
		logger:     logger.OrNop(nil),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Collection returns the remote collection name.
func (d *DAO) Collection() string {
	return d.collection
}

// PageSize returns the configured page size.
func (d *DAO) PageSize() int {
	return d.pageSize
}

func (d *DAO) driver() (driver.Driver, error) {
	drv := d.holder.Get()
	if drv == nil {
		return nil, errors.NewMissingDriver()
	}
	return drv, nil
}

// Load fetches a single record by id.
func (d *DAO) Load(ctx context.Context, id string) (map[string]any, error) {
	if id == "" {
		return nil, errors.NewMissingInput(errors.CodeMissingID)
	}
	drv, err := d.driver()
	if err != nil {
		return nil, err
	}

	record, err := drv.Resource(d.collection, id).Get(ctx)
	if err != nil {
		return nil, translate(err, "Invalid "+d.collection+" load")
	}
	return record, nil
}

// LoadSome drains every page of records whose id is in ids. A nil slice is
// rejected; an empty one is a valid query.
func (d *DAO) LoadSome(ctx context.Context, ids []string) ([]map[string]any, error) {
	if ids == nil {
		return nil, errors.NewMissingInput(errors.CodeMissingIDs)
	}
	drv, err := d.driver()
	if err != nil {
		return nil, err
	}

	query := []map[string]any{driver.InQuery("id", ids)}
	return d.drain(ctx, drv, query)
}

// LoadAll drains every page of the collection.
func (d *DAO) LoadAll(ctx context.Context) ([]map[string]any, error) {
	drv, err := d.driver()
	if err != nil {
		return nil, err
	}
	return d.drain(ctx, drv, nil)
}

func (d *DAO) drain(ctx context.Context, drv driver.Driver, query []map[string]any) ([]map[string]any, error) {
	collection := drv.Collection(d.collection)
	records, err := DrainPages(ctx, d.pageSize, func(ctx context.Context, page, size int) ([]driver.Record, error) {
		d.logger.Debugw("fetching page",
			logger.FieldCollection, d.collection,
			logger.FieldPage, page,
			logger.FieldPageSize, size,
		)
		return collection.Get(ctx, driver.Params{Page: page, PageSize: size, Query: query})
	})
	if err != nil {
		return nil, translate(err, "Invalid "+d.collection+" load")
	}
	d.logger.Debugw("collection drained",
		logger.FieldCollection, d.collection,
		logger.FieldCount, len(records),
	)
	return records, nil
}

// Save upserts raw under raw["id"].
func (d *DAO) Save(ctx context.Context, raw map[string]any) error {
	drv, err := d.driver()
	if err != nil {
		return err
	}
	id, _ := raw["id"].(string)
	if id == "" {
		return errors.NewMissingInput(errors.CodeMissingID)
	}

	if err := drv.Resource(d.collection, id).Update(ctx, raw); err != nil {
		return translate(err, "Invalid "+d.collection+" save")
	}
	return nil
}

// Delete removes the record with id.
func (d *DAO) Delete(ctx context.Context, id string) error {
	drv, err := d.driver()
	if err != nil {
		return err
	}
	if id == "" {
		return errors.NewMissingInput(errors.CodeMissingID)
	}

	if err := drv.Resource(d.collection, id).Delete(ctx); err != nil {
		return translate(err, "Invalid "+d.collection+" delete")
	}
	return nil
}

// translate turns a driver failure into a RemoteOperation error. Transport
// failures carry status 0 and keep the original error as cause.
func translate(err error, message string) error {
	var respErr *driver.ResponseError
	if errors.As(err, &respErr) {
		return errors.NewRemoteError(respErr.Body, message, respErr.Status).WithCause(err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return errors.NewRemoteError(nil, message, 0).WithCause(err)
}
