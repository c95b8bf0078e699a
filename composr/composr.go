// Package composr wires one event bus, one remote driver and the three item
// managers (phrases, snippets, virtual domains) into a Core.
package composr

import (
	"database/sql"

	"go.uber.org/zap"

	"github.com/teranos/composr/am"
	"github.com/teranos/composr/dao"
	"github.com/teranos/composr/db"
	"github.com/teranos/composr/driver"
	"github.com/teranos/composr/errors"
	"github.com/teranos/composr/events"
	"github.com/teranos/composr/logger"
	"github.com/teranos/composr/manager"
	"github.com/teranos/composr/models"
	"github.com/teranos/composr/snapshot"
	"github.com/teranos/composr/store"
)

// Item names, used as event key prefixes.
const (
	PhrasesName        = "phrases"
	SnippetsName       = "snippets"
	VirtualDomainsName = "virtualdomains"
)

// Core is a running composr instance.
type Core struct {
	// Events is shared by every manager.
	Events *events.Bus

	Phrases        *manager.Manager[*models.Phrase]
	Snippets       *manager.Manager[*models.Snippet]
	VirtualDomains *manager.Manager[*models.VirtualDomain]

	PhraseDAO        *dao.DAO
	SnippetDAO       *dao.DAO
	VirtualDomainDAO *dao.DAO

	cfg      *am.Config
	holder   *driver.Holder
	snapshot *snapshot.Store
	snapDB   *sql.DB // owned, closed by Close
	logger   *zap.SugaredLogger
}

// Option configures New.
type Option func(*options)

type options struct {
	driver   driver.Driver
	snapshot *snapshot.Store
	logger   *zap.SugaredLogger
	bus      *events.Bus
}

// WithDriver installs d instead of building the HTTP driver in InitDriver.
func WithDriver(d driver.Driver) Option {
	return func(o *options) { o.driver = d }
}

// WithSnapshot uses s instead of opening snapshot.path.
func WithSnapshot(s *snapshot.Store) Option {
	return func(o *options) { o.snapshot = s }
}

// WithLogger sets the logger every component derives from.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *options) { o.logger = l }
}

// WithBus shares an existing bus.
func WithBus(b *events.Bus) Option {
	return func(o *options) { o.bus = b }
}

// New builds a Core from cfg. The snapshot database is opened when
// snapshot.enabled is set and no WithSnapshot store was given.
func New(cfg *am.Config, opts ...Option) (*Core, error) {
	if cfg == nil {
		return nil, errors.New("composr: config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	c := &Core{
		Events:   o.bus,
		cfg:      cfg,
		holder:   driver.NewHolder(o.driver),
		snapshot: o.snapshot,
		logger:   logger.OrNop(o.logger).With(logger.FieldComponent, "composr"),
	}
	if c.Events == nil {
		c.Events = events.NewBus()
	}

	if c.snapshot == nil && cfg.Snapshot.Enabled {
		sdb, err := db.OpenWithMigrations(cfg.GetSnapshotPath(), c.logger)
		if err != nil {
			return nil, errors.Wrap(err, "open snapshot database")
		}
		c.snapDB = sdb
		c.snapshot = snapshot.New(sdb, c.logger)
	}

	daoOpts := []dao.Option{dao.WithPageSize(cfg.DAO.PageSize), dao.WithLogger(c.logger)}
	c.PhraseDAO = dao.New(cfg.Collections.Phrases, c.holder, daoOpts...)
	c.SnippetDAO = dao.New(cfg.Collections.Snippets, c.holder, daoOpts...)
	c.VirtualDomainDAO = dao.New(cfg.Collections.VirtualDomains, c.holder, daoOpts...)

	var err error
	c.Phrases, err = manager.New(manager.Config[*models.Phrase]{
		ItemName:    PhrasesName,
		Store:       store.NewChangeSet[*models.Phrase](PhrasesName),
		DAO:         c.PhraseDAO,
		Model:       models.NewPhrase,
		Validator:   models.ValidatePhrase,
		Compiler:    manager.CompilerFunc(models.CompilePhrase),
		Hooks: manager.Hooks[*models.Phrase]{
			PostAdd:    hook[*models.Phrase](c.snapshot, cfg.Collections.Phrases),
			PostRemove: removeHook(c.snapshot, cfg.Collections.Phrases),
		},
		Events:      c.Events,
		Concurrency: cfg.Manager.Concurrency,
		Logger:      c.logger,
	})
	if err != nil {
		return nil, c.closeOnError(err)
	}

	c.Snippets, err = manager.New(manager.Config[*models.Snippet]{
		ItemName:    SnippetsName,
		Store:       store.NewChangeSet[*models.Snippet](SnippetsName),
		DAO:         c.SnippetDAO,
		Model:       models.NewSnippet,
		Validator:   models.ValidateSnippet,
		Compiler:    manager.CompilerFunc(models.CompileSnippet),
		Hooks: manager.Hooks[*models.Snippet]{
			PostAdd:    hook[*models.Snippet](c.snapshot, cfg.Collections.Snippets),
			PostRemove: removeHook(c.snapshot, cfg.Collections.Snippets),
		},
		Events:      c.Events,
		Concurrency: cfg.Manager.Concurrency,
		Logger:      c.logger,
	})
	if err != nil {
		return nil, c.closeOnError(err)
	}

	c.VirtualDomains, err = manager.New(manager.Config[*models.VirtualDomain]{
		ItemName:    VirtualDomainsName,
		Store:       store.NewChangeSet[*models.VirtualDomain](VirtualDomainsName),
		DAO:         c.VirtualDomainDAO,
		Model:       models.NewVirtualDomain,
		Validator:   models.ValidateVirtualDomain,
		Compiler:    manager.CompilerFunc(models.CompileVirtualDomain),
		Hooks: manager.Hooks[*models.VirtualDomain]{
			PostAdd:    hook[*models.VirtualDomain](c.snapshot, cfg.Collections.VirtualDomains),
			PostRemove: removeHook(c.snapshot, cfg.Collections.VirtualDomains),
		},
		Events:      c.Events,
		Concurrency: cfg.Manager.Concurrency,
		Logger:      c.logger,
	})
	if err != nil {
		return nil, c.closeOnError(err)
	}

	return c, nil
}

func hook[T manager.Item](s *snapshot.Store, collection string) manager.Hook[T] {
	if s == nil {
		return nil
	}
	return snapshot.Hook[T](s, collection)
}

func removeHook(s *snapshot.Store, collection string) manager.RemoveHook {
	if s == nil {
		return nil
	}
	return snapshot.RemoveHook(s, collection)
}

func (c *Core) closeOnError(err error) error {
	if cerr := c.Close(); cerr != nil {
		c.logger.Warnw("close after failed construction", logger.FieldError, cerr.Error())
	}
	return err
}

// Config returns the configuration the Core was built from.
func (c *Core) Config() *am.Config {
	return c.cfg
}

// Snapshot returns the snapshot store, or nil when snapshots are disabled.
func (c *Core) Snapshot() *snapshot.Store {
	return c.snapshot
}

// Driver returns the installed driver, or nil.
func (c *Core) Driver() driver.Driver {
	return c.holder.Get()
}

// SetDriver replaces the installed driver. Every DAO sees the new driver on
// its next call.
func (c *Core) SetDriver(d driver.Driver) {
	c.holder.Set(d)
}

// InitDriver builds the HTTP driver from the remote configuration and
// installs it. A driver already installed is kept.
func (c *Core) InitDriver() error {
	if c.holder.Get() != nil {
		return nil
	}
	if err := c.cfg.ValidateRemote(); err != nil {
		return err
	}

	d, err := driver.NewHTTP(driver.HTTPConfig{
		BaseURL:           c.cfg.Remote.BaseURL,
		Token:             c.cfg.Remote.Token,
		Timeout:           c.cfg.Timeout(),
		RequestsPerSecond: c.cfg.Remote.RequestsPerSecond,
		Burst:             c.cfg.Remote.Burst,
		AllowPrivate:      c.cfg.Remote.AllowPrivate,
		Logger:            c.logger,
	})
	if err != nil {
		return errors.Wrap(err, "init remote driver")
	}
	c.holder.Set(d)
	c.logger.Infow("remote driver initialised", "base_url", c.cfg.Remote.BaseURL)
	return nil
}

// Reset empties every manager's store.
func (c *Core) Reset() {
	c.Phrases.ResetItems()
	c.Snippets.ResetItems()
	c.VirtualDomains.ResetItems()
}

// Close uninstalls the driver and releases the snapshot database if New
// opened it. Remote operations fail with MissingDriver afterwards.
func (c *Core) Close() error {
	c.holder.Clear()
	if c.snapDB == nil {
		return nil
	}
	err := c.snapDB.Close()
	c.snapDB = nil
	return err
}
