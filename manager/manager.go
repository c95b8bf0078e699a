// Package manager implements the generic registration pipeline shared by
// every item kind.
//
// A Manager takes raw items, runs each one through
//
//	compile -> model -> validate -> PreAdd -> store -> PostAdd
//
// and reports the outcome per item. A failing item never aborts its batch:
// it becomes a RegistrationResult with Registered=false and a warn event.
// Only a missing domain or an empty item list is returned as an error.
package manager

import (
	"context"

	"go.uber.org/zap"

	"github.com/teranos/composr/errors"
	"github.com/teranos/composr/events"
	"github.com/teranos/composr/identifier"
	"github.com/teranos/composr/logger"
	"github.com/teranos/composr/store"
)

// Raw is the decoded JSON form of an item.
type Raw = map[string]any

// Item is what every managed type exposes.
type Item interface {
	ID() string
	MD5() string
	RawModel() Raw
}

// RegistrationResult is the outcome of registering one raw item.
type RegistrationResult struct {
	ID         string
	Registered bool
	// Err is a *errors.ComposrError when Registered is false.
	Err error
}

// DAO is the persistence capability a manager needs for Load, Save and
// Delete. *dao.DAO implements it.
type DAO interface {
	Load(ctx context.Context, id string) (map[string]any, error)
	LoadSome(ctx context.Context, ids []string) ([]map[string]any, error)
	LoadAll(ctx context.Context) ([]map[string]any, error)
	Save(ctx context.Context, raw map[string]any) error
	Delete(ctx context.Context, id string) error
}

// Compiler turns a raw item into its compiled raw form. ok=false without an
// error signals a rejected item.
type Compiler interface {
	Compile(ctx context.Context, raw Raw) (compiled Raw, ok bool, err error)
}

// CompilerFunc adapts a function to Compiler.
type CompilerFunc func(ctx context.Context, raw Raw) (Raw, bool, error)

// Compile implements Compiler.
func (f CompilerFunc) Compile(ctx context.Context, raw Raw) (Raw, bool, error) {
	return f(ctx, raw)
}

// identityCompiler accepts every raw item unchanged.
type identityCompiler struct{}

func (identityCompiler) Compile(_ context.Context, raw Raw) (Raw, bool, error) {
	return raw, true, nil
}

// Hook runs around the store write of a single item.
type Hook[T Item] func(ctx context.Context, domain string, item T) error

// RemoveHook runs after an item left the store.
type RemoveHook func(ctx context.Context, domain, id string) error

// Hooks are optional side effects around the store. A PreAdd error keeps
// the item out of the store; a PostAdd error restores whatever the store
// held for the key before. PostRemove errors are logged only.
type Hooks[T Item] struct {
	PreAdd     Hook[T]
	PostAdd    Hook[T]
	PostRemove RemoveHook
}

// Config wires a Manager.
type Config[T Item] struct {
	// ItemName prefixes every event key, e.g. "phrases".
	ItemName string

	Store store.Store[T]

	// DAO is optional; Load, Save and Delete fail with MissingDriver without it.
	DAO DAO

	// Model builds an item from its compiled raw form.
	Model func(raw Raw) (T, error)

	// Validator defaults to accepting every item unchanged.
	Validator func(ctx context.Context, item T) (T, error)

	// Compiler defaults to the identity compiler.
	Compiler Compiler

	Hooks Hooks[T]

	// Events defaults to events.Nop.
	Events events.Emitter

	// Concurrency bounds how many items of one Register call are processed
	// at once. Values below 1 mean sequential.
	Concurrency int

	Logger *zap.SugaredLogger
}

// Manager is the registration pipeline for one item kind.
type Manager[T Item] struct {
	itemName    string
	store       store.Store[T]
	dao         DAO
	model       func(Raw) (T, error)
	validator   func(context.Context, T) (T, error)
	compiler    Compiler
	hooks       Hooks[T]
	events      events.Emitter
	concurrency int
	logger      *zap.SugaredLogger
	locks       *keyLocks
}

// New creates a Manager. ItemName, Store and Model are required.
func New[T Item](cfg Config[T]) (*Manager[T], error) {
	if cfg.ItemName == "" {
		return nil, errors.New("manager: item name is required")
	}
	if cfg.Store == nil {
		return nil, errors.Newf("manager %s: store is required", cfg.ItemName)
	}
	if cfg.Model == nil {
		return nil, errors.Newf("manager %s: model constructor is required", cfg.ItemName)
	}

	m := &Manager[T]{
		itemName:    cfg.ItemName,
		store:       cfg.Store,
		dao:         cfg.DAO,
		model:       cfg.Model,
		validator:   cfg.Validator,
		compiler:    cfg.Compiler,
		hooks:       cfg.Hooks,
		events:      cfg.Events,
		concurrency: cfg.Concurrency,
		logger:      logger.OrNop(cfg.Logger).With(logger.FieldItemName, cfg.ItemName),
		locks:       newKeyLocks(),
	}
	if m.validator == nil {
		m.validator = func(_ context.Context, item T) (T, error) { return item, nil }
	}
	if m.compiler == nil {
		m.compiler = identityCompiler{}
	}
	if m.events == nil {
		m.events = events.Nop{}
	}
	if m.concurrency < 1 {
		m.concurrency = 1
	}
	return m, nil
}

// ItemName returns the event key prefix.
func (m *Manager[T]) ItemName() string {
	return m.itemName
}

// Events returns the emitter the manager publishes to.
func (m *Manager[T]) Events() events.Emitter {
	return m.events
}

// Compile runs the configured compiler.
func (m *Manager[T]) Compile(ctx context.Context, raw Raw) (Raw, bool, error) {
	return m.compiler.Compile(ctx, raw)
}

// Validate runs the configured validator.
func (m *Manager[T]) Validate(ctx context.Context, item T) (T, error) {
	return m.validator(ctx, item)
}

// ExtractDomainFromID returns the domain part of id.
func (m *Manager[T]) ExtractDomainFromID(id string) string {
	return identifier.ExtractDomain(id)
}

// ExtractVirtualDomainFromID returns the virtual domain id that id is scoped under.
func (m *Manager[T]) ExtractVirtualDomainFromID(id string) string {
	return identifier.ExtractVirtualDomain(id)
}

func (m *Manager[T]) key(verb string, details ...string) string {
	k := m.itemName + ":" + verb
	for _, d := range details {
		k += ":" + d
	}
	return k
}

func (m *Manager[T]) emit(level events.Level, key string, payload ...any) {
	m.events.Emit(level, key, payload...)
}
