package manager

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/composr/errors"
	"github.com/teranos/composr/events"
	"github.com/teranos/composr/store"
)

// fixture is the minimal Item: id and md5 are read straight from the raw map.
type fixture struct {
	raw Raw
}

func newFixture(raw Raw) (*fixture, error) {
	return &fixture{raw: raw}, nil
}

func (f *fixture) ID() string {
	id, _ := f.raw["id"].(string)
	return id
}

func (f *fixture) MD5() string {
	sum, _ := f.raw["md5"].(string)
	return sum
}

func (f *fixture) RawModel() Raw {
	return f.raw
}

type mockStore struct {
	mock.Mock
}

func (s *mockStore) Add(domain string, item *fixture) {
	s.Called(domain, item)
}

func (s *mockStore) Get(domain, id string) (*fixture, bool) {
	args := s.Called(domain, id)
	f, _ := args.Get(0).(*fixture)
	return f, args.Bool(1)
}

func (s *mockStore) GetAsList(domain string) []*fixture {
	args := s.Called(domain)
	list, _ := args.Get(0).([]*fixture)
	return list
}

func (s *mockStore) Remove(domain, id string) {
	s.Called(domain, id)
}

func (s *mockStore) Exists(domain, id string) bool {
	return s.Called(domain, id).Bool(0)
}

func (s *mockStore) Domains() []string {
	list, _ := s.Called().Get(0).([]string)
	return list
}

func (s *mockStore) Reset() {
	s.Called()
}

var _ store.Store[*fixture] = (*mockStore)(nil)

func newManager(t *testing.T, cfg Config[*fixture]) *Manager[*fixture] {
	t.Helper()
	if cfg.ItemName == "" {
		cfg.ItemName = "phrases"
	}
	if cfg.Model == nil {
		cfg.Model = newFixture
	}
	if cfg.Logger == nil {
		cfg.Logger = zaptest.NewLogger(t).Sugar()
	}
	m, err := New(cfg)
	require.NoError(t, err)
	return m
}

func TestNew_RequiredFields(t *testing.T) {
	_, err := New(Config[*fixture]{Store: &mockStore{}, Model: newFixture})
	assert.Error(t, err)

	_, err = New(Config[*fixture]{ItemName: "phrases", Model: newFixture})
	assert.Error(t, err)

	_, err = New(Config[*fixture]{ItemName: "phrases", Store: &mockStore{}})
	assert.Error(t, err)

	m, err := New(Config[*fixture]{ItemName: "phrases", Store: &mockStore{}, Model: newFixture})
	require.NoError(t, err)
	assert.Equal(t, "phrases", m.ItemName())
}

func TestRegister_Array(t *testing.T) {
	s := &mockStore{}
	s.On("Add", "domain", mock.Anything).Twice()
	m := newManager(t, Config[*fixture]{Store: s})

	results, err := m.Register(context.Background(), "domain", Raw{"id": "1"}, Raw{"id": "2"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, RegistrationResult{ID: "1", Registered: true}, results[0])
	assert.Equal(t, RegistrationResult{ID: "2", Registered: true}, results[1])
	s.AssertExpectations(t)
}

func TestRegister_SingleItem(t *testing.T) {
	s := &mockStore{}
	s.On("Add", "domain", mock.Anything).Once()
	m := newManager(t, Config[*fixture]{Store: s})

	results, err := m.Register(context.Background(), "domain", Raw{"id": "1"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Registered)
	assert.Equal(t, "1", results[0].ID)
}

func TestRegister_MissingInput(t *testing.T) {
	s := &mockStore{}
	m := newManager(t, Config[*fixture]{Store: s})
	ctx := context.Background()

	_, err := m.Register(ctx, "", Raw{"id": "1"}, Raw{"id": "2"})
	assert.ErrorIs(t, err, &errors.ComposrError{Kind: errors.KindMissingInput, Code: errors.CodeMissingDomain})

	_, err = m.Register(ctx, "test")
	assert.ErrorIs(t, err, &errors.ComposrError{Kind: errors.KindMissingInput, Code: errors.CodeMissingItems})

	_, err = m.Register(ctx, "test", []Raw(nil)...)
	assert.True(t, errors.IsMissingInput(err))

	s.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
}

func TestRegister_EmitsRegistered(t *testing.T) {
	s := &mockStore{}
	s.On("Add", "domain", mock.Anything)
	rec := &events.Recorder{}
	m := newManager(t, Config[*fixture]{Store: s, Events: rec})

	_, err := m.Register(context.Background(), "domain", Raw{"id": "1"})
	require.NoError(t, err)
	assert.Greater(t, rec.Count(), 0)
	assert.True(t, rec.CalledWith(events.LevelDebug, "phrases:registered"))
}

func TestRegister_PipelineStages(t *testing.T) {
	s := &mockStore{}
	s.On("Add", "test-domain", mock.Anything).Once()

	var compiled, validated int
	m := newManager(t, Config[*fixture]{
		Store: s,
		Compiler: CompilerFunc(func(_ context.Context, raw Raw) (Raw, bool, error) {
			compiled++
			return raw, true, nil
		}),
		Validator: func(_ context.Context, item *fixture) (*fixture, error) {
			validated++
			return item, nil
		},
	})

	_, err := m.Register(context.Background(), "test-domain", Raw{"id": "test-domain!thing"})
	require.NoError(t, err)
	assert.Equal(t, 1, compiled)
	assert.Equal(t, 1, validated)
	s.AssertExpectations(t)
}

func TestRegister_CompiledRawReachesModel(t *testing.T) {
	s := &mockStore{}
	s.On("Add", "d", mock.Anything)
	m := newManager(t, Config[*fixture]{
		Store: s,
		Compiler: CompilerFunc(func(_ context.Context, raw Raw) (Raw, bool, error) {
			return Raw{"id": raw["id"], "compiled": true}, true, nil
		}),
	})

	_, err := m.Register(context.Background(), "d", Raw{"id": "d!x"})
	require.NoError(t, err)

	added := s.Calls[0].Arguments.Get(1).(*fixture)
	assert.Equal(t, true, added.raw["compiled"])
}

func TestRegister_ValidationFails(t *testing.T) {
	s := &mockStore{}
	rec := &events.Recorder{}
	m := newManager(t, Config[*fixture]{
		ItemName: "testObject",
		Store:    s,
		Events:   rec,
		Validator: func(_ context.Context, item *fixture) (*fixture, error) {
			if item.ID() == "invalid" {
				return nil, errors.New("rejected")
			}
			return item, nil
		},
	})

	results, err := m.Register(context.Background(), "domain", Raw{"id": "invalid"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Registered)
	assert.Equal(t, errors.KindValidation, errors.KindOf(results[0].Err))
	assert.True(t, rec.CalledWith(events.LevelWarn, "testObject:not:registered"))
	s.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
}

func TestRegister_CompilationFails(t *testing.T) {
	tests := []struct {
		name     string
		compiler CompilerFunc
	}{
		{
			name: "compiler signals failure",
			compiler: func(context.Context, Raw) (Raw, bool, error) {
				return nil, false, nil
			},
		},
		{
			name: "compiler returns error",
			compiler: func(context.Context, Raw) (Raw, bool, error) {
				return nil, false, errors.New("syntax error")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &mockStore{}
			rec := &events.Recorder{}
			m := newManager(t, Config[*fixture]{
				ItemName: "testObject",
				Store:    s,
				Events:   rec,
				Compiler: tt.compiler,
			})

			results, err := m.Register(context.Background(), "domain", Raw{"id": "valid"})
			require.NoError(t, err)
			assert.False(t, results[0].Registered)
			assert.Equal(t, "valid", results[0].ID)
			assert.Equal(t, errors.KindCompilation, errors.KindOf(results[0].Err))
			assert.True(t, rec.CalledWith(events.LevelWarn, "testObject:not:registered"))
			s.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
		})
	}
}

func TestRegister_ModelError(t *testing.T) {
	s := &mockStore{}
	m := newManager(t, Config[*fixture]{
		Store: s,
		Model: func(Raw) (*fixture, error) { return nil, errors.New("bad shape") },
	})

	results, err := m.Register(context.Background(), "domain", Raw{"id": "domain!x"})
	require.NoError(t, err)
	assert.False(t, results[0].Registered)
	assert.Equal(t, errors.KindValidation, errors.KindOf(results[0].Err))
	s.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
}

func TestRegister_PartialFailureKeepsBatch(t *testing.T) {
	s := &mockStore{}
	s.On("Add", "domain", mock.Anything).Twice()
	m := newManager(t, Config[*fixture]{
		Store: s,
		Validator: func(_ context.Context, item *fixture) (*fixture, error) {
			if item.ID() == "bad" {
				return nil, errors.New("rejected")
			}
			return item, nil
		},
	})

	results, err := m.Register(context.Background(), "domain", Raw{"id": "a"}, Raw{"id": "bad"}, Raw{"id": "b"})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.True(t, results[0].Registered)
	assert.False(t, results[1].Registered)
	assert.True(t, results[2].Registered)
	s.AssertExpectations(t)
}

func TestRegister_Hooks(t *testing.T) {
	t.Run("pre-add runs before the store write", func(t *testing.T) {
		s := &mockStore{}
		s.On("Add", "d", mock.Anything)
		var seenDomain string
		m := newManager(t, Config[*fixture]{
			Store: s,
			Hooks: Hooks[*fixture]{
				PreAdd: func(_ context.Context, domain string, item *fixture) error {
					seenDomain = domain
					s.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
					return nil
				},
			},
		})

		results, err := m.Register(context.Background(), "d", Raw{"id": "d!x"})
		require.NoError(t, err)
		assert.True(t, results[0].Registered)
		assert.Equal(t, "d", seenDomain)
	})

	t.Run("pre-add error keeps item out", func(t *testing.T) {
		s := &mockStore{}
		m := newManager(t, Config[*fixture]{
			Store: s,
			Hooks: Hooks[*fixture]{
				PreAdd: func(context.Context, string, *fixture) error { return errors.New("no") },
			},
		})

		results, err := m.Register(context.Background(), "d", Raw{"id": "d!x"})
		require.NoError(t, err)
		assert.False(t, results[0].Registered)
		s.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
	})

	t.Run("post-add error removes item", func(t *testing.T) {
		s := &mockStore{}
		s.On("Get", "d", "d!x").Return(nil, false).Once()
		s.On("Add", "d", mock.Anything).Once()
		s.On("Remove", "d", "d!x").Once()
		m := newManager(t, Config[*fixture]{
			Store: s,
			Hooks: Hooks[*fixture]{
				PostAdd: func(context.Context, string, *fixture) error { return errors.New("mount failed") },
			},
		})

		results, err := m.Register(context.Background(), "d", Raw{"id": "d!x"})
		require.NoError(t, err)
		assert.False(t, results[0].Registered)
		assert.Contains(t, results[0].Err.Error(), "mount failed")
		s.AssertExpectations(t)
	})

	t.Run("post-add error restores the previous item", func(t *testing.T) {
		failing := false
		m := newManager(t, Config[*fixture]{
			Store: store.NewChangeSet[*fixture]("phrases"),
			Hooks: Hooks[*fixture]{
				PostAdd: func(context.Context, string, *fixture) error {
					if failing {
						return errors.New("mount failed")
					}
					return nil
				},
			},
		})
		ctx := context.Background()

		results, err := m.Register(ctx, "d", Raw{"id": "d!x", "md5": "v1"})
		require.NoError(t, err)
		require.True(t, results[0].Registered)

		failing = true
		results, err = m.Register(ctx, "d", Raw{"id": "d!x", "md5": "v2"})
		require.NoError(t, err)
		assert.False(t, results[0].Registered)

		got, ok := m.GetByID("d!x")
		require.True(t, ok, "previous version must survive the failed update")
		assert.Equal(t, "v1", got.MD5())
	})

	t.Run("post-remove runs after unregister", func(t *testing.T) {
		var removed []string
		m := newManager(t, Config[*fixture]{
			Store: store.NewChangeSet[*fixture]("phrases"),
			Hooks: Hooks[*fixture]{
				PostRemove: func(_ context.Context, domain, id string) error {
					removed = append(removed, domain+"/"+id)
					return errors.New("snapshot gone")
				},
			},
		})
		ctx := context.Background()

		_, err := m.Register(ctx, "d", Raw{"id": "d!x"})
		require.NoError(t, err)
		require.NoError(t, m.Unregister(ctx, "d", "d!x", "d!missing"))

		assert.Equal(t, []string{"d/d!x"}, removed)
		_, ok := m.GetByID("d!x")
		assert.False(t, ok)
	})
}

func TestRegister_RejectsItemsWithoutID(t *testing.T) {
	s := &mockStore{}
	s.On("Add", "d", mock.Anything).Once()
	rec := &events.Recorder{}
	m := newManager(t, Config[*fixture]{ItemName: "testObject", Store: s, Events: rec})
	ctx := context.Background()

	_, err := m.Register(ctx, "d", nil)
	assert.ErrorIs(t, err, &errors.ComposrError{Kind: errors.KindMissingInput, Code: errors.CodeMissingItems})

	results, err := m.Register(ctx, "d", nil, Raw{}, Raw{"name": "anonymous"}, Raw{"id": "d!x"})
	require.NoError(t, err)
	require.Len(t, results, 4)
	for _, r := range results[:3] {
		assert.False(t, r.Registered)
		assert.ErrorIs(t, r.Err, &errors.ComposrError{Kind: errors.KindMissingInput, Code: errors.CodeMissingID})
	}
	assert.True(t, results[3].Registered)
	assert.Equal(t, 3, rec.CountKey(events.LevelWarn, "testObject:not:registered"))
	s.AssertExpectations(t)
}

func TestRegister_CompilerWithoutOutput(t *testing.T) {
	s := &mockStore{}
	m := newManager(t, Config[*fixture]{
		Store: s,
		Compiler: CompilerFunc(func(context.Context, Raw) (Raw, bool, error) {
			return nil, true, nil
		}),
	})

	results, err := m.Register(context.Background(), "d", Raw{"id": "d!x"})
	require.NoError(t, err)
	assert.False(t, results[0].Registered)
	assert.Equal(t, "d!x", results[0].ID)
	assert.Equal(t, errors.KindCompilation, errors.KindOf(results[0].Err))
	s.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
}

func TestBuild_DoesNotStore(t *testing.T) {
	s := &mockStore{}
	m := newManager(t, Config[*fixture]{Store: s})

	item, err := m.Build(context.Background(), "d", Raw{"id": "d!x", "md5": "abc"})
	require.NoError(t, err)
	assert.Equal(t, "d!x", item.ID())

	_, err = m.Build(context.Background(), "d", Raw{})
	assert.True(t, errors.IsMissingInput(err))
	s.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
}

func TestDomains(t *testing.T) {
	m := newManager(t, Config[*fixture]{Store: store.NewChangeSet[*fixture]("phrases")})
	_, err := m.RegisterWithoutDomain(context.Background(), []Raw{{"id": "b!x"}, {"id": "a!y"}, {"id": "b!z"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, m.Domains())
}

func TestRegister_Idempotent(t *testing.T) {
	cs := store.NewChangeSet[*fixture]("phrases")
	m := newManager(t, Config[*fixture]{Store: cs})
	ctx := context.Background()
	raw := Raw{"id": "domain!item", "md5": "abc"}

	for i := 0; i < 2; i++ {
		results, err := m.Register(ctx, "domain", raw)
		require.NoError(t, err)
		assert.True(t, results[0].Registered)
	}
	assert.Len(t, m.GetByDomain("domain"), 1)
}

func TestResetItems(t *testing.T) {
	s := &mockStore{}
	s.On("Reset").Once()
	rec := &events.Recorder{}
	m := newManager(t, Config[*fixture]{ItemName: "myitem", Store: s, Events: rec})

	m.ResetItems()
	s.AssertExpectations(t)
	assert.True(t, rec.CalledWith(events.LevelDebug, "myitem:reset"))
}

func TestExtractDomainFromID(t *testing.T) {
	m := newManager(t, Config[*fixture]{Store: &mockStore{}})

	tests := []struct {
		id   string
		want string
	}{
		{"booqs:demo!loginuser", "booqs:demo"},
		{"test-client!myphrase!:parameter", "test-client"},
		{"booqs:demo!bookWarehouseDetailMock!:id", "booqs:demo"},
		{"booqs:demo!UserModel", "booqs:demo"},
		{"hi:hi", "hi:hi"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, m.ExtractDomainFromID(tt.id), tt.id)
	}

	assert.Equal(t, "d!vd", m.ExtractVirtualDomainFromID("d!vd!x"))
}

func TestUnregister(t *testing.T) {
	t.Run("single id", func(t *testing.T) {
		s := &mockStore{}
		s.On("Exists", "mydomain", "testId").Return(true)
		s.On("Remove", "mydomain", "testId").Once()
		rec := &events.Recorder{}
		m := newManager(t, Config[*fixture]{ItemName: "goodies", Store: s, Events: rec})

		require.NoError(t, m.Unregister(context.Background(), "mydomain", "testId"))
		s.AssertExpectations(t)
		assert.Equal(t, 1, rec.Count())
		assert.True(t, rec.CalledWith(events.LevelDebug, "goodies:unregister:testId"))
	})

	t.Run("missing item warns", func(t *testing.T) {
		s := &mockStore{}
		s.On("Exists", "mydomain", "testId").Return(false).Once()
		rec := &events.Recorder{}
		m := newManager(t, Config[*fixture]{ItemName: "goodies", Store: s, Events: rec})

		require.NoError(t, m.Unregister(context.Background(), "mydomain", "testId"))
		s.AssertNotCalled(t, "Remove", mock.Anything, mock.Anything)
		assert.Equal(t, 1, rec.Count())
		assert.True(t, rec.CalledWith(events.LevelWarn, "goodies:unregister:not:found"))
	})

	t.Run("many ids", func(t *testing.T) {
		s := &mockStore{}
		s.On("Exists", "mydomain", "testId").Return(true)
		s.On("Remove", "mydomain", "testId").Times(5)
		rec := &events.Recorder{}
		m := newManager(t, Config[*fixture]{ItemName: "goodies", Store: s, Events: rec})

		ids := []string{"testId", "testId", "testId", "testId", "testId"}
		require.NoError(t, m.Unregister(context.Background(), "mydomain", ids...))
		s.AssertExpectations(t)
		assert.Equal(t, 5, rec.CountKey(events.LevelDebug, "goodies:unregister:testId"))
	})

	t.Run("missing input", func(t *testing.T) {
		m := newManager(t, Config[*fixture]{Store: &mockStore{}})
		assert.True(t, errors.IsMissingInput(m.Unregister(context.Background(), "", "x")))
		assert.True(t, errors.IsMissingInput(m.Unregister(context.Background(), "d")))
	})
}

func TestRegisterWithoutDomain(t *testing.T) {
	s := &mockStore{}
	s.On("Add", "domainTest", mock.Anything).Twice()
	s.On("Add", "domainTwo", mock.Anything).Once()
	m := newManager(t, Config[*fixture]{Store: s})

	results, err := m.RegisterWithoutDomain(context.Background(), []Raw{
		{"id": "domainTest!phrase"},
		{"id": "domainTwo!phrase"},
		{"id": "domainTest!phrase2"},
	})
	require.NoError(t, err)
	s.AssertExpectations(t)

	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ID
		assert.True(t, r.Registered)
	}
	// grouped by domain in first-seen order
	assert.Equal(t, []string{"domainTest!phrase", "domainTest!phrase2", "domainTwo!phrase"}, ids)
}

func TestRegisterWithoutDomain_InvalidIDs(t *testing.T) {
	s := &mockStore{}
	s.On("Add", "d", mock.Anything).Once()
	rec := &events.Recorder{}
	m := newManager(t, Config[*fixture]{Store: s, Events: rec})

	results, err := m.RegisterWithoutDomain(context.Background(), []Raw{
		{"url": "no-id"},
		{"id": "d!ok"},
		{"id": "!nodomain"},
	})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.True(t, results[0].Registered)
	assert.ErrorIs(t, results[1].Err, &errors.ComposrError{Kind: errors.KindMissingInput, Code: errors.CodeMissingID})
	assert.ErrorIs(t, results[2].Err, &errors.ComposrError{Kind: errors.KindMissingInput, Code: errors.CodeMissingDomain})
	assert.Equal(t, 2, rec.CountKey(events.LevelWarn, "phrases:not:registered"))

	_, err = m.RegisterWithoutDomain(context.Background(), nil)
	assert.True(t, errors.IsMissingInput(err))
}

func TestGetByID(t *testing.T) {
	s := &mockStore{}
	item := &fixture{raw: Raw{"id": "booqs:demo!x"}}
	s.On("Get", "booqs:demo", "booqs:demo!x").Return(item, true)
	s.On("Get", "booqs:demo", "booqs:demo!y").Return(nil, false)
	m := newManager(t, Config[*fixture]{Store: s})

	got, ok := m.GetByID("booqs:demo!x")
	assert.True(t, ok)
	assert.Same(t, item, got)

	got, ok = m.GetByID("booqs:demo!y")
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestGetByDomain(t *testing.T) {
	s := &mockStore{}
	list := []*fixture{{raw: Raw{"id": "d!a"}}}
	s.On("GetAsList", "d").Return(list)
	m := newManager(t, Config[*fixture]{Store: s})

	assert.Equal(t, list, m.GetByDomain("d"))
}

func TestGetByVirtualDomain(t *testing.T) {
	m := newManager(t, Config[*fixture]{Store: store.NewChangeSet[*fixture]("phrases")})
	_, err := m.Register(context.Background(), "d",
		Raw{"id": "d!vd!a"},
		Raw{"id": "d!vd!b"},
		Raw{"id": "d!other!c"},
		Raw{"id": "d!plain"},
	)
	require.NoError(t, err)

	got := m.GetByVirtualDomain("d!vd")
	require.Len(t, got, 2)
	assert.Equal(t, "d!vd!a", got[0].ID())
	assert.Equal(t, "d!vd!b", got[1].ID())
	assert.Empty(t, m.GetByVirtualDomain("d!none"))
}

func TestShouldSave(t *testing.T) {
	candidate := &fixture{raw: Raw{"id": "d!x", "md5": "same"}}

	tests := []struct {
		name   string
		stored *fixture
		found  bool
		want   bool
	}{
		{"nothing stored", nil, false, true},
		{"same md5", &fixture{raw: Raw{"id": "d!x", "md5": "same"}}, true, false},
		{"different md5", &fixture{raw: Raw{"id": "d!x", "md5": "other"}}, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &mockStore{}
			s.On("Get", "d", "d!x").Return(tt.stored, tt.found).Once()
			m := newManager(t, Config[*fixture]{Store: s})

			assert.Equal(t, tt.want, m.ShouldSave(candidate))
			s.AssertCalled(t, "Get", "d", "d!x")
		})
	}
}

func TestValidateAndCompileDefaults(t *testing.T) {
	m := newManager(t, Config[*fixture]{Store: &mockStore{}})
	ctx := context.Background()

	item := &fixture{raw: Raw{"id": "x"}}
	got, err := m.Validate(ctx, item)
	require.NoError(t, err)
	assert.Same(t, item, got)

	raw := Raw{"id": "x"}
	compiled, ok, err := m.Compile(ctx, raw)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, raw, compiled)
}

func TestRegister_DomainInContext(t *testing.T) {
	s := &mockStore{}
	s.On("Add", "d", mock.Anything)

	var compileDomain, validateDomain string
	m := newManager(t, Config[*fixture]{
		Store: s,
		Compiler: CompilerFunc(func(ctx context.Context, raw Raw) (Raw, bool, error) {
			compileDomain = DomainFromContext(ctx)
			return raw, true, nil
		}),
		Validator: func(ctx context.Context, item *fixture) (*fixture, error) {
			validateDomain = DomainFromContext(ctx)
			return item, nil
		},
	})

	_, err := m.Register(context.Background(), "d", Raw{"id": "d!x"})
	require.NoError(t, err)
	assert.Equal(t, "d", compileDomain)
	assert.Equal(t, "d", validateDomain)
	assert.Empty(t, DomainFromContext(context.Background()))
}
