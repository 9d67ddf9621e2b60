package site

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/skaild/sitegen/internal/audit"
	"github.com/skaild/sitegen/internal/cache"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) Create(ctx context.Context, s *Site) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *mockRepo) GetByDomain(ctx context.Context, domain string) (*Site, error) {
	args := m.Called(ctx, domain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Site), args.Error(1)
}

func (m *mockRepo) List(ctx context.Context, limit, offset int) ([]*Site, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*Site), args.Error(1)
}

func (m *mockRepo) SaveContent(ctx context.Context, siteID string, content *Content, images []GeneratedImage) error {
	args := m.Called(ctx, siteID, content, images)
	return args.Error(0)
}

func (m *mockRepo) ResetContent(ctx context.Context, domain string) error {
	args := m.Called(ctx, domain)
	return args.Error(0)
}

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Trigger(s *Site) bool {
	args := m.Called(s)
	return args.Bool(0)
}

func (m *mockGenerator) Generate(ctx context.Context, s *Site, force bool) (*GenerationResult, error) {
	args := m.Called(ctx, s, force)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*GenerationResult), args.Error(1)
}

type mockAudit struct {
	mock.Mock
}

func (m *mockAudit) Log(ctx context.Context, event audit.Event) {
	m.Called(ctx, event)
}

func completeSite() *Site {
	return &Site{
		ID:      "site-1",
		Domain:  "acme.skaild.com",
		Profile: Profile{Name: "Acme Plumbing", BusinessType: "plumber"},
		Content: &Content{
			Hero:     Hero{Title: "Acme"},
			Services: []Item{{Title: "Repairs"}},
			Features: []Item{{Title: "Fast"}},
		},
		ContentGenerated: true,
	}
}

// TestPurpose: Validates that unknown lookup keys fall back to the default config only in development.
// Scope: Unit Test
// Expected: Development returns DefaultConfig without caching it; production returns ErrSiteNotFound.
func TestService_Load_UnknownDomain(t *testing.T) {
	ctx := context.Background()

	t.Run("development", func(t *testing.T) {
		repo := new(mockRepo)
		c := cache.NewMemory(10, 0)
		svc := NewService(repo, c, nil, nil, nil, Options{Development: true})

		repo.On("GetByDomain", mock.Anything, "nobody.skaild.com").Return(nil, ErrSiteNotFound)

		cfg, err := svc.Load(ctx, "nobody.skaild.com")
		require.NoError(t, err)
		assert.True(t, cfg.Default)
		assert.Equal(t, "Pro Plumbing", cfg.Business.Name)
		assert.Equal(t, "nobody.skaild.com", cfg.Domain)
		assert.Equal(t, 0, c.Len(), "default config must not be cached")
	})

	t.Run("production", func(t *testing.T) {
		repo := new(mockRepo)
		svc := NewService(repo, cache.NewMemory(10, 0), nil, nil, nil, Options{})

		repo.On("GetByDomain", mock.Anything, "nobody.skaild.com").Return(nil, ErrSiteNotFound)

		_, err := svc.Load(ctx, "nobody.skaild.com")
		assert.ErrorIs(t, err, ErrSiteNotFound)
	})
}

// TestPurpose: Validates that a repository failure other than not-found is surfaced.
// Scope: Unit Test
// Expected: The error wraps the store error and nothing is cached.
func TestService_Load_StoreError(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepo)
	c := cache.NewMemory(10, 0)
	svc := NewService(repo, c, nil, nil, nil, Options{Development: true})

	boom := errors.New("connection refused")
	repo.On("GetByDomain", mock.Anything, "acme.skaild.com").Return(nil, boom)

	_, err := svc.Load(ctx, "acme.skaild.com")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())
}

// TestPurpose: Validates that a loaded config is cached and the second load is served from cache.
// Scope: Unit Test
// Expected: The repository is queried exactly once.
func TestService_Load_CachesConfig(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepo)
	c := cache.NewMemory(10, 0)
	svc := NewService(repo, c, nil, nil, nil, Options{CacheTTL: time.Minute})

	repo.On("GetByDomain", mock.Anything, "acme.skaild.com").Return(completeSite(), nil).Once()

	first, err := svc.Load(ctx, "acme.skaild.com")
	require.NoError(t, err)
	second, err := svc.Load(ctx, "acme.skaild.com")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "Acme Plumbing", second.Business.Name)
	repo.AssertNumberOfCalls(t, "GetByDomain", 1)

	raw, err := c.Get(ctx, cache.Key("acme.skaild.com"))
	require.NoError(t, err)
	var cached Config
	require.NoError(t, json.Unmarshal(raw, &cached))
	assert.Equal(t, "site-1", cached.ID)
}

// TestPurpose: Validates that a corrupt cache entry is discarded and reloaded from the store.
// Scope: Unit Test
// Expected: The store is queried and the entry is replaced with valid JSON.
func TestService_Load_CorruptCacheEntry(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepo)
	c := cache.NewMemory(10, 0)
	svc := NewService(repo, c, nil, nil, nil, Options{})

	require.NoError(t, c.Set(ctx, cache.Key("acme.skaild.com"), []byte("{not json"), time.Minute))
	repo.On("GetByDomain", mock.Anything, "acme.skaild.com").Return(completeSite(), nil)

	cfg, err := svc.Load(ctx, "acme.skaild.com")
	require.NoError(t, err)
	assert.Equal(t, "site-1", cfg.ID)
	repo.AssertExpectations(t)
}

// TestPurpose: Validates that generation is triggered only when content is incomplete.
// Scope: Unit Test
// Expected: Trigger is called for a site without content and never for a complete site.
func TestService_Load_TriggersGeneration(t *testing.T) {
	ctx := context.Background()

	t.Run("incomplete content", func(t *testing.T) {
		repo := new(mockRepo)
		gen := new(mockGenerator)
		svc := NewService(repo, cache.NewMemory(10, 0), gen, nil, nil, Options{AutoGenerate: true})

		bare := &Site{ID: "site-2", Domain: "bare.skaild.com", Profile: Profile{Name: "Bare"}}
		repo.On("GetByDomain", mock.Anything, "bare.skaild.com").Return(bare, nil)
		gen.On("Trigger", bare).Return(true)

		cfg, err := svc.Load(ctx, "bare.skaild.com")
		require.NoError(t, err)
		assert.Equal(t, DefaultHeroTitle, cfg.Content.Hero.Title, "stored state is returned with fallbacks")
		gen.AssertCalled(t, "Trigger", bare)
	})

	t.Run("complete content", func(t *testing.T) {
		repo := new(mockRepo)
		gen := new(mockGenerator)
		svc := NewService(repo, cache.NewMemory(10, 0), gen, nil, nil, Options{AutoGenerate: true})

		repo.On("GetByDomain", mock.Anything, "acme.skaild.com").Return(completeSite(), nil)

		_, err := svc.Load(ctx, "acme.skaild.com")
		require.NoError(t, err)
		gen.AssertNotCalled(t, "Trigger", mock.Anything)
	})

	t.Run("auto generation disabled", func(t *testing.T) {
		repo := new(mockRepo)
		gen := new(mockGenerator)
		svc := NewService(repo, cache.NewMemory(10, 0), gen, nil, nil, Options{})

		bare := &Site{ID: "site-2", Domain: "bare.skaild.com"}
		repo.On("GetByDomain", mock.Anything, "bare.skaild.com").Return(bare, nil)

		_, err := svc.Load(ctx, "bare.skaild.com")
		require.NoError(t, err)
		gen.AssertNotCalled(t, "Trigger", mock.Anything)
	})
}

// TestPurpose: Validates that the loaded config is cached before a background pass starts.
// Scope: Unit Test
// Expected: The cache already holds the pre-generation config when Trigger runs,
// so the pass's own cache write is the last one.
func TestService_Load_CachesBeforeTrigger(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepo)
	gen := new(mockGenerator)
	c := cache.NewMemory(10, 0)
	svc := NewService(repo, c, gen, nil, nil, Options{AutoGenerate: true})

	bare := &Site{ID: "site-2", Domain: "bare.skaild.com", Profile: Profile{Name: "Bare"}}
	repo.On("GetByDomain", mock.Anything, "bare.skaild.com").Return(bare, nil)

	var cachedAtTrigger bool
	gen.On("Trigger", bare).Run(func(mock.Arguments) {
		_, err := c.Get(ctx, cache.Key("bare.skaild.com"))
		cachedAtTrigger = err == nil
	}).Return(true)

	_, err := svc.Load(ctx, "bare.skaild.com")
	require.NoError(t, err)
	assert.True(t, cachedAtTrigger)
}

// TestPurpose: Validates that a shared load is not cut short by the caller that started it.
// Scope: Unit Test
// Expected: The store sees a live context even when the request context is already cancelled.
func TestService_Load_DetachedFromCaller(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo := new(mockRepo)
	svc := NewService(repo, cache.NewMemory(10, 0), nil, nil, nil, Options{})

	live := mock.MatchedBy(func(c context.Context) bool {
		_, hasDeadline := c.Deadline()
		return c.Err() == nil && hasDeadline
	})
	repo.On("GetByDomain", live, "acme.skaild.com").Return(completeSite(), nil)

	cfg, err := svc.Load(ctx, "acme.skaild.com")
	require.NoError(t, err)
	assert.Equal(t, "site-1", cfg.ID)
	repo.AssertExpectations(t)
}

// TestPurpose: Validates that site creation assigns UUIDv7 IDs and emits an audit event.
// Scope: Unit Test
// Expected: The stored site has a version 7 ID, a default business type and an empty content block.
func TestService_Create(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepo)
	auditLogger := new(mockAudit)
	svc := NewService(repo, nil, nil, auditLogger, nil, Options{})

	repo.On("GetByDomain", ctx, "new.skaild.com").Return(nil, ErrSiteNotFound)
	repo.On("Create", ctx, mock.MatchedBy(func(s *Site) bool {
		uid, err := uuid.Parse(s.ID)
		return err == nil && uid.Version() == 7 && s.Content == nil && s.Profile.BusinessType == DefaultBusinessType
	})).Return(nil)
	auditLogger.On("Log", ctx, mock.MatchedBy(func(e audit.Event) bool {
		return e.Type == audit.TypeSiteCreated && e.Domain == "new.skaild.com" && e.ActorID == "admin"
	})).Return()

	st, err := svc.Create(ctx, CreateParams{Domain: " New.Skaild.com ", Profile: Profile{Name: "New Co"}}, "admin")
	require.NoError(t, err)
	assert.Equal(t, "new.skaild.com", st.Domain)
	repo.AssertExpectations(t)
	auditLogger.AssertExpectations(t)
}

func TestService_Create_Validation(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepo)
	svc := NewService(repo, nil, nil, nil, nil, Options{})

	_, err := svc.Create(ctx, CreateParams{Domain: "bad domain", Profile: Profile{Name: "x"}}, "")
	assert.ErrorIs(t, err, ErrInvalidDomain)

	_, err = svc.Create(ctx, CreateParams{Domain: "ok.skaild.com"}, "")
	assert.ErrorIs(t, err, ErrMissingBusiness)

	repo.On("GetByDomain", ctx, "taken.skaild.com").Return(completeSite(), nil)
	_, err = svc.Create(ctx, CreateParams{Domain: "taken.skaild.com", Profile: Profile{Name: "x"}}, "")
	assert.ErrorIs(t, err, ErrSiteExists)
}

// TestPurpose: Validates that resetting content clears the store and the cache entry.
// Scope: Unit Test
// Expected: The next load goes back to the store.
func TestService_ResetContent(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepo)
	c := cache.NewMemory(10, 0)
	auditLogger := new(mockAudit)
	svc := NewService(repo, c, nil, auditLogger, nil, Options{})

	require.NoError(t, c.Set(ctx, cache.Key("acme.skaild.com"), []byte("{}"), time.Minute))
	repo.On("ResetContent", ctx, "acme.skaild.com").Return(nil)
	auditLogger.On("Log", ctx, mock.MatchedBy(func(e audit.Event) bool {
		return e.Type == audit.TypeContentReset
	})).Return()

	require.NoError(t, svc.ResetContent(ctx, "acme.skaild.com", "admin"))
	_, err := c.Get(ctx, cache.Key("acme.skaild.com"))
	assert.ErrorIs(t, err, cache.ErrNotFound)
	auditLogger.AssertExpectations(t)
}

func TestService_Generate(t *testing.T) {
	ctx := context.Background()

	t.Run("no generator", func(t *testing.T) {
		svc := NewService(new(mockRepo), nil, nil, nil, nil, Options{})
		_, err := svc.Generate(ctx, "acme.skaild.com", false)
		assert.ErrorIs(t, err, ErrNoGenerator)
	})

	t.Run("forwards force", func(t *testing.T) {
		repo := new(mockRepo)
		gen := new(mockGenerator)
		svc := NewService(repo, nil, gen, nil, nil, Options{})

		st := completeSite()
		repo.On("GetByDomain", ctx, "acme.skaild.com").Return(st, nil)
		gen.On("Generate", ctx, st, true).Return(&GenerationResult{Persisted: true}, nil)

		res, err := svc.Generate(ctx, "acme.skaild.com", true)
		require.NoError(t, err)
		assert.True(t, res.Persisted)
	})
}

func TestService_List_ClampsPagination(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepo)
	svc := NewService(repo, nil, nil, nil, nil, Options{})

	repo.On("List", ctx, 20, 0).Return([]*Site{completeSite()}, nil)

	sites, err := svc.List(ctx, 1000, -5)
	require.NoError(t, err)
	assert.Len(t, sites, 1)
}
