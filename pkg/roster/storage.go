package roster

import (
	"context"
	"errors"
	"fmt"

	"github.com/cuemby/karatekonnect/pkg/cache"
	"github.com/cuemby/karatekonnect/pkg/credential"
	"github.com/cuemby/karatekonnect/pkg/log"
	"github.com/cuemby/karatekonnect/pkg/metrics"
	"github.com/cuemby/karatekonnect/pkg/storage"
	"github.com/cuemby/karatekonnect/pkg/types"
	"github.com/rs/zerolog"
)

// DocumentClient is the remote store as seen by Storage
type DocumentClient interface {
	FetchDocument(ctx context.Context) (*types.Document, error)
	ReplaceDocument(ctx context.Context, doc *types.Document, token string) (*types.Document, error)
}

// Storage serves roster reads from the local cache, refetches on a miss,
// falls back to stale data when the remote is down, and writes whole
// documents back.
//
// Updates are read-modify-write with no concurrency control: two writers
// racing through UpdateAthlete both replace the full document and the
// later one silently discards the earlier one's change.
type Storage struct {
	cache       *cache.Cache
	credentials *credential.Store
	client      DocumentClient
	logger      zerolog.Logger
}

// Option configures Storage
type Option func(*storageOptions)

type storageOptions struct {
	cacheOpts []cache.Option
}

// WithCacheOptions passes options to the underlying cache
func WithCacheOptions(opts ...cache.Option) Option {
	return func(o *storageOptions) {
		o.cacheOpts = append(o.cacheOpts, opts...)
	}
}

// New creates a Storage over kv (cache and credential) and client
func New(kv storage.Store, client DocumentClient, opts ...Option) *Storage {
	var o storageOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &Storage{
		cache:       cache.New(kv, o.cacheOpts...),
		credentials: credential.NewStore(kv),
		client:      client,
		logger:      log.WithComponent("roster"),
	}
}

// Cache exposes the local cache for status and maintenance commands
func (s *Storage) Cache() *cache.Cache {
	return s.cache
}

// FetchData returns the current document: fresh cache first, then the
// remote store, then any cached copy however old.
func (s *Storage) FetchData(ctx context.Context) (*types.Document, error) {
	doc, err := s.cache.Read()
	if err == nil {
		s.logger.Debug().Msg("Using cached data")
		return doc, nil
	}
	if errors.Is(err, cache.ErrCorrupt) {
		s.logger.Warn().Err(err).Msg("Ignoring unreadable cache")
	}
	var expired *cache.ExpiredError
	errors.As(err, &expired)

	s.logger.Debug().Msg("Fetching remote document")
	doc, fetchErr := s.client.FetchDocument(ctx)
	if fetchErr == nil {
		s.writeCache(doc)
		return doc, nil
	}

	if stale := s.staleCopy(expired); stale != nil {
		metrics.StaleFallbacksTotal.Inc()
		s.logger.Warn().Err(fetchErr).Msg("Using expired cache as fallback")
		return stale, nil
	}

	s.logger.Error().Err(fetchErr).Msg("Fetch failed with no cached data")
	return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, fetchErr)
}

// staleCopy returns the newest cached document of any age. Read already
// removed an expired entry, so that copy comes from expired and is put back
// with its original timestamp for the next failed refresh.
func (s *Storage) staleCopy(expired *cache.ExpiredError) *types.Document {
	if expired != nil {
		if err := s.cache.Restore(expired.Entry); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to restore expired cache entry")
		}
		doc := expired.Entry.Content
		return &doc
	}
	doc, err := s.cache.ReadIgnoringExpiry()
	if err != nil {
		return nil
	}
	return doc
}

// UpdateData replaces the remote document with doc and caches what was sent
func (s *Storage) UpdateData(ctx context.Context, doc *types.Document) (*types.Document, error) {
	token, ok, err := s.credentials.Get()
	if err != nil {
		metrics.UpdatesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %w", ErrUpdateFailed, err)
	}
	if !ok {
		metrics.UpdatesTotal.WithLabelValues("auth_required").Inc()
		return nil, ErrAuthRequired
	}

	if err := doc.Validate(); err != nil {
		metrics.UpdatesTotal.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	sent, err := s.client.ReplaceDocument(ctx, doc, token)
	if err != nil {
		metrics.UpdatesTotal.WithLabelValues("error").Inc()
		s.logger.Error().Err(err).Msg("Update error")
		return nil, fmt.Errorf("%w: %w", ErrUpdateFailed, err)
	}

	metrics.UpdatesTotal.WithLabelValues("success").Inc()
	s.writeCache(sent)
	return sent, nil
}

// GetAthlete returns the athlete with id. ok is false when no such athlete
// exists; the caller decides whether that is an error.
func (s *Storage) GetAthlete(ctx context.Context, id string) (athlete *types.Athlete, ok bool, err error) {
	doc, err := s.FetchData(ctx)
	if err != nil {
		return nil, false, err
	}
	i := doc.Find(id)
	if i < 0 {
		return nil, false, nil
	}
	return &doc.Athletes[i], true, nil
}

// GetAllAthletes returns the roster in document order
func (s *Storage) GetAllAthletes(ctx context.Context) ([]types.Athlete, error) {
	doc, err := s.FetchData(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Athletes, nil
}

// UpdateAthlete merges partial into one athlete and writes the whole
// document back. Every other athlete and field is sent as it was read.
func (s *Storage) UpdateAthlete(ctx context.Context, id string, partial map[string]any) (*types.Document, error) {
	logger := log.WithAthleteID(id)

	doc, err := s.FetchData(ctx)
	if err != nil {
		return nil, err
	}

	i := doc.Find(id)
	if i < 0 {
		return nil, &AthleteNotFoundError{ID: id}
	}
	doc.Athletes[i].Merge(partial)

	updated, err := s.UpdateData(ctx, doc)
	if err != nil {
		return nil, err
	}
	logger.Info().Int("fields", len(partial)).Msg("Athlete updated")
	return updated, nil
}

// SetToken stores the write credential
func (s *Storage) SetToken(token string) error {
	return s.credentials.Set(token)
}

// ClearToken removes the write credential
func (s *Storage) ClearToken() error {
	return s.credentials.Clear()
}

// HasToken reports whether a write credential is configured
func (s *Storage) HasToken() (bool, error) {
	_, ok, err := s.credentials.Get()
	return ok, err
}

func (s *Storage) writeCache(doc *types.Document) {
	if err := s.cache.Write(doc); err != nil {
		s.logger.Error().Err(err).Msg("Cache write error")
		metrics.UpdateComponent(metrics.ComponentCache, false, err.Error())
		return
	}
	metrics.UpdateComponent(metrics.ComponentCache, true, "")
}
