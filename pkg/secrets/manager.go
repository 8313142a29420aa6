package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/richxcame/langsheet/pkg/logger"
	"go.uber.org/zap"
)

// ProviderType enumerates supported secret backends.
type ProviderType string

const (
	ProviderNone ProviderType = ""
	ProviderAWS  ProviderType = "aws"
	ProviderGCP  ProviderType = "gcp"
)

var (
	// ErrProviderNotConfigured is returned when no provider is configured.
	ErrProviderNotConfigured = errors.New("secrets: provider not configured")
	// ErrInvalidReference indicates an invalid or empty reference string.
	ErrInvalidReference = errors.New("secrets: invalid reference")
	// ErrKeyNotFound is returned when a requested key does not exist in the secret payload.
	ErrKeyNotFound = errors.New("secrets: key not found")
)

// DefaultKey is the payload entry used for secrets stored as a plain string.
const DefaultKey = "value"

// Reference describes the logical location of a secret within a provider.
type Reference struct {
	// Name is used for logging only.
	Name string
	// Path is the provider-specific secret name or ARN.
	Path string
	// Key selects one entry of a JSON secret payload.
	Key string
	// Version requests a specific version when supported by the backend.
	Version string
	// Provider optionally pins the reference to one backend.
	Provider ProviderType
}

// CacheKey returns the cache identifier for the reference.
func (r Reference) CacheKey() string {
	sb := strings.Builder{}
	sb.WriteString(r.Path)
	if r.Version != "" {
		sb.WriteString("@")
		sb.WriteString(r.Version)
	}
	if r.Key != "" {
		sb.WriteString("#")
		sb.WriteString(r.Key)
	}
	return sb.String()
}

// ParseReference converts a raw reference string into a Reference.
// Supported syntax: [provider://]path[@version][#key]
//
//	gcp://translate-api-key
//	aws://prod/langsheet@v3#google_api_key
func ParseReference(name, raw string) (Reference, error) {
	ref := Reference{Name: name}

	clean := strings.TrimSpace(raw)
	if clean == "" {
		return ref, ErrInvalidReference
	}

	if idx := strings.Index(clean, "://"); idx > 0 {
		ref.Provider = ProviderType(clean[:idx])
		clean = clean[idx+3:]
	}

	if idx := strings.Index(clean, "#"); idx >= 0 {
		ref.Key = strings.TrimSpace(clean[idx+1:])
		clean = strings.TrimSpace(clean[:idx])
	}

	if idx := strings.LastIndex(clean, "@"); idx >= 0 {
		ref.Version = strings.TrimSpace(clean[idx+1:])
		clean = strings.TrimSpace(clean[:idx])
	}

	ref.Path = strings.Trim(clean, "/")
	if ref.Path == "" {
		return ref, ErrInvalidReference
	}

	return ref, nil
}

// Secret represents a resolved secret payload.
type Secret struct {
	Data        map[string]string
	Version     string
	RetrievedAt time.Time
}

// Value returns a single entry from the secret payload.
func (s Secret) Value(key string) (string, bool) {
	if s.Data == nil {
		return "", false
	}
	val, ok := s.Data[key]
	return val, ok && val != ""
}

// Config represents the runtime configuration for a Manager instance.
type Config struct {
	Provider ProviderType
	CacheTTL time.Duration
	AWS      AWSConfig
	GCP      GCPConfig
}

// Manager resolves secrets from the configured backend with caching.
type Manager interface {
	GetSecret(ctx context.Context, ref Reference) (Secret, error)
	GetString(ctx context.Context, ref Reference) (string, error)
	Close() error
}

type provider interface {
	Name() ProviderType
	Fetch(ctx context.Context, ref Reference) (Secret, error)
	Close() error
}

type manager struct {
	provider provider
	cacheTTL time.Duration

	mu    sync.RWMutex
	cache map[string]cachedSecret
}

type cachedSecret struct {
	secret    Secret
	expiresAt time.Time
}

// NewManager creates a new Manager for the specified provider configuration.
func NewManager(ctx context.Context, cfg Config) (Manager, error) {
	var prov provider
	var err error

	switch cfg.Provider {
	case ProviderNone:
		return nil, ErrProviderNotConfigured
	case ProviderAWS:
		prov, err = newAWSProvider(ctx, cfg.AWS)
	case ProviderGCP:
		prov, err = newGCPProvider(ctx, cfg.GCP)
	default:
		err = fmt.Errorf("secrets: unsupported provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	return newManager(prov, cfg.CacheTTL), nil
}

func newManager(prov provider, cacheTTL time.Duration) *manager {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &manager{
		provider: prov,
		cacheTTL: cacheTTL,
		cache:    make(map[string]cachedSecret),
	}
}

func (m *manager) Close() error {
	if m.provider != nil {
		return m.provider.Close()
	}
	return nil
}

// GetSecret resolves the full secret payload for the provided reference.
func (m *manager) GetSecret(ctx context.Context, ref Reference) (Secret, error) {
	if err := m.validateRef(ref); err != nil {
		return Secret{}, err
	}

	if secret, ok := m.loadFromCache(ref); ok {
		return secret, nil
	}

	secret, err := m.provider.Fetch(ctx, ref)
	if err != nil {
		logger.Warn("secret fetch failed",
			zap.String("secret_name", ref.Name),
			zap.String("provider", string(m.provider.Name())),
			zap.Error(err))
		return Secret{}, err
	}

	secret.RetrievedAt = time.Now().UTC()
	m.saveToCache(ref, secret)

	logger.Info("secret fetched",
		zap.String("secret_name", ref.Name),
		zap.String("provider", string(m.provider.Name())),
		zap.String("version", secret.Version))

	return secret, nil
}

// GetString returns a single value from the referenced secret. Without a key
// selector the plain-string payload is returned.
func (m *manager) GetString(ctx context.Context, ref Reference) (string, error) {
	secret, err := m.GetSecret(ctx, ref)
	if err != nil {
		return "", err
	}

	key := ref.Key
	if key == "" {
		key = DefaultKey
	}
	if value, ok := secret.Value(key); ok {
		return value, nil
	}

	return "", fmt.Errorf("%w: %s", ErrKeyNotFound, key)
}

func (m *manager) validateRef(ref Reference) error {
	if ref.Path == "" {
		return ErrInvalidReference
	}
	if ref.Provider != ProviderNone && ref.Provider != m.provider.Name() {
		return fmt.Errorf("secrets: reference provider %q does not match manager provider %q", ref.Provider, m.provider.Name())
	}
	return nil
}

func (m *manager) loadFromCache(ref Reference) (Secret, bool) {
	m.mu.RLock()
	entry, ok := m.cache[ref.CacheKey()]
	m.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return Secret{}, false
	}
	return cloneSecret(entry.secret), true
}

func (m *manager) saveToCache(ref Reference, secret Secret) {
	m.mu.Lock()
	m.cache[ref.CacheKey()] = cachedSecret{
		secret:    cloneSecret(secret),
		expiresAt: time.Now().Add(m.cacheTTL),
	}
	m.mu.Unlock()
}

func cloneSecret(src Secret) Secret {
	dst := src
	dst.Data = make(map[string]string, len(src.Data))
	for k, v := range src.Data {
		dst.Data[k] = v
	}
	return dst
}

// ResolveString parses raw and fetches the value it points at.
func ResolveString(ctx context.Context, m Manager, name, raw string) (string, error) {
	ref, err := ParseReference(name, raw)
	if err != nil {
		return "", err
	}
	return m.GetString(ctx, ref)
}
