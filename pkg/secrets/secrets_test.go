package secrets

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name    ProviderType
	secrets map[string]Secret
	err     error
	calls   int32
}

func (f *fakeProvider) Name() ProviderType { return f.name }
func (f *fakeProvider) Close() error       { return nil }

func (f *fakeProvider) Fetch(ctx context.Context, ref Reference) (Secret, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return Secret{}, f.err
	}
	s, ok := f.secrets[ref.Path]
	if !ok {
		return Secret{}, errors.New("not found")
	}
	return s, nil
}

func TestParseReference(t *testing.T) {
	tests := []struct {
		raw     string
		want    Reference
		wantErr bool
	}{
		{
			raw:  "translate-api-key",
			want: Reference{Name: "api", Path: "translate-api-key"},
		},
		{
			raw:  "gcp://translate-api-key@3",
			want: Reference{Name: "api", Path: "translate-api-key", Version: "3", Provider: ProviderGCP},
		},
		{
			raw:  "aws://prod/langsheet#google_api_key",
			want: Reference{Name: "api", Path: "prod/langsheet", Key: "google_api_key", Provider: ProviderAWS},
		},
		{raw: "   ", wantErr: true},
		{raw: "aws:///", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			ref, err := ParseReference("api", tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidReference)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ref)
		})
	}
}

func TestReference_CacheKey(t *testing.T) {
	ref := Reference{Path: "prod/langsheet", Version: "v2", Key: "k"}
	assert.Equal(t, "prod/langsheet@v2#k", ref.CacheKey())
}

func TestManager_GetStringCaches(t *testing.T) {
	prov := &fakeProvider{
		name: ProviderGCP,
		secrets: map[string]Secret{
			"translate-api-key": {Data: map[string]string{DefaultKey: "AIza-test"}},
		},
	}
	m := newManager(prov, time.Minute)

	for i := 0; i < 3; i++ {
		value, err := ResolveString(context.Background(), m, "api", "gcp://translate-api-key")
		require.NoError(t, err)
		assert.Equal(t, "AIza-test", value)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&prov.calls))
}

func TestManager_CacheReturnsCopies(t *testing.T) {
	prov := &fakeProvider{
		name:    ProviderAWS,
		secrets: map[string]Secret{"s": {Data: map[string]string{"a": "1"}}},
	}
	m := newManager(prov, time.Minute)

	first, err := m.GetSecret(context.Background(), Reference{Path: "s"})
	require.NoError(t, err)
	first.Data["a"] = "mutated"

	second, err := m.GetSecret(context.Background(), Reference{Path: "s"})
	require.NoError(t, err)
	assert.Equal(t, "1", second.Data["a"])
}

func TestManager_Errors(t *testing.T) {
	prov := &fakeProvider{
		name:    ProviderAWS,
		secrets: map[string]Secret{"s": {Data: map[string]string{"a": "1"}}},
	}
	m := newManager(prov, 0)

	_, err := m.GetString(context.Background(), Reference{Path: "s", Key: "missing"})
	assert.ErrorIs(t, err, ErrKeyNotFound)

	_, err = m.GetString(context.Background(), Reference{Path: "s", Provider: ProviderGCP})
	assert.ErrorContains(t, err, "does not match")

	_, err = m.GetSecret(context.Background(), Reference{})
	assert.ErrorIs(t, err, ErrInvalidReference)

	prov.err = errors.New("permission denied")
	_, err = m.GetSecret(context.Background(), Reference{Path: "other"})
	assert.EqualError(t, err, "permission denied")
}

func TestNewManager_Validation(t *testing.T) {
	_, err := NewManager(context.Background(), Config{})
	assert.ErrorIs(t, err, ErrProviderNotConfigured)

	_, err = NewManager(context.Background(), Config{Provider: "vault"})
	assert.ErrorContains(t, err, "unsupported provider")

	_, err = NewManager(context.Background(), Config{Provider: ProviderGCP})
	assert.ErrorContains(t, err, "requires project id")

	_, err = NewManager(context.Background(), Config{Provider: ProviderAWS})
	assert.ErrorContains(t, err, "requires region")
}

func TestGCPSecretName(t *testing.T) {
	assert.Equal(t, "projects/p1/secrets/key/versions/latest", gcpSecretName("p1", Reference{Path: "key"}))
	assert.Equal(t, "projects/p1/secrets/key/versions/7", gcpSecretName("p1", Reference{Path: "key", Version: "7"}))
	assert.Equal(t, "projects/x/secrets/y/versions/1", gcpSecretName("p1", Reference{Path: "projects/x/secrets/y/versions/1"}))
}

type fakeSecretsManager struct {
	out *secretsmanager.GetSecretValueOutput
	in  *secretsmanager.GetSecretValueInput
}

func (f *fakeSecretsManager) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.in = params
	return f.out, nil
}

func TestAWSProvider_Fetch(t *testing.T) {
	client := &fakeSecretsManager{out: &secretsmanager.GetSecretValueOutput{
		SecretString: aws.String(`{"google_api_key":"AIza-json"}`),
		VersionId:    aws.String("v9"),
	}}
	p := &awsProvider{client: client}

	secret, err := p.Fetch(context.Background(), Reference{Path: "prod/langsheet", Version: "v9"})
	require.NoError(t, err)
	assert.Equal(t, "AIza-json", secret.Data["google_api_key"])
	assert.Equal(t, "v9", secret.Version)
	assert.Equal(t, "v9", *client.in.VersionId)
}

func TestDecodePayload(t *testing.T) {
	assert.Equal(t, map[string]string{"a": "b"}, decodePayload([]byte(`{"a":"b"}`)))
	assert.Equal(t, map[string]string{DefaultKey: "plain-key"}, decodePayload([]byte("plain-key")))
}
