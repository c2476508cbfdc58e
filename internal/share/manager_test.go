package share

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Karannkx/Kxshare/internal/crypto"
	"github.com/Karannkx/Kxshare/internal/store"
)

type fixture struct {
	manager *Manager
	store   *store.MemoryStore
	cipher  *crypto.Cipher
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	c, err := crypto.New("test passphrase")
	require.NoError(t, err)

	f := &fixture{
		store:  store.NewMemoryStore(),
		cipher: c,
		now:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.manager = NewManager(f.store, c, WithClock(func() time.Time { return f.now }))
	t.Cleanup(func() { f.store.Close() })
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func TestCreateEncryptsEverything(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, err := f.manager.Create(ctx, "ghp_secret", "acme", "widgets", 7, "hunter2")
	require.NoError(t, err)

	assert.NotEmpty(t, rec.ID)
	assert.True(t, rec.Protected)
	assert.Equal(t, f.now, rec.CreatedAt)
	assert.Equal(t, f.now.Add(7*24*time.Hour), rec.ExpiresAt)

	// Nothing secret-bearing is stored in the clear.
	for _, ciphertext := range []string{rec.EncryptedToken, rec.EncryptedOwner, rec.EncryptedRepo, rec.Password} {
		assert.NotContains(t, ciphertext, "ghp_secret")
		assert.NotContains(t, ciphertext, "acme")
		assert.NotContains(t, ciphertext, "widgets")
		assert.NotContains(t, ciphertext, "hunter2")
	}

	token, owner, repo, err := f.manager.Credentials(rec)
	require.NoError(t, err)
	assert.Equal(t, "ghp_secret", token)
	assert.Equal(t, "acme", owner)
	assert.Equal(t, "widgets", repo)
}

func TestCreateWithoutPassword(t *testing.T) {
	f := newFixture(t)

	rec, err := f.manager.Create(context.Background(), "tok", "acme", "widgets", 1, "")
	require.NoError(t, err)

	assert.False(t, rec.Protected)
	assert.Empty(t, rec.Password)
}

func TestCreateRejectsBadExpiry(t *testing.T) {
	f := newFixture(t)

	// Values past the horizon would overflow the duration math into a
	// record that is born expired.
	for _, days := range []int{0, -1, -30, maxExpiryDays + 1, 200000, math.MaxInt} {
		_, err := f.manager.Create(context.Background(), "tok", "acme", "widgets", days, "")
		assert.ErrorIs(t, err, ErrInvalidExpiry, "expiry_days=%d", days)
	}
}

func TestCreateAcceptsMaxExpiry(t *testing.T) {
	f := newFixture(t)

	rec, err := f.manager.Create(context.Background(), "tok", "acme", "widgets", maxExpiryDays, "")
	require.NoError(t, err)
	assert.True(t, rec.ExpiresAt.After(rec.CreatedAt))
	assert.Equal(t, f.now.Add(maxExpiryDays*24*time.Hour), rec.ExpiresAt)
}

func TestResolveUnknownID(t *testing.T) {
	f := newFixture(t)

	_, err := f.manager.Resolve(context.Background(), "no-such-share")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExpiryBoundary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, err := f.manager.Create(ctx, "tok", "acme", "widgets", 1, "")
	require.NoError(t, err)

	f.advance(24*time.Hour - time.Second)
	got, err := f.manager.Resolve(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)

	f.advance(2 * time.Second)
	_, err = f.manager.Resolve(ctx, rec.ID)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestExpiredResolutionPurges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, err := f.manager.Create(ctx, "tok", "acme", "widgets", 1, "")
	require.NoError(t, err)

	f.advance(48 * time.Hour)

	_, err = f.manager.Resolve(ctx, rec.ID)
	assert.ErrorIs(t, err, ErrExpired)

	// The first post-expiry resolution removed the record.
	_, err = f.store.Get(ctx, rec.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	// A second resolution sees a missing record, not Expired again.
	_, err = f.manager.Resolve(ctx, rec.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCredentialsCorruptRecord(t *testing.T) {
	f := newFixture(t)

	rec, err := f.manager.Create(context.Background(), "tok", "acme", "widgets", 1, "")
	require.NoError(t, err)

	rec.EncryptedOwner = "garbage"
	_, _, _, err = f.manager.Credentials(rec)
	assert.ErrorIs(t, err, ErrCorruptRecord)
}

func TestAuthorizeUnprotected(t *testing.T) {
	f := newFixture(t)

	rec, err := f.manager.Create(context.Background(), "tok", "acme", "widgets", 1, "")
	require.NoError(t, err)

	assert.Equal(t, Granted, f.manager.Authorize(rec, ""))
	assert.Equal(t, Granted, f.manager.Authorize(rec, "anything"))
}

func TestAuthorizeProtected(t *testing.T) {
	f := newFixture(t)

	rec, err := f.manager.Create(context.Background(), "tok", "acme", "widgets", 1, "secret1")
	require.NoError(t, err)

	assert.Equal(t, PasswordRequired, f.manager.Authorize(rec, ""))
	assert.Equal(t, Denied, f.manager.Authorize(rec, "wrong"))
	assert.Equal(t, Granted, f.manager.Authorize(rec, "secret1"))

	// Stateless: a denied attempt does not poison later correct ones.
	assert.Equal(t, Denied, f.manager.Authorize(rec, "wrong again"))
	assert.Equal(t, Granted, f.manager.Authorize(rec, "secret1"))
}

func TestAuthorizeCorruptCiphertextLooksLikeWrongPassword(t *testing.T) {
	f := newFixture(t)

	rec, err := f.manager.Create(context.Background(), "tok", "acme", "widgets", 1, "secret1")
	require.NoError(t, err)

	rec.Password = "corrupted ciphertext"

	// Indistinguishable from a wrong password: same Decision value.
	assert.Equal(t, Denied, f.manager.Authorize(rec, "secret1"))
}
