// Package share owns the share-link lifecycle: creation with encrypted
// credentials, lazy delete-on-read expiry and the password gate.
package share

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Karannkx/Kxshare/internal/crypto"
	"github.com/Karannkx/Kxshare/internal/models"
	"github.com/Karannkx/Kxshare/internal/store"
)

// maxExpiryDays bounds the expiry horizon; an unbounded day count
// would overflow the duration math and produce a share born expired.
const maxExpiryDays = 3650

var (
	ErrInvalidExpiry = errors.New("expiry_days must be between 1 and 3650")
	ErrNotFound      = errors.New("share not found")
	ErrExpired       = errors.New("share has expired")
	// ErrCorruptRecord marks a record whose own token/owner/repo
	// ciphertext no longer decrypts. That never happens for records this
	// process wrote; such a record must not be served.
	ErrCorruptRecord = errors.New("share record is corrupt")
)

type Manager struct {
	store  store.Store
	cipher *crypto.Cipher
	now    func() time.Time
}

type Option func(*Manager)

// WithClock replaces the manager's time source. Tests use it to walk
// records across their expiry boundary.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(st store.Store, c *crypto.Cipher, opts ...Option) *Manager {
	m := &Manager{
		store:  st,
		cipher: c,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create encrypts the credentials, persists a fresh record and returns
// it. password may be empty; a non-empty password marks the share
// protected. A duplicate generated id is a fatal fault, surfaced as an
// error rather than retried.
func (m *Manager) Create(ctx context.Context, token, owner, repo string, expiryDays int, password string) (*models.Share, error) {
	if expiryDays < 1 || expiryDays > maxExpiryDays {
		return nil, ErrInvalidExpiry
	}

	encToken, err := m.cipher.Encrypt(token)
	if err != nil {
		return nil, fmt.Errorf("encrypting token: %w", err)
	}
	encOwner, err := m.cipher.Encrypt(owner)
	if err != nil {
		return nil, fmt.Errorf("encrypting owner: %w", err)
	}
	encRepo, err := m.cipher.Encrypt(repo)
	if err != nil {
		return nil, fmt.Errorf("encrypting repo: %w", err)
	}

	var encPassword string
	if password != "" {
		encPassword, err = m.cipher.Encrypt(password)
		if err != nil {
			return nil, fmt.Errorf("encrypting password: %w", err)
		}
	}

	now := m.now()
	rec := &models.Share{
		ID:             uuid.NewString(),
		EncryptedToken: encToken,
		EncryptedOwner: encOwner,
		EncryptedRepo:  encRepo,
		CreatedAt:      now,
		ExpiresAt:      now.Add(time.Duration(expiryDays) * 24 * time.Hour),
		Protected:      password != "",
		Password:       encPassword,
	}

	if err := m.store.Save(ctx, rec); err != nil {
		if errors.Is(err, store.ErrDuplicateID) {
			return nil, fmt.Errorf("share id collision for %s: %w", rec.ID, err)
		}
		return nil, fmt.Errorf("saving share: %w", err)
	}

	return rec, nil
}

// Resolve looks up a share and enforces lazy expiry: the first
// resolution past the expiry timestamp deletes the record and reports
// ErrExpired; every later resolution sees ErrNotFound.
func (m *Manager) Resolve(ctx context.Context, id string) (*models.Share, error) {
	rec, err := m.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("looking up share: %w", err)
	}

	if m.now().After(rec.ExpiresAt) {
		if err := m.store.Delete(ctx, id); err != nil {
			return nil, fmt.Errorf("purging expired share: %w", err)
		}
		return nil, ErrExpired
	}

	return rec, nil
}

// Credentials decrypts a resolved record's token, owner and repo.
func (m *Manager) Credentials(rec *models.Share) (token, owner, repo string, err error) {
	token, err = m.cipher.Decrypt(rec.EncryptedToken)
	if err != nil {
		return "", "", "", fmt.Errorf("%w: %s", ErrCorruptRecord, rec.ID)
	}
	owner, err = m.cipher.Decrypt(rec.EncryptedOwner)
	if err != nil {
		return "", "", "", fmt.Errorf("%w: %s", ErrCorruptRecord, rec.ID)
	}
	repo, err = m.cipher.Decrypt(rec.EncryptedRepo)
	if err != nil {
		return "", "", "", fmt.Errorf("%w: %s", ErrCorruptRecord, rec.ID)
	}
	return token, owner, repo, nil
}
