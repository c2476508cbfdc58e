package models

import "time"

// Share represents one generated share link. All secret-bearing fields
// hold ciphertext produced by the process cipher; plaintext is never
// persisted. Records are immutable after creation.
type Share struct {
	ID             string    `json:"share_id"`
	EncryptedToken string    `json:"-"`
	EncryptedOwner string    `json:"-"`
	EncryptedRepo  string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	ExpiresAt      time.Time `json:"expiry"`
	Protected      bool      `json:"is_protected"`
	Password       string    `json:"-"` // ciphertext, empty iff Protected is false
}
