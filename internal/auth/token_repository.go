package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

const rawTokenBytes = 32

// GatewayTokenRepository defines the interface for gateway credential
// persistence.
type GatewayTokenRepository interface {
	Issue(ctx context.Context, userID string) (raw string, err error)
	AuthorizeGateway(ctx context.Context, uniqueID, token string) (userID string, err error)
	ListByUser(ctx context.Context, userID string) ([]GatewayToken, error)
	Revoke(ctx context.Context, tokenHash string) error
}

// SQLiteTokenRepository implements GatewayTokenRepository using SQLite.
//
// AuthorizeGateway satisfies the gateway server's authorizer port, so the
// repository plugs straight into the connection accept path.
type SQLiteTokenRepository struct {
	db *sql.DB
}

// NewTokenRepository creates a new SQLite-backed gateway token repository.
func NewTokenRepository(db *sql.DB) *SQLiteTokenRepository {
	return &SQLiteTokenRepository{db: db}
}

// HashToken computes the SHA-256 hash of a raw token for storage.
func HashToken(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}

// Issue creates a new gateway token for a user and returns the raw
// secret. The raw value is shown once; only its hash is stored.
func (r *SQLiteTokenRepository) Issue(ctx context.Context, userID string) (string, error) {
	b := make([]byte, rawTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating gateway token: %w", err)
	}
	raw := hex.EncodeToString(b)

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO gateway_tokens (token_hash, user_id, created_at) VALUES (?, ?, ?)",
		HashToken(raw), userID, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("storing gateway token: %w", err)
	}
	return raw, nil
}

// AuthorizeGateway resolves a presented gateway token to its user. On
// success the installation identifier and last-seen time are recorded
// against the token.
func (r *SQLiteTokenRepository) AuthorizeGateway(ctx context.Context, uniqueID, token string) (string, error) {
	var userID string
	err := r.db.QueryRowContext(ctx,
		"SELECT user_id FROM gateway_tokens WHERE token_hash = ?",
		HashToken(token),
	).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrTokenInvalid
		}
		return "", fmt.Errorf("looking up gateway token: %w", err)
	}

	// Bookkeeping only: an update failure must not reject an otherwise
	// valid credential.
	_, _ = r.db.ExecContext(ctx,
		"UPDATE gateway_tokens SET unique_id = ?, last_seen_at = ? WHERE token_hash = ?",
		uniqueID, time.Now().UTC().Format(time.RFC3339), HashToken(token),
	)

	return userID, nil
}

// ListByUser returns all gateway tokens issued to a user.
func (r *SQLiteTokenRepository) ListByUser(ctx context.Context, userID string) ([]GatewayToken, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT token_hash, user_id, unique_id, created_at, last_seen_at
		 FROM gateway_tokens WHERE user_id = ? ORDER BY created_at ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing gateway tokens: %w", err)
	}
	defer rows.Close()

	tokens := []GatewayToken{}
	for rows.Next() {
		var t GatewayToken
		var createdAt string
		var lastSeen sql.NullString

		if err := rows.Scan(&t.TokenHash, &t.UserID, &t.UniqueID, &createdAt, &lastSeen); err != nil {
			return nil, fmt.Errorf("scanning gateway token: %w", err)
		}
		t.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing token timestamp: %w", err)
		}
		if lastSeen.Valid {
			seen, err := time.Parse(time.RFC3339, lastSeen.String)
			if err != nil {
				return nil, fmt.Errorf("parsing token timestamp: %w", err)
			}
			t.LastSeenAt = &seen
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating gateway tokens: %w", err)
	}
	return tokens, nil
}

// Revoke removes a gateway token by its stored hash.
func (r *SQLiteTokenRepository) Revoke(ctx context.Context, tokenHash string) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM gateway_tokens WHERE token_hash = ?", tokenHash)
	if err != nil {
		return fmt.Errorf("revoking gateway token: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrTokenNotFound
	}
	return nil
}
