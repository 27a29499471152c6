package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/doloop/core/internal/domain/entities"
	"github.com/doloop/core/internal/infrastructure/database"
	"github.com/doloop/core/internal/ports"
)

// AuthRepositoryImpl implements the AuthRepository interface
type AuthRepositoryImpl struct {
	db *database.DB
}

// NewAuthRepository creates a new auth repository
func NewAuthRepository(db *database.DB) ports.AuthRepository {
	return &AuthRepositoryImpl{db: db}
}

func (r *AuthRepositoryImpl) CreateRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	query := r.db.DB.Rebind(`
		INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)`)

	_, err := r.db.DB.ExecContext(ctx, query, uuid.New(), userID, tokenHash, expiresAt.UTC(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}

	return nil
}

func (r *AuthRepositoryImpl) GetRefreshToken(ctx context.Context, tokenHash string) (*ports.RefreshToken, error) {
	query := r.db.DB.Rebind(`
		SELECT id, user_id, token_hash, expires_at, created_at, revoked_at
		FROM refresh_tokens
		WHERE token_hash = ?`)

	var token ports.RefreshToken
	err := r.db.DB.GetContext(ctx, &token, query, tokenHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("refresh token %w", entities.ErrNotFound)
		}
		return nil, fmt.Errorf("get refresh token: %w", err)
	}

	return &token, nil
}

func (r *AuthRepositoryImpl) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	query := r.db.DB.Rebind(`
		UPDATE refresh_tokens
		SET revoked_at = ?
		WHERE token_hash = ? AND revoked_at IS NULL`)

	_, err := r.db.DB.ExecContext(ctx, query, time.Now().UTC(), tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}

	return nil
}

func (r *AuthRepositoryImpl) RevokeAllUserTokens(ctx context.Context, userID uuid.UUID) error {
	query := r.db.DB.Rebind(`
		UPDATE refresh_tokens
		SET revoked_at = ?
		WHERE user_id = ? AND revoked_at IS NULL`)

	_, err := r.db.DB.ExecContext(ctx, query, time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("revoke all user tokens: %w", err)
	}

	return nil
}

// CleanupExpiredTokens deletes expired or revoked tokens. Expiry is checked
// in Go so both drivers compare timestamps the same way.
func (r *AuthRepositoryImpl) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	var tokens []ports.RefreshToken
	err := r.db.DB.SelectContext(ctx, &tokens, `
		SELECT id, user_id, token_hash, expires_at, created_at, revoked_at
		FROM refresh_tokens`)
	if err != nil {
		return 0, fmt.Errorf("list refresh tokens: %w", err)
	}

	var removed int64
	query := r.db.DB.Rebind(`DELETE FROM refresh_tokens WHERE id = ?`)
	for _, token := range tokens {
		if token.IsValid() {
			continue
		}
		if _, err := r.db.DB.ExecContext(ctx, query, token.ID); err != nil {
			return removed, fmt.Errorf("cleanup expired tokens: %w", err)
		}
		removed++
	}

	return removed, nil
}
