// AngelaMos | 2026
// repository.go

package holder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/angelamos/nestfund/internal/core"
)

type Repository interface {
	Create(ctx context.Context, h *Holder) error
	GetByID(ctx context.Context, id string) (*Holder, error)
	GetByEmail(ctx context.Context, email string) (*Holder, error)
	Update(ctx context.Context, h *Holder) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	IncrementTokenVersion(ctx context.Context, id string) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, h *Holder) error {
	query := `
		INSERT INTO holders (id, email, password_hash, name, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at, token_version`

	err := r.db.GetContext(ctx, h, query,
		h.ID,
		h.Email,
		h.PasswordHash,
		h.Name,
		h.Role,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("create holder: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create holder: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Holder, error) {
	query := `
		SELECT id, email, password_hash, name, role, token_version,
		       created_at, updated_at, deleted_at
		FROM holders
		WHERE id = $1 AND deleted_at IS NULL`

	var h Holder
	err := r.db.GetContext(ctx, &h, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get holder: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get holder: %w", err)
	}

	return &h, nil
}

func (r *repository) GetByEmail(
	ctx context.Context,
	email string,
) (*Holder, error) {
	query := `
		SELECT id, email, password_hash, name, role, token_version,
		       created_at, updated_at, deleted_at
		FROM holders
		WHERE email = $1 AND deleted_at IS NULL`

	var h Holder
	err := r.db.GetContext(ctx, &h, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get holder by email: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get holder by email: %w", err)
	}

	return &h, nil
}

func (r *repository) Update(ctx context.Context, h *Holder) error {
	query := `
		UPDATE holders
		SET name = $2, role = $3, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &h.UpdatedAt, query,
		h.ID,
		h.Name,
		h.Role,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update holder: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update holder: %w", err)
	}

	return nil
}

func (r *repository) UpdatePassword(
	ctx context.Context,
	id, passwordHash string,
) error {
	query := `
		UPDATE holders
		SET password_hash = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("update password: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) IncrementTokenVersion(
	ctx context.Context,
	id string,
) error {
	query := `
		UPDATE holders
		SET token_version = token_version + 1, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("increment token version: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment token version: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("increment token version: %w", core.ErrNotFound)
	}

	return nil
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
