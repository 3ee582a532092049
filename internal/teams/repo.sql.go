package teams

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed membership mutations.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// RemoveMember deletes one membership row. The boolean reports whether
// a row existed.
func (r *Repository) RemoveMember(ctx context.Context, teamID, userID int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM team_memberships WHERE team_id = $1 AND user_id = $2`, teamID, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
