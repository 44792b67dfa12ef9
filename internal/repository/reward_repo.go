package repository

import (
	"context"
	"time"

	"rewards_backend/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type RewardRepository struct {
	db *pgxpool.Pool
}

func NewRewardRepository(db *pgxpool.Pool) *RewardRepository {
	return &RewardRepository{db: db}
}

// OwnedNames returns the normalized names of the user's unlocked rewards.
func (r *RewardRepository) OwnedNames(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT name FROM unlocked_rewards WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func (r *RewardRepository) ListUnlocked(ctx context.Context, userID int64) ([]domain.UnlockedReward, error) {
	rows, err := r.db.Query(ctx, `
		SELECT user_id, name, rarity, category, unlocked_at
		FROM unlocked_rewards
		WHERE user_id = $1
		ORDER BY unlocked_at DESC, name
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.UnlockedReward
	for rows.Next() {
		var (
			u                domain.UnlockedReward
			rarity, category string
		)
		if err := rows.Scan(&u.UserID, &u.Name, &rarity, &category, &u.UnlockedAt); err != nil {
			return nil, err
		}
		u.Rarity = domain.Rarity(rarity)
		u.Category = domain.RewardCategory(category)
		out = append(out, u)
	}
	return out, rows.Err()
}

// UpsertUnlocked inserts all rows in one statement. Rows hitting the
// (user_id, name) unique key are skipped; only written rows come back.
func (r *RewardRepository) UpsertUnlocked(ctx context.Context, in []domain.UnlockedReward) ([]domain.UnlockedReward, error) {
	if len(in) == 0 {
		return nil, nil
	}

	userIDs := make([]int64, len(in))
	names := make([]string, len(in))
	rarities := make([]string, len(in))
	categories := make([]string, len(in))
	times := make([]time.Time, len(in))
	for i, u := range in {
		userIDs[i] = u.UserID
		names[i] = u.Name
		rarities[i] = string(u.Rarity)
		categories[i] = string(u.Category)
		times[i] = u.UnlockedAt
	}

	rows, err := r.db.Query(ctx, `
		INSERT INTO unlocked_rewards (user_id, name, rarity, category, unlocked_at)
		SELECT * FROM unnest($1::bigint[], $2::text[], $3::text[], $4::text[], $5::timestamptz[])
		ON CONFLICT (user_id, name) DO NOTHING
		RETURNING user_id, name, rarity, category, unlocked_at
	`, userIDs, names, rarities, categories, times)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var written []domain.UnlockedReward
	for rows.Next() {
		var (
			u                domain.UnlockedReward
			rarity, category string
		)
		if err := rows.Scan(&u.UserID, &u.Name, &rarity, &category, &u.UnlockedAt); err != nil {
			return nil, err
		}
		u.Rarity = domain.Rarity(rarity)
		u.Category = domain.RewardCategory(category)
		written = append(written, u)
	}
	return written, rows.Err()
}

// Missing returns the names from the list the user has not unlocked.
func (r *RewardRepository) Missing(ctx context.Context, userID int64, names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx,
		`SELECT name FROM unlocked_rewards WHERE user_id = $1 AND name = ANY($2)`,
		userID, names,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	have := make(map[string]struct{}, len(names))
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		have[n] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var missing []string
	for _, n := range names {
		if _, ok := have[n]; !ok {
			missing = append(missing, n)
		}
	}
	return missing, nil
}
