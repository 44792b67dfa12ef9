package repository

import (
	"context"

	"rewards_backend/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type AchievementRepository struct {
	db *pgxpool.Pool
}

func NewAchievementRepository(db *pgxpool.Pool) *AchievementRepository {
	return &AchievementRepository{db: db}
}

func (r *AchievementRepository) ListReachable(ctx context.Context, kind domain.AchievementKind, value int) ([]domain.Achievement, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, COALESCE(description, ''), kind, target_value, xp_reward, COALESCE(icon_url, ''), visible
		FROM achievements
		WHERE kind = $1 AND target_value <= $2 AND visible = TRUE
		ORDER BY target_value
	`, string(kind), value)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Achievement
	for rows.Next() {
		var (
			a domain.Achievement
			k string
		)
		if err := rows.Scan(&a.ID, &a.Name, &a.Description, &k, &a.TargetValue, &a.XPReward, &a.IconURL, &a.Visible); err != nil {
			return nil, err
		}
		a.Kind = domain.AchievementKind(k)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AchievementRepository) UnlockedIDs(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT achievement_id FROM user_achievements WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Unlock is idempotent on (user_id, achievement_id).
func (r *AchievementRepository) Unlock(ctx context.Context, userID int64, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `
		INSERT INTO user_achievements (user_id, achievement_id, notified)
		SELECT $1, id, FALSE FROM unnest($2::text[]) AS id
		ON CONFLICT (user_id, achievement_id) DO NOTHING
		RETURNING achievement_id
	`, userID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var inserted []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		inserted = append(inserted, id)
	}
	return inserted, rows.Err()
}

// MarkNotified flags every pending notification of the user as shown.
func (r *AchievementRepository) MarkNotified(ctx context.Context, userID int64) error {
	_, err := r.db.Exec(ctx,
		`UPDATE user_achievements SET notified = TRUE WHERE user_id = $1 AND notified = FALSE`,
		userID,
	)
	return err
}
