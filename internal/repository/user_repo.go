package repository

import (
	"context"
	"encoding/json"
	"errors"

	"rewards_backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, COALESCE(username, ''), role, xp, level, avatar, tutorial_seen, created_at
		 FROM users
		 WHERE id = $1`,
		id,
	)

	var (
		u      domain.User
		role   string
		avatar []byte
	)
	if err := row.Scan(
		&u.ID,
		&u.Username,
		&role,
		&u.XP,
		&u.Level,
		&avatar,
		&u.TutorialSeen,
		&u.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	u.Role = domain.UserRole(role)

	if len(avatar) > 0 {
		var cfg domain.AvatarConfig
		if err := json.Unmarshal(avatar, &cfg); err == nil {
			u.Avatar = &cfg
		}
	}
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	if u.Role == "" {
		u.Role = domain.RoleStudent
	}
	return r.db.QueryRow(ctx,
		`INSERT INTO users (username, role)
		 VALUES ($1, $2)
		 RETURNING id, created_at`,
		u.Username,
		string(u.Role),
	).Scan(&u.ID, &u.CreatedAt)
}

// AddXP adds xp atomically and recomputes the level.
func (r *UserRepository) AddXP(ctx context.Context, userID int64, xp int64) (domain.XPResult, error) {
	var res domain.XPResult
	err := r.db.QueryRow(ctx,
		`UPDATE users
		 SET xp = xp + $2, level = (xp + $2) / $3
		 WHERE id = $1
		 RETURNING xp, level`,
		userID, xp, domain.XPPerLevel,
	).Scan(&res.XP, &res.Level)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return res, ErrUserNotFound
		}
		return res, err
	}
	res.PreviousLevel = domain.LevelForXP(res.XP - xp)
	return res, nil
}

// MarkTutorialSeen returns true only for the call that flipped the flag.
func (r *UserRepository) MarkTutorialSeen(ctx context.Context, userID int64) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET tutorial_seen = TRUE WHERE id = $1 AND tutorial_seen = FALSE`,
		userID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *UserRepository) SaveAvatar(ctx context.Context, userID int64, cfg domain.AvatarConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, `UPDATE users SET avatar = $2 WHERE id = $1`, userID, data)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
