package domain

import "time"

// AchievementKind is the progress counter an achievement listens to.
type AchievementKind string

const (
	AchievementKindLevel    AchievementKind = "level"
	AchievementKindTutorial AchievementKind = "tutorial"
)

// Achievement - шаблон достижения
type Achievement struct {
	ID          string          `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	Description string          `db:"description" json:"description"`
	Kind        AchievementKind `db:"kind" json:"kind"`
	TargetValue int             `db:"target_value" json:"target_value"`
	XPReward    int64           `db:"xp_reward" json:"xp_reward"`
	IconURL     string          `db:"icon_url" json:"icon_url,omitempty"`
	Visible     bool            `db:"visible" json:"visible"`
}

// UserAchievement - достижение, полученное пользователем
type UserAchievement struct {
	UserID        int64     `db:"user_id" json:"user_id"`
	AchievementID string    `db:"achievement_id" json:"achievement_id"`
	UnlockedAt    time.Time `db:"unlocked_at" json:"unlocked_at"`
	Notified      bool      `db:"notified" json:"notified"`
}
