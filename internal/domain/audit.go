package domain

import "time"

// AuditLog represents an audit log entry for tracking reward and progress actions
type AuditLog struct {
	ID        int64                  `db:"id" json:"id"`
	UserID    int64                  `db:"user_id" json:"user_id"`
	Action    string                 `db:"action" json:"action"`
	Category  string                 `db:"category" json:"category"`
	Details   map[string]interface{} `db:"details" json:"details"`
	IP        string                 `db:"ip" json:"ip,omitempty"`
	UserAgent string                 `db:"user_agent" json:"user_agent,omitempty"`
	CreatedAt time.Time              `db:"created_at" json:"created_at"`
}

// Audit action categories
const (
	AuditCategoryReward   = "reward"
	AuditCategoryProgress = "progress"
	AuditCategoryAvatar   = "avatar"
)

// Audit actions
const (
	// Reward actions
	AuditActionChestOpen    = "chest_open"
	AuditActionRewardGrant  = "reward_grant"
	AuditActionStarterGrant = "starter_grant"

	// Progress actions
	AuditActionXPApplied         = "xp_applied"
	AuditActionLevelUp           = "level_up"
	AuditActionAchievementUnlock = "achievement_unlock"
	AuditActionTutorialCompleted = "tutorial_completed"

	// Avatar actions
	AuditActionAvatarSaved = "avatar_saved"
)
