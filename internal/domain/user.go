package domain

import "time"

// UserRole - роль пользователя на платформе
type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleTeacher UserRole = "teacher"
)

// XPPerLevel is the amount of XP needed for each level.
const XPPerLevel = 500

// LevelForXP returns the level reached with the given total XP.
func LevelForXP(xp int64) int {
	if xp <= 0 {
		return 0
	}
	return int(xp / XPPerLevel)
}

type User struct {
	ID           int64         `db:"id" json:"id"`
	Username     string        `db:"username" json:"username"`
	Role         UserRole      `db:"role" json:"role"`
	XP           int64         `db:"xp" json:"xp"`
	Level        int           `db:"level" json:"level"`
	Avatar       *AvatarConfig `db:"avatar" json:"avatar,omitempty"`
	TutorialSeen bool          `db:"tutorial_seen" json:"tutorial_seen"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
}

// XPResult is returned after applying XP to a user.
type XPResult struct {
	XP            int64 `json:"xp"`
	PreviousLevel int   `json:"previous_level"`
	Level         int   `json:"level"`
}

func (r XPResult) LeveledUp() bool {
	return r.Level > r.PreviousLevel
}
