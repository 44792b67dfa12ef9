package service

import (
	"context"

	"rewards_backend/internal/domain"
	"rewards_backend/internal/logger"
)

// AuditStore is implemented by repository.AuditRepository.
type AuditStore interface {
	Create(ctx context.Context, log *domain.AuditLog) error
	GetByUserID(ctx context.Context, userID int64, limit int) ([]*domain.AuditLog, error)
	GetByUserCategory(ctx context.Context, userID int64, category string, limit int) ([]*domain.AuditLog, error)
}

// AuditService handles audit logging
type AuditService struct {
	repo AuditStore
}

// NewAuditService creates a new audit service
func NewAuditService(repo AuditStore) *AuditService {
	return &AuditService{repo: repo}
}

// Log creates a new audit log entry. Failures are logged, never returned.
func (s *AuditService) Log(ctx context.Context, userID int64, action, category string, details map[string]interface{}) {
	if s == nil || s.repo == nil {
		return
	}
	log := &domain.AuditLog{
		UserID:   userID,
		Action:   action,
		Category: category,
		Details:  details,
	}

	if err := s.repo.Create(ctx, log); err != nil {
		logger.Error("failed to create audit log", "error", err, "action", action, "user_id", userID)
	}
}

// LogWithRequest creates an audit log with request info (IP, User-Agent)
func (s *AuditService) LogWithRequest(ctx context.Context, userID int64, action, category, ip, userAgent string, details map[string]interface{}) {
	if s == nil || s.repo == nil {
		return
	}
	log := &domain.AuditLog{
		UserID:    userID,
		Action:    action,
		Category:  category,
		Details:   details,
		IP:        ip,
		UserAgent: userAgent,
	}

	if err := s.repo.Create(ctx, log); err != nil {
		logger.Error("failed to create audit log", "error", err, "action", action, "user_id", userID)
	}
}

// LogChestOpen logs the start of a chest session
func (s *AuditService) LogChestOpen(ctx context.Context, userID int64, sessionID string, trigger ChestTrigger, draw domain.Draw) {
	s.Log(ctx, userID, domain.AuditActionChestOpen, domain.AuditCategoryReward, map[string]interface{}{
		"session_id": sessionID,
		"trigger":    string(trigger),
		"rarity":     string(draw.Rarity),
		"items":      len(draw.Rewards),
	})
}

// LogRewardGrant logs rewards that were newly stored for a user
func (s *AuditService) LogRewardGrant(ctx context.Context, userID int64, action string, stored []domain.UnlockedReward) {
	if len(stored) == 0 {
		return
	}
	names := make([]string, 0, len(stored))
	for _, r := range stored {
		names = append(names, r.Name)
	}
	s.Log(ctx, userID, action, domain.AuditCategoryReward, map[string]interface{}{
		"names": names,
	})
}

// LogAvatarSaved logs an avatar change
func (s *AuditService) LogAvatarSaved(ctx context.Context, userID int64, cfg domain.AvatarConfig) {
	s.Log(ctx, userID, domain.AuditActionAvatarSaved, domain.AuditCategoryAvatar, map[string]interface{}{
		"gender": string(cfg.Gender),
		"items":  cfg.Items(),
	})
}

// GetUserAuditLogs returns audit logs for a user
func (s *AuditService) GetUserAuditLogs(ctx context.Context, userID int64, limit int) ([]*domain.AuditLog, error) {
	return s.repo.GetByUserID(ctx, userID, limit)
}

// GetUserLogsByCategory returns one category of a user's audit logs
func (s *AuditService) GetUserLogsByCategory(ctx context.Context, userID int64, category string, limit int) ([]*domain.AuditLog, error) {
	return s.repo.GetByUserCategory(ctx, userID, category, limit)
}
