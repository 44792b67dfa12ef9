package service

import (
	"context"
	"fmt"

	"rewards_backend/internal/domain"
	"rewards_backend/internal/reward"
)

// UnlockedLister is implemented by repository.RewardRepository.
type UnlockedLister interface {
	ListUnlocked(ctx context.Context, userID int64) ([]domain.UnlockedReward, error)
}

// RewardService exposes owned rewards, draw previews and the starter pack.
type RewardService struct {
	unlocked UnlockedLister
	drawer   Drawer
	recorder *reward.Recorder
	audit    *AuditService
}

func NewRewardService(unlocked UnlockedLister, drawer Drawer, recorder *reward.Recorder, audit *AuditService) *RewardService {
	return &RewardService{unlocked: unlocked, drawer: drawer, recorder: recorder, audit: audit}
}

func (s *RewardService) Unlocked(ctx context.Context, userID int64) ([]domain.UnlockedReward, error) {
	return s.unlocked.ListUnlocked(ctx, userID)
}

// Preview draws a bundle without storing or revealing it.
func (s *RewardService) Preview(ctx context.Context, userID int64, mode domain.DrawMode) (domain.Draw, error) {
	if mode == "" {
		mode = domain.DrawModeNormal
	}
	if mode != domain.DrawModeNormal && mode != domain.DrawModeWelcome {
		return domain.Draw{}, fmt.Errorf("unknown draw mode %q", mode)
	}
	return s.drawer.Draw(ctx, userID, mode)
}

// GrantStarter stores the starter pack; rows the user already has are
// skipped.
func (s *RewardService) GrantStarter(ctx context.Context, userID int64) ([]domain.UnlockedReward, error) {
	stored, err := s.recorder.GrantStarter(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.audit.LogRewardGrant(ctx, userID, domain.AuditActionStarterGrant, stored)
	return stored, nil
}
