package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sort"
	"strings"

	"rewards_backend/internal/avatar"
	"rewards_backend/internal/catalog"
	"rewards_backend/internal/domain"
	"rewards_backend/internal/metrics"
)

var (
	ErrGenderRequired = errors.New("gender is required")
	ErrInvalidColor   = errors.New("invalid color")
	ErrLockedItems    = errors.New("avatar uses locked items")
	ErrTeacherOnly    = errors.New("item is reserved for teachers")
)

// Render sizes.
const (
	DefaultRenderSize = 512
	MinRenderSize     = 64
	MaxRenderSize     = 1024
)

// LockedItemsError lists the selected items the user has not unlocked.
type LockedItemsError struct {
	Items []string
}

func (e *LockedItemsError) Error() string {
	return fmt.Sprintf("%s: %s", ErrLockedItems, strings.Join(e.Items, ", "))
}

func (e *LockedItemsError) Is(target error) bool { return target == ErrLockedItems }

// AvatarStore is implemented by repository.UserRepository.
type AvatarStore interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	SaveAvatar(ctx context.Context, userID int64, cfg domain.AvatarConfig) error
}

// UnlockLookup is implemented by repository.RewardRepository.
type UnlockLookup interface {
	Missing(ctx context.Context, userID int64, names []string) ([]string, error)
}

type AvatarService struct {
	users   AvatarStore
	unlocks UnlockLookup
	loader  *avatar.Loader
	audit   *AuditService
}

func NewAvatarService(users AvatarStore, unlocks UnlockLookup, loader *avatar.Loader, audit *AuditService) *AvatarService {
	return &AvatarService{users: users, unlocks: unlocks, loader: loader, audit: audit}
}

// Get returns the saved avatar or the default one.
func (s *AvatarService) Get(ctx context.Context, userID int64) (domain.AvatarConfig, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return domain.AvatarConfig{}, err
	}
	if u.Avatar == nil {
		return domain.DefaultAvatarConfig(), nil
	}
	return Normalize(*u.Avatar), nil
}

// Normalize fills empty selectors with "none" and empty colors with the
// defaults.
func Normalize(cfg domain.AvatarConfig) domain.AvatarConfig {
	def := domain.DefaultAvatarConfig()
	for _, f := range []*string{
		&cfg.Hair, &cfg.Eyes, &cfg.Mouth, &cfg.Nose,
		&cfg.Glasses, &cfg.Shirt, &cfg.Sweater, &cfg.Accessory,
	} {
		*f = strings.TrimSpace(*f)
		if domain.IsNone(*f) {
			*f = domain.NoneItem
		}
	}
	if strings.TrimSpace(cfg.SkinTone) == "" {
		cfg.SkinTone = def.SkinTone
	}
	if strings.TrimSpace(cfg.SweaterColor) == "" {
		cfg.SweaterColor = def.SweaterColor
	}
	return cfg
}

// Save validates and stores cfg. Students may only wear unlocked items and
// the default features and never a teacher cape; teachers skip the unlock
// check.
func (s *AvatarService) Save(ctx context.Context, userID int64, cfg domain.AvatarConfig) (domain.AvatarConfig, error) {
	if !cfg.Gender.Valid() {
		return domain.AvatarConfig{}, ErrGenderRequired
	}
	cfg = Normalize(cfg)
	if _, ok := avatar.ParseHexColor(cfg.SkinTone); !ok {
		return domain.AvatarConfig{}, fmt.Errorf("%w: skin_tone", ErrInvalidColor)
	}
	if _, ok := avatar.ParseHexColor(cfg.SweaterColor); !ok {
		return domain.AvatarConfig{}, fmt.Errorf("%w: sweater_color", ErrInvalidColor)
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return domain.AvatarConfig{}, err
	}
	if u.Role != domain.RoleTeacher {
		if avatar.IsTeacherCape(cfg.Sweater) {
			return domain.AvatarConfig{}, fmt.Errorf("%w: %s", ErrTeacherOnly, cfg.Sweater)
		}
		if err := s.checkUnlocked(ctx, userID, cfg); err != nil {
			return domain.AvatarConfig{}, err
		}
	}

	if err := s.users.SaveAvatar(ctx, userID, cfg); err != nil {
		return domain.AvatarConfig{}, fmt.Errorf("save avatar: %w", err)
	}
	s.audit.LogAvatarSaved(ctx, userID, cfg)
	return cfg, nil
}

func (s *AvatarService) checkUnlocked(ctx context.Context, userID int64, cfg domain.AvatarConfig) error {
	free := make(map[string]struct{})
	for _, id := range domain.DefaultAvatarConfig().Items() {
		free[catalog.NormalizeName(id)] = struct{}{}
	}

	var names []string
	for _, id := range cfg.Items() {
		n := catalog.NormalizeName(id)
		if _, ok := free[n]; ok {
			continue
		}
		names = append(names, n)
	}
	if len(names) == 0 {
		return nil
	}
	sort.Strings(names)

	missing, err := s.unlocks.Missing(ctx, userID, names)
	if err != nil {
		return fmt.Errorf("check unlocked items: %w", err)
	}
	if len(missing) > 0 {
		return &LockedItemsError{Items: missing}
	}
	return nil
}

// ClampSize maps a requested render size into the allowed range.
func ClampSize(size int) int {
	switch {
	case size <= 0:
		return DefaultRenderSize
	case size < MinRenderSize:
		return MinRenderSize
	case size > MaxRenderSize:
		return MaxRenderSize
	}
	return size
}

// Render draws cfg at the given size. Assets that cannot be loaded are left
// out of the picture.
func (s *AvatarService) Render(ctx context.Context, cfg domain.AvatarConfig, size int) *image.RGBA {
	img := avatar.RenderConfig(ctx, s.loader, avatar.Resolve(Normalize(cfg)), ClampSize(size))
	metrics.AvatarRenders.Inc()
	return img
}

// Loader exposes the shared asset loader for live previews.
func (s *AvatarService) Loader() *avatar.Loader {
	return s.loader
}
