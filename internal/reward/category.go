package reward

import (
	"strings"

	"rewards_backend/internal/domain"
)

// categoryRules are checked in order; the first matching substring wins.
var categoryRules = []struct {
	category domain.RewardCategory
	needles  []string
}{
	{domain.CategoryHair, []string{"hair"}},
	{domain.CategoryEyes, []string{"eyes"}},
	{domain.CategoryMouth, []string{"mouth"}},
	{domain.CategoryNose, []string{"nose"}},
	{domain.CategoryClothing, []string{"shirt", "sweater", "jacket", "hoodie"}},
	{domain.CategoryAccessory, []string{"glasses", "necklace", "bracelet"}},
}

// InferCategory derives the reward category from its name.
func InferCategory(name string) domain.RewardCategory {
	n := strings.ToLower(name)
	for _, rule := range categoryRules {
		for _, needle := range rule.needles {
			if strings.Contains(n, needle) {
				return rule.category
			}
		}
	}
	return domain.CategoryOther
}
