package domain

import "strings"

// Gender selects the asset subtree for body, hair and clothing layers.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

// NoneItem marks an omitted optional layer.
const NoneItem = "none"

// AvatarConfig describes the visual composition of one character.
type AvatarConfig struct {
	Gender       Gender `json:"gender"`
	SkinTone     string `json:"skin_tone"`
	Hair         string `json:"hair"`
	Eyes         string `json:"eyes"`
	Mouth        string `json:"mouth"`
	Nose         string `json:"nose"`
	Glasses      string `json:"glasses"`
	Shirt        string `json:"shirt"`
	Sweater      string `json:"sweater"`
	Accessory    string `json:"accessory"`
	SweaterColor string `json:"sweater_color"`
}

// DefaultAvatarConfig is used for users that never saved an avatar.
func DefaultAvatarConfig() AvatarConfig {
	return AvatarConfig{
		Gender:       GenderMale,
		SkinTone:     "#e0ac69",
		Hair:         NoneItem,
		Eyes:         "Eyes1",
		Mouth:        "Mouth1",
		Nose:         "Nose1",
		Glasses:      NoneItem,
		Shirt:        NoneItem,
		Sweater:      NoneItem,
		Accessory:    NoneItem,
		SweaterColor: "#ffffff",
	}
}

// IsNone reports whether a layer selector omits its layer.
func IsNone(item string) bool {
	item = strings.TrimSpace(item)
	return item == "" || strings.EqualFold(item, NoneItem)
}

// Items returns the selected (non-none) item ids keyed by slot name.
func (c AvatarConfig) Items() map[string]string {
	out := make(map[string]string)
	for slot, v := range map[string]string{
		"hair":      c.Hair,
		"eyes":      c.Eyes,
		"mouth":     c.Mouth,
		"nose":      c.Nose,
		"glasses":   c.Glasses,
		"shirt":     c.Shirt,
		"sweater":   c.Sweater,
		"accessory": c.Accessory,
	} {
		if !IsNone(v) {
			out[slot] = v
		}
	}
	return out
}
