package avatar

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"rewards_backend/internal/domain"
)

// Slot names in back-to-front draw order.
const (
	SlotSkin      = "skin"
	SlotOutline   = "outline"
	SlotMouth     = "mouth"
	SlotNose      = "nose"
	SlotEyes      = "eyes"
	SlotGlasses   = "glasses"
	SlotHair      = "hair"
	SlotShirt     = "shirt"
	SlotSweater   = "sweater"
	SlotAccessory = "accessory"
)

// Layer is one entry of the avatar stack: SimpleLayer, MaskableLayer or
// OmittedLayer.
type Layer interface {
	Slot() string
	// Assets returns the asset paths the layer needs, in draw order.
	Assets() []string
}

// SimpleLayer is a single flat image.
type SimpleLayer struct {
	Name  string
	Asset string
}

func (l SimpleLayer) Slot() string     { return l.Name }
func (l SimpleLayer) Assets() []string { return []string{l.Asset} }

// MaskableLayer draws Fill tinted with Tint, then Outline on top (optional).
type MaskableLayer struct {
	Name    string
	Fill    string
	Outline string
	Tint    string
}

func (l MaskableLayer) Slot() string { return l.Name }

func (l MaskableLayer) Assets() []string {
	if l.Outline == "" {
		return []string{l.Fill}
	}
	return []string{l.Fill, l.Outline}
}

// OmittedLayer keeps the slot in the stack without drawing anything.
type OmittedLayer struct {
	Name string
}

func (l OmittedLayer) Slot() string     { return l.Name }
func (l OmittedLayer) Assets() []string { return nil }

var complexGarment = regexp.MustCompile(`^(Shirt|Sweater)\d+$`)

// capes are worn in the sweater slot and only exist for teachers.
var teacherCape = regexp.MustCompile(`^Cape\d+$`)

// sharedEyes are drawn from the gender-neutral eyes folder.
var sharedEyes = map[string]struct{}{
	"Eyes5": {},
	"Eyes6": {},
	"Eyes7": {},
}

func stripExt(id string) string {
	return strings.TrimSuffix(id, path.Ext(id))
}

// IsComplexGarment reports whether a garment is split into fill and outline.
func IsComplexGarment(id string) bool {
	return complexGarment.MatchString(stripExt(strings.TrimSpace(id)))
}

// IsTeacherCape reports whether a sweater selector names a teacher cape.
func IsTeacherCape(id string) bool {
	return teacherCape.MatchString(stripExt(strings.TrimSpace(id)))
}

// Resolve builds the full layer stack for cfg. Unknown or "none" selectors
// produce an OmittedLayer; Resolve never fails.
func Resolve(cfg domain.AvatarConfig) []Layer {
	g := cfg.Gender
	if !g.Valid() {
		g = domain.GenderMale
	}

	return []Layer{
		MaskableLayer{Name: SlotSkin, Fill: fmt.Sprintf("body/%s/skin.png", g), Tint: cfg.SkinTone},
		SimpleLayer{Name: SlotOutline, Asset: fmt.Sprintf("body/%s/outline.png", g)},
		simple(SlotMouth, cfg.Mouth, "face/mouths"),
		simple(SlotNose, cfg.Nose, "face/noses"),
		eyes(cfg.Eyes, g),
		simple(SlotGlasses, cfg.Glasses, "face/glasses"),
		simple(SlotHair, cfg.Hair, "hair/"+string(g)),
		garment(SlotShirt, cfg.Shirt, fmt.Sprintf("clothes/%s/shirts", g), cfg.SweaterColor),
		sweater(cfg.Sweater, g, cfg.SweaterColor),
		simple(SlotAccessory, cfg.Accessory, "accessories"),
	}
}

func simple(slot, id, dir string) Layer {
	if domain.IsNone(id) {
		return OmittedLayer{Name: slot}
	}
	return SimpleLayer{Name: slot, Asset: dir + "/" + stripExt(strings.TrimSpace(id)) + ".png"}
}

func eyes(id string, g domain.Gender) Layer {
	if domain.IsNone(id) {
		return OmittedLayer{Name: SlotEyes}
	}
	base := stripExt(strings.TrimSpace(id))
	if _, ok := sharedEyes[base]; ok {
		return SimpleLayer{Name: SlotEyes, Asset: "face/eyes/" + base + ".png"}
	}
	return SimpleLayer{Name: SlotEyes, Asset: fmt.Sprintf("face/eyes/%s/%s.png", g, base)}
}

func garment(slot, id, dir, tint string) Layer {
	if domain.IsNone(id) {
		return OmittedLayer{Name: slot}
	}
	base := stripExt(strings.TrimSpace(id))
	if complexGarment.MatchString(base) {
		return MaskableLayer{
			Name:    slot,
			Fill:    dir + "/" + base + "_Fill.png",
			Outline: dir + "/" + base + "_Outline.png",
			Tint:    tint,
		}
	}
	return SimpleLayer{Name: slot, Asset: dir + "/" + base + ".png"}
}

func sweater(id string, g domain.Gender, tint string) Layer {
	if IsTeacherCape(id) {
		return SimpleLayer{Name: SlotSweater, Asset: fmt.Sprintf("clothes/%s/capes/%s.png", g, stripExt(strings.TrimSpace(id)))}
	}
	return garment(SlotSweater, id, fmt.Sprintf("clothes/%s/sweaters", g), tint)
}

// AssetsOf returns every asset path needed by the stack, without duplicates.
func AssetsOf(layers []Layer) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, l := range layers {
		for _, a := range l.Assets() {
			if _, ok := seen[a]; ok {
				continue
			}
			seen[a] = struct{}{}
			out = append(out, a)
		}
	}
	return out
}

// needsCrossfade reports whether a change should fade instead of cutting.
func needsCrossfade(prev, next domain.AvatarConfig) bool {
	return prev.Gender != next.Gender ||
		prev.Hair != next.Hair ||
		prev.Shirt != next.Shirt ||
		prev.Sweater != next.Sweater
}
