package avatar

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"rewards_backend/internal/domain"
)

type fakeFetcher struct {
	mu      sync.Mutex
	png     []byte
	missing map[string]bool
	gates   map[string]chan struct{}
	calls   map[string]int
}

func newFakeFetcher(t *testing.T) *fakeFetcher {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return &fakeFetcher{
		png:     buf.Bytes(),
		missing: map[string]bool{},
		gates:   map[string]chan struct{}{},
		calls:   map[string]int{},
	}
}

func (f *fakeFetcher) block(path string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[path] = ch
	return ch
}

func (f *fakeFetcher) Fetch(ctx context.Context, p string) (io.ReadCloser, error) {
	f.mu.Lock()
	f.calls[p]++
	gate := f.gates[p]
	missing := f.missing[p]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if missing {
		return nil, os.ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(f.png)), nil
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("update did not finish")
	}
}

func gendersIn(layers []Layer) map[string]bool {
	out := map[string]bool{}
	for _, l := range layers {
		for _, a := range l.Assets() {
			for _, g := range []string{"/male/", "/female/"} {
				if strings.Contains("/"+a, g) {
					out[g] = true
				}
			}
		}
	}
	return out
}

func TestResolve(t *testing.T) {
	cfg := domain.AvatarConfig{
		Gender:       domain.GenderFemale,
		SkinTone:     "#aa8866",
		Hair:         "Hair2.png",
		Eyes:         "Eyes5",
		Mouth:        "Mouth1",
		Nose:         "none",
		Glasses:      "",
		Shirt:        "Shirt3",
		Sweater:      "Hoodie",
		Accessory:    "Necklace1",
		SweaterColor: "#112233",
	}
	layers := Resolve(cfg)

	wantSlots := []string{SlotSkin, SlotOutline, SlotMouth, SlotNose, SlotEyes, SlotGlasses, SlotHair, SlotShirt, SlotSweater, SlotAccessory}
	if len(layers) != len(wantSlots) {
		t.Fatalf("expected %d layers, got %d", len(wantSlots), len(layers))
	}
	for i, l := range layers {
		if l.Slot() != wantSlots[i] {
			t.Fatalf("layer %d: slot %s, want %s", i, l.Slot(), wantSlots[i])
		}
	}

	if skin, ok := layers[0].(MaskableLayer); !ok || skin.Fill != "body/female/skin.png" || skin.Tint != "#aa8866" {
		t.Fatalf("unexpected skin layer %#v", layers[0])
	}
	if _, ok := layers[3].(OmittedLayer); !ok {
		t.Fatalf("none nose should be omitted, got %#v", layers[3])
	}
	if _, ok := layers[5].(OmittedLayer); !ok {
		t.Fatalf("empty glasses should be omitted, got %#v", layers[5])
	}
	if eyes := layers[4].(SimpleLayer); eyes.Asset != "face/eyes/Eyes5.png" {
		t.Fatalf("shared eyes must skip gender folder, got %s", eyes.Asset)
	}
	if hair := layers[6].(SimpleLayer); hair.Asset != "hair/female/Hair2.png" {
		t.Fatalf("unexpected hair asset %s", hair.Asset)
	}
	shirt, ok := layers[7].(MaskableLayer)
	if !ok || shirt.Fill != "clothes/female/shirts/Shirt3_Fill.png" || shirt.Outline != "clothes/female/shirts/Shirt3_Outline.png" || shirt.Tint != "#112233" {
		t.Fatalf("unexpected shirt layer %#v", layers[7])
	}
	if sweater, ok := layers[8].(SimpleLayer); !ok || sweater.Asset != "clothes/female/sweaters/Hoodie.png" {
		t.Fatalf("non-numbered garment should be flat, got %#v", layers[8])
	}
}

func TestResolveGenderedEyesAndUnknownGender(t *testing.T) {
	cfg := domain.DefaultAvatarConfig()
	cfg.Gender = "robot"
	cfg.Eyes = "Eyes2"
	layers := Resolve(cfg)
	if eyes := layers[4].(SimpleLayer); eyes.Asset != "face/eyes/male/Eyes2.png" {
		t.Fatalf("unexpected eyes asset %s", eyes.Asset)
	}
}

func TestResolveTeacherCape(t *testing.T) {
	cfg := domain.DefaultAvatarConfig()
	cfg.Gender = domain.GenderFemale
	cfg.Sweater = "Cape2.png"
	layers := Resolve(cfg)
	cape, ok := layers[8].(SimpleLayer)
	if !ok || cape.Name != SlotSweater || cape.Asset != "clothes/female/capes/Cape2.png" {
		t.Fatalf("unexpected cape layer %#v", layers[8])
	}
	if IsTeacherCape("Cape") || IsTeacherCape("Sweater1") || !IsTeacherCape(" Cape3 ") {
		t.Fatal("cape detection mismatch")
	}
}

func TestIsComplexGarment(t *testing.T) {
	cases := map[string]bool{
		"Shirt1":       true,
		"Sweater12":    true,
		"Sweater3.png": true,
		"Shirt":        false,
		"shirt1":       false,
		"Jacket2":      false,
		"Shirt1b":      false,
	}
	for name, want := range cases {
		if got := IsComplexGarment(name); got != want {
			t.Errorf("IsComplexGarment(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestCompositorKeepsPreviousStackUntilReady(t *testing.T) {
	f := newFakeFetcher(t)
	loader := NewLoader(f, WithCache(NewCache()), WithTimeout(5*time.Second))
	c := NewCompositor(loader, 32)
	defer c.Close()

	male := domain.DefaultAvatarConfig()
	male.Hair = "Hair2"
	waitDone(t, c.Update(male))

	female := male
	female.Gender = domain.GenderFemale
	gate := f.block("hair/female/Hair2.png")
	done := c.Update(female)

	for i := 0; i < 5; i++ {
		snap, ok := c.Visible()
		if !ok {
			t.Fatal("expected a visible stack")
		}
		if snap.Config.Gender != domain.GenderMale {
			t.Fatalf("stack swapped before assets were ready")
		}
		if g := gendersIn(snap.Layers); g["/female/"] {
			t.Fatalf("mixed-gender stack visible: %v", g)
		}
		time.Sleep(10 * time.Millisecond)
	}

	close(gate)
	waitDone(t, done)

	snap, _ := c.Visible()
	if snap.Config.Gender != domain.GenderFemale {
		t.Fatalf("expected female stack after preload")
	}
	if g := gendersIn(snap.Layers); g["/male/"] {
		t.Fatalf("mixed-gender stack visible after swap: %v", g)
	}
	if _, fading := c.FadeStart(); !fading {
		t.Fatal("gender change should crossfade")
	}
}

func TestCompositorNewerUpdateWins(t *testing.T) {
	f := newFakeFetcher(t)
	loader := NewLoader(f, WithCache(NewCache()), WithTimeout(5*time.Second))
	c := NewCompositor(loader, 16)
	defer c.Close()

	slow := domain.DefaultAvatarConfig()
	slow.Hair = "Hair9"
	gate := f.block("hair/male/Hair9.png")
	slowDone := c.Update(slow)

	fast := domain.DefaultAvatarConfig()
	fast.Hair = "Hair1"
	waitDone(t, c.Update(fast))

	close(gate)
	waitDone(t, slowDone)

	snap, _ := c.Visible()
	if snap.Config.Hair != "Hair1" {
		t.Fatalf("stale update committed: %+v", snap.Config)
	}
}

func TestCompositorFailedAssetsDoNotBlock(t *testing.T) {
	f := newFakeFetcher(t)
	f.block("hair/male/Hair3.png") // never released
	f.missing["face/mouths/Mouth1.png"] = true

	loader := NewLoader(f, WithCache(NewCache()), WithTimeout(30*time.Millisecond))
	c := NewCompositor(loader, 16)
	defer c.Close()

	cfg := domain.DefaultAvatarConfig()
	cfg.Hair = "Hair3"
	waitDone(t, c.Update(cfg))

	snap, ok := c.Visible()
	if !ok || snap.Config.Hair != "Hair3" {
		t.Fatalf("expected commit despite failures, got %+v", snap)
	}
}

func TestCompositorCloseDropsPendingUpdate(t *testing.T) {
	f := newFakeFetcher(t)
	loader := NewLoader(f, WithCache(NewCache()), WithTimeout(5*time.Second))
	c := NewCompositor(loader, 16)

	f.block("body/male/skin.png")
	done := c.Update(domain.DefaultAvatarConfig())
	c.Close()
	waitDone(t, done)

	if _, ok := c.Visible(); ok {
		t.Fatal("update must not commit after Close")
	}
	waitDone(t, c.Update(domain.DefaultAvatarConfig()))
}

func TestCompositorCrossfadeFrames(t *testing.T) {
	f := newFakeFetcher(t)
	loader := NewLoader(f, WithCache(NewCache()))
	start := time.Unix(1000, 0)
	c := NewCompositor(loader, 8, WithNow(func() time.Time { return start }))
	defer c.Close()

	cfg := domain.DefaultAvatarConfig()
	waitDone(t, c.Update(cfg))

	cfg.Mouth = "Mouth2"
	waitDone(t, c.Update(cfg))
	if _, fading := c.FadeStart(); fading {
		t.Fatal("mouth change should cut without crossfade")
	}

	cfg.Hair = "Hair4"
	waitDone(t, c.Update(cfg))
	if _, fading := c.FadeStart(); !fading {
		t.Fatal("hair change should crossfade")
	}
	if frame := c.Frame(start.Add(CrossfadeDuration / 2)); frame.Bounds().Dx() != 8 {
		t.Fatalf("unexpected frame size %v", frame.Bounds())
	}
	c.Frame(start.Add(CrossfadeDuration))
	if _, fading := c.FadeStart(); fading {
		t.Fatal("crossfade should end after its duration")
	}
}

func TestWarmCachesBothGendersOfHairAndGarments(t *testing.T) {
	f := newFakeFetcher(t)
	cache := NewCache()
	c := NewCompositor(NewLoader(f, WithCache(cache)), 64)
	defer c.Close()

	c.Warm(domain.AvatarConfig{
		Gender:  domain.GenderMale,
		Hair:    "Hair2",
		Shirt:   "Shirt3",
		Sweater: "Hoodie",
		Mouth:   "Mouth1",
	})

	want := []string{
		"hair/male/Hair2.png",
		"hair/female/Hair2.png",
		"clothes/male/shirts/Shirt3_Fill.png",
		"clothes/male/shirts/Shirt3_Outline.png",
		"clothes/female/shirts/Shirt3_Fill.png",
		"clothes/female/shirts/Shirt3_Outline.png",
		"clothes/male/sweaters/Hoodie.png",
		"clothes/female/sweaters/Hoodie.png",
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		missing := ""
		for _, p := range want {
			if _, ok := cache.Get(p); !ok {
				missing = p
				break
			}
		}
		if missing == "" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("%s was not warmed", missing)
		}
		time.Sleep(5 * time.Millisecond)
	}

	for _, p := range []string{"face/mouths/Mouth1.png", "body/female/skin.png"} {
		if _, ok := cache.Get(p); ok {
			t.Fatalf("%s should not be warmed", p)
		}
	}
	if cache.Len() != len(want) {
		t.Fatalf("expected %d cached assets, got %d", len(want), cache.Len())
	}
}

func TestLoaderCachesSuccessfulLoads(t *testing.T) {
	f := newFakeFetcher(t)
	f.missing["broken.png"] = true
	cache := NewCache()
	loader := NewLoader(f, WithCache(cache))

	ctx := context.Background()
	if loader.Load(ctx, "a.png") == nil {
		t.Fatal("expected image")
	}
	loader.Load(ctx, "a.png")
	if f.calls["a.png"] != 1 {
		t.Fatalf("expected one fetch, got %d", f.calls["a.png"])
	}
	if loader.Load(ctx, "broken.png") != nil {
		t.Fatal("missing asset should resolve to nil")
	}
	if cache.Len() != 1 {
		t.Fatalf("expected 1 cached entry, got %d", cache.Len())
	}
}

func TestRenderTintsMaskableLayer(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for i := range src.Pix {
		src.Pix[i] = 0xff
	}
	layers := []Layer{MaskableLayer{Name: SlotSkin, Fill: "skin", Tint: "#ff0000"}, OmittedLayer{Name: SlotHair}}
	out := Render(layers, map[string]image.Image{"skin": src}, 4)

	c := out.RGBAAt(2, 2)
	if c.R != 0xff || c.A != 0xff {
		t.Fatalf("unexpected pixel %v", c)
	}
	if c.G < 0x70 || c.G > 0x90 {
		t.Fatalf("expected half-opacity tint, got %v", c)
	}

	empty := Render([]Layer{SimpleLayer{Name: SlotHair, Asset: "missing"}}, nil, 4)
	if empty.RGBAAt(1, 1) != (color.RGBA{}) {
		t.Fatal("missing image should render nothing")
	}
}

func TestParseHexColor(t *testing.T) {
	if c, ok := ParseHexColor("#0097e6"); !ok || c.G != 0x97 {
		t.Fatalf("unexpected %v %v", c, ok)
	}
	if c, ok := ParseHexColor("#fff"); !ok || c.R != 0xff {
		t.Fatalf("unexpected %v %v", c, ok)
	}
	if _, ok := ParseHexColor("red"); ok {
		t.Fatal("expected failure")
	}
}
