package reward

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"testing/fstest"

	"rewards_backend/internal/catalog"
	"rewards_backend/internal/domain"
)

// memStore implements OwnedStore and UnlockStore with upsert semantics.
type memStore struct {
	mu      sync.Mutex
	rows    map[string]domain.UnlockedReward
	failErr error
}

func newMemStore(names ...string) *memStore {
	s := &memStore{rows: make(map[string]domain.UnlockedReward)}
	for _, n := range names {
		s.rows[key(1, n)] = domain.UnlockedReward{UserID: 1, Name: n}
	}
	return s
}

func key(userID int64, name string) string { return fmt.Sprintf("%d/%s", userID, name) }

func (s *memStore) OwnedNames(_ context.Context, userID int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return nil, s.failErr
	}
	var out []string
	for _, r := range s.rows {
		if r.UserID == userID {
			out = append(out, r.Name)
		}
	}
	return out, nil
}

func (s *memStore) UpsertUnlocked(_ context.Context, rows []domain.UnlockedReward) ([]domain.UnlockedReward, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return nil, s.failErr
	}
	var written []domain.UnlockedReward
	for _, r := range rows {
		k := key(r.UserID, r.Name)
		if _, ok := s.rows[k]; ok {
			continue
		}
		s.rows[k] = r
		written = append(written, r)
	}
	return written, nil
}

// seqRand replays fixed values; IntN always picks index 0 unless scripted.
type seqRand struct {
	floats []float64
	ints   []int
}

func (r *seqRand) Float64() float64 {
	if len(r.floats) == 0 {
		return 0
	}
	f := r.floats[0]
	r.floats = r.floats[1:]
	return f
}

func (r *seqRand) IntN(n int) int {
	if len(r.ints) == 0 {
		return 0
	}
	i := r.ints[0] % n
	r.ints = r.ints[1:]
	return i
}

func tierFS(tiers map[domain.Rarity][]string) fstest.MapFS {
	fsys := fstest.MapFS{}
	for _, r := range domain.AllRarities() {
		body := "["
		for i, n := range tiers[r] {
			if i > 0 {
				body += ","
			}
			body += fmt.Sprintf(`{"name":%q,"category":"other","preview":"p/%s.png"}`, n, n)
		}
		body += "]"
		fsys[string(r)+"/index.json"] = &fstest.MapFile{Data: []byte(body)}
	}
	return fsys
}

func TestDrawExampleScenario(t *testing.T) {
	store := newMemStore("hair1", "eyes2")
	src := catalog.NewFSSource(tierFS(map[domain.Rarity][]string{
		domain.RarityCommon:    {"hair1", "hair2"},
		domain.RarityRare:      {"eyes2"},
		domain.RarityLegendary: {"cape1"},
	}))
	// 0.8 lands in epic with the default table
	s := NewSampler(domain.DefaultRarityTable(), src, store, WithRand(&seqRand{floats: []float64{0.8}}))

	draw, err := s.Draw(context.Background(), 1, domain.DrawModeNormal)
	if err != nil {
		t.Fatalf("draw: %v", err)
	}
	if draw.Rarity != domain.RarityLegendary {
		t.Fatalf("expected fallback to legendary, got %s", draw.Rarity)
	}
	if len(draw.Rewards) != 2 {
		t.Fatalf("expected 2 rewards, got %+v", draw.Rewards)
	}
	if draw.Rewards[0].Name != "cape1" || draw.Rewards[1].Name != "hair2" {
		t.Fatalf("unexpected bundle order %+v", draw.Rewards)
	}

	rec := NewRecorder(store)
	written, err := rec.Record(context.Background(), 1, draw.Rewards)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(written) != 2 {
		t.Fatalf("expected 2 rows written, got %d", len(written))
	}
}

func TestDrawTieBreakFavorsHigherTier(t *testing.T) {
	store := newMemStore()
	src := catalog.NewFSSource(tierFS(map[domain.Rarity][]string{
		domain.RarityCommon: {"hair1"},
		domain.RarityEpic:   {"shirt9"},
	}))
	// rare is empty; common and epic are both one step away
	s := NewSampler(domain.DefaultRarityTable(), src, store, WithRand(&seqRand{floats: []float64{0.5}}))

	draw, err := s.Draw(context.Background(), 1, domain.DrawModeNormal)
	if err != nil {
		t.Fatalf("draw: %v", err)
	}
	if draw.Rarity != domain.RarityEpic {
		t.Fatalf("expected epic, got %s", draw.Rarity)
	}
	if draw.Rewards[0].Name != "shirt9" {
		t.Fatalf("expected epic item first, got %+v", draw.Rewards)
	}
}

func TestDrawWelcomeForcesLegendary(t *testing.T) {
	src := catalog.NewFSSource(tierFS(map[domain.Rarity][]string{
		domain.RarityCommon:    {"a", "b", "c"},
		domain.RarityLegendary: {"crown"},
	}))
	s := NewSampler(domain.DefaultRarityTable(), src, newMemStore(), WithRand(&seqRand{floats: []float64{0.01}}))

	draw, err := s.Draw(context.Background(), 1, domain.DrawModeWelcome)
	if err != nil {
		t.Fatalf("draw: %v", err)
	}
	if draw.Rarity != domain.RarityLegendary || len(draw.Rewards) != 3 {
		t.Fatalf("unexpected draw %+v", draw)
	}
	if draw.Rewards[0].Rarity != domain.RarityLegendary {
		t.Fatalf("expected legendary first, got %+v", draw.Rewards)
	}
	// every item carries the styling of its own tier
	table := domain.DefaultRarityTable()
	for _, it := range draw.Rewards {
		tier := table.Tier(it.Rarity)
		if it.Color != tier.Color || it.Aura != tier.Aura || it.Color == "" {
			t.Fatalf("item %s has style %q/%q, want %q/%q", it.Name, it.Color, it.Aura, tier.Color, tier.Aura)
		}
	}
}

func TestDrawEmptyWhenEverythingOwned(t *testing.T) {
	store := newMemStore("hair1", "eyes2")
	src := catalog.NewFSSource(tierFS(map[domain.Rarity][]string{
		domain.RarityCommon: {"Hair1.png"},
		domain.RarityRare:   {"EYES2"},
	}))
	s := NewSampler(domain.DefaultRarityTable(), src, store)

	draw, err := s.Draw(context.Background(), 1, domain.DrawModeNormal)
	if err != nil {
		t.Fatalf("draw: %v", err)
	}
	if draw.Rewards == nil || len(draw.Rewards) != 0 {
		t.Fatalf("expected explicit empty bundle, got %+v", draw.Rewards)
	}
}

func TestDrawEmptyWhenCatalogUnavailable(t *testing.T) {
	s := NewSampler(domain.DefaultRarityTable(), catalog.NewFSSource(fstest.MapFS{}), newMemStore())

	draw, err := s.Draw(context.Background(), 1, domain.DrawModeNormal)
	if err != nil {
		t.Fatalf("catalog failure must degrade, got %v", err)
	}
	if len(draw.Rewards) != 0 {
		t.Fatalf("expected empty bundle, got %+v", draw.Rewards)
	}
}

func TestDrawOwnedLookupFailure(t *testing.T) {
	store := newMemStore()
	store.failErr = errors.New("db down")
	s := NewSampler(domain.DefaultRarityTable(), catalog.NewFSSource(tierFS(nil)), store)

	if _, err := s.Draw(context.Background(), 1, domain.DrawModeNormal); err == nil {
		t.Fatal("expected error when owned rewards cannot be loaded")
	}
}

func TestDrawNeverReturnsOwnedOrDuplicates(t *testing.T) {
	store := newMemStore("c1", "r1")
	src := catalog.NewFSSource(tierFS(map[domain.Rarity][]string{
		domain.RarityCommon:    {"c1", "c2", "c2", "c3"},
		domain.RarityRare:      {"r1", "r2"},
		domain.RarityEpic:      {"e1"},
		domain.RarityLegendary: {"l1"},
	}))
	s := NewSampler(domain.DefaultRarityTable(), src, store)

	for i := 0; i < 200; i++ {
		draw, err := s.Draw(context.Background(), 1, domain.DrawModeNormal)
		if err != nil {
			t.Fatalf("draw: %v", err)
		}
		if len(draw.Rewards) == 0 || len(draw.Rewards) > DefaultBundleSize {
			t.Fatalf("unexpected bundle size %d", len(draw.Rewards))
		}
		seen := map[string]bool{}
		for j, it := range draw.Rewards {
			if it.Name == "c1" || it.Name == "r1" {
				t.Fatalf("owned item %q in bundle", it.Name)
			}
			if seen[it.Name] {
				t.Fatalf("duplicate %q in bundle %+v", it.Name, draw.Rewards)
			}
			seen[it.Name] = true
			if j > 0 && it.Rarity.Rank() > draw.Rewards[j-1].Rarity.Rank() {
				t.Fatalf("bundle not sorted: %+v", draw.Rewards)
			}
		}
		if draw.Rewards[0].Rarity != draw.Rarity {
			t.Fatalf("first item should come from %s: %+v", draw.Rarity, draw.Rewards)
		}
	}
}

func TestDrawBundleBoundedByRemaining(t *testing.T) {
	store := newMemStore("a", "b")
	src := catalog.NewFSSource(tierFS(map[domain.Rarity][]string{
		domain.RarityCommon: {"a", "b", "c"},
	}))
	s := NewSampler(domain.DefaultRarityTable(), src, store)

	draw, err := s.Draw(context.Background(), 1, domain.DrawModeNormal)
	if err != nil {
		t.Fatalf("draw: %v", err)
	}
	if len(draw.Rewards) != 1 || draw.Rewards[0].Name != "c" {
		t.Fatalf("expected only the unowned item, got %+v", draw.Rewards)
	}
}

func TestRecordIsIdempotent(t *testing.T) {
	store := newMemStore()
	rec := NewRecorder(store)
	bundle := []domain.BundleItem{
		{Name: "Hair7.png", Rarity: domain.RarityEpic},
		{Name: "Glasses3", Rarity: domain.RarityRare},
	}

	first, err := rec.Record(context.Background(), 5, bundle)
	if err != nil || len(first) != 2 {
		t.Fatalf("first record: %v %+v", err, first)
	}
	second, err := rec.Record(context.Background(), 5, bundle)
	if err != nil {
		t.Fatalf("second record: %v", err)
	}
	if len(second) != 0 {
		t.Fatalf("expected no new rows, got %+v", second)
	}

	names, _ := store.OwnedNames(context.Background(), 5)
	if len(names) != 2 {
		t.Fatalf("expected 2 stored rows, got %v", names)
	}
	if first[0].Name != "hair7" || first[0].Category != domain.CategoryHair {
		t.Fatalf("expected normalized name and category, got %+v", first[0])
	}
}

func TestRecordRequiresUser(t *testing.T) {
	rec := NewRecorder(newMemStore())
	if _, err := rec.Record(context.Background(), 0, []domain.BundleItem{{Name: "x"}}); !errors.Is(err, ErrMissingUser) {
		t.Fatalf("expected ErrMissingUser, got %v", err)
	}
}

func TestGrantStarterOnce(t *testing.T) {
	store := newMemStore()
	rec := NewRecorder(store)

	rows, err := rec.GrantStarter(context.Background(), 9)
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
	if len(rows) != len(StarterPack()) {
		t.Fatalf("expected %d rows, got %d", len(StarterPack()), len(rows))
	}
	rows, err = rec.GrantStarter(context.Background(), 9)
	if err != nil || len(rows) != 0 {
		t.Fatalf("second grant should write nothing: %v %d", err, len(rows))
	}
}

func TestInferCategory(t *testing.T) {
	cases := map[string]domain.RewardCategory{
		"hair12":    domain.CategoryHair,
		"Eyes5":     domain.CategoryEyes,
		"mouth2":    domain.CategoryMouth,
		"nose1":     domain.CategoryNose,
		"Shirt4":    domain.CategoryClothing,
		"hoodie1":   domain.CategoryClothing,
		"necklace2": domain.CategoryAccessory,
		"cape1":     domain.CategoryOther,
	}
	for name, want := range cases {
		if got := InferCategory(name); got != want {
			t.Errorf("InferCategory(%q) = %s, want %s", name, got, want)
		}
	}
}
