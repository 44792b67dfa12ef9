package migrations

import "testing"

func TestNamesAreOrdered(t *testing.T) {
	names, err := Names()
	if err != nil {
		t.Fatalf("names: %v", err)
	}
	if len(names) < 4 {
		t.Fatalf("expected embedded migrations, got %v", names)
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("migrations out of order: %v", names)
		}
	}
	if names[0] != "001_users.sql" {
		t.Fatalf("users table must come first, got %s", names[0])
	}
}
