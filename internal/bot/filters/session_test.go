package filters

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"serotonyl.ru/goats-farm/internal/accounts"
	"serotonyl.ru/goats-farm/internal/features/sessions"
)

func TestCheckAccess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.yaml")
	content := `accounts:
  alice:
    user_agent: "Mozilla/5.0 (Linux; Android 13)"
  bob:
    user_agent: ""
  carol:
    user_agent: "Mozilla/5.0 (Linux; Android 12)"
    proxy: "socks5://127.0.0.1:1080"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	registry, err := accounts.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	svc := sessions.NewService(sessions.NewMemoryStore())
	ctx := context.Background()
	if err := svc.Invalidate(ctx, "carol", errors.New("AUTH_KEY_UNREGISTERED")); err != nil {
		t.Fatal(err)
	}

	f := NewSessionFilter(registry, svc)
	tests := []struct {
		name string
		want bool
	}{
		{"alice", true},
		{"bob", false},   // нет user agent
		{"carol", false}, // помечена недействительной
		{"dave", false},  // нет записи
	}
	for _, tt := range tests {
		acc, ok := f.CheckAccess(ctx, tt.name)
		if ok != tt.want {
			t.Errorf("CheckAccess(%s) = %v, want %v", tt.name, ok, tt.want)
		}
		if ok && acc.Session != tt.name {
			t.Errorf("account session = %q", acc.Session)
		}
	}
}
