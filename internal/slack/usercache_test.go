package slack

import (
	"fmt"
	"sync"
	"testing"
)

func TestUserCache_GetSet(t *testing.T) {
	cache := NewUserCache()

	// Initially empty
	if user := cache.Get("U123"); user != nil {
		t.Error("expected nil for missing user")
	}

	cache.Set(&User{ID: "U123", Name: "testuser", RealName: "Test User"})

	got := cache.Get("U123")
	if got == nil {
		t.Fatal("expected user after Set")
	}
	if got.Name != "testuser" {
		t.Errorf("expected name testuser, got %s", got.Name)
	}
}

func TestUserCache_SetIgnoresEmpty(t *testing.T) {
	cache := NewUserCache()
	cache.Set(nil)
	cache.Set(&User{Name: "no-id"})
	if cache.Len() != 0 {
		t.Errorf("expected empty cache, got %d entries", cache.Len())
	}
}

func TestUserCache_Missing(t *testing.T) {
	cache := NewUserCache()
	cache.Set(&User{ID: "U1", Name: "one"})

	got := cache.Missing([]string{"U1", "U2", "", "U3", "U2"})
	want := []string{"U2", "U3"}
	if len(got) != len(want) {
		t.Fatalf("Missing() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Missing()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestUserCache_ConcurrentAccess(t *testing.T) {
	cache := NewUserCache()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("U%d", i%10)
			cache.Set(&User{ID: id, Name: id})
			_ = cache.Get(id)
		}(i)
	}
	wg.Wait()
	if cache.Len() != 10 {
		t.Errorf("expected 10 users, got %d", cache.Len())
	}
}

func TestConversationCache_SetTracksWatermark(t *testing.T) {
	cache := NewConversationCache()

	cache.Set(Conversation{ID: "C1", Name: "general", LastRead: "1700000000.000100"})
	ts, ok := cache.LastRead("C1")
	if !ok || ts != "1700000000.000100" {
		t.Errorf("LastRead() = (%q, %v)", ts, ok)
	}

	// A later record without last_read keeps the known watermark.
	cache.Set(Conversation{ID: "C1", Name: "general"})
	if ts, _ := cache.LastRead("C1"); ts != "1700000000.000100" {
		t.Errorf("watermark lost after refresh: %q", ts)
	}

	cache.SetLastRead("C1", "1700000000.000200")
	conv, _ := cache.Get("C1")
	if conv.LastRead != "1700000000.000200" {
		t.Errorf("conversation watermark = %q, want updated value", conv.LastRead)
	}
}
