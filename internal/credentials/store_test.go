package credentials

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestStoreSetGetDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "credentials.toml")
	store := NewStore(path)

	if _, err := store.Get(Service, APIKeyKey); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty store, got %v", err)
	}
	if err := store.Set(Service, APIKeyKey, "  secret-key  "); err != nil {
		t.Fatalf("Set: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat store: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected 0600 permissions, got %o", perm)
	}

	got, err := NewStore(path).Get(Service, APIKeyKey)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "secret-key" {
		t.Fatalf("unexpected secret %q", got)
	}

	if err := store.Delete(Service, APIKeyKey); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete(Service, APIKeyKey); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestStoreRejectsEmptyValue(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "credentials.toml"))
	if err := store.Set(Service, APIKeyKey, "   "); err == nil {
		t.Fatal("expected error for empty value")
	}
}

func TestStoreKeepsOtherServices(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "credentials.toml"))
	if err := store.Set("other", "token", "abc"); err != nil {
		t.Fatalf("Set other: %v", err)
	}
	if err := store.Set(Service, APIKeyKey, "key"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Delete(Service, APIKeyKey); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, err := store.Get("other", "token"); err != nil || got != "abc" {
		t.Fatalf("other service lost: %q %v", got, err)
	}
}

type fakeGetter struct {
	value string
	err   error
}

func (f fakeGetter) Get(string, string) (string, error) { return f.value, f.err }

func TestResolveAPIKey(t *testing.T) {
	cases := []struct {
		name       string
		configured string
		store      Getter
		wantKey    string
		wantSource string
		wantErr    bool
	}{
		{name: "config wins", configured: "cfg", store: fakeGetter{value: "stored"}, wantKey: "cfg", wantSource: SourceConfig},
		{name: "store fallback", store: fakeGetter{value: "stored"}, wantKey: "stored", wantSource: SourceStore},
		{name: "missing", store: fakeGetter{err: ErrNotFound}, wantSource: SourceNone},
		{name: "nil store", wantSource: SourceNone},
		{name: "store failure", store: fakeGetter{err: errors.New("corrupt")}, wantSource: SourceNone, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			key, source, err := ResolveAPIKey(tc.configured, tc.store)
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if key != tc.wantKey || source != tc.wantSource {
				t.Fatalf("got (%q, %q), want (%q, %q)", key, source, tc.wantKey, tc.wantSource)
			}
		})
	}
}

func TestMask(t *testing.T) {
	if got := Mask("AIzaSyABCDEF1234"); got != "************1234" {
		t.Fatalf("unexpected mask %q", got)
	}
	if got := Mask("abc"); got != "***" {
		t.Fatalf("unexpected short mask %q", got)
	}
	if got := Mask(""); got != "" {
		t.Fatalf("unexpected empty mask %q", got)
	}
}
