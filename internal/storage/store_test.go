package storage

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
)

func testStores(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := NewSQLiteStore(filepath.Join(t.TempDir(), "kv.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore error: %v", err)
	}
	t.Cleanup(func() { _ = sqlite.Close() })
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func TestStoreCRUD(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := store.Get("missing"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("got %v, want ErrNotFound", err)
			}

			if err := store.Set("a", []byte("one")); err != nil {
				t.Fatalf("Set error: %v", err)
			}
			v, err := store.Get("a")
			if err != nil {
				t.Fatalf("Get error: %v", err)
			}
			if !bytes.Equal(v, []byte("one")) {
				t.Fatalf("Get = %q, want %q", v, "one")
			}

			if err := store.Set("a", []byte("two")); err != nil {
				t.Fatalf("overwrite error: %v", err)
			}
			v, err = store.Get("a")
			if err != nil {
				t.Fatalf("Get error: %v", err)
			}
			if !bytes.Equal(v, []byte("two")) {
				t.Fatalf("Get after overwrite = %q, want %q", v, "two")
			}

			if err := store.Delete("a"); err != nil {
				t.Fatalf("Delete error: %v", err)
			}
			if _, err := store.Get("a"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("got %v after delete, want ErrNotFound", err)
			}

			// Deleting a missing key is not an error.
			if err := store.Delete("a"); err != nil {
				t.Fatalf("Delete of missing key: %v", err)
			}
		})
	}
}

func TestStoreScan(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			seed := map[string]string{
				"app:key:1": "a",
				"app:key:2": "b",
				"app:other": "c",
				"zzz":       "d",
			}
			for k, v := range seed {
				if err := store.Set(k, []byte(v)); err != nil {
					t.Fatalf("Set error: %v", err)
				}
			}
			keys, err := store.Scan("app:key:")
			if err != nil {
				t.Fatalf("Scan error: %v", err)
			}
			if len(keys) != 2 || keys[0] != "app:key:1" || keys[1] != "app:key:2" {
				t.Fatalf("Scan = %v", keys)
			}

			keys, err = store.Scan("nope:")
			if err != nil {
				t.Fatalf("Scan error: %v", err)
			}
			if len(keys) != 0 {
				t.Fatalf("Scan with no matches = %v", keys)
			}
		})
	}
}

func TestSQLiteStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.db")
	s1, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore error: %v", err)
	}
	if err := s1.Set("persist", []byte("value")); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	s2, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer s2.Close()
	v, err := s2.Get("persist")
	if err != nil {
		t.Fatalf("Get after reopen error: %v", err)
	}
	if !bytes.Equal(v, []byte("value")) {
		t.Fatalf("Get after reopen = %q", v)
	}
}

func TestMemoryStoreCloseWipes(t *testing.T) {
	s := NewMemoryStore()
	if err := s.Set("k", []byte("secret")); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if _, err := s.Get("k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("entry survived Close")
	}
}
