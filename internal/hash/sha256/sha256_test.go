// Package sha256 includes tests for the SHA-256 hasher adapter.
package sha256

import "testing"

// TestHasherHashDeterministic ensures repeated hashing yields the same digest.
func TestHasherHashDeterministic(t *testing.T) {
	t.Parallel()

	h := New()
	got, err := h.Hash([]byte("hello world"))
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
	if short := h.Short("hello world", 10); short != want[:10] {
		t.Fatalf("expected short digest %s, got %s", want[:10], short)
	}
	if full := h.Short("hello world", 0); full != want {
		t.Fatalf("expected full digest for n=0, got %s", full)
	}
}

// TestHasherSeed checks seeds are stable per key and differ across keys.
func TestHasherSeed(t *testing.T) {
	t.Parallel()

	h := New()
	a1, a2 := h.Seed("42", "https://example.com/albums/1")
	b1, b2 := h.Seed("42", "https://example.com/albums/1")
	if a1 != b1 || a2 != b2 {
		t.Fatalf("expected stable seed, got (%d,%d) vs (%d,%d)", a1, a2, b1, b2)
	}
	c1, _ := h.Seed("42", "https://example.com/albums/2")
	if c1 == a1 {
		t.Fatal("expected different keys to produce different seeds")
	}
	d1, _ := h.Seed("4", "2https://example.com/albums/1")
	if d1 == a1 {
		t.Fatal("expected part boundaries to affect the seed")
	}
}
