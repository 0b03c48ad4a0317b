package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryGetSetDelete(t *testing.T) {
	c := NewMemory("t")
	ctx := context.Background()

	if _, err := c.Get(ctx, "missing"); !IsNotFound(err) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := c.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatal(err)
	}
	v, err := c.Get(ctx, "k")
	if err != nil || v != "v" {
		t.Fatalf("got (%q, %v)", v, err)
	}

	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Get(ctx, "k"); !IsNotFound(err) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemoryExpiry(t *testing.T) {
	c := NewMemory("")
	ctx := context.Background()

	if err := c.Set(ctx, "ephemeral", "v", 20*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(40 * time.Millisecond)
	if _, err := c.Get(ctx, "ephemeral"); !IsNotFound(err) {
		t.Fatalf("expected expiry, got %v", err)
	}
}

func TestMemoryIncrWindow(t *testing.T) {
	c := NewMemory("")
	ctx := context.Background()

	for want := int64(1); want <= 5; want++ {
		n, err := c.Incr(ctx, "counter", time.Minute)
		if err != nil {
			t.Fatal(err)
		}
		if n != want {
			t.Fatalf("incr %d: got %d", want, n)
		}
	}

	// El contador se lee como string numérico via Get.
	v, err := c.Get(ctx, "counter")
	if err != nil || v != "5" {
		t.Fatalf("got (%q, %v)", v, err)
	}
}

func TestMemoryTTL(t *testing.T) {
	c := NewMemory("")
	ctx := context.Background()

	if _, err := c.TTL(ctx, "missing"); !IsNotFound(err) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := c.Set(ctx, "forever", "v", 0); err != nil {
		t.Fatal(err)
	}
	d, err := c.TTL(ctx, "forever")
	if err != nil || d != 0 {
		t.Fatalf("got (%v, %v), want (0, nil)", d, err)
	}

	if err := c.Set(ctx, "bounded", "v", time.Minute); err != nil {
		t.Fatal(err)
	}
	d, err = c.TTL(ctx, "bounded")
	if err != nil || d <= 0 || d > time.Minute {
		t.Fatalf("got (%v, %v)", d, err)
	}
}

func TestMemoryIncrRearmsMissingTTL(t *testing.T) {
	c := NewMemory("")
	ctx := context.Background()

	// Contador que quedó sin expiración (el proceso murió antes de armar la
	// ventana): el próximo incremento la arma.
	if err := c.Set(ctx, "orphan", "3", 0); err != nil {
		t.Fatal(err)
	}
	n, err := c.Incr(ctx, "orphan", time.Minute)
	if err != nil || n != 4 {
		t.Fatalf("got (%d, %v)", n, err)
	}
	d, err := c.TTL(ctx, "orphan")
	if err != nil || d <= 0 || d > time.Minute {
		t.Fatalf("counter left without expiry: (%v, %v)", d, err)
	}
}

func TestMemoryIncrKeepsOriginalWindow(t *testing.T) {
	c := NewMemory("")
	ctx := context.Background()

	if _, err := c.Incr(ctx, "w", 30*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(15 * time.Millisecond)
	// Este incremento NO debe extender la ventana original.
	if _, err := c.Incr(ctx, "w", 30*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(25 * time.Millisecond)
	if _, err := c.Get(ctx, "w"); !IsNotFound(err) {
		t.Fatalf("expected window expiry, got %v", err)
	}
}
