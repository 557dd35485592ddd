package termsurface

import "testing"

func TestInternEnsureIsIdempotent(t *testing.T) {
	tbl := newInternTable(0)
	h1 := tbl.ensure("hello")
	h2 := tbl.ensure("hello")
	if h1 != h2 {
		t.Errorf("ensure(\"hello\") returned different handles: %v, %v", h1, h2)
	}
	if tbl.keyAt(h1) != "hello" {
		t.Errorf("keyAt(%v) = %q, want %q", h1, tbl.keyAt(h1), "hello")
	}
}

func TestInternHandleStableAcrossRehash(t *testing.T) {
	tbl := newInternTable(0) // markAll left nil: growth rehashes without an intervening gc pass
	h := tbl.ensure("first")

	// Force enough growth to trigger at least one rehash.
	for i := 0; i < 200; i++ {
		tbl.ensure(string(rune('a' + i%26)) + string(rune(i)))
	}

	if tbl.keyAt(h) != "first" {
		t.Errorf("handle for %q became stale after growth: keyAt = %q", "first", tbl.keyAt(h))
	}
	if got := tbl.get("first"); got != h {
		t.Errorf("get(\"first\") = %v after growth, want original handle %v", got, h)
	}
}

func TestInternGCReclaimsUnmarked(t *testing.T) {
	tbl := newInternTable(0)
	keep := map[string]bool{"keep1": true, "keep2": true}
	tbl.markAll = func(ensure func(string) handle) {
		for k := range keep {
			ensure(k)
		}
	}

	tbl.ensure("keep1")
	tbl.ensure("keep2")
	tbl.ensure("drop1")
	tbl.ensure("drop2")
	tbl.ensure("drop3")

	if tbl.count() != 5 {
		t.Fatalf("count() = %d before gc, want 5", tbl.count())
	}

	tbl.gc()

	if tbl.count() != 2 {
		t.Errorf("count() = %d after gc, want 2 (K kept keys)", tbl.count())
	}
	if tbl.get("drop1") != nullHandle {
		t.Errorf("drop1 survived gc")
	}
	if tbl.get("keep1") == nullHandle {
		t.Errorf("keep1 did not survive gc")
	}
}

func TestInternGCCountForAllK(t *testing.T) {
	const n = 40
	for k := 0; k <= n; k++ {
		k := k
		tbl := newInternTable(0)
		for i := 0; i < n; i++ {
			tbl.ensure(string(rune('A' + i)))
		}
		tbl.markAll = func(ensure func(string) handle) {
			for i := 0; i < k; i++ {
				ensure(string(rune('A' + i)))
			}
		}
		tbl.gc()
		if tbl.count() != k {
			t.Errorf("K=%d: count() after gc = %d, want %d", k, tbl.count(), k)
		}
	}
}

func TestInternPatchTableLimitDegrades(t *testing.T) {
	tbl := newInternTable(2)
	tbl.markAll = func(ensure func(string) handle) {
		ensure("a")
		ensure("b")
	}
	h1 := tbl.ensure("a")
	h2 := tbl.ensure("b")
	if h1 == nullHandle || h2 == nullHandle {
		t.Fatalf("first two ensures should succeed under limit 2")
	}
	h3 := tbl.ensure("c")
	if h3 != nullHandle {
		t.Errorf("ensure beyond limit returned %v, want nullHandle (degrade to no-patch)", h3)
	}
}
