package termsurface

// handle is a small integer reference into an internTable. The zero value
// (nullHandle) never refers to a real entry. Unlike a raw hash-bucket
// index, a handle is stable: once issued it keeps pointing at the same
// entry until that entry is reclaimed by gc, even across a bucket rehash.
type handle uint32

const nullHandle handle = 0

const internInitialBuckets = 16

// internTable is a key->entry map from byte strings to reference-counted
// slots, used by Surface to hold clusters longer than the inline budget and
// patch strings (§4.2 "hash"). Entries live in an append-only slab indexed
// by handle; a separate bucket array (the actual hash table) maps a key's
// digest to a slab index and is the only part rebuilt on growth, which is
// what keeps handles stable across a rehash. Growth: if after ensure
// occupancy exceeds three quarters of bucket capacity, a gc pass runs
// first; if occupancy is still over the threshold afterward, bucket
// capacity doubles and the index rehashes. Hashing is a stable 32-bit
// FNV-1a digest; bucket collisions are resolved by linear probing.
type internTable struct {
	entries []internEntry
	free    []int32 // indices of reclaimed entries available for reuse
	buckets []int32 // hash index over entries; -1 means empty
	live    int     // count of in-use entries

	limit int // 0 = unlimited, 255 for patch tables

	// markAll is supplied by the owning Surface: it walks every live cell
	// and re-ensures each still-used key, marking its entry live for gc.
	markAll func(ensure func(string) handle)
}

type internEntry struct {
	key   string
	inUse bool
	marked bool
}

// newInternTable creates a table with the given fallback-entry limit (0 for
// unlimited, as clusters are; 255 for patches per §4.2).
func newInternTable(limit int) *internTable {
	t := &internTable{limit: limit}
	t.resetBuckets(internInitialBuckets)
	return t
}

func (t *internTable) resetBuckets(n int) {
	t.buckets = make([]int32, n)
	for i := range t.buckets {
		t.buckets[i] = -1
	}
}

func fnv32(key string) uint32 {
	const (
		offset = 2166136261
		prime  = 16777619
	)
	h := uint32(offset)
	for i := 0; i < len(key); i++ {
		h ^= uint32(key[i])
		h *= prime
	}
	return h
}

// bucketFor returns the bucket index holding key's entry slab index, or -1
// if key is absent. firstEmpty, when non-negative, is the first empty
// bucket seen along the probe sequence (for insertion).
func (t *internTable) bucketFor(key string) (slot int, firstEmpty int) {
	n := len(t.buckets)
	i := int(fnv32(key) % uint32(n))
	firstEmpty = -1
	for probed := 0; probed < n; probed++ {
		b := t.buckets[i]
		if b == -1 {
			if firstEmpty == -1 {
				firstEmpty = i
			}
			return -1, firstEmpty
		}
		if t.entries[b].inUse && t.entries[b].key == key {
			return i, -1
		}
		i = (i + 1) % n
	}
	return -1, firstEmpty
}

// get returns the existing handle for key, or the null sentinel.
func (t *internTable) get(key string) handle {
	bi, _ := t.bucketFor(key)
	if bi == -1 {
		return nullHandle
	}
	return handle(t.buckets[bi] + 1)
}

// ensure returns a stable handle for key, allocating an entry if absent. It
// never fails except by returning nullHandle when the table's entry limit
// is exhausted (degrades to "no patch" per §4.2/§7).
func (t *internTable) ensure(key string) handle {
	if h := t.get(key); h != nullHandle {
		t.entries[h-1].marked = true
		return h
	}
	if t.limit > 0 && t.live >= t.limit {
		return nullHandle
	}
	h := t.insert(key)
	if 4*t.live > 3*len(t.buckets) {
		if t.markAll != nil {
			t.gc()
			// No cell holds key yet, so gc may have swept it; re-insert.
			if t.keyAt(h) != key {
				h = t.insert(key)
			}
		}
		if 4*t.live > 3*len(t.buckets) {
			t.rehash(len(t.buckets) * 2)
		}
	}
	return h
}

// insert allocates a slab entry for key (reusing a freed index if any) and
// records it in the bucket index.
func (t *internTable) insert(key string) handle {
	var idx int32
	if n := len(t.free); n > 0 {
		idx = t.free[n-1]
		t.free = t.free[:n-1]
		t.entries[idx] = internEntry{key: key, inUse: true, marked: true}
	} else {
		idx = int32(len(t.entries))
		t.entries = append(t.entries, internEntry{key: key, inUse: true, marked: true})
	}
	t.live++

	_, empty := t.bucketFor(key)
	if empty == -1 {
		// Bucket array is saturated; caller's growth check runs right
		// after insert and will rehash before this can repeat.
		t.resetBuckets(len(t.buckets) * 2)
		for i, e := range t.entries {
			if e.inUse {
				t.placeInBucket(e.key, int32(i))
			}
		}
	} else {
		t.buckets[empty] = idx
	}
	return handle(idx + 1)
}

func (t *internTable) placeInBucket(key string, idx int32) {
	n := len(t.buckets)
	i := int(fnv32(key) % uint32(n))
	for {
		if t.buckets[i] == -1 {
			t.buckets[i] = idx
			return
		}
		i = (i + 1) % n
	}
}

// keyAt returns the byte string held by handle h, or "" if h is null or
// stale.
func (t *internTable) keyAt(h handle) string {
	if h == nullHandle || int(h) > len(t.entries) {
		return ""
	}
	e := &t.entries[h-1]
	if !e.inUse {
		return ""
	}
	return e.key
}

// gc performs a mark-and-sweep pass: clears every entry's mark, invokes the
// owning Surface's markAll callback (which re-ensures every still-used key,
// marking its entry live), then reclaims every entry left unmarked.
func (t *internTable) gc() {
	for i := range t.entries {
		t.entries[i].marked = false
	}
	if t.markAll != nil {
		t.markAll(func(key string) handle {
			return t.ensureDuringGC(key)
		})
	}
	for i := range t.entries {
		if t.entries[i].inUse && !t.entries[i].marked {
			t.entries[i] = internEntry{}
			t.free = append(t.free, int32(i))
			t.live--
		}
	}
}

// ensureDuringGC mirrors ensure but never recurses into another gc pass,
// since it only runs from within one.
func (t *internTable) ensureDuringGC(key string) handle {
	if h := t.get(key); h != nullHandle {
		t.entries[h-1].marked = true
		return h
	}
	if t.limit > 0 && t.live >= t.limit {
		return nullHandle
	}
	return t.insert(key)
}

// rehash grows the bucket index to newCap buckets and reindexes every live
// entry. Entry (and therefore handle) positions never change.
func (t *internTable) rehash(newCap int) {
	if newCap < internInitialBuckets {
		newCap = internInitialBuckets
	}
	t.resetBuckets(newCap)
	for i, e := range t.entries {
		if e.inUse {
			t.placeInBucket(e.key, int32(i))
		}
	}
}

// count reports the number of distinct live keys.
func (t *internTable) count() int {
	return t.live
}
