package retrieval

// Fingerprint is a 32-bit polynomial rolling hash (base 31) over the runes of s.
// It keys the embedding cache and seeds the local encoder's buckets, so its
// output must stay stable across releases.
func Fingerprint(s string) uint32 {
	var h uint32
	for _, r := range s {
		h = h*31 + uint32(r)
	}
	return h
}
