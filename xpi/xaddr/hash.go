package xaddr

import "github.com/OneOfOne/xxhash"

// Hash returns a stable 64-bit digest of the uri's flattened path
// components, independent of which wire Kind produced them, suitable as a
// map key for a decoded uri.
func (u Uri) Hash() uint64 {
	buf := make([]byte, 0, len(u.Parts)*4)
	for _, p := range u.Parts {
		buf = append(buf, byte(p>>24), byte(p>>16), byte(p>>8), byte(p))
	}
	return xxhash.Checksum64(buf)
}
