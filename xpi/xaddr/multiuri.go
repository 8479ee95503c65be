package xaddr

import "github.com/vhrdtech/xpigo/xpi/nibble"

// MultiUriItem pairs a base Uri with a mask selecting children at the level
// immediately below it.
type MultiUriItem struct {
	Base Uri
	Mask UriMask
}

// MultiUri is a length-prefixed list of (Uri, UriMask) pairs, used to
// address any combination of resources across one or more subtrees in a
// single request.
type MultiUri struct {
	Items []MultiUriItem
}

// FlatIter performs the depth-first flatten: for every pair, for every
// index the mask selects, yields Base's parts with the index appended.
// The result is eagerly materialized rather than produced lazily — in
// practice MultiUri selections are bounded by MAX_REPLY_BATCH_LEN-scale
// counts, and a slice is far simpler to drive through the dispatcher's
// two-pass lookahead/execute scheme than a generator would be.
func (m MultiUri) FlatIter() []Uri {
	var out []Uri
	for _, item := range m.Items {
		for _, idx := range item.Mask.FlatIter() {
			parts := make([]uint32, len(item.Base.Parts)+1)
			copy(parts, item.Base.Parts)
			parts[len(item.Base.Parts)] = idx
			out = append(out, NewUri(parts...))
		}
	}
	return out
}

// SerNibbles writes the pair count followed by each (tagged Uri, tagged
// UriMask) pair.
func (m MultiUri) SerNibbles(w *nibble.Writer) error {
	if err := w.PutVluU32(uint32(len(m.Items))); err != nil {
		return err
	}
	for _, item := range m.Items {
		if err := item.Base.TaggedSerNibbles(w); err != nil {
			return err
		}
		if err := item.Mask.SerNibbles(w); err != nil {
			return err
		}
	}
	return nil
}

// DecodeMultiUri reads a MultiUri value written by SerNibbles.
func DecodeMultiUri(r *nibble.Reader) (MultiUri, error) {
	n, err := r.GetVluU32()
	if err != nil {
		return MultiUri{}, err
	}
	items := make([]MultiUriItem, n)
	for i := range items {
		base, err := DecodeTaggedUri(r)
		if err != nil {
			return MultiUri{}, err
		}
		mask, err := DecodeUriMask(r)
		if err != nil {
			return MultiUri{}, err
		}
		items[i] = MultiUriItem{Base: base, Mask: mask}
	}
	return MultiUri{Items: items}, nil
}

// ResourceSetKind tags which of the two resource_set shapes an event uses.
type ResourceSetKind uint8

const (
	ResourceSetUri ResourceSetKind = iota
	ResourceSetMultiUri
)

// ResourceSet is the set of resources an event's kind applies to: either a
// single Uri (possibly a fast packed form) or a MultiUri bulk selection.
type ResourceSet struct {
	Kind     ResourceSetKind
	Uri      Uri
	MultiUri MultiUri
}

// FlatIter yields every concrete Uri the resource set resolves to, in wire
// order.
func (rs ResourceSet) FlatIter() []Uri {
	if rs.Kind == ResourceSetMultiUri {
		return rs.MultiUri.FlatIter()
	}
	return []Uri{rs.Uri}
}

// ResourceSetDiscriminant returns the 3-bit resource-set discriminant
// carried in the packed event header (§6.1): the Uri's own Kind for the
// single-Uri case, or 101 (5) for MultiUri.
func (rs ResourceSet) ResourceSetDiscriminant() uint32 {
	if rs.Kind == ResourceSetMultiUri {
		return 5
	}
	return uint32(rs.Uri.Kind)
}
