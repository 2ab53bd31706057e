package converter

import (
	"media-converter/internal/mediatypes"
)

// Buckets is the partition of source tracks produced by Classify.
type Buckets struct {
	// Transformable tracks are decoded and re-encoded.
	Transformable []mediatypes.Track
	// Passthrough tracks are copied without re-encoding.
	Passthrough []mediatypes.Track
}

// Len returns the number of tracks in both buckets.
func (b Buckets) Len() int {
	return len(b.Transformable) + len(b.Passthrough)
}

// Classify drops tracks whose kind is not in accepted and routes video tracks
// to Transformable and all others to Passthrough, preserving source order.
func Classify(tracks []mediatypes.Track, accepted []mediatypes.MediaKind) Buckets {
	allowed := make(map[mediatypes.MediaKind]bool, len(accepted))
	for _, kind := range accepted {
		allowed[kind] = true
	}

	var b Buckets
	for _, track := range tracks {
		kind := track.Kind()
		if !allowed[kind] {
			continue
		}
		if kind == mediatypes.KindVideo {
			b.Transformable = append(b.Transformable, track)
		} else {
			b.Passthrough = append(b.Passthrough, track)
		}
	}
	return b
}
