package converter

import (
	"testing"

	"media-converter/internal/mediatypes"
)

type stubTrack struct {
	id      int
	kind    mediatypes.MediaKind
	formats []mediatypes.FormatDescription
}

func (t stubTrack) ID() int { return t.id }

func (t stubTrack) Kind() mediatypes.MediaKind { return t.kind }

func (t stubTrack) FormatDescriptions() []mediatypes.FormatDescription { return t.formats }

func ids(tracks []mediatypes.Track) []int {
	out := make([]int, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, t.ID())
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestClassify(t *testing.T) {
	tracks := []mediatypes.Track{
		stubTrack{id: 1, kind: mediatypes.KindAudio},
		stubTrack{id: 2, kind: mediatypes.KindVideo},
		stubTrack{id: 3, kind: mediatypes.KindTimecode},
		stubTrack{id: 4, kind: mediatypes.KindSubtitle},
		stubTrack{id: 5, kind: mediatypes.KindVideo},
		stubTrack{id: 6, kind: mediatypes.KindAudio},
	}

	tests := []struct {
		name            string
		accepted        []mediatypes.MediaKind
		wantTransform   []int
		wantPassthrough []int
	}{
		{
			name:            "mov accepts everything",
			accepted:        mediatypes.ContainerMOV.AvailableKinds(),
			wantTransform:   []int{2, 5},
			wantPassthrough: []int{1, 3, 4, 6},
		},
		{
			name:            "mp4 drops timecode",
			accepted:        mediatypes.ContainerMP4.AvailableKinds(),
			wantTransform:   []int{2, 5},
			wantPassthrough: []int{1, 4, 6},
		},
		{
			name:            "m4a keeps audio only",
			accepted:        mediatypes.ContainerM4A.AvailableKinds(),
			wantTransform:   []int{},
			wantPassthrough: []int{1, 6},
		},
		{
			name:            "nothing accepted",
			accepted:        nil,
			wantTransform:   []int{},
			wantPassthrough: []int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Classify(tracks, tt.accepted)
			if got := ids(b.Transformable); !equalInts(got, tt.wantTransform) {
				t.Errorf("Transformable = %v, want %v", got, tt.wantTransform)
			}
			if got := ids(b.Passthrough); !equalInts(got, tt.wantPassthrough) {
				t.Errorf("Passthrough = %v, want %v", got, tt.wantPassthrough)
			}
			if b.Len() != len(tt.wantTransform)+len(tt.wantPassthrough) {
				t.Errorf("Len() = %d", b.Len())
			}
		})
	}
}

func TestClassifyEmpty(t *testing.T) {
	b := Classify(nil, mediatypes.ContainerMOV.AvailableKinds())
	if b.Len() != 0 {
		t.Errorf("Len() = %d, want 0", b.Len())
	}
}
