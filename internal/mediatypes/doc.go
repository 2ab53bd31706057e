// Package mediatypes provides the shared vocabulary of the media converter.
//
// This package exists as a dependency-free foundation that can be imported by
// the converter core, the container implementation and the outer surfaces
// without creating import cycles. It contains primitive types, constants, pure
// helpers and the collaborator interfaces the converter orchestrates.
//
// # Media Kinds
//
// Every track carries a MediaKind:
//
//	mediatypes.KindVideo    // Transformable by the converter
//	mediatypes.KindAudio    // Always passed through
//	mediatypes.KindSubtitle // Always passed through
//	mediatypes.KindText
//	mediatypes.KindTimecode
//	mediatypes.KindMetadata
//
// # Container Formats
//
// A ContainerFormat names the destination file type and knows which media
// kinds it accepts:
//
//	if mediatypes.ContainerMOV.Accepts(mediatypes.KindSubtitle) {
//	    // track can be written
//	}
//
// # Collaborators
//
// Reader, Writer and their per-track ReaderOutput / WriterInput handles form
// the demux/mux capability. The converter never implements codecs; it only
// drives these interfaces. See ports.go.
package mediatypes
