// Package container implements the demux/mux capability the converter drives,
// over a simple JSON sample-container file. Files carry the extension of
// their container format (".mov", ".mp4" or ".m4a").
//
// A container file holds an ordered list of tracks, each with its declared
// format descriptions and its timestamped samples. No codecs are involved:
// "decoding" a video output only relabels its samples with the requested
// pixel format, and "encoding" a writer input relabels them with the target
// codec. What the package does model faithfully is the behavior the converter
// depends on:
//
//   - Assets load their track list lazily and honor context cancellation.
//   - Readers vend samples per output and reach StatusCompleted only once
//     every output is exhausted; a corrupt sample fails the reader.
//   - Writers refuse to overwrite an existing file, require a session start
//     before the first append, and apply backpressure through a bounded
//     per-input queue whose drain signals Ready.
//   - Writers fail on non-monotonic timestamps within a track, after which
//     every further append is rejected.
//
// Engine adapts these types to mediatypes.Capability; FileSource resolves
// asset identifiers that are file paths.
package container
