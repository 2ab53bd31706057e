// Package converter implements a media conversion job: it reads a source
// asset, re-encodes its video tracks, passes its other tracks through
// unchanged, and writes the result to a new container.
//
// A Converter moves through the phases idle, loading-metadata, configuring,
// transferring, reconciling and done. During configuration the tracks are
// classified into transformable (video) and passthrough buckets, and each
// video track is read on a throwaway reader to discover the format hint its
// writer input needs. During transfer one worker per track pulls samples from
// its reader output and appends them to its writer input whenever the input
// signals readiness, optionally running a SampleProcessor on each video
// sample.
//
// Workers share a cancellation flag and a first-error-wins error slot. Once
// every worker has stopped, the outcome is decided in priority order:
// cancellation, then a recorded sample-processing error, then the reader's
// terminal status, then the writer's. The Completion callback is invoked
// exactly once with that outcome.
//
// Basic usage:
//
//	conv := converter.New(source, capability, "clip.mov", func(ok bool, out mediatypes.Asset, err error) {
//		// handle the outcome
//	}, converter.WithOutputPath("/tmp/out.mov"))
//	if err := conv.Start(ctx); err != nil {
//		return err
//	}
//	result, err := conv.Wait(ctx)
package converter
