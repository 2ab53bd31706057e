// Package frames implements the frame grabber, a sample processor that saves
// decoded video frames as still images while a conversion runs.
//
// Every frame is validated against its format description; a frame whose
// data does not match its declared dimensions fails the conversion. Every
// Nth frame is converted from its packed pixel layout to an image, rotated
// by the configured angle and written as a PNG.
package frames
