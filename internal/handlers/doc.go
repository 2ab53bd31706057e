// Package handlers provides HTTP request handlers for the media converter API.
//
// It includes handlers for:
//   - Registering and listing source assets
//   - Inspecting the tracks of an asset
//   - Submitting, listing and cancelling conversion jobs
//   - Downloading finished outputs
//   - Triggering media directory scans
//   - Health checks and version information
package handlers
