// Package catalog provides the SQLite-backed asset catalog.
//
// The catalog maps asset identifiers to container files on disk. It is the
// asset source conversion jobs resolve their input through: RequestAsset
// looks the identifier up and returns an unloaded asset handle for the file.
//
// The database uses WAL journaling with a busy timeout so the HTTP handlers
// and running jobs can read concurrently while registrations write.
package catalog
