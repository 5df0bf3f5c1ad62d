// Package models provides data model definitions for clipsync.
package models

import "time"

// UploadStatus tracks a record's progress through one side of the upload
// pipeline (device-local persistence or the cloud copy).
type UploadStatus string

const (
	StatusPending   UploadStatus = "pending"
	StatusUploading UploadStatus = "uploading"
	StatusSuccess   UploadStatus = "success"
	StatusFailed    UploadStatus = "failed"
)

// Record is a recorded media item. Until the first successful upload its ID
// is a locally generated identifier; afterwards the record is re-keyed under
// the server-issued identifier (delete-old/insert-new, never an in-place
// rekey).
type Record struct {
	ID           string
	Filename     string
	SizeBytes    int64
	DurationMS   int64
	RemotePath   string // unset until the payload reaches cloud storage
	LocalStatus  UploadStatus
	RemoteStatus UploadStatus
	RetryCount   int
	CreatedAt    time.Time
	LastModified time.Time

	// Payload is the binary media data. It lives alongside the metadata in
	// the local store and is never serialized onto the metadata wire format.
	Payload []byte
}

// Uploaded reports whether the record has a confirmed cloud copy.
func (r *Record) Uploaded() bool {
	return r.RemotePath != ""
}

// Touch advances LastModified. The timestamp is the sole arbiter of merge
// precedence, so it must strictly increase even when the wall clock has not
// moved past the previous mutation.
func (r *Record) Touch() {
	now := time.Now().UTC()
	if !now.After(r.LastModified) {
		now = r.LastModified.Add(time.Millisecond)
	}
	r.LastModified = now
}

// SameRecording reports whether two records plausibly describe the same
// capture. Used to match a not-yet-uploaded local record against its remote
// counterpart; can false-positive on distinct recordings with identical
// filename, size and duration.
func (r *Record) SameRecording(other *Record) bool {
	return r.Filename == other.Filename &&
		r.SizeBytes == other.SizeBytes &&
		r.DurationMS == other.DurationMS
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	c := *r
	if r.Payload != nil {
		c.Payload = make([]byte, len(r.Payload))
		copy(c.Payload, r.Payload)
	}
	return &c
}
