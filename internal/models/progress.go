package models

import "time"

// UploadProgress is a transient progress entry for an in-flight upload,
// keyed by record id. It is deleted when the upload terminates, whether it
// succeeded or failed.
type UploadProgress struct {
	RecordID   string
	Loaded     int64
	Total      int64
	Percentage float64
	UpdatedAt  time.Time
}

// NewUploadProgress builds a progress entry for the given transfer position.
func NewUploadProgress(recordID string, loaded, total int64) *UploadProgress {
	p := &UploadProgress{
		RecordID:  recordID,
		Loaded:    loaded,
		Total:     total,
		UpdatedAt: time.Now().UTC(),
	}
	if total > 0 {
		p.Percentage = float64(loaded) / float64(total) * 100
	}
	return p
}
