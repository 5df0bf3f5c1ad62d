package remote

import (
	"fmt"
	"strings"
	"time"

	"github.com/twardell/clipsync/internal/models"
)

// videoDTO mirrors the video service's response schema.
type videoDTO struct {
	VideoID             string  `json:"video_id"`
	Filename            string  `json:"filename"`
	LocalKey            *string `json:"indexeddb_key,omitempty"`
	CloudPath           *string `json:"cloud_path,omitempty"`
	UploadStatusPrivate string  `json:"upload_status_private"`
	UploadStatusCloud   string  `json:"upload_status_cloud"`
	RetryCountPrivate   int     `json:"retry_count_private"`
	RetryCountCloud     int     `json:"retry_count_cloud"`
	SizeBytes           *int64  `json:"size_bytes,omitempty"`
	DurationMS          *int64  `json:"duration_ms,omitempty"`
	CreatedAt           apiTime `json:"created_at"`
	LastModified        apiTime `json:"last_modified"`
}

// createVideoRequest is the body of POST /videos/. The local key is sent so
// the service can correlate a device-local record with the row it creates.
type createVideoRequest struct {
	Filename   string `json:"filename"`
	LocalKey   string `json:"indexeddb_key,omitempty"`
	SizeBytes  int64  `json:"size_bytes,omitempty"`
	DurationMS int64  `json:"duration_ms,omitempty"`
}

// updateVideoRequest is the body of PATCH /videos/{id}.
type updateVideoRequest struct {
	Filename string `json:"filename,omitempty"`
}

func (d *videoDTO) toRecord() *models.Record {
	rec := &models.Record{
		ID:           d.VideoID,
		Filename:     d.Filename,
		LocalStatus:  models.UploadStatus(d.UploadStatusPrivate),
		RemoteStatus: models.UploadStatus(d.UploadStatusCloud),
		RetryCount:   d.RetryCountCloud,
		CreatedAt:    time.Time(d.CreatedAt),
		LastModified: time.Time(d.LastModified),
	}
	if d.CloudPath != nil {
		rec.RemotePath = *d.CloudPath
	}
	if d.SizeBytes != nil {
		rec.SizeBytes = *d.SizeBytes
	}
	if d.DurationMS != nil {
		rec.DurationMS = *d.DurationMS
	}
	return rec
}

// apiTime parses the service's ISO timestamps, which arrive both with and
// without a zone offset (naive UTC datetimes).
type apiTime time.Time

var apiTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

func (t *apiTime) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		*t = apiTime(time.Time{})
		return nil
	}
	for _, layout := range apiTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			*t = apiTime(parsed.UTC())
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}

func (t apiTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Time(t).UTC().Format(time.RFC3339Nano) + `"`), nil
}
