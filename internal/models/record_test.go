package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTouchAdvances(t *testing.T) {
	rec := &Record{LastModified: time.Now().UTC().Add(-time.Hour)}
	before := rec.LastModified

	rec.Touch()
	assert.True(t, rec.LastModified.After(before))
}

func TestTouchIsStrictlyMonotonic(t *testing.T) {
	// A timestamp ahead of the wall clock must still move forward.
	future := time.Now().UTC().Add(time.Hour)
	rec := &Record{LastModified: future}

	rec.Touch()
	assert.True(t, rec.LastModified.After(future))

	// Rapid successive touches never produce equal timestamps.
	prev := rec.LastModified
	for i := 0; i < 100; i++ {
		rec.Touch()
		assert.True(t, rec.LastModified.After(prev))
		prev = rec.LastModified
	}
}

func TestUploaded(t *testing.T) {
	rec := &Record{}
	assert.False(t, rec.Uploaded())

	rec.RemotePath = "https://cdn.example.com/videos/srv-1/clip.webm"
	assert.True(t, rec.Uploaded())
}

func TestSameRecording(t *testing.T) {
	a := &Record{Filename: "clip.webm", SizeBytes: 2048, DurationMS: 15000}
	b := &Record{ID: "other-id", Filename: "clip.webm", SizeBytes: 2048, DurationMS: 15000}
	assert.True(t, a.SameRecording(b))

	b.SizeBytes = 4096
	assert.False(t, a.SameRecording(b))
}

func TestCloneIsDeep(t *testing.T) {
	rec := &Record{
		ID:      "rec-1",
		Payload: []byte("payload"),
	}

	c := rec.Clone()
	c.Payload[0] = 'X'
	c.ID = "rec-2"

	assert.Equal(t, "rec-1", rec.ID)
	assert.Equal(t, []byte("payload"), rec.Payload)
}

func TestCloneNilPayload(t *testing.T) {
	rec := &Record{ID: "rec-1"}
	c := rec.Clone()
	assert.Nil(t, c.Payload)
}

func TestNewUploadProgress(t *testing.T) {
	p := NewUploadProgress("rec-1", 1024, 4096)
	assert.Equal(t, "rec-1", p.RecordID)
	assert.InDelta(t, 25.0, p.Percentage, 0.01)
	assert.False(t, p.UpdatedAt.IsZero())
}

func TestNewUploadProgressZeroTotal(t *testing.T) {
	p := NewUploadProgress("rec-1", 0, 0)
	assert.Zero(t, p.Percentage)
}
