// Package ids provides identifier generation for records and queued
// operations.
package ids

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LocalPrefix marks identifiers minted on the device before the remote
// service has issued an authoritative id.
const LocalPrefix = "local_"

// NewLocal generates a device-local record identifier.
func NewLocal() string {
	return LocalPrefix + uuid.New().String()
}

// IsLocal reports whether the identifier was generated on the device rather
// than issued by the remote service.
func IsLocal(id string) bool {
	return strings.HasPrefix(id, LocalPrefix)
}

// NewOperation generates a queue operation identifier. The id embeds the
// operation type, its target and the creation time so that two operations
// against the same record can never collide.
func NewOperation(opType, targetID string) string {
	return fmt.Sprintf("%s_%s_%d", opType, targetID, time.Now().UnixNano())
}
