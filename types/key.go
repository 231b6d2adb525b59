package types

import (
	"fmt"
	"strings"
)

const (
	blockCheckpointName     = "lastProcessedBlock"
	timestampCheckpointName = "%s_lastTimestamp"
	checkpointFileExt       = ".json"
)

// BlockCheckpointName names the checkpoint holding the last ingested block height.
func BlockCheckpointName() string {
	return blockCheckpointName
}

// TimestampCheckpointName names the checkpoint holding the last reconciled updatedOn of
// orders in the given proof market status.
func TimestampCheckpointName(status string) string {
	return fmt.Sprintf(timestampCheckpointName, status)
}

func CheckpointFileName(name string) string {
	return name + checkpointFileExt
}

// ParseTimestampCheckpointName returns the status a timestamp checkpoint name was built from.
func ParseTimestampCheckpointName(name string) (status string, ok bool) {
	suffix := strings.TrimPrefix(timestampCheckpointName, "%s")
	if !strings.HasSuffix(name, suffix) || len(name) == len(suffix) {
		return "", false
	}
	return strings.TrimSuffix(name, suffix), true
}
