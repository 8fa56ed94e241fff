package utils

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GenerateExperimentID generates an experiment ID with a timestamp prefix
// and the search kind, e.g. grid-20250101-120000-1a2b3c4d.
func GenerateExperimentID(kind string) string {
	timestamp := time.Now().UTC().Format("20060102-150405")
	return fmt.Sprintf("%s-%s-%s", kind, timestamp, uuid.NewString()[:8])
}

// GenerateEvaluationID generates a unique ID for a single evaluation record
func GenerateEvaluationID() string {
	return uuid.NewString()
}
