package instance

import "os"

const defaultID = "local"

// GetID returns the process instance identifier used in logs and lock
// values. TOURISM_INSTANCE_ID wins over the platform-provided DYNO.
func GetID() string {
	for _, key := range []string{"TOURISM_INSTANCE_ID", "DYNO"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	return defaultID
}
