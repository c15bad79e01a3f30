package instance

import "os"

// GetID names this worker process in logs. ASARUM_WORKER_ID wins, then the
// platform dyno name.
func GetID() string {
	for _, key := range []string{"ASARUM_WORKER_ID", "DYNO"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	return "worker-0"
}
