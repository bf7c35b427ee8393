package store

import "github.com/google/uuid"

// GenNewID returns a time-ordered unique id. V7 ids sort
// lexicographically in creation order, so rows stamped in the same
// millisecond still come back in commit order under a (timestamp, id)
// sort.
func GenNewID() string {
	return uuid.Must(uuid.NewV7()).String()
}
