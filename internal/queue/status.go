package queue

import (
	"fmt"
	"time"
)

// ExecutingProgress is the percentage reported for the command currently
// handed to the debugger.
const ExecutingProgress = 95

// QueuedStatusMessage composes the human-readable status for a queued
// command: a position phrase, how long it has waited, and when to poll
// again.
func QueuedStatusMessage(position int, elapsed time.Duration) string {
	var base string
	switch position {
	case 1:
		base = "Next in queue"
	case 2:
		base = "2nd in queue"
	case 3:
		base = "3rd in queue"
	default:
		base = fmt.Sprintf("%dth in queue", position)
	}

	waitedMin := int(elapsed.Minutes())
	waitedSec := int(elapsed.Seconds()) % 60

	remMin := position * 2
	if remMin < 3 {
		remMin = 3
	}
	remSec := position * 10
	if remSec < 5 {
		remSec = 5
	}

	return fmt.Sprintf("%s (waited %dm %ds) - Check again in %d-%d seconds",
		base, waitedMin, waitedSec, remMin, remSec)
}

// QueuedProgress estimates a progress percentage for a queued command
// from its position and wait time, clamped to [5, 90].
func QueuedProgress(position int, elapsed time.Duration) int {
	base := 100 - position*15
	if base < 5 {
		base = 5
	}
	bonus := int(elapsed.Minutes() * 2)
	if bonus > 10 {
		bonus = 10
	}

	progress := base + bonus
	if progress < 5 {
		progress = 5
	}
	if progress > 90 {
		progress = 90
	}
	return progress
}
