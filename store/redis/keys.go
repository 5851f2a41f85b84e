package redis

// Key layout. Everything lives under one prefix so a shared Redis can
// be inspected (and wiped) per application.
const (
	keyPrefix = "jobward:"

	// keyJobIDs is a set of all job record IDs.
	keyJobIDs = keyPrefix + "jobs"

	// keyRunning is a hash of job type → running job ID.
	keyRunning = keyPrefix + "running"

	// keyDisabled is a hash of job type → "1" for disabled types.
	keyDisabled = keyPrefix + "disabled"
)

// jobKey is the hash holding one job record.
func jobKey(jobID string) string {
	return keyPrefix + "job:" + jobID
}

// messagesKey is the list holding one job's message log, JSON per entry.
func messagesKey(jobID string) string {
	return keyPrefix + "job:" + jobID + ":messages"
}
