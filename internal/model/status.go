package model

type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
	// StatusError marks environments that never ran due to a
	// configuration or resolution error.
	StatusError Status = "error"
)

var terminalStatuses = map[Status]bool{
	StatusPassed:  true,
	StatusFailed:  true,
	StatusSkipped: true,
	StatusError:   true,
}

func IsTerminal(s Status) bool {
	return terminalStatuses[s]
}
