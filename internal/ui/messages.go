package ui

import "time"

// displayMsg carries a store read for the list under key
type displayMsg struct {
	key           string
	items         []string
	err           error
	lastRefreshed time.Time
	synced        bool
}

// refreshDoneMsg reports the end of a forced refresh
type refreshDoneMsg struct {
	err error
}

// logsFetchedMsg reports that the log tail under key was re-fetched.
// chain is set for fetches of the auto-refresh chain of generation gen.
type logsFetchedMsg struct {
	key   string
	gen   int
	chain bool
	err   error
}

// logsRefreshTickMsg asks for another log fetch while chain gen is current
type logsRefreshTickMsg struct {
	key string
	gen int
}

// reloadTickMsg re-reads the current level from the store
type reloadTickMsg struct{}

type clearStatusMsg struct{}
