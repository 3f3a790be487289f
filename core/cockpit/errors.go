package cockpit

import "errors"

var (
	// ErrOffline is returned by controls that need an open connection.
	ErrOffline = errors.New("drone offline")
	// ErrNotAcknowledged means the drone answered something other than ok.
	ErrNotAcknowledged = errors.New("drone did not acknowledge")
)
