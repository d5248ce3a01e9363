package sender

type workerPhase string

// Worker lifecycle phases
const (
	phaseDisconnected workerPhase = "disconnected"
	phaseConnected    workerPhase = "connected"
	phaseTerminated   workerPhase = "terminated"
)

// errorKind classifies the failures a worker can run into. Each kind has
// exactly one recovery action.
type errorKind string

const (
	connectErr  errorKind = "connect"
	transmitErr errorKind = "transmit"
	receiveErr  errorKind = "receive"
	closeErr    errorKind = "close"
)

type recovery int

const (
	retryAfterBackoff recovery = iota // stay disconnected, wait, dial again
	reconnectNow                      // drop the handle and dial again immediately
	reportOnly                        // log and carry on
)

func (k errorKind) recovery() recovery {
	switch k {
	case connectErr:
		return retryAfterBackoff
	case transmitErr, receiveErr:
		return reconnectNow
	default:
		return reportOnly
	}
}

type workerError struct {
	kind errorKind
	err  error
}

func (e *workerError) Error() string {
	return string(e.kind) + " error: " + e.err.Error()
}

func (e *workerError) Unwrap() error {
	return e.err
}
