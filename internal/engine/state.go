package engine

// State is the persistence state of one session
type State int

const (
	// Idle means every local change has been handed to the writer
	Idle State = iota
	// Dirty means a note edit is waiting for its debounce timer
	Dirty
	// Deleted is terminal; no writes are issued
	Deleted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dirty:
		return "dirty"
	case Deleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Reconciliation is the outcome of applying a pushed snapshot
type Reconciliation int

const (
	// ReconcileNoSession means no session is open
	ReconcileNoSession Reconciliation = iota
	// ReconcileRefreshed means the open session was replaced by the snapshot copy
	ReconcileRefreshed
	// ReconcileSuppressed means local edits are in flight and the snapshot was ignored
	ReconcileSuppressed
	// ReconcileDeleted means the open session no longer exists
	ReconcileDeleted
)

func (r Reconciliation) String() string {
	switch r {
	case ReconcileNoSession:
		return "no-session"
	case ReconcileRefreshed:
		return "refreshed"
	case ReconcileSuppressed:
		return "suppressed"
	case ReconcileDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// NoticeKind classifies writer outcomes
type NoticeKind string

const (
	NoticeSaved   NoticeKind = "saved"
	NoticeError   NoticeKind = "error"
	NoticeDeleted NoticeKind = "deleted"
)

// Notice reports the result of a background write
type Notice struct {
	Kind      NoticeKind
	SessionID string
	Err       error
}

// Notifier receives notices from the writer goroutine
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

type discardNotifier struct{}

func (discardNotifier) Notify(Notice) {}
