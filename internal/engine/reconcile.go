package engine

import (
	"slices"

	"go.uber.org/zap"

	"github.com/balkashynov/checkmaster/internal/models"
)

// Reconcile applies a full session snapshot pushed by the backend.
//
// The open session is discarded when the snapshot lacks it, left alone
// while the user is editing or while its own writes are still queued, and
// replaced wholesale otherwise. Tracked background sessions missing from the
// snapshot are marked deleted so their pending writes are dropped.
func (e *Engine) Reconcile(snapshot []models.Session) Reconciliation {
	e.mu.Lock()
	defer e.mu.Unlock()

	present := make(map[string]models.Session, len(snapshot))
	for _, s := range snapshot {
		present[s.ID] = s
	}

	for id, tr := range e.sessions {
		if id == e.openID || tr.state == Deleted {
			continue
		}
		if _, ok := present[id]; !ok {
			e.markDeletedLocked(tr)
			e.pruneLocked(id, tr)
			e.logger.Info("background session removed remotely", zap.String("session_id", id))
		}
	}

	if e.openID == "" {
		return ReconcileNoSession
	}
	tr, ok := e.sessions[e.openID]
	if !ok {
		return ReconcileNoSession
	}

	remote, ok := present[e.openID]
	if !ok {
		id := e.openID
		e.markDeletedLocked(tr)
		tr.session.Items = nil
		e.logger.Info("open session removed remotely", zap.String("session_id", id))
		e.openID = ""
		e.pruneLocked(id, tr)
		return ReconcileDeleted
	}
	if tr.state == Deleted {
		return ReconcileDeleted
	}

	if tr.inEdit() || tr.timer != nil || tr.queued > 0 {
		return ReconcileSuppressed
	}
	if tr.staleEcho(remote.Items) {
		e.logger.Debug("ignoring echo of a superseded write", zap.String("session_id", e.openID))
		return ReconcileSuppressed
	}

	tr.session.Title = remote.Title
	tr.session.Items = models.CloneItems(remote.Items)
	return ReconcileRefreshed
}

// staleEcho reports whether items repeat an older write of ours that a newer
// write has replaced. Seeing the newest write echoed back ends the check.
func (tr *tracked) staleEcho(items []models.Item) bool {
	if tr.lastWrite == nil {
		return false
	}
	if slices.Equal(items, tr.lastWrite) {
		tr.superseded = nil
		return false
	}
	for _, old := range tr.superseded {
		if slices.Equal(items, old) {
			return true
		}
	}
	return false
}
