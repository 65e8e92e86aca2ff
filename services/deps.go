package services

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Deps holds the collaborators of the case and proceeding services. Any
// field may be nil; the helpers below fall back to safe defaults.
type Deps struct {
	Locker   CaseLocker
	Audit    AuditRecorder
	Notifier StatusNotifier
	Branches *BranchDirectory
	PDF      PDFRenderer
}

var (
	fallbackLocker     CaseLocker
	fallbackLockerOnce sync.Once
)

func (d *Deps) locker() CaseLocker {
	if d != nil && d.Locker != nil {
		return d.Locker
	}
	fallbackLockerOnce.Do(func() { fallbackLocker = NewLocalCaseLocker() })
	return fallbackLocker
}

func (d *Deps) record(entry AuditEntry) {
	if d == nil || d.Audit == nil {
		return
	}
	d.Audit.Record(entry)
}

func (d *Deps) notifyStatusChange(change *StatusChange) {
	if d == nil || d.Notifier == nil || change == nil {
		return
	}
	if err := d.Notifier.NotifyStatusChange(*change); err != nil {
		log.Warn().Err(err).Str("case_id", change.CaseID).Msg("Failed to notify case owner of status change")
	}
}

func (d *Deps) branches() *BranchDirectory {
	if d == nil {
		return nil
	}
	return d.Branches
}

func (d *Deps) pdf() PDFRenderer {
	if d == nil {
		return nil
	}
	return d.PDF
}
