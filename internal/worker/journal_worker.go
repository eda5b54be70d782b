package worker

import (
	"github.com/deskops/helpdesk-admin/internal/service"
)

// StartJournalWorker registers the journal's event handlers.
func StartJournalWorker(journal *service.JournalService) {
	if journal == nil {
		return
	}
	journal.RegisterHandlers()
}
