package log

import (
	"context"
	"fmt"

	"github.com/coreos/go-systemd/v22/journal"
)

// InitJournalHandler makes the log package print to the journal. Unless force is set,
// this only happens when stderr is connected to the journal.
// It returns whether the journal handler was installed.
func InitJournalHandler(force bool) bool {
	if !force {
		isJournalStream, err := journal.StderrIsJournalStream()
		if err != nil {
			Warningf(context.Background(), "Error checking if stderr is connected to the journal: %v", err)
			return false
		}
		if !isJournalStream {
			return false
		}
	}
	if !journal.Enabled() {
		return false
	}

	SetHandler(func(_ context.Context, level Level, format string, args ...interface{}) {
		_ = journal.Send(fmt.Sprintf(format, args...), mapPriority(level), map[string]string{
			"SYSLOG_IDENTIFIER": "nss-sql",
		})
	})
	return true
}

func mapPriority(level Level) journal.Priority {
	switch {
	case level <= DebugLevel:
		return journal.PriDebug
	case level <= InfoLevel:
		return journal.PriInfo
	case level <= NoticeLevel:
		return journal.PriNotice
	case level <= WarnLevel:
		return journal.PriWarning
	case level <= ErrorLevel:
		return journal.PriErr
	}
	return journal.PriCrit
}
