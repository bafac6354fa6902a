package schedule

import (
	"context"
	"errors"
	"fmt"

	"confagenda/internal/attendee"
	appLog "confagenda/internal/log"
	"confagenda/internal/model"
)

// Mirror is the local attendee copy refreshed by the sync jobs.
type Mirror interface {
	ReplaceAll(ctx context.Context, users []model.User) error
	ImportRecords(ctx context.Context, records []model.AttendeeRecord) error
}

// RecordSource lists raw roster records, e.g. the remote attendee store.
type RecordSource interface {
	Records(ctx context.Context) ([]model.AttendeeRecord, error)
}

// errEmptyRoster guards the mirror against a broken export wiping it.
var errEmptyRoster = errors.New("roster is empty; mirror left unchanged")

// MirrorFromRecords copies every record of src into dst.
func MirrorFromRecords(src RecordSource, dst Mirror) Job {
	return func(ctx context.Context) error {
		records, err := src.Records(ctx)
		if err != nil {
			return fmt.Errorf("list roster: %w", err)
		}
		if len(records) == 0 {
			return errEmptyRoster
		}
		if err := dst.ImportRecords(ctx, records); err != nil {
			return fmt.Errorf("import roster: %w", err)
		}
		appLog.Info("attendee mirror synced", "source", "records", "count", len(records))
		return nil
	}
}

// MirrorFromFile reloads the users file at path into dst.
func MirrorFromFile(path string, dst Mirror) Job {
	return func(ctx context.Context) error {
		static, err := attendee.LoadStatic(path)
		if err != nil {
			return err
		}
		users := static.Users()
		if len(users) == 0 {
			return errEmptyRoster
		}
		if err := dst.ReplaceAll(ctx, users); err != nil {
			return fmt.Errorf("replace mirror: %w", err)
		}
		appLog.Info("attendee mirror synced", "source", path, "count", len(users))
		return nil
	}
}
