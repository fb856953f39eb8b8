package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alanyoungcy/stakerise/internal/domain"
)

// ActivityArchiver copies activity log entries to object storage as JSONL.
// Archived rows are not deleted from the primary store.
type ActivityArchiver struct {
	writer   domain.BlobWriter
	activity domain.ActivityStore
}

// NewActivityArchiver creates an ActivityArchiver.
func NewActivityArchiver(writer domain.BlobWriter, activity domain.ActivityStore) *ActivityArchiver {
	return &ActivityArchiver{writer: writer, activity: activity}
}

// ArchiveActivity uploads every entry created in [since, until) to
// archive/activity/YYYY-MM-DD.jsonl, keyed by the day of since, and records
// the archival in the activity log. It returns the number of entries
// archived.
func (a *ActivityArchiver) ArchiveActivity(ctx context.Context, since, until time.Time) (int64, error) {
	last := until.Add(-time.Nanosecond)
	entries, err := a.activity.List(ctx, "", domain.ListOpts{Since: &since, Until: &last})
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive activity query: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(entries)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive activity marshal: %w", err)
	}

	path := archivePath("activity", since)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive activity upload: %w", err)
	}

	count := int64(len(entries))
	if err := a.activity.Log(ctx, "", "archive.activity", map[string]any{
		"path":  path,
		"count": count,
		"since": since.Format(time.RFC3339),
		"until": until.Format(time.RFC3339),
	}); err != nil {
		return count, fmt.Errorf("s3blob: archive activity log: %w", err)
	}
	return count, nil
}

// archivePath builds the object key for an archive file, partitioned by day:
//
//	archive/activity/2025-01-31.jsonl
func archivePath(kind string, day time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, day.UTC().Format("2006-01-02"))
}

// marshalJSONL serialises records as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
