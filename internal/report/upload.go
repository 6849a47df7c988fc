package report

import (
	"bytes"
	"context"
	"time"

	"rbkoracle/internal/cloud"
	"rbkoracle/internal/logger"
)

// DefaultName is the object name used when the upload URI names a directory.
func DefaultName(format string, now time.Time) string {
	ext := ".txt"
	if format == FormatJSON {
		ext = ".json"
	}
	return "oracle_backup_report_" + now.UTC().Format("20060102T150405Z") + ext
}

// Upload renders rows uncolored and stores them under key.
func Upload(ctx context.Context, b cloud.Backend, key string, rows []Row, format string, log logger.Logger) error {
	var buf bytes.Buffer
	if err := Render(&buf, rows, format, false); err != nil {
		return err
	}
	start := time.Now()
	if err := b.Put(ctx, key, bytes.NewReader(buf.Bytes()), int64(buf.Len()), cloud.ContentTypeFor(key)); err != nil {
		return err
	}
	log.Info("Report uploaded", "backend", b.Name(), "key", key, "bytes", buf.Len(),
		"duration", logger.FormatDuration(time.Since(start)))
	return nil
}
