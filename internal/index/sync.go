package index

import (
	"log/slog"
	"time"

	"github.com/starford/ansuz/internal/extract"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/storage"
)

// Sync walks the vault and brings the metadata store up to date:
//   - new/changed files (fingerprint mismatch) are re-extracted and upserted
//   - unchanged files are skipped
//   - documents removed from disk are deleted from the store
//
// A single unreadable file is logged and skipped; the pass never aborts.
func Sync(db *DB, store storage.Provider, previewLen int, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	fingerprints, err := db.AllFingerprints()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		// An empty fingerprint means the file is present but unreadable.
		// Keeping it in the disk map protects its record from GC below.
		if m.Fingerprint == "" {
			logger.Warn("sync: unreadable, skipping", slog.String("path", m.Path))
			continue
		}

		if fingerprints[m.Path] == m.Fingerprint {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Error("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := IndexDocument(db, m, data, previewLen); err != nil {
			logger.Error("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	// Garbage-collect records whose source document disappeared.
	for p := range fingerprints {
		if _, ok := disk[p]; !ok {
			if err := db.Delete(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// IndexDocument extracts facts from data and upserts the resulting record.
func IndexDocument(db *DB, meta models.FileMeta, data []byte, previewLen int) error {
	res := extract.Parse(data, meta.Path, previewLen)

	return db.Upsert(Record{
		Path:        meta.Path,
		Title:       res.Title,
		Description: res.Description,
		Preview:     res.Preview,
		Fingerprint: meta.Fingerprint,
		Tags:        res.Tags,
		Dates:       res.Dates,
		CreatedAt:   meta.CreatedAt,
		IndexedAt:   time.Now(),
	})
}
