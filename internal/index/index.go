package index

// MetadataIndex defines the interface for metadata store operations.
// Consumers should depend on this interface rather than the concrete *DB
// type to facilitate testing with mocks.
type MetadataIndex interface {
	Upsert(rec Record) error
	Delete(path string) error
	Get(path string) (*Record, error)
	QueryByDate(from, to string) ([]string, error)
	QueryByTag(tag string) ([]string, error)
	QueryByFilename(fragment string) ([]string, error)
	QueryByContent(keyword string) ([]string, error)
	AllPaths() (map[string]struct{}, error)
	AllFingerprints() (map[string]string, error)
	Stats() (documents, tags int, err error)
	Close() error
}

// Verify *DB satisfies MetadataIndex at compile time.
var _ MetadataIndex = (*DB)(nil)
