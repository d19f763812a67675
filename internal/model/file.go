package model

// NamedFile is an input file identified by its original name.
type NamedFile struct {
	Name string `json:"name"`
	Data []byte `json:"data"`
}

// Ref returns the file's identity without its contents.
func (f NamedFile) Ref() FileRef {
	return FileRef{Name: f.Name, Size: int64(len(f.Data))}
}

// FileRef identifies an input file without carrying its bytes.
type FileRef struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// CacheStats is a point-in-time snapshot of the decompression cache.
type CacheStats struct {
	EntryCount int   `json:"entry_count"`
	MaxEntries int   `json:"max_entries"`
	TotalBytes int64 `json:"total_bytes"`
	MaxBytes   int64 `json:"max_bytes"`
}
