package store

// Well-known blob keys.
const (
	CacheBlobKey     = "cache:v1"
	TelemetryBlobKey = "telemetry:v1"
)

// Blob binds one storage key to the Load/Store shape the cache and
// telemetry packages accept as their backing.
type Blob struct {
	key string
}

// NewBlob returns a blob handle for key.
func NewBlob(key string) *Blob {
	return &Blob{key: key}
}

// Load reads the blob, nil when absent.
func (b *Blob) Load() ([]byte, error) {
	return Get(b.key)
}

// Store overwrites the blob.
func (b *Blob) Store(data []byte) error {
	return Set(b.key, data)
}
