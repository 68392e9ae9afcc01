package domain

// Kind classifies generated content.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Upload is an in-memory copy of a caller-supplied file. Handlers and the
// media processor operate on it without touching the transport layer.
type Upload struct {
	Filename string
	Data     []byte
}

// Result is one normalized generation output. ThumbnailURL is only populated
// for video results that carry a preview frame.
type Result struct {
	URL          string
	Kind         Kind
	ThumbnailURL string
}
