package remote

import "time"

// Category is a named log directory exposed by the device.
type Category struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Object is one log object within a category.
type Object struct {
	Name string `json:"name"`
	Info string `json:"info"`
}

// Metadata describes the current state of a log object.
type Metadata struct {
	Files       []string `json:"files"`
	SizeInBytes int64    `json:"sizeInBytes"`
	MTime       string   `json:"mtime"`
}

// ParsedMTime returns the modification time when the server sent a
// parseable value.
func (m Metadata) ParsedMTime() time.Time {
	if m.MTime == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, m.MTime); err == nil {
			return t
		}
	}
	return time.Time{}
}

// RangeResult is the payload of one byte-range read. EndOffset is the
// exclusive end of the data actually returned, which for open-ended reads
// is the object's current size.
type RangeResult struct {
	Lines     []string `json:"lines"`
	EndOffset int64    `json:"endOffset"`
}

type categoryListResponse struct {
	Categories []Category `json:"categories"`
}

type objectListResponse struct {
	Objects []Object `json:"objects"`
}
