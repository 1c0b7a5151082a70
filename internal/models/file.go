package models

import "time"

// FileKind classifies a StoredFile.
type FileKind string

const (
	FileOriginal    FileKind = "original"
	FileEraseResult FileKind = "erase_result"
	FileExport      FileKind = "export"
)

func (k FileKind) Valid() bool {
	switch k {
	case FileOriginal, FileEraseResult, FileExport:
		return true
	}
	return false
}

// StoredFile is the metadata of an immutable file in the file store. The Ref
// encodes kind, day and owner so a janitor can act on refs alone.
type StoredFile struct {
	Ref         string    `json:"fileRef"`
	Kind        FileKind  `json:"kind"`
	Owner       string    `json:"owner"`
	Size        int64     `json:"size"`
	ContentType string    `json:"contentType,omitempty"`
	Checksum    string    `json:"checksum,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}
