package models

import (
	"maps"
	"slices"
	"time"
)

// Field names shared by the triggers.
const (
	FieldTaskID        = "taskId"
	FieldRepoID        = "repoId"
	FieldRepoTag       = "repoTag"
	FieldFileName      = "fileName"
	FieldSubmissionTag = "submissionTag"
	FieldSHA1          = "sha1"
	FieldFile          = "file" // local path of the file to upload
)

// Fields holds the current value of every input field. A missing key reads
// as the empty string.
type Fields map[string]string

// Get returns the value of the named field.
func (f Fields) Get(name string) string {
	return f[name]
}

// Clone returns an independent copy.
func (f Fields) Clone() Fields {
	if f == nil {
		return Fields{}
	}
	return maps.Clone(f)
}

// Merge copies every entry of other into f.
func (f Fields) Merge(other Fields) {
	maps.Copy(f, other)
}

// Names returns the field names in sorted order.
func (f Fields) Names() []string {
	return slices.Sorted(maps.Keys(f))
}

// Session is the client-side state kept between invocations.
type Session struct {
	Fields    Fields    `toml:"fields"`
	UpdatedAt time.Time `toml:"updated_at"`
}
