// Package replica maintains the client's locally persisted copy of the catalog,
// seeded from a shipped baseline and rewritten whole on every mutation.
package replica

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/spf13/afero"
)

// Entry is one question as stored in the replica and the baseline. ID is
// assigned when the entry enters the replica and never reused.
type Entry struct {
	ID       string `json:"id,omitempty"`
	Question string `json:"q"`
	Solution string `json:"ans"`
	Image    string `json:"img,omitempty"`
}

type (
	Buckets = Ordered[[]Entry]
	Modes   = Ordered[*Buckets]
	Years   = Ordered[*Modes]
)

// Document is subject -> year -> mode -> bucket -> entries, each level in document order.
type Document struct {
	Ordered[*Years]
}

//go:embed baseline.json
var embeddedBaseline []byte

// Clone returns a deep copy of d.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	cloneBuckets := func(b *Buckets) *Buckets {
		return cloneOrdered(b, func(es []Entry) []Entry { return slices.Clone(es) })
	}
	cloneModes := func(m *Modes) *Modes { return cloneOrdered(m, cloneBuckets) }
	cloneYears := func(y *Years) *Years { return cloneOrdered(y, cloneModes) }
	return &Document{Ordered: *cloneOrdered(&d.Ordered, cloneYears)}
}

// Entries returns the entries filed under one bucket key, or nil.
func (d *Document) Entries(subject, year, mode, bucket string) []Entry {
	years, _ := d.Get(subject)
	if years == nil {
		return nil
	}
	modes, _ := years.Get(year)
	if modes == nil {
		return nil
	}
	bs, _ := modes.Get(mode)
	if bs == nil {
		return nil
	}
	entries, _ := bs.Get(bucket)
	return entries
}

// Decode parses a document in baseline shape. Unknown entry fields are rejected.
func Decode(b []byte) (*Document, error) {
	d := &Document{}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(d); err != nil {
		return nil, fmt.Errorf("decode replica document: %w", err)
	}
	return d, nil
}

// LoadBaseline returns the shipped baseline, or the document at path when path is set.
func LoadBaseline(fsys afero.Fs, path string) (*Document, error) {
	if path == "" {
		return Decode(embeddedBaseline)
	}
	b, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("read baseline %s: %w", path, err)
	}
	return Decode(b)
}
