package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"time"
)

const (
	// ManifestFile is written at the output root after every successful build.
	ManifestFile    = ".folio-manifest.json"
	manifestVersion = 1
)

// ManifestEntry records the last artifact written to an output path.
type ManifestEntry struct {
	Output    string    `json:"output"`
	Route     string    `json:"route,omitempty"`
	Template  string    `json:"template,omitempty"`
	Category  Category  `json:"category"`
	Checksum  string    `json:"checksum"`
	WrittenAt time.Time `json:"written_at"`
}

// Manifest tracks artifact checksums between builds so unchanged files can be skipped.
type Manifest struct {
	Version     int
	GeneratedAt time.Time
	entries     map[string]ManifestEntry
}

// NewManifest returns an empty manifest.
func NewManifest() *Manifest {
	return &Manifest{Version: manifestVersion, entries: map[string]ManifestEntry{}}
}

type manifestFile struct {
	Version     int             `json:"version"`
	GeneratedAt time.Time       `json:"generated_at"`
	Entries     []ManifestEntry `json:"entries"`
}

// ParseManifest decodes a manifest. Empty input yields an empty manifest.
func ParseManifest(data []byte) (*Manifest, error) {
	m := NewManifest()
	if len(data) == 0 {
		return m, nil
	}
	var file manifestFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("output: parse manifest: %w", err)
	}
	if file.Version != 0 {
		m.Version = file.Version
	}
	m.GeneratedAt = file.GeneratedAt
	for _, entry := range file.Entries {
		m.entries[entry.Output] = entry
	}
	return m, nil
}

// LoadManifest reads the manifest through r. A missing file is not an error.
func LoadManifest(r Reader) (*Manifest, error) {
	if r == nil {
		return NewManifest(), nil
	}
	data, err := r.ReadFile(ManifestFile)
	if errors.Is(err, fs.ErrNotExist) {
		return NewManifest(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("output: read manifest: %w", err)
	}
	return ParseManifest(data)
}

// Marshal encodes the manifest with entries ordered by output path.
func (m *Manifest) Marshal() ([]byte, error) {
	file := manifestFile{Version: m.Version, GeneratedAt: m.GeneratedAt, Entries: m.Entries()}
	if file.Version == 0 {
		file.Version = manifestVersion
	}
	return json.MarshalIndent(file, "", "  ")
}

// Entries returns the entries ordered by output path.
func (m *Manifest) Entries() []ManifestEntry {
	out := make([]ManifestEntry, 0, len(m.entries))
	for _, entry := range m.entries {
		out = append(out, entry)
	}
	slices.SortFunc(out, func(a, b ManifestEntry) int { return strings.Compare(a.Output, b.Output) })
	return out
}

// Lookup returns the entry for an output path.
func (m *Manifest) Lookup(output string) (ManifestEntry, bool) {
	entry, ok := m.entries[strings.TrimSpace(output)]
	return entry, ok
}

// Set records entry, replacing any previous entry for the same output.
func (m *Manifest) Set(entry ManifestEntry) {
	entry.Output = strings.TrimSpace(entry.Output)
	m.entries[entry.Output] = entry
}

// Unchanged reports whether output was last written with checksum.
func (m *Manifest) Unchanged(output, checksum string) bool {
	entry, ok := m.Lookup(output)
	return ok && checksum != "" && entry.Checksum == checksum
}

// Prune drops entries whose output is not in keep and returns the removed paths.
func (m *Manifest) Prune(keep map[string]struct{}) []string {
	var removed []string
	for key := range m.entries {
		if _, ok := keep[key]; !ok {
			removed = append(removed, key)
			delete(m.entries, key)
		}
	}
	slices.Sort(removed)
	return removed
}
