// Package manifest records what a wrangle run read, did and wrote.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/casewrangle-cli/internal/frame"
	"github.com/KaramelBytes/casewrangle-cli/internal/utils"
	"github.com/KaramelBytes/casewrangle-cli/internal/wrangle"
)

// ErrNotFound is returned when no manifest matches an id.
var ErrNotFound = errors.New("run not found")

// Table describes a frame that was read or written.
type Table struct {
	Role    string `json:"role,omitempty"`
	Format  string `json:"format,omitempty"`
	Path    string `json:"path"`
	Rows    int    `json:"rows"`
	Columns int    `json:"columns"`
}

// Settings are the date options a run used.
type Settings struct {
	TimestampLayout string `json:"timestamp_layout"`
	ReferenceDate   string `json:"reference_date"`
	Timezone        string `json:"timezone"`
}

// Manifest is one run record, persisted as <dir>/<id>.json.
type Manifest struct {
	ID         string             `json:"id"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
	Settings   Settings           `json:"settings"`
	Inputs     []Table            `json:"inputs"`
	Steps      []wrangle.StepStat `json:"steps"`
	Output     *Table             `json:"output,omitempty"`
	Error      string             `json:"error,omitempty"`

	// Not serialized: directory the manifest is saved in
	dir string `json:"-"`
}

// New starts a run record that will be saved under dir.
func New(dir string, s Settings) *Manifest {
	return &Manifest{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Settings:  s,
		dir:       dir,
	}
}

// AddInput records a loaded table; a nil frame records the path only.
func (m *Manifest) AddInput(role, path string, f *frame.Frame) {
	t := Table{Role: role, Path: path}
	if f != nil {
		t.Rows, t.Columns = f.Len(), f.Width()
	}
	m.Inputs = append(m.Inputs, t)
}

// Finish stamps the end time, step stats and optional output.
func (m *Manifest) Finish(res *wrangle.Result, out *Table, runErr error) {
	m.FinishedAt = time.Now().UTC()
	if res != nil {
		m.Steps = res.Steps
	}
	m.Output = out
	if runErr != nil {
		m.Error = runErr.Error()
	}
}

// Path returns where Save writes the manifest.
func (m *Manifest) Path() string { return filepath.Join(m.dir, m.ID+".json") }

// Save writes the manifest using atomic write.
func (m *Manifest) Save() error {
	if m.dir == "" {
		return errors.New("manifest directory not set")
	}
	if err := utils.EnsureDir(m.dir); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	data, err := utils.PrettyJSON(m)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(m.Path(), data)
}

func read(path string) (*Manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", filepath.Base(path), err)
	}
	m.dir = filepath.Dir(path)
	return &m, nil
}

// List returns every manifest in dir, newest first. A missing dir is empty.
func List(dir string) ([]*Manifest, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read runs dir: %w", err)
	}
	var out []*Manifest
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		m, err := read(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out, nil
}

// Load finds a manifest by id or a unique id prefix.
func Load(dir, id string) (*Manifest, error) {
	id = strings.TrimSuffix(strings.TrimSpace(id), ".json")
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", ErrNotFound)
	}
	if m, err := read(filepath.Join(dir, id+".json")); err == nil {
		return m, nil
	}
	all, err := List(dir)
	if err != nil {
		return nil, err
	}
	var hit *Manifest
	for _, m := range all {
		if strings.HasPrefix(m.ID, id) {
			if hit != nil {
				return nil, fmt.Errorf("run id prefix %q is ambiguous", id)
			}
			hit = m
		}
	}
	if hit == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return hit, nil
}
