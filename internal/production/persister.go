package production

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrVersionMismatch is returned when a snapshot was taken from a chart
// whose structure differs from the one restoring it.
var ErrVersionMismatch = errors.New("snapshot chart version mismatch")

// Snapshot is the persisted working memory of one chart. Version is the
// structural hash of the chart that produced it.
type Snapshot[M any] struct {
	MachineID string    `json:"machineId" yaml:"machineId"`
	Version   string    `json:"version" yaml:"version"`
	Tick      uint64    `json:"tick" yaml:"tick"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Memory    M         `json:"memory" yaml:"memory"`
}

// Persister stores and loads snapshots by machine ID.
type Persister[M any] interface {
	Save(ctx context.Context, snapshot Snapshot[M]) error
	Load(ctx context.Context, machineID string) (Snapshot[M], error)
}

// Restore loads the snapshot for machineID and checks it against the
// restoring chart's version.
func Restore[M any](ctx context.Context, p Persister[M], machineID, version string) (Snapshot[M], error) {
	snapshot, err := p.Load(ctx, machineID)
	if err != nil {
		return Snapshot[M]{}, err
	}
	if snapshot.Version != version {
		return Snapshot[M]{}, fmt.Errorf("%w: %s has %s, chart is %s", ErrVersionMismatch, machineID, snapshot.Version, version)
	}
	return snapshot, nil
}

// New returns the persister for format: json, yaml or proto.
func New[M any](format, dir string) (Persister[M], error) {
	switch format {
	case "json":
		return NewJSONPersister[M](dir)
	case "yaml":
		return NewYAMLPersister[M](dir)
	case "proto":
		return NewProtoPersister[M](dir)
	}
	return nil, fmt.Errorf("unknown snapshot format %q", format)
}

// fileStore holds what the file-based persisters share.
type fileStore struct {
	dir string
	ext string
}

func newFileStore(dir, ext string) (fileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fileStore{}, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return fileStore{dir: dir, ext: ext}, nil
}

func (s fileStore) path(machineID string) string {
	return filepath.Join(s.dir, machineID+s.ext)
}

func (s fileStore) write(ctx context.Context, machineID string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fn := s.path(machineID)
	if err := os.WriteFile(fn, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", fn, err)
	}
	return nil
}

func (s fileStore) read(ctx context.Context, machineID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fn := s.path(machineID)
	data, err := os.ReadFile(fn)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("machine %q: %w", machineID, os.ErrNotExist)
		}
		return nil, fmt.Errorf("read %s: %w", fn, err)
	}
	return data, nil
}

// JSONPersister stores snapshots as indented JSON files.
type JSONPersister[M any] struct {
	store fileStore
}

// NewJSONPersister creates a JSONPersister, ensuring the directory exists.
func NewJSONPersister[M any](dir string) (*JSONPersister[M], error) {
	store, err := newFileStore(dir, ".json")
	if err != nil {
		return nil, err
	}
	return &JSONPersister[M]{store: store}, nil
}

func (p *JSONPersister[M]) Save(ctx context.Context, snapshot Snapshot[M]) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	return p.store.write(ctx, snapshot.MachineID, data)
}

func (p *JSONPersister[M]) Load(ctx context.Context, machineID string) (Snapshot[M], error) {
	data, err := p.store.read(ctx, machineID)
	if err != nil {
		return Snapshot[M]{}, err
	}

	var snapshot Snapshot[M]
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return Snapshot[M]{}, fmt.Errorf("json unmarshal: %w", err)
	}
	snapshot.MachineID = machineID

	return snapshot, nil
}

// YAMLPersister stores snapshots as YAML files.
type YAMLPersister[M any] struct {
	store fileStore
}

// NewYAMLPersister creates a YAMLPersister, ensuring the directory exists.
func NewYAMLPersister[M any](dir string) (*YAMLPersister[M], error) {
	store, err := newFileStore(dir, ".yaml")
	if err != nil {
		return nil, err
	}
	return &YAMLPersister[M]{store: store}, nil
}

func (p *YAMLPersister[M]) Save(ctx context.Context, snapshot Snapshot[M]) error {
	data, err := yaml.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("yaml marshal: %w", err)
	}
	return p.store.write(ctx, snapshot.MachineID, data)
}

func (p *YAMLPersister[M]) Load(ctx context.Context, machineID string) (Snapshot[M], error) {
	data, err := p.store.read(ctx, machineID)
	if err != nil {
		return Snapshot[M]{}, err
	}

	var snapshot Snapshot[M]
	if err := yaml.Unmarshal(data, &snapshot); err != nil {
		return Snapshot[M]{}, fmt.Errorf("yaml unmarshal: %w", err)
	}
	snapshot.MachineID = machineID

	return snapshot, nil
}
