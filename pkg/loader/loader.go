package loader

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/golang/snappy"

	"github.com/dd0wney/flowpanel/pkg/graph"
	"github.com/dd0wney/flowpanel/pkg/logging"
	"github.com/dd0wney/flowpanel/pkg/period"
)

// ErrLabelConflict is a fatal condition: the same geographic unit
// appears under conflicting spellings (case-insensitively equal but
// byte-different), which would silently split one unit's rows in two.
var ErrLabelConflict = fmt.Errorf("conflicting node labels")

// Loader discovers and reconstructs graph snapshots from a directory
// tree. Snapshots are GraphML files, optionally snappy-compressed with
// a .sz suffix (the archive format used for cold survey years). The
// loader also enforces run-wide node-label consistency and, when a
// canonical unit list is configured, injects declared-but-absent units
// as isolated vertices so they keep their zero-flow rows.
type Loader struct {
	dir       string
	canonical []string
	logger    logging.Logger

	mu   sync.Mutex
	seen map[string]string // lowercased label -> first exact spelling
}

// New creates a loader over the given directory.
func New(dir string, canonical []string, logger logging.Logger) *Loader {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Loader{
		dir:       dir,
		canonical: canonical,
		logger:    logger,
		seen:      make(map[string]string),
	}
}

// Discover walks the input directory and returns all snapshot file
// paths in sorted order. The sorted order keeps run output stable even
// though snapshots may be processed concurrently.
func (l *Loader) Discover() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(l.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if strings.HasSuffix(name, ".graphml") || strings.HasSuffix(name, ".graphml.sz") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover snapshots in %s: %w", l.dir, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// Load reads one snapshot file, decompressing when necessary, parses
// the period key from its filename, and verifies its labels against
// everything loaded so far.
func (l *Loader) Load(path string) (*graph.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}

	if strings.HasSuffix(path, ".sz") {
		data, err = snappy.Decode(nil, data)
		if err != nil {
			return nil, fmt.Errorf("decompress snapshot %s: %w", path, err)
		}
	}

	name := filepath.Base(path)
	key := period.ParseFilename(name)

	snap, err := graph.ParseGraphML(bytes.NewReader(data), name, key)
	if err != nil {
		return nil, err
	}

	if err := l.verifyLabels(snap); err != nil {
		return nil, err
	}
	l.ensureCanonical(snap)

	return snap, nil
}

// verifyLabels checks this snapshot's labels against the run-wide set.
// A conflict is fatal to the run, not just the snapshot: it means the
// aggregate table would be keyed inconsistently.
func (l *Loader) verifyLabels(snap *graph.Snapshot) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, label := range snap.Nodes() {
		lower := strings.ToLower(label)
		if existing, ok := l.seen[lower]; ok {
			if existing != label {
				return fmt.Errorf("%w: %q vs %q (snapshot %s)",
					ErrLabelConflict, existing, label, snap.Source)
			}
			continue
		}
		l.seen[lower] = label
	}
	return nil
}

// ensureCanonical injects configured units missing from the snapshot
// as isolated vertices.
func (l *Loader) ensureCanonical(snap *graph.Snapshot) {
	for _, label := range l.canonical {
		if !snap.HasNode(label) {
			l.logger.Debug("injecting absent canonical unit",
				logging.SnapshotFile(snap.Source), logging.Borough(label))
			snap.AddNode(label)
		}
	}
}
