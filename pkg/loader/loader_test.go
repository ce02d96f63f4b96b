package loader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/snappy"

	"github.com/dd0wney/flowpanel/pkg/logging"
)

const sampleGraphML = `<?xml version="1.0" encoding="UTF-8"?>
<graphml xmlns="http://graphml.graphdrawing.org/xmlns">
  <key id="v_name" for="node" attr.name="name" attr.type="string"/>
  <key id="e_weight" for="edge" attr.name="weight" attr.type="double"/>
  <graph id="G" edgedefault="directed">
    <node id="n0"><data key="v_name">Camden</data></node>
    <node id="n1"><data key="v_name">Islington</data></node>
    <edge source="n0" target="n1"><data key="e_weight">42</data></edge>
  </graph>
</graphml>`

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func TestLoader_DiscoverSorted(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "RODS/2016/2016_MTT.graphml", []byte(sampleGraphML))
	writeFile(t, dir, "RODS/2005/2005_MTT.graphml", []byte(sampleGraphML))
	writeFile(t, dir, "notes.txt", []byte("ignored"))

	l := New(dir, nil, logging.NewNopLogger())
	paths, err := l.Discover()
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	if len(paths) != 2 {
		t.Fatalf("Expected 2 snapshots, got %d", len(paths))
	}
	if filepath.Base(paths[0]) != "2005_MTT.graphml" {
		t.Errorf("Expected sorted order, got %v", paths)
	}
}

func TestLoader_LoadPlain(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "2016_MTT.graphml", []byte(sampleGraphML))

	l := New(dir, nil, logging.NewNopLogger())
	snap, err := l.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if snap.Key.Year != "2016" || snap.Key.DayType != "MTT" {
		t.Errorf("Unexpected period key %v", snap.Key)
	}
	if w := snap.Weight("Camden", "Islington"); w != 42 {
		t.Errorf("Expected weight 42, got %f", w)
	}
}

func TestLoader_LoadCompressed(t *testing.T) {
	dir := t.TempDir()
	compressed := snappy.Encode(nil, []byte(sampleGraphML))
	path := writeFile(t, dir, "2003_SAT_tb_late.graphml.sz", compressed)

	l := New(dir, nil, logging.NewNopLogger())
	snap, err := l.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if snap.Key.Year != "2003" || snap.Key.DayType != "SAT" || snap.Key.TimeBand != "late" {
		t.Errorf("Unexpected period key %v", snap.Key)
	}
	if snap.NodeCount() != 2 {
		t.Errorf("Expected 2 nodes, got %d", snap.NodeCount())
	}
}

func TestLoader_MalformedSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "2016_MTT.graphml", []byte("<broken"))

	l := New(dir, nil, logging.NewNopLogger())
	if _, err := l.Load(path); err == nil {
		t.Error("Expected error for malformed snapshot")
	}
}

func TestLoader_LabelConflictIsFatal(t *testing.T) {
	dir := t.TempDir()
	first := writeFile(t, dir, "2015_MTT.graphml", []byte(sampleGraphML))

	conflicting := `<?xml version="1.0"?>
<graphml xmlns="http://graphml.graphdrawing.org/xmlns">
  <key id="v_name" for="node" attr.name="name" attr.type="string"/>
  <graph edgedefault="directed">
    <node id="n0"><data key="v_name">CAMDEN</data></node>
  </graph>
</graphml>`
	second := writeFile(t, dir, "2016_MTT.graphml", []byte(conflicting))

	l := New(dir, nil, logging.NewNopLogger())
	if _, err := l.Load(first); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	_, err := l.Load(second)
	if !errors.Is(err, ErrLabelConflict) {
		t.Errorf("Expected ErrLabelConflict, got %v", err)
	}
}

func TestLoader_CanonicalInjection(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "2016_MTT.graphml", []byte(sampleGraphML))

	l := New(dir, []string{"Camden", "Islington", "City of London", "External"}, logging.NewNopLogger())
	snap, err := l.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !snap.HasNode("City of London") || !snap.HasNode("External") {
		t.Error("Expected canonical units injected as isolated vertices")
	}
	if s := snap.Strength("City of London"); s != 0 {
		t.Errorf("Expected zero flow for injected unit, got %f", s)
	}
}
