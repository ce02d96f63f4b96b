package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dd0wney/flowpanel/pkg/merge"
)

// Output filenames within the run's output directory.
const (
	CentralityFile = "centrality_metrics.csv"
	CommunityFile  = "community_metrics.csv"
	MergedFile     = "all_metrics_timeseries.csv"
)

// WriteOutputs writes the three CSV artifacts of one run into dir,
// creating it if needed.
func WriteOutputs(dir string, result *Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir %s: %w", dir, err)
	}

	if err := writeFile(filepath.Join(dir, CentralityFile), result.Centrality.WriteCSV); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, CommunityFile), result.Community.WriteCSV); err != nil {
		return err
	}
	return writeFile(filepath.Join(dir, MergedFile), func(w io.Writer) error {
		return merge.WriteCSV(w, result.Merged)
	})
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
