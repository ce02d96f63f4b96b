package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/flowpanel/pkg/algorithms"
	"github.com/dd0wney/flowpanel/pkg/config"
	"github.com/dd0wney/flowpanel/pkg/graph"
	"github.com/dd0wney/flowpanel/pkg/loader"
	"github.com/dd0wney/flowpanel/pkg/logging"
	"github.com/dd0wney/flowpanel/pkg/merge"
	"github.com/dd0wney/flowpanel/pkg/metrics"
	"github.com/dd0wney/flowpanel/pkg/parallel"
	"github.com/dd0wney/flowpanel/pkg/period"
	"github.com/dd0wney/flowpanel/pkg/table"
)

// ErrNoSnapshots is a fatal condition: the input directory yields no
// loadable snapshots, so the run would emit an empty panel.
var ErrNoSnapshots = fmt.Errorf("no snapshots found")

// Pipeline runs the whole per-period metric computation: discover
// snapshots, compute both metric families per snapshot on a worker
// pool, assemble the two tables, and merge them into the panel.
type Pipeline struct {
	cfg     *config.Config
	logger  logging.Logger
	metrics *metrics.Registry
}

// Result carries one run's complete output.
type Result struct {
	RunID string

	Centrality *table.CentralityTable
	Community  *table.CommunityTable
	Merged     []merge.Row
	Report     *merge.Report

	SnapshotsProcessed int
	SnapshotsSkipped   int
}

// New creates a pipeline. A nil logger or registry falls back to the
// no-op logger and a fresh registry.
func New(cfg *config.Config, logger logging.Logger, reg *metrics.Registry) *Pipeline {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if reg == nil {
		reg = metrics.NewRegistry()
	}
	return &Pipeline{cfg: cfg, logger: logger, metrics: reg}
}

// snapshotMetrics is one snapshot's computed output, handed from a
// worker to the collector.
type snapshotMetrics struct {
	source     string
	key        period.Key
	nodes      []string
	centrality *algorithms.CentralityResult
	community  *algorithms.CommunityResult
	partic     map[string]float64
}

// Run executes one full pipeline pass. Per-snapshot failures are
// logged and skipped; a label conflict or an empty input set aborts
// the run.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	runID := uuid.NewString()
	log := p.logger.With(logging.RunID(runID))

	l := loader.New(p.cfg.InputDir, p.cfg.Boroughs, log)
	paths, err := l.Discover()
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoSnapshots, p.cfg.InputDir)
	}
	log.Info("snapshots discovered", logging.Count(len(paths)), logging.Path(p.cfg.InputDir))

	result := &Result{
		RunID:      runID,
		Centrality: table.NewCentralityTable(),
		Community:  table.NewCommunityTable(),
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool := parallel.NewWorkerPool(p.cfg.Workers, log)

	var (
		computed = make(chan *snapshotMetrics, pool.Workers())
		skipped  atomic.Int64
		fatalMu  sync.Mutex
		fatal    error
	)
	setFatal := func(err error) {
		fatalMu.Lock()
		if fatal == nil {
			fatal = err
		}
		fatalMu.Unlock()
		cancel()
	}

	// Collector: tables are not safe for concurrent append, so a single
	// goroutine owns them. A period key seen twice means two input files
	// collapsed to the same key; the later one is skipped whole.
	var collectorWG sync.WaitGroup
	seenPeriods := make(map[period.Key]string)
	collectorWG.Add(1)
	go func() {
		defer collectorWG.Done()
		for sm := range computed {
			if prev, dup := seenPeriods[sm.key]; dup {
				log.Warn("duplicate period key, skipping snapshot",
					logging.SnapshotFile(sm.source), logging.PeriodKey(sm.key),
					logging.String("first_source", prev))
				p.metrics.RecordSnapshotSkipped("duplicate_period")
				skipped.Add(1)
				continue
			}
			seenPeriods[sm.key] = sm.source

			if err := p.appendRows(result, sm); err != nil {
				setFatal(err)
				return
			}
			result.SnapshotsProcessed++
		}
	}()

	var submitWG sync.WaitGroup
	for _, path := range paths {
		path := path
		submitWG.Add(1)
		err := pool.Submit(ctx, func() {
			defer submitWG.Done()
			sm, err := p.processSnapshot(log, l, path)
			if err != nil {
				if errors.Is(err, loader.ErrLabelConflict) {
					setFatal(err)
					return
				}
				log.Warn("skipping snapshot", logging.SnapshotFile(path), logging.Error(err))
				p.metrics.RecordSnapshotSkipped("load_error")
				skipped.Add(1)
				return
			}
			select {
			case computed <- sm:
			case <-ctx.Done():
			}
		})
		if err != nil {
			submitWG.Done()
			break
		}
	}

	submitWG.Wait()
	close(computed)
	collectorWG.Wait()
	pool.Close()
	result.SnapshotsSkipped = int(skipped.Load())

	if fatal != nil {
		return nil, fatal
	}
	if result.SnapshotsProcessed == 0 {
		return nil, fmt.Errorf("%w: all %d snapshots failed to load", ErrNoSnapshots, len(paths))
	}

	p.mergeTables(log, result)

	log.Info("run complete",
		logging.Int("processed", result.SnapshotsProcessed),
		logging.Int("skipped", result.SnapshotsSkipped),
		logging.Int("panel_rows", len(result.Merged)))

	return result, nil
}

// processSnapshot loads one snapshot and runs both engines over it.
func (p *Pipeline) processSnapshot(log logging.Logger, l *loader.Loader, path string) (*snapshotMetrics, error) {
	snap, err := l.Load(path)
	if err != nil {
		return nil, err
	}
	p.metrics.SnapshotsInFlight.Inc()
	defer p.metrics.SnapshotsInFlight.Dec()

	eigOpts := algorithms.EigenvectorOptions{
		MaxIterations: p.cfg.Eigenvector.MaxIterations,
		Tolerance:     p.cfg.Eigenvector.Tolerance,
	}
	commOpts := algorithms.CommunityOptions{
		Seed:       p.cfg.Community.Seed,
		Resolution: p.cfg.Community.Resolution,
		MaxPasses:  p.cfg.Community.MaxPasses,
	}

	start := time.Now()
	centrality := algorithms.ComputeCentrality(snap, eigOpts)
	p.metrics.RecordEngine("centrality", time.Since(start))

	start = time.Now()
	community, partic := algorithms.ComputeCommunityMetrics(snap, commOpts)
	p.metrics.RecordEngine("community", time.Since(start))

	p.recordFallbacks(log, snap, centrality)
	p.metrics.RecordSnapshotProcessed(snap.NodeCount(), snap.EdgeCount())

	log.Debug("snapshot computed",
		logging.SnapshotFile(snap.Source), logging.PeriodKey(snap.Key),
		logging.Int("nodes", snap.NodeCount()), logging.Int("edges", snap.EdgeCount()),
		logging.Int("communities", community.Count))

	return &snapshotMetrics{
		source:     snap.Source,
		key:        snap.Key,
		nodes:      snap.Nodes(),
		centrality: centrality,
		community:  community,
		partic:     partic,
	}, nil
}

func (p *Pipeline) recordFallbacks(log logging.Logger, snap *graph.Snapshot, c *algorithms.CentralityResult) {
	for measure, outcome := range map[string]algorithms.Outcome{
		"betweenness": c.Betweenness,
		"closeness":   c.Closeness,
		"eigenvector": c.Eigenvector,
	} {
		if outcome.FellBack() {
			log.Warn("measure fell back to zero values",
				logging.SnapshotFile(snap.Source), logging.PeriodKey(snap.Key),
				logging.Measure(measure), logging.FallbackReason(outcome.Reason))
			p.metrics.RecordFallback(measure)
		}
	}
}

// appendRows emits one row per node into both tables. Fallback
// outcomes flatten to zero here, at emission time.
func (p *Pipeline) appendRows(result *Result, sm *snapshotMetrics) error {
	for _, node := range sm.nodes {
		key := table.RowKey{Period: sm.key, Borough: node}

		if err := result.Centrality.Append(table.CentralityRow{
			Key:         key,
			InDegree:    sm.centrality.InDegree.ValueOr(node, 0),
			OutDegree:   sm.centrality.OutDegree.ValueOr(node, 0),
			Betweenness: sm.centrality.Betweenness.ValueOr(node, 0),
			Closeness:   sm.centrality.Closeness.ValueOr(node, 0),
			Eigenvector: sm.centrality.Eigenvector.ValueOr(node, 0),
		}); err != nil {
			return fmt.Errorf("snapshot %s: %w", sm.source, err)
		}

		if err := result.Community.Append(table.CommunityRow{
			Key:           key,
			CommunityID:   sm.community.Membership[node],
			Participation: sm.partic[node],
		}); err != nil {
			return fmt.Errorf("snapshot %s: %w", sm.source, err)
		}
	}
	return nil
}

func (p *Pipeline) mergeTables(log logging.Logger, result *Result) {
	result.Merged, result.Report = merge.Tables(result.Centrality, result.Community)
	p.metrics.RecordJoin(result.Report.Matched, result.Report.CentralityOnly, result.Report.CommunityOnly)

	if !result.Report.Clean() {
		log.Warn("merge produced one-sided rows",
			logging.Int("centrality_only", result.Report.CentralityOnly),
			logging.Int("community_only", result.Report.CommunityOnly),
			logging.Any("sample_centrality_only", result.Report.SampleCentralityOnly),
			logging.Any("sample_community_only", result.Report.SampleCommunityOnly))
	}
}
