package curriculum

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/p-n-ai/pai-catalog/internal/catalog"
	"github.com/p-n-ai/pai-catalog/internal/platform/metrics"
)

// State is where a module pass is in the ingestion state machine.
type State int

const (
	StateIdle State = iota
	StateResolvingModule
	StateListingFiles
	StateNoDirectory
	StatePerFileLoop
	StateDone
	StateLocked
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResolvingModule:
		return "resolving_module"
	case StateListingFiles:
		return "listing_files"
	case StateNoDirectory:
		return "no_directory"
	case StatePerFileLoop:
		return "per_file_loop"
	case StateDone:
		return "done"
	case StateLocked:
		return "locked"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Locker provides cross-process exclusion for a module pass.
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error)
}

const defaultLockTTL = 5 * time.Minute

// PipelineConfig holds dependencies for the ingestion pipeline.
type PipelineConfig struct {
	Store     catalog.Store
	Modules   []ModuleSpec // default DefaultModules
	Roots     []string     // candidate content roots, tried in order
	Extension string       // default ".md"
	Locker    Locker       // optional
	LockTTL   time.Duration
	Runs      catalog.RunRecorder // optional
	Metrics   *metrics.Metrics    // optional
	Logger    *slog.Logger        // optional
}

// ModuleReport summarises one module pass.
type ModuleReport struct {
	RunID            string
	Module           catalog.ModuleType
	State            State
	Dir              string
	FilesSeen        int
	FilesFailed      int
	TopicsCreated    int
	TopicsSkipped    int
	QuestionsCreated int
	QuestionsSkipped int
	QuestionsFailed  int
}

// Report summarises a whole run.
type Report struct {
	Modules []ModuleReport
}

// TopicsCreated sums created topics across modules.
func (r Report) TopicsCreated() int {
	n := 0
	for _, m := range r.Modules {
		n += m.TopicsCreated
	}
	return n
}

// QuestionsCreated sums created questions across modules.
func (r Report) QuestionsCreated() int {
	n := 0
	for _, m := range r.Modules {
		n += m.QuestionsCreated
	}
	return n
}

// Pipeline ingests lesson files into the catalog, one module at a time and
// one file at a time.
type Pipeline struct {
	store      catalog.Store
	modules    []ModuleSpec
	roots      []string
	loader     *Loader
	reconciler *Reconciler
	locker     Locker
	lockTTL    time.Duration
	runs       catalog.RunRecorder
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewPipeline creates a pipeline from cfg.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	modules := cfg.Modules
	if len(modules) == 0 {
		modules = DefaultModules
	}
	lockTTL := cfg.LockTTL
	if lockTTL == 0 {
		lockTTL = defaultLockTTL
	}
	runs := cfg.Runs
	if runs == nil {
		runs = catalog.NopRunRecorder{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Pipeline{
		store:      cfg.Store,
		modules:    modules,
		roots:      cfg.Roots,
		loader:     NewLoader(cfg.Extension),
		reconciler: NewReconciler(logger),
		locker:     cfg.Locker,
		lockTTL:    lockTTL,
		runs:       runs,
		metrics:    cfg.Metrics,
		logger:     logger.With("component", "ingest"),
	}
}

// Run ingests every configured module. Failures are logged and counted in
// the report; Run itself never fails.
func (p *Pipeline) Run(ctx context.Context) Report {
	p.logger.Info("loading content from markdown files", "modules", len(p.modules))

	var report Report
	for _, spec := range p.modules {
		report.Modules = append(report.Modules, p.runModule(ctx, spec))
	}

	p.logger.Info("content loading complete",
		"topics_created", report.TopicsCreated(),
		"questions_created", report.QuestionsCreated(),
	)
	return report
}

func (p *Pipeline) runModule(ctx context.Context, spec ModuleSpec) (rep ModuleReport) {
	rep = ModuleReport{
		RunID:  uuid.NewString(),
		Module: spec.Category,
		State:  StateIdle,
	}
	log := p.logger.With("module", spec.Category, "run_id", rep.RunID)
	started := time.Now()

	defer func() {
		if v := recover(); v != nil {
			log.Error("error loading content", "panic", v, "state", rep.State)
			rep.State = StateFailed
		}
		p.finish(ctx, log, rep, started)
	}()

	if p.locker != nil {
		release, err := p.locker.Lock(ctx, lockKey(spec.Category), p.lockTTL)
		if err != nil {
			log.Warn("ingestion lock not acquired, skipping module", "error", err)
			rep.State = StateLocked
			return rep
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				log.Warn("releasing ingestion lock", "error", err)
			}
		}()
	}

	rep.State = StateResolvingModule
	module, err := p.reconciler.ResolveModule(ctx, p.store, spec)
	if err != nil {
		log.Error("error loading content", "error", err)
		rep.State = StateFailed
		return rep
	}

	rep.State = StateListingFiles
	candidates := candidateDirs(p.roots, spec.Dir)
	dir, ok := p.loader.ResolveDir(candidates)
	if !ok {
		log.Warn("content directory not found", "candidates", candidates)
		rep.State = StateNoDirectory
		return rep
	}
	rep.Dir = dir

	names, err := p.loader.List(dir)
	if err != nil {
		log.Error("error reading content directory", "dir", dir, "error", err)
		rep.State = StateFailed
		return rep
	}

	rep.State = StatePerFileLoop
	for _, name := range names {
		rep.FilesSeen++
		p.ingestFile(ctx, log, module, dir, name, &rep)
	}

	rep.State = StateDone
	return rep
}

// ingestFile loads and reconciles one file. Any failure, including a panic,
// is confined to this file.
func (p *Pipeline) ingestFile(ctx context.Context, log *slog.Logger, module catalog.Module, dir, name string, rep *ModuleReport) {
	category := string(module.Category)
	fail := func(err error) {
		log.Error("error loading topic from file", "file", filepath.Join(dir, name), "error", err)
		rep.FilesFailed++
		p.metrics.File(category, "failed")
	}
	defer func() {
		if v := recover(); v != nil {
			fail(fmt.Errorf("panic: %v", v))
		}
	}()

	doc, err := p.loader.Load(dir, name)
	if err != nil {
		fail(err)
		return
	}

	res, err := p.reconciler.ReconcileTopic(ctx, p.store, module, doc)
	if err != nil {
		fail(err)
		return
	}
	p.metrics.File(category, "loaded")

	if res.TopicCreated {
		rep.TopicsCreated++
		p.metrics.Topic(category, "created")
	} else {
		rep.TopicsSkipped++
		p.metrics.Topic(category, "skipped")
	}
	rep.QuestionsCreated += res.QuestionsCreated
	rep.QuestionsSkipped += res.QuestionsSkipped
	rep.QuestionsFailed += res.QuestionsFailed
	p.metrics.Question(category, "created", res.QuestionsCreated)
	p.metrics.Question(category, "skipped", res.QuestionsSkipped)
	p.metrics.Question(category, "failed", res.QuestionsFailed)
}

func (p *Pipeline) finish(ctx context.Context, log *slog.Logger, rep ModuleReport, started time.Time) {
	finished := time.Now()
	p.metrics.RunFinished(string(rep.Module), rep.State.String(), finished.Sub(started))

	err := p.runs.RecordRun(context.WithoutCancel(ctx), catalog.Run{
		ID:               rep.RunID,
		Module:           rep.Module,
		FinalState:       rep.State.String(),
		FilesSeen:        rep.FilesSeen,
		FilesFailed:      rep.FilesFailed,
		TopicsCreated:    rep.TopicsCreated,
		TopicsSkipped:    rep.TopicsSkipped,
		QuestionsCreated: rep.QuestionsCreated,
		QuestionsSkipped: rep.QuestionsSkipped,
		QuestionsFailed:  rep.QuestionsFailed,
		StartedAt:        started,
		FinishedAt:       finished,
	})
	if err != nil {
		log.Warn("recording ingestion run", "error", err)
	}

	log.Info("module pass finished",
		"state", rep.State.String(),
		"files", rep.FilesSeen,
		"files_failed", rep.FilesFailed,
		"topics_created", rep.TopicsCreated,
		"topics_skipped", rep.TopicsSkipped,
		"questions_created", rep.QuestionsCreated,
		"duration_ms", finished.Sub(started).Milliseconds(),
	)
}

// candidateDirs joins the module directory onto every root. An absolute
// module directory is used as is.
func candidateDirs(roots []string, dir string) []string {
	if filepath.IsAbs(dir) {
		return []string{dir}
	}
	out := make([]string, 0, len(roots))
	for _, root := range roots {
		out = append(out, filepath.Join(root, dir))
	}
	return out
}

func lockKey(category catalog.ModuleType) string {
	return "catalog:ingest:" + string(category)
}
