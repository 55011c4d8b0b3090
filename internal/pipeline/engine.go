package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/tourforge-core/internal/floorplan"
	"github.com/nerrad567/tourforge-core/internal/genservice"
	"github.com/nerrad567/tourforge-core/internal/infrastructure/config"
	"github.com/nerrad567/tourforge-core/internal/tour"
)

// JobClient is the interface the engine needs from the generation
// service client.
type JobClient interface {
	Execute(ctx context.Context, kind genservice.JobKind, model string, input map[string]any) (string, error)
}

// ViewpointGenerator produces one viewpoint per room.
type ViewpointGenerator interface {
	Generate(ctx context.Context, room floorplan.Room, graph *floorplan.Graph, style string) (tour.Viewpoint, error)
}

// ResultCache is the key→URL store consulted before the dollhouse and
// viewpoint stages. Nil-safe at the engine level: a nil cache means
// every lookup misses.
type ResultCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

// WSHub is the interface for broadcasting progress events.
type WSHub interface {
	// Broadcast sends an event to all clients subscribed to the given channel.
	Broadcast(channel string, payload any)
}

// Telemetry records stage timings and cache activity. May be nil.
type Telemetry interface {
	WriteStageDuration(executionID string, stage string, duration time.Duration, succeeded bool)
	WriteCacheAccess(kind string, hit bool)
}

// Logger is the minimal logging interface this package requires.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// missChecker reports whether a cache error is an ordinary miss.
// Anything else is logged and still treated as a miss.
type missChecker func(error) bool

// Engine orchestrates the tour generation pipeline.
//
// Stages run strictly in sequence (analyze, graph, dollhouse,
// viewpoints, assemble) because each depends on the previous stage's
// typed output. Only the viewpoint stage fans out; it waits for every
// room to settle and never fails fast.
//
// The engine imposes no global deadline of its own. Total wall-clock
// time is bounded by the per-attempt and per-poll budgets of the layers
// below, and callers should surface it as a progress estimate rather
// than promise completion times.
//
// Thread Safety: Run and Start are safe for concurrent use.
type Engine struct {
	jobs       JobClient
	generator  ViewpointGenerator
	builder    *floorplan.Builder
	repo       Repository
	cache      ResultCache
	cacheMiss  missChecker
	hub        WSHub
	telemetry  Telemetry
	cfg        config.GenServiceConfig
	pipelineC  config.PipelineConfig
	cacheTTL   time.Duration
	logger     Logger
	baseCtx    context.Context
	retryPol   genservice.Policy
}

// Deps bundles the engine's collaborators.
type Deps struct {
	Jobs      JobClient
	Generator ViewpointGenerator
	Builder   *floorplan.Builder
	Repo      Repository

	// Cache may be nil; every lookup then misses.
	Cache ResultCache

	// IsCacheMiss distinguishes an ordinary miss from a cache fault.
	// Required when Cache is set.
	IsCacheMiss func(error) bool

	// Hub may be nil; progress events are then dropped.
	Hub WSHub

	// Telemetry may be nil.
	Telemetry Telemetry

	GenService config.GenServiceConfig
	Pipeline   config.PipelineConfig
	CacheTTL   time.Duration
	Logger     Logger

	// BaseCtx parents the background runs started by Start. Defaults to
	// context.Background.
	BaseCtx context.Context
}

// NewEngine creates a pipeline engine.
func NewEngine(deps Deps) *Engine {
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	baseCtx := deps.BaseCtx
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	missCheck := deps.IsCacheMiss
	if missCheck == nil {
		missCheck = func(error) bool { return false }
	}

	return &Engine{
		jobs:      deps.Jobs,
		generator: deps.Generator,
		builder:   deps.Builder,
		repo:      deps.Repo,
		cache:     deps.Cache,
		cacheMiss: missCheck,
		hub:       deps.Hub,
		telemetry: deps.Telemetry,
		cfg:       deps.GenService,
		pipelineC: deps.Pipeline,
		cacheTTL:  deps.CacheTTL,
		logger:    logger,
		baseCtx:   baseCtx,
		retryPol:  genservice.PolicyFromConfig(deps.GenService.Retry),
	}
}

// Start launches a pipeline run in the background and returns its
// execution ID immediately.
//
// The run is parented on the engine's base context, not the caller's:
// an HTTP request ending must not abandon a half-built tour. Progress
// is observable through the execution record and the hub's
// pipeline.progress channel.
func (e *Engine) Start(ctx context.Context, imageURL, style string) (string, error) {
	exec := e.newExecution(imageURL, style)

	if err := e.repo.CreateExecution(ctx, exec); err != nil {
		return "", fmt.Errorf("creating execution record: %w", err)
	}

	go func() {
		if _, err := e.run(e.baseCtx, exec); err != nil {
			e.logger.Error("pipeline run failed",
				"execution_id", exec.ID,
				"error", err,
			)
		}
	}()

	return exec.ID, nil
}

// Run executes the pipeline synchronously and returns the assembled
// tour. The execution record is created and maintained as in Start.
func (e *Engine) Run(ctx context.Context, imageURL, style string) (*tour.Tour, error) {
	exec := e.newExecution(imageURL, style)

	if err := e.repo.CreateExecution(ctx, exec); err != nil {
		return nil, fmt.Errorf("creating execution record: %w", err)
	}

	return e.run(ctx, exec)
}

// Analyze runs the analysis job and graph build alone, without an
// execution record. Serves the standalone floor-plan analysis endpoint;
// full runs go through Run or Start.
func (e *Engine) Analyze(ctx context.Context, imageURL string) (*floorplan.Graph, error) {
	return e.analyzeAndBuild(ctx, imageURL, nil)
}

func (e *Engine) newExecution(imageURL, style string) *Execution {
	return &Execution{
		ID:          GenerateID(),
		ImageURL:    imageURL,
		Style:       style,
		TriggeredAt: time.Now().UTC(),
		Stage:       StageAnalysis,
		Status:      StatusPending,
	}
}

// run drives one execution through every stage.
func (e *Engine) run(ctx context.Context, exec *Execution) (*tour.Tour, error) {
	started := time.Now().UTC()
	exec.StartedAt = &started
	exec.Status = StatusRunning
	e.persist(ctx, exec)

	e.logger.Info("pipeline started",
		"execution_id", exec.ID,
		"style", exec.Style,
	)

	graph, err := e.analyzeAndBuild(ctx, exec.ImageURL, exec)
	if err != nil {
		return nil, e.fail(ctx, exec, started, err)
	}

	dollhouseURL := e.stageDollhouse(ctx, exec, graph)

	viewpoints, failures := e.stageViewpoints(ctx, exec, graph)
	if ctx.Err() != nil {
		exec.Status = StatusCancelled
		return nil, e.fail(ctx, exec, started, &Error{
			Kind:   KindAllViewpointsFailed,
			Detail: "run cancelled during fan-out",
			Err:    ctx.Err(),
		})
	}

	return e.stageAssemble(ctx, exec, graph, dollhouseURL, viewpoints, failures, started)
}

// analyzeAndBuild runs the analysis job and builds the spatial graph
// from its output. With a non-nil exec the stage transitions, timings,
// and room count are recorded against it; the standalone Analyze path
// passes nil.
//
// Analysis failure is pipeline-fatal. There is no fallback to synthetic
// floor-plan data: a tour of rooms the analyser never saw would look
// complete while being fiction.
func (e *Engine) analyzeAndBuild(ctx context.Context, imageURL string, exec *Execution) (*floorplan.Graph, error) {
	if exec != nil {
		e.setStage(ctx, exec, StageAnalysis)
	}

	stageStart := time.Now()
	output, err := genservice.Retry(ctx, e.retryPol, func(ctx context.Context) (string, error) {
		return e.jobs.Execute(ctx, genservice.KindAnalyze, e.cfg.AnalyzeModel, map[string]any{
			"image_url": imageURL,
		})
	})
	if exec != nil {
		e.recordStage(exec.ID, StageAnalysis, stageStart, err == nil)
	}
	if err != nil {
		return nil, &Error{Kind: KindAnalysisFailed, Detail: "analysis job failed", Err: err}
	}

	var raw floorplan.RawAnalysis
	if err := json.Unmarshal([]byte(output), &raw); err != nil {
		return nil, &Error{Kind: KindAnalysisFailed, Detail: "analysis output is not valid JSON", Err: err}
	}
	if len(raw.Rooms) == 0 {
		return nil, &Error{Kind: KindAnalysisFailed, Detail: "analysis returned zero rooms"}
	}

	if exec != nil {
		e.setStage(ctx, exec, StageGraph)
	}

	graphStart := time.Now()
	graph, err := e.builder.Build(raw)
	if exec != nil {
		e.recordStage(exec.ID, StageGraph, graphStart, err == nil)
	}
	if err != nil {
		return nil, &Error{Kind: KindInvalidFloorPlan, Detail: "floor plan validation failed", Err: err}
	}

	if exec != nil {
		exec.RoomsTotal = len(graph.Rooms)
		e.persist(ctx, exec)
	}

	return graph, nil
}

// stageDollhouse renders the overview model. Failure degrades the tour
// (no dollhouse URL) and nothing more; navigation does not depend on it.
func (e *Engine) stageDollhouse(ctx context.Context, exec *Execution, graph *floorplan.Graph) string {
	if !e.pipelineC.DollhouseEnabled {
		return ""
	}

	e.setStage(ctx, exec, StageDollhouse)

	key := DollhouseKey(graph, exec.Style)
	if url, ok := e.cacheGet(ctx, "dollhouse", key); ok {
		return url
	}

	stageStart := time.Now()
	url, err := genservice.Retry(ctx, e.retryPol, func(ctx context.Context) (string, error) {
		return e.jobs.Execute(ctx, genservice.KindDollhouse, e.cfg.DollhouseModel, map[string]any{
			"apartment_type": graph.ApartmentType,
			"rooms":          roomSummaries(graph),
			"style":          exec.Style,
		})
	})
	e.recordStage(exec.ID, StageDollhouse, stageStart, err == nil)
	if err != nil {
		e.logger.Warn("dollhouse generation failed, continuing without",
			"execution_id", exec.ID,
			"error", err,
		)
		return ""
	}

	e.cacheSet(ctx, key, url)
	return url
}

// stageViewpoints fans out one generation per room and waits for every
// room to settle, collecting successes and failures alike.
func (e *Engine) stageViewpoints(ctx context.Context, exec *Execution, graph *floorplan.Graph) ([]tour.Viewpoint, []RoomFailure) {
	e.setStage(ctx, exec, StageViewpoints)

	stageStart := time.Now()

	var (
		mu         sync.Mutex
		viewpoints []tour.Viewpoint
		failures   []RoomFailure
		wg         sync.WaitGroup
	)

	// Bound the fan-out; the generation service throttles aggressively
	// past a handful of concurrent jobs.
	var sem chan struct{}
	if n := e.pipelineC.MaxConcurrentViewpoints; n > 0 {
		sem = make(chan struct{}, n)
	}

	for _, room := range graph.Rooms {
		wg.Add(1)
		go func(room floorplan.Room) {
			defer wg.Done()

			if sem != nil {
				sem <- struct{}{}
				defer func() { <-sem }()
			}

			vp, err := e.generateViewpoint(ctx, exec, graph, room)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, RoomFailure{
					RoomID:   room.ID,
					Kind:     string(genservice.KindOf(err)),
					ErrorMsg: err.Error(),
				})
				return
			}
			viewpoints = append(viewpoints, vp)
		}(room)
	}

	wg.Wait()

	// Deterministic output order regardless of which goroutine finished
	// first: re-sort into room declaration order.
	viewpoints = orderByRooms(viewpoints, graph)
	failures = orderFailuresByRooms(failures, graph)

	exec.RoomsCompleted = len(viewpoints)
	exec.RoomsFailed = len(failures)
	exec.Failures = failures
	e.persist(ctx, exec)

	e.recordStage(exec.ID, StageViewpoints, stageStart, len(failures) == 0)
	e.broadcast("pipeline.progress", map[string]any{
		"execution_id":    exec.ID,
		"stage":           string(StageViewpoints),
		"rooms_total":     exec.RoomsTotal,
		"rooms_completed": exec.RoomsCompleted,
		"rooms_failed":    exec.RoomsFailed,
	})

	return viewpoints, failures
}

// generateViewpoint produces one room's viewpoint, consulting the cache
// first.
func (e *Engine) generateViewpoint(ctx context.Context, exec *Execution, graph *floorplan.Graph, room floorplan.Room) (tour.Viewpoint, error) {
	key := ViewpointKey(graph, exec.Style, room.ID)
	if url, ok := e.cacheGet(ctx, "viewpoint", key); ok {
		return tour.Viewpoint{
			ID:       tour.CanonicalViewpointID(room.Type),
			RoomID:   room.ID,
			ImageURL: url,
			Hotspots: tour.Hotspots(room, graph),
		}, nil
	}

	vp, err := e.generator.Generate(ctx, room, graph, exec.Style)
	if err != nil {
		return tour.Viewpoint{}, err
	}

	e.cacheSet(ctx, key, vp.ImageURL)
	return vp, nil
}

// stageAssemble builds the final Tour, persists it, and settles the
// execution record.
func (e *Engine) stageAssemble(ctx context.Context, exec *Execution, graph *floorplan.Graph,
	dollhouseURL string, viewpoints []tour.Viewpoint, failures []RoomFailure, started time.Time,
) (*tour.Tour, error) {
	e.setStage(ctx, exec, StageAssemble)

	if len(viewpoints) == 0 {
		return nil, e.fail(ctx, exec, started, &Error{
			Kind:   KindAllViewpointsFailed,
			Detail: fmt.Sprintf("all %d rooms failed", len(failures)),
		})
	}

	failedIDs := make([]string, len(failures))
	for i, f := range failures {
		failedIDs[i] = f.RoomID
	}

	status := tour.StatusCompleted
	if len(failures) > 0 {
		status = tour.StatusCompletedWithGaps
	}

	assembled := &tour.Tour{
		ID:            GenerateID(),
		Style:         exec.Style,
		LayoutType:    graph.ApartmentType,
		DollhouseURL:  dollhouseURL,
		Viewpoints:    viewpoints,
		FailedRoomIDs: failedIDs,
		Status:        status,
	}

	if err := e.repo.CreateTour(ctx, assembled); err != nil {
		// The tour exists in memory; losing the row is bad but not worth
		// discarding minutes of generation work over.
		e.logger.Error("failed to persist tour",
			"execution_id", exec.ID,
			"tour_id", assembled.ID,
			"error", err,
		)
	}

	completedAt := time.Now().UTC()
	duration := int(completedAt.Sub(started).Milliseconds())
	exec.TourID = &assembled.ID
	exec.CompletedAt = &completedAt
	exec.DurationMS = &duration
	exec.Stage = StageDone
	if len(failures) > 0 {
		exec.Status = StatusPartial
	} else {
		exec.Status = StatusCompleted
	}
	e.persist(ctx, exec)

	e.logger.Info("pipeline complete",
		"execution_id", exec.ID,
		"tour_id", assembled.ID,
		"status", string(assembled.Status),
		"rooms_completed", exec.RoomsCompleted,
		"rooms_failed", exec.RoomsFailed,
		"duration_ms", duration,
	)

	e.broadcast("pipeline.completed", map[string]any{
		"execution_id": exec.ID,
		"tour_id":      assembled.ID,
		"status":       string(assembled.Status),
		"duration_ms":  duration,
	})

	return assembled, nil
}

// fail settles the execution record for a fatal error and returns it.
func (e *Engine) fail(ctx context.Context, exec *Execution, started time.Time, failure error) error {
	completedAt := time.Now().UTC()
	duration := int(completedAt.Sub(started).Milliseconds())
	message := failure.Error()

	exec.CompletedAt = &completedAt
	exec.DurationMS = &duration
	exec.ErrorMessage = &message
	if exec.Status != StatusCancelled {
		exec.Status = StatusFailed
	}
	e.persist(ctx, exec)

	e.logger.Error("pipeline failed",
		"execution_id", exec.ID,
		"stage", string(exec.Stage),
		"error", failure,
	)

	e.broadcast("pipeline.failed", map[string]any{
		"execution_id": exec.ID,
		"stage":        string(exec.Stage),
		"error":        message,
	})

	return failure
}

// setStage updates and persists the current stage, broadcasting the
// transition.
func (e *Engine) setStage(ctx context.Context, exec *Execution, stage Stage) {
	exec.Stage = stage
	e.persist(ctx, exec)
	e.broadcast("pipeline.progress", map[string]any{
		"execution_id": exec.ID,
		"stage":        string(stage),
	})
}

// persist updates the execution record, logging rather than failing on
// error. A lost progress update must not abort generation work.
func (e *Engine) persist(ctx context.Context, exec *Execution) {
	if err := e.repo.UpdateExecution(ctx, exec); err != nil {
		e.logger.Error("failed to update execution record",
			"execution_id", exec.ID,
			"error", err,
		)
	}
}

func (e *Engine) broadcast(channel string, payload any) {
	if e.hub != nil {
		e.hub.Broadcast(channel, payload)
	}
}

func (e *Engine) recordStage(executionID string, stage Stage, start time.Time, succeeded bool) {
	if e.telemetry != nil {
		e.telemetry.WriteStageDuration(executionID, string(stage), time.Since(start), succeeded)
	}
}

// cacheGet looks a key up, treating cache faults as misses.
func (e *Engine) cacheGet(ctx context.Context, kind, key string) (string, bool) {
	if e.cache == nil {
		return "", false
	}

	url, err := e.cache.Get(ctx, key)
	hit := err == nil
	if e.telemetry != nil {
		e.telemetry.WriteCacheAccess(kind, hit)
	}
	if err != nil {
		if !e.cacheMiss(err) {
			e.logger.Warn("cache lookup failed", "key", key, "error", err)
		}
		return "", false
	}
	return url, true
}

func (e *Engine) cacheSet(ctx context.Context, key, url string) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Set(ctx, key, url, e.cacheTTL); err != nil {
		e.logger.Warn("cache store failed", "key", key, "error", err)
	}
}

// roomSummaries flattens the graph for the dollhouse prompt.
func roomSummaries(graph *floorplan.Graph) []map[string]string {
	summaries := make([]map[string]string, len(graph.Rooms))
	for i, room := range graph.Rooms {
		summaries[i] = map[string]string{
			"name": room.Name,
			"type": string(room.Type),
			"size": string(room.Size),
		}
	}
	return summaries
}

// orderByRooms sorts viewpoints into room declaration order.
func orderByRooms(viewpoints []tour.Viewpoint, graph *floorplan.Graph) []tour.Viewpoint {
	byRoom := make(map[string]tour.Viewpoint, len(viewpoints))
	for _, vp := range viewpoints {
		byRoom[vp.RoomID] = vp
	}

	ordered := make([]tour.Viewpoint, 0, len(viewpoints))
	for _, room := range graph.Rooms {
		if vp, ok := byRoom[room.ID]; ok {
			ordered = append(ordered, vp)
		}
	}
	return ordered
}

func orderFailuresByRooms(failures []RoomFailure, graph *floorplan.Graph) []RoomFailure {
	byRoom := make(map[string]RoomFailure, len(failures))
	for _, f := range failures {
		byRoom[f.RoomID] = f
	}

	ordered := make([]RoomFailure, 0, len(failures))
	for _, room := range graph.Rooms {
		if f, ok := byRoom[room.ID]; ok {
			ordered = append(ordered, f)
		}
	}
	return ordered
}
