package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/timmy/quill/internal/config"
	"github.com/timmy/quill/internal/domain"
	"github.com/timmy/quill/internal/llm"
	"github.com/timmy/quill/internal/logger"
	"github.com/timmy/quill/internal/repository"
	"github.com/timmy/quill/internal/scoring"
)

// ExternalProvider is the provider recorded for externally supplied content.
const ExternalProvider = "external"

// InterruptedMessage is recorded on jobs found generating at process start.
const InterruptedMessage = "interrupted: process restarted before generation finished"

// Pipeline stages, reported as progress while a task runs.
const (
	StageQueued  = "queued"
	StageTopic   = "analyzing topic"
	StageRouting = "selecting provider"
	StageOutline = "generating outline"
	StageArticle = "generating article"
	StageLength  = "adjusting length"
	StageScoring = "scoring"
	StageSaving  = "saving result"
)

// OrchestratorConfig holds pipeline settings.
type OrchestratorConfig struct {
	DefaultModel        string
	DefaultTargetLength int
	Tolerance           int
	OutlineTimeout      time.Duration
	ArticleTimeout      time.Duration
	CorrectionTimeout   time.Duration
	Preflight           bool
}

// NewOrchestratorConfig converts the generation config section.
func NewOrchestratorConfig(cfg *config.GenerationConfig) *OrchestratorConfig {
	return &OrchestratorConfig{
		DefaultModel:        cfg.DefaultModel,
		DefaultTargetLength: cfg.DefaultTargetLength,
		Tolerance:           cfg.Tolerance,
		OutlineTimeout:      cfg.OutlineTimeout,
		ArticleTimeout:      cfg.ArticleTimeout,
		CorrectionTimeout:   cfg.CorrectionTimeout,
		Preflight:           cfg.Preflight,
	}
}

// SubmitRequest is a new generation request.
type SubmitRequest struct {
	Topic         string
	Thesis        string
	StyleExamples string
	TargetLength  int
	Model         string
}

// StatusView is the polled state of a job.
type StatusView struct {
	ID       string           `json:"id"`
	Status   domain.JobStatus `json:"status"`
	Running  bool             `json:"running"`
	Progress string           `json:"progress"`
	Error    string           `json:"error,omitempty"`
}

// ResultView is an article with its usage records and their total cost.
type ResultView struct {
	Article   *domain.Article      `json:"article"`
	Usage     []domain.UsageRecord `json:"usage"`
	TotalCost decimal.Decimal      `json:"total_cost_usd"`
}

// RecommendationsView is the score of a completed article with its
// improvement hints.
type RecommendationsView struct {
	ID              string   `json:"id"`
	Score           float64  `json:"score"`
	Recommendations []string `json:"recommendations"`
}

// Orchestrator runs generation requests through the pipeline: topic
// analysis, outline, article, length correction, scoring and persistence.
type Orchestrator struct {
	store    repository.Store
	router   *llm.Router
	analyzer TopicAnalyzer
	notifier Notifier
	registry *TaskRegistry
	adjuster *LengthAdjuster
	costs    *llm.CostModel
	archiver *Archiver
	cfg      *OrchestratorConfig
}

// NewOrchestrator creates an Orchestrator. A nil analyzer uses
// BasicAnalysis; a nil notifier discards events.
func NewOrchestrator(
	store repository.Store,
	router *llm.Router,
	analyzer TopicAnalyzer,
	notifier Notifier,
	registry *TaskRegistry,
	cfg *OrchestratorConfig,
) *Orchestrator {
	if cfg.DefaultTargetLength <= 0 {
		cfg.DefaultTargetLength = domain.DefaultTargetLength
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = DefaultTolerance
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = llm.DefaultModel(config.FamilyOpenAI)
	}
	if analyzer == nil {
		analyzer = basicAnalyzer{}
	}
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	return &Orchestrator{
		store:    store,
		router:   router,
		analyzer: analyzer,
		notifier: notifier,
		registry: registry,
		adjuster: NewLengthAdjuster(cfg.Tolerance, cfg.CorrectionTimeout),
		costs:    llm.NewCostModel(),
		cfg:      cfg,
	}
}

// SetArchiver enables archiving of completed articles.
func (o *Orchestrator) SetArchiver(a *Archiver) {
	o.archiver = a
}

type basicAnalyzer struct{}

func (basicAnalyzer) Analyze(_ context.Context, topic string) TopicAnalysis {
	return BasicAnalysis(topic)
}

func (o *Orchestrator) log(ctx context.Context) *logger.Logger {
	return logger.FromContext(ctx)
}

// Submit validates and stores a new request in pending. With preflight
// enabled an unservable model fails with ErrModelUnavailable before
// anything is stored.
func (o *Orchestrator) Submit(ctx context.Context, req SubmitRequest) (*domain.Article, error) {
	topic := strings.TrimSpace(req.Topic)
	thesis := strings.TrimSpace(req.Thesis)
	if topic == "" || thesis == "" {
		return nil, fmt.Errorf("%w: topic and thesis are required", ErrInvalidRequest)
	}
	if req.TargetLength < 0 {
		return nil, fmt.Errorf("%w: target length must be positive", ErrInvalidRequest)
	}
	target := req.TargetLength
	if target == 0 {
		target = o.cfg.DefaultTargetLength
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = o.cfg.DefaultModel
	}

	if o.cfg.Preflight && !o.router.IsAvailable(model) {
		o.log(ctx).WithField(logger.FieldModel, model).Warn("Submission rejected, no provider available")
		return nil, fmt.Errorf("%w: %s", ErrModelUnavailable, model)
	}

	article := &domain.Article{
		Topic:         topic,
		Thesis:        thesis,
		StyleExamples: req.StyleExamples,
		TargetLength:  target,
		Model:         model,
	}
	if err := o.store.Create(ctx, article); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	ctx = logger.SetArticleID(ctx, article.ID)
	o.log(ctx).WithFields(logger.Fields{
		logger.FieldModel: model,
		"target_length":   target,
	}).Info("Generation request accepted")

	_ = o.notifier.Notify(ctx, NewEvent(EventAccepted, article.ID, map[string]interface{}{
		"topic":         topic,
		"model":         model,
		"target_length": target,
	}))
	return article, nil
}

// StartAsync hands a pending request to the task registry. A request that
// is already running returns its handle with ErrAlreadyRunning.
func (o *Orchestrator) StartAsync(ctx context.Context, id string) (*TaskHandle, error) {
	if h, ok := o.registry.Handle(id); ok {
		logger.CtxInfo(ctx, "Generation already running: article_id=%s", id)
		return h, ErrAlreadyRunning
	}
	article, err := o.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if article.Status != domain.JobStatusPending {
		return nil, fmt.Errorf("%w: status is %s", ErrNotPending, article.Status)
	}

	return o.registry.Start(ctx, id, func(taskCtx context.Context, h *TaskHandle) error {
		return o.run(taskCtx, h, article)
	})
}

// SubmitAndStart stores a request and hands it to the task registry. When
// the task cannot be started the stored record is failed, so it never
// stays pending without a task behind it.
func (o *Orchestrator) SubmitAndStart(ctx context.Context, req SubmitRequest) (*domain.Article, *TaskHandle, error) {
	article, err := o.Submit(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	h, err := o.StartAsync(ctx, article.ID)
	if err != nil && !errors.Is(err, ErrAlreadyRunning) {
		write := logger.SetArticleID(context.WithoutCancel(ctx), article.ID)
		o.fail(write, o.store, article.ID, "not started: "+err.Error())
		return article, nil, err
	}
	return article, h, nil
}

// Generate submits a request, starts it and waits for the task to return.
// It returns the final record.
func (o *Orchestrator) Generate(ctx context.Context, req SubmitRequest) (*domain.Article, error) {
	article, h, err := o.SubmitAndStart(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := h.Wait(ctx); err != nil && ctx.Err() != nil {
		o.registry.Cancel(article.ID)
		<-h.Done()
	}
	return o.store.Get(context.WithoutCancel(ctx), article.ID)
}

func (o *Orchestrator) run(ctx context.Context, h *TaskHandle, article *domain.Article) error {
	ctx = logger.SetArticleID(ctx, article.ID)
	ctx = logger.SetComponent(ctx, "orchestrator")
	write := context.WithoutCancel(ctx)

	var pipelineErr error
	ran := false
	err := o.store.Scoped(write, func(st repository.Store) error {
		ran = true
		pipelineErr = o.pipeline(ctx, h, st, article)
		return nil
	})
	if !ran {
		o.log(ctx).WithError(err).Error("Failed to acquire a database connection")
		o.fail(write, o.store, article.ID, "persistence failed: "+err.Error())
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return pipelineErr
}

// checkpoint records the next stage, or reports cancellation.
func (o *Orchestrator) checkpoint(ctx context.Context, h *TaskHandle, stage string) error {
	if ctx.Err() != nil {
		return ErrCancelled
	}
	h.SetStage(stage)
	o.log(ctx).WithField(logger.FieldStage, stage).Debug("Pipeline stage")
	return nil
}

func (o *Orchestrator) pipeline(ctx context.Context, h *TaskHandle, st repository.Store, a *domain.Article) error {
	start := time.Now()
	write := context.WithoutCancel(ctx)

	if ctx.Err() != nil {
		return o.cancelled(write, st, a.ID)
	}
	if err := st.UpdateStatus(write, a.ID, domain.JobStatusGenerating, ""); err != nil {
		o.log(ctx).WithError(err).Error("Failed to start generation")
		if !errors.Is(err, repository.ErrInvalidTransition) && !errors.Is(err, repository.ErrNotFound) {
			o.fail(write, st, a.ID, "persistence failed: "+err.Error())
		}
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if err := o.checkpoint(ctx, h, StageTopic); err != nil {
		return o.cancelled(write, st, a.ID)
	}
	analysis := o.analyzer.Analyze(ctx, a.Topic)

	if err := o.checkpoint(ctx, h, StageRouting); err != nil {
		return o.cancelled(write, st, a.ID)
	}
	res, err := o.router.Resolve(a.Model)
	if err != nil {
		o.fail(write, st, a.ID, err.Error())
		return err
	}
	if res.Substituted {
		o.log(ctx).WithFields(logger.Fields{
			logger.FieldProvider: res.Family,
			logger.FieldModel:    res.ServedModel,
		}).Warn("Requested model served by a substitute provider")
	}
	ctx = logger.WithFields(ctx, logger.Fields{
		logger.FieldProvider: res.Family,
		logger.FieldModel:    res.ServedModel,
	})

	if err := o.checkpoint(ctx, h, StageOutline); err != nil {
		return o.cancelled(write, st, a.ID)
	}
	outline, outlineUsage := o.outline(ctx, res, a, analysis)
	if ctx.Err() != nil {
		return o.cancelled(write, st, a.ID)
	}

	if err := o.checkpoint(ctx, h, StageArticle); err != nil {
		return o.cancelled(write, st, a.ID)
	}
	text, articleUsage := o.article(ctx, res, a, outline, analysis)
	if ctx.Err() != nil {
		return o.cancelled(write, st, a.ID)
	}

	if err := o.checkpoint(ctx, h, StageLength); err != nil {
		return o.cancelled(write, st, a.ID)
	}
	adjusted := o.adjuster.Adjust(ctx, res.Client, AdjustRequest{
		Text:      text,
		Target:    a.TargetLength,
		Tolerance: o.cfg.Tolerance,
		Model:     res.ServedModel,
	})
	if ctx.Err() != nil {
		return o.cancelled(write, st, a.ID)
	}

	if err := o.checkpoint(ctx, h, StageScoring); err != nil {
		return o.cancelled(write, st, a.ID)
	}
	scored := scoring.Score(adjusted.Text, analysis.Keywords)

	if err := o.checkpoint(ctx, h, StageSaving); err != nil {
		return o.cancelled(write, st, a.ID)
	}
	result := &domain.ArticleResult{
		Keywords:        analysis.Keywords,
		Questions:       analysis.Questions,
		Outline:         outline,
		Content:         adjusted.Text,
		Score:           scored.Score,
		Recommendations: scored.Recommendations,
		Provider:        res.Family,
		ServedModel:     res.ServedModel,
		Substituted:     res.Substituted,
	}
	records := []domain.UsageRecord{
		o.usageRecord(domain.UsageKindGeneration, res.Family, res.ServedModel, outlineUsage.Add(articleUsage)),
	}
	if !adjusted.Usage.IsZero() {
		records = append(records, o.usageRecord(domain.UsageKindCorrection, res.Family, res.ServedModel, adjusted.Usage))
	}

	if !h.Commit() {
		return o.cancelled(write, st, a.ID)
	}
	if err := st.Complete(write, a.ID, domain.JobStatusGenerating, result, records); err != nil {
		o.log(ctx).WithError(err).Error("Failed to persist generation result")
		o.fail(write, st, a.ID, "persistence failed: "+err.Error())
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	total := outlineUsage.Add(articleUsage).Add(adjusted.Usage)
	logger.With(logger.Fields{
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
		logger.FieldTokens:     total.TotalTokens,
		logger.FieldSize:       domain.CharCount(adjusted.Text),
	}).Info(ctx, "Generation completed: score=%.2f, length_action=%s", scored.Score, adjusted.Action)

	o.archive(write, st, a.ID)
	_ = o.notifier.Notify(write, NewEvent(EventCompleted, a.ID, map[string]interface{}{
		"score":        scored.Score,
		"provider":     res.Family,
		"served_model": res.ServedModel,
	}))
	return nil
}

// outline calls the provider and falls back to a template outline on
// failure. The fallback consumes no tokens.
func (o *Orchestrator) outline(ctx context.Context, res *llm.Resolution, a *domain.Article, analysis TopicAnalysis) (string, domain.Usage) {
	callCtx, cancel := withTimeout(ctx, o.cfg.OutlineTimeout)
	defer cancel()

	resp, err := res.Client.GenerateOutline(callCtx, llm.OutlineRequest{
		Topic:     a.Topic,
		Thesis:    a.Thesis,
		Keywords:  analysis.Keywords,
		Questions: analysis.Questions,
		Model:     res.ServedModel,
	})
	if err != nil {
		if ctx.Err() == nil {
			o.log(ctx).WithError(err).Warn("Outline generation failed, using fallback outline")
		}
		return FallbackOutline(a.Topic, a.Thesis), domain.Usage{}
	}
	return resp.Text, resp.Usage
}

// article calls the provider and falls back to a template article on
// failure. The fallback consumes no tokens.
func (o *Orchestrator) article(ctx context.Context, res *llm.Resolution, a *domain.Article, outline string, analysis TopicAnalysis) (string, domain.Usage) {
	callCtx, cancel := withTimeout(ctx, o.cfg.ArticleTimeout)
	defer cancel()

	resp, err := res.Client.GenerateArticle(callCtx, llm.ArticleRequest{
		Topic:         a.Topic,
		Thesis:        a.Thesis,
		Outline:       outline,
		Keywords:      analysis.Keywords,
		StyleExamples: a.StyleExamples,
		TargetLength:  a.TargetLength,
		Model:         res.ServedModel,
	})
	if err != nil {
		if ctx.Err() == nil {
			o.log(ctx).WithError(err).Warn("Article generation failed, using fallback article")
		}
		return FallbackArticle(a.Topic, a.Thesis), domain.Usage{}
	}
	return resp.Text, resp.Usage
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func (o *Orchestrator) usageRecord(kind, family, model string, u domain.Usage) domain.UsageRecord {
	return domain.UsageRecord{
		Kind:             kind,
		Provider:         family,
		Model:            model,
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
		Cost:             o.costs.Cost(model, u),
	}
}

func (o *Orchestrator) cancelled(ctx context.Context, st repository.Store, id string) error {
	o.log(ctx).Info("Generation cancelled")
	o.fail(ctx, st, id, domain.CancelledMessage(""))
	return ErrCancelled
}

// fail records a terminal failure. Errors here are only logged: the record
// is picked up by stale-job recovery on the next start.
func (o *Orchestrator) fail(ctx context.Context, st repository.Store, id, msg string) {
	if err := st.UpdateStatus(ctx, id, domain.JobStatusFailed, msg); err != nil {
		o.log(ctx).WithError(err).Error("Failed to record job failure")
		return
	}
	o.log(ctx).WithField("error_message", msg).Warn("Generation failed")
	_ = o.notifier.Notify(ctx, NewEvent(EventFailed, id, map[string]interface{}{"error": msg}))
}

func (o *Orchestrator) archive(ctx context.Context, st repository.Store, id string) {
	if o.archiver == nil {
		return
	}
	article, err := st.Get(ctx, id)
	if err != nil {
		o.log(ctx).WithError(err).Warn("Archive skipped, article reload failed")
		return
	}
	if _, err := o.archiver.Archive(ctx, article); err != nil {
		o.log(ctx).WithError(err).Warn("Failed to archive article")
	}
}

// StatusOf returns the job state with a progress description. Live tasks
// report their current pipeline stage.
func (o *Orchestrator) StatusOf(ctx context.Context, id string) (*StatusView, error) {
	article, err := o.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	view := &StatusView{ID: id, Status: article.Status, Error: article.ErrorMessage}
	if h, ok := o.registry.Handle(id); ok {
		view.Running = true
		view.Progress = h.Stage()
		return view, nil
	}
	switch article.Status {
	case domain.JobStatusPending:
		view.Progress = "waiting to start"
	case domain.JobStatusGenerating:
		view.Progress = "generating"
	case domain.JobStatusCompleted:
		view.Progress = "completed"
	case domain.JobStatusFailed:
		if domain.IsCancelledMessage(article.ErrorMessage) {
			view.Progress = "cancelled"
		} else {
			view.Progress = "failed"
		}
	}
	return view, nil
}

// Result returns the full record with its usage records.
func (o *Orchestrator) Result(ctx context.Context, id string) (*ResultView, error) {
	article, err := o.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	usage, err := o.store.ListUsage(ctx, id)
	if err != nil {
		return nil, err
	}
	total := decimal.Zero
	for _, u := range usage {
		total = total.Add(u.Cost)
	}
	return &ResultView{Article: article, Usage: usage, TotalCost: total}, nil
}

// List returns articles by recency, optionally filtered by status.
func (o *Orchestrator) List(ctx context.Context, status domain.JobStatus, offset, limit int) ([]domain.Article, error) {
	if status == "" {
		return o.store.List(ctx, offset, limit)
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, status)
	}
	return o.store.ListByStatus(ctx, status, offset, limit)
}

// Recommendations returns the stored score and hints of a completed
// article, recomputing them when none were stored.
func (o *Orchestrator) Recommendations(ctx context.Context, id string) (*RecommendationsView, error) {
	article, err := o.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if article.Status != domain.JobStatusCompleted {
		return nil, fmt.Errorf("%w: status is %s", ErrNotCompleted, article.Status)
	}
	view := &RecommendationsView{ID: id, Recommendations: article.Recommendations}
	if article.Score != nil {
		view.Score = *article.Score
	}
	if article.Score == nil || len(article.Recommendations) == 0 {
		scored := scoring.Score(article.Content, article.Keywords)
		view.Score = scored.Score
		view.Recommendations = scored.Recommendations
	}
	if view.Recommendations == nil {
		view.Recommendations = []string{}
	}
	return view, nil
}

// Models lists the models the router can currently serve.
func (o *Orchestrator) Models() []domain.ModelDescriptor {
	return o.router.ListAvailableModels()
}

// Providers reports availability per provider family.
func (o *Orchestrator) Providers() map[string]bool {
	return o.router.Families()
}

// Cancel requests cooperative cancellation of a running job. When it
// returns true the job ends failed with a cancellation marker. A job that
// is already writing its result cannot be cancelled.
func (o *Orchestrator) Cancel(ctx context.Context, id string) bool {
	ok := o.registry.Cancel(id)
	if ok {
		logger.CtxInfo(ctx, "Cancellation requested: article_id=%s", id)
	}
	return ok
}

// Delete cancels any running task for id, waits for it to stop and removes
// the record with its usage.
func (o *Orchestrator) Delete(ctx context.Context, id string) (bool, error) {
	if h, ok := o.registry.Handle(id); ok {
		o.registry.Cancel(id)
		if err := h.Wait(ctx); err != nil && ctx.Err() != nil {
			return false, err
		}
	}
	deleted, err := o.store.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if deleted && o.archiver != nil {
		if err := o.archiver.Remove(ctx, id); err != nil {
			logger.CtxWarn(ctx, "Failed to remove archived article: article_id=%s, error=%v", id, err)
		}
	}
	return deleted, nil
}

// CompleteExternally stores content produced outside this process for a
// pending request, moving it straight to completed. It runs through the
// task registry so it cannot race an internal generation of the same
// request. Usage is optional.
func (o *Orchestrator) CompleteExternally(ctx context.Context, id, content string, usage *domain.Usage) (*domain.Article, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: content is required", ErrInvalidRequest)
	}
	var u domain.Usage
	if usage != nil {
		u = *usage
		if u.TotalTokens == 0 {
			u = domain.NewUsage(u.PromptTokens, u.CompletionTokens)
		}
		if !u.Consistent() || u.PromptTokens < 0 || u.CompletionTokens < 0 {
			return nil, fmt.Errorf("%w: total tokens must equal prompt + completion", ErrInvalidRequest)
		}
	}

	if h, ok := o.registry.Handle(id); ok {
		return nil, fmt.Errorf("%w: stage %s", ErrAlreadyRunning, h.Stage())
	}
	article, err := o.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if article.Status != domain.JobStatusPending {
		return nil, fmt.Errorf("%w: %s -> %s", repository.ErrInvalidTransition, article.Status, domain.JobStatusCompleted)
	}

	h, err := o.registry.Start(ctx, id, func(taskCtx context.Context, h *TaskHandle) error {
		h.SetStage(StageSaving)
		write := context.WithoutCancel(taskCtx)
		if !h.Commit() {
			return o.cancelled(logger.SetArticleID(write, id), o.store, id)
		}
		return o.completeExternal(write, article, content, usage != nil, u)
	})
	if err != nil {
		return nil, err
	}
	if err := h.Wait(ctx); err != nil {
		return nil, err
	}
	return o.store.Get(ctx, id)
}

func (o *Orchestrator) completeExternal(ctx context.Context, a *domain.Article, content string, hasUsage bool, u domain.Usage) error {
	ctx = logger.SetArticleID(ctx, a.ID)
	keywords := BasicAnalysis(a.Topic).Keywords
	scored := scoring.Score(content, keywords)
	result := &domain.ArticleResult{
		Keywords:        keywords,
		Content:         content,
		Score:           scored.Score,
		Recommendations: scored.Recommendations,
		Provider:        ExternalProvider,
		ServedModel:     a.Model,
	}
	var records []domain.UsageRecord
	if hasUsage {
		records = append(records, o.usageRecord(domain.UsageKindExternal, ExternalProvider, a.Model, u))
	}
	if err := o.store.Complete(ctx, a.ID, domain.JobStatusPending, result, records); err != nil {
		o.log(ctx).WithError(err).Error("Failed to store externally completed article")
		if errors.Is(err, repository.ErrInvalidTransition) || errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	o.log(ctx).WithField("score", scored.Score).Info("Article completed externally")
	o.archive(ctx, o.store, a.ID)
	_ = o.notifier.Notify(ctx, NewEvent(EventCompleted, a.ID, map[string]interface{}{
		"score":    scored.Score,
		"provider": ExternalProvider,
	}))
	return nil
}

// RecoverStale fails every record left generating by a previous process.
// Call it at startup before any task is started.
func (o *Orchestrator) RecoverStale(ctx context.Context) (int64, error) {
	n, err := o.store.FailInterrupted(ctx, InterruptedMessage)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		logger.With(logger.Fields{logger.FieldCount: n}).Warn(ctx, "Recovered interrupted generations")
	}
	return n, nil
}

// Shutdown cancels all running tasks and waits for them to record their
// terminal state.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	return o.registry.Shutdown(ctx)
}
