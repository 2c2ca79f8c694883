// Package batch drives generation for every user of a preference table:
// classify, build the prompt, synthesize, then write the artifacts.
package batch

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/mdobak/go-xerrors"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/satindergrewal/tailortune/internal/artifact"
	"github.com/satindergrewal/tailortune/internal/errors"
	"github.com/satindergrewal/tailortune/internal/logger"
	"github.com/satindergrewal/tailortune/internal/preference"
	"github.com/satindergrewal/tailortune/internal/prompt"
	"github.com/satindergrewal/tailortune/internal/store"
	"github.com/satindergrewal/tailortune/internal/synth"
)

// Job is the work for one user.
type Job struct {
	UserID string
	Input  prompt.Input
	// Records feeds the preference chart. Nil for pairwise jobs.
	Records []preference.Record
}

// Jobs builds one aggregate job per user in first-appearance order.
func Jobs(t *preference.Table) []Job {
	users := t.Users()
	jobs := make([]Job, 0, len(users))
	for _, id := range users {
		recs := t.Records(id)
		jobs = append(jobs, Job{UserID: id, Input: prompt.ForRecords(recs), Records: recs})
	}
	return jobs
}

// PairJobs builds one pairwise job per subject row.
func PairJobs(pairs []preference.Pair) []Job {
	jobs := make([]Job, 0, len(pairs))
	for _, p := range pairs {
		jobs = append(jobs, Job{UserID: p.UserID, Input: prompt.ForPair(p)})
	}
	return jobs
}

// Titler names a generated track.
type Titler interface {
	Title(ctx context.Context, mood, genre, prompt string) string
}

// Ledger records runs and their per-user outcomes.
type Ledger interface {
	StartRun(ctx context.Context, variant, input, backend, outputDir string) (*store.Run, error)
	Record(ctx context.Context, o store.Outcome) error
	FinishRun(ctx context.Context, runID string) error
}

// Result is the outcome for one user.
type Result struct {
	UserID string
	Prompt string
	Title  string
	Set    artifact.Set
	Err    error
}

// Report summarizes a run.
type Report struct {
	RunID     string
	Succeeded int
	Failed    int
	Results   []Result
}

// Orchestrator processes jobs one after another with a single synthesizer.
type Orchestrator struct {
	Synth  synth.Synthesizer
	Writer *artifact.Writer
	Titler Titler
	Ledger Ledger
	Logger *logger.Logger
	// Progress receives a progress bar when set.
	Progress io.Writer
	FailFast bool
	// Source and Backend are stored in the ledger.
	Source  string
	Backend string

	now func() time.Time
}

// Run processes jobs in order. With FailFast unset a failing user is logged
// and counted and the next user proceeds. Cancellation stops between users.
func (o *Orchestrator) Run(ctx context.Context, jobs []Job) (Report, error) {
	log := o.Logger
	if log == nil {
		log = logger.Discard()
	}
	if o.now == nil {
		o.now = time.Now
	}

	var rep Report
	if o.Synth == nil || o.Writer == nil {
		return rep, errors.Validation("orchestrator needs a synthesizer and a writer")
	}

	if o.Ledger != nil {
		run, err := o.Ledger.StartRun(ctx, string(variantOf(jobs)), o.Source, o.Backend, o.Writer.Root)
		if err != nil {
			return rep, err
		}
		rep.RunID = run.ID
		defer func() {
			if err := o.Ledger.FinishRun(context.WithoutCancel(ctx), run.ID); err != nil {
				log.Warn("Failed to finish run", "run", run.ID, "error", err)
			}
		}()
	}

	var (
		progress *mpb.Progress
		bar      *mpb.Bar
	)
	if o.Progress != nil {
		progress = mpb.New(mpb.WithOutput(o.Progress), mpb.WithWidth(64))
		bar = progress.AddBar(int64(len(jobs)),
			mpb.PrependDecorators(
				decor.Name("Generating: "),
				decor.CountersNoUnit("%d / %d"),
			),
			mpb.AppendDecorators(
				decor.Percentage(),
				decor.EwmaETA(decor.ET_STYLE_GO, 60),
			),
		)
		defer func() {
			if !bar.Completed() {
				bar.Abort(false)
			}
			progress.Wait()
		}()
	}

	owners := make(map[string]string)
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			log.Info("Run cancelled", "remaining", len(jobs)-len(rep.Results))
			return rep, err
		}

		start := o.now()
		res := o.process(ctx, log, job, rep.RunID, owners)
		rep.Results = append(rep.Results, res)
		o.record(ctx, log, rep.RunID, job, res)

		if bar != nil {
			bar.EwmaIncrement(o.now().Sub(start))
		}

		if res.Err == nil {
			rep.Succeeded++
			continue
		}
		rep.Failed++
		log.Error("Failed to generate music for user",
			"user", job.UserID, slog.Any("error", xerrors.New(res.Err)))

		if ctx.Err() != nil {
			return rep, ctx.Err()
		}
		if o.FailFast {
			return rep, res.Err
		}
	}

	log.Info("Batch complete", "users", len(jobs), "succeeded", rep.Succeeded, "failed", rep.Failed)
	return rep, nil
}

// process generates one user. owners maps each directory written in this
// run to its user id.
func (o *Orchestrator) process(ctx context.Context, log *logger.Logger, job Job, runID string, owners map[string]string) Result {
	res := Result{UserID: job.UserID}

	dir, err := o.Writer.Dir(job.UserID)
	if err != nil {
		res.Err = err
		return res
	}
	if owner, ok := owners[dir]; ok && owner != job.UserID {
		res.Err = errors.Data("user %q maps to the directory of user %q", job.UserID, owner)
		return res
	}
	owners[dir] = job.UserID
	res.Set.Dir = dir

	text := prompt.Build(job.Input)
	res.Prompt = text
	log.Info("Generating music for user", "user", job.UserID, "mood", job.Input.Mood, "prompt", text)

	clip, err := o.Synth.Synthesize(ctx, text)
	if err != nil {
		res.Err = err
		return res
	}

	if res.Set.AudioPath, err = o.Writer.WriteAudio(dir, clip); err != nil {
		res.Err = err
		return res
	}
	log.Info("Music saved", "user", job.UserID, "path", res.Set.AudioPath)

	if err := o.Writer.WriteImages(&res.Set, job.UserID, job.Records); err != nil {
		res.Err = err
		return res
	}
	log.Info("Spectrogram saved", "user", job.UserID, "path", res.Set.SpectrogramPath)
	if res.Set.PreferencesPath != "" {
		log.Info("Preference chart saved", "user", job.UserID, "path", res.Set.PreferencesPath)
	}

	if o.Titler != nil {
		var lead string
		if len(job.Input.Genres) > 0 {
			lead = job.Input.Genres[0]
		}
		res.Title = o.Titler.Title(ctx, string(job.Input.Mood), lead, text)
	}

	m := artifact.Manifest{
		UserID:     job.UserID,
		Variant:    string(job.Input.Variant),
		Mood:       string(job.Input.Mood),
		Genres:     job.Input.Genres,
		Prompt:     text,
		Title:      res.Title,
		SampleRate: clip.SampleRate,
		Duration:   clip.Duration().Seconds(),
		RunID:      runID,
		CreatedAt:  o.now().UTC(),
	}
	if res.Set.ManifestPath, err = o.Writer.WriteManifest(dir, m); err != nil {
		res.Err = err
	}
	return res
}

func (o *Orchestrator) record(ctx context.Context, log *logger.Logger, runID string, job Job, res Result) {
	if o.Ledger == nil {
		return
	}
	out := store.Outcome{
		RunID:  runID,
		UserID: job.UserID,
		Status: store.StatusOK,
		Mood:   string(job.Input.Mood),
		Prompt: res.Prompt,
		Title:  res.Title,
		Dir:    res.Set.Dir,
	}
	if res.Err != nil {
		out.Status = store.StatusFailed
		out.Error = res.Err.Error()
	}
	if err := o.Ledger.Record(context.WithoutCancel(ctx), out); err != nil {
		log.Warn("Failed to record outcome", "user", job.UserID, "error", err)
	}
}

func variantOf(jobs []Job) prompt.Variant {
	if len(jobs) > 0 {
		return jobs[0].Input.Variant
	}
	return prompt.Aggregate
}
