/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"clipcomposer/internal/domain"
	applog "clipcomposer/internal/log"
	"clipcomposer/internal/props"
)

const (
	DefaultInterval = 2 * time.Second
	DefaultDeadline = 10 * time.Minute
)

// State is the terminal state of a polled job.
type State string

const (
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
	StateTimedOut  State = "timed-out"
)

// Outcome is reported exactly once per polled job unless the poll is cancelled.
type Outcome struct {
	JobID string
	State State
	Job   Job
	Polls int
	Err   error
}

// Message is a one-line human readable summary. A timed-out job may still
// finish remotely, so it offers a later check instead of a retry.
func (o Outcome) Message() string {
	switch o.State {
	case StateSucceeded:
		if o.Job.URL != "" {
			return fmt.Sprintf("render %s succeeded: %s", o.JobID, o.Job.URL)
		}
		return fmt.Sprintf("render %s succeeded", o.JobID)
	case StateTimedOut:
		return fmt.Sprintf("render %s still rendering after %d polls, check again later", o.JobID, o.Polls)
	default:
		if o.Err != nil {
			return fmt.Sprintf("render %s failed, retry: %v", o.JobID, o.Err)
		}
		return fmt.Sprintf("render %s failed, retry", o.JobID)
	}
}

// Recorder observes submissions and outcomes, e.g. to keep a job ledger.
type Recorder interface {
	RecordSubmitted(ctx context.Context, jobID string, req Request) error
	RecordOutcome(ctx context.Context, o Outcome) error
}

// Config tunes a Pipeline.
type Config struct {
	Interval time.Duration
	Deadline time.Duration
	OwnerID  string
	Recorder Recorder
	Logger   *slog.Logger
}

// Pipeline submits compositions and polls their jobs to a terminal state.
// At most one poll is active per job id.
type Pipeline struct {
	client Client
	cfg    Config
	log    *slog.Logger

	mu     sync.Mutex
	active map[string]*Task
}

func NewPipeline(client Client, cfg Config) *Pipeline {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Deadline <= 0 {
		cfg.Deadline = DefaultDeadline
	}
	if cfg.Logger == nil {
		cfg.Logger = applog.WithComponent("render")
	}
	return &Pipeline{client: client, cfg: cfg, log: cfg.Logger, active: make(map[string]*Task)}
}

// Submit sends comp to the render service and returns the job id.
func (p *Pipeline) Submit(ctx context.Context, comp domain.Composition, outputFormat string, frameRate float64) (string, error) {
	if outputFormat == "" {
		outputFormat = comp.OutputFormat
	}
	if frameRate <= 0 {
		frameRate = comp.FrameRate
	}
	req := Request{
		OutputFormat:  outputFormat,
		FrameRate:     frameRate,
		Modifications: props.EmptyMap(),
		Source:        comp.Clone(),
		OwnerID:       p.cfg.OwnerID,
	}
	id, err := p.client.Submit(ctx, req)
	if err != nil {
		p.log.Error("render submission failed", slog.Any("err", err))
		if !errors.Is(err, ErrSubmission) {
			err = fmt.Errorf("%w: %v", ErrSubmission, err)
		}
		return "", err
	}
	p.log.Info("render submitted", slog.String("job", id), slog.String("format", outputFormat), slog.Int("clips", len(comp.Clips)))
	if p.cfg.Recorder != nil {
		if rerr := p.cfg.Recorder.RecordSubmitted(ctx, id, req); rerr != nil {
			p.log.Warn("record submission", slog.String("job", id), slog.Any("err", rerr))
		}
	}
	return id, nil
}

// Task is the handle of one running poll.
type Task struct {
	jobID  string
	cancel context.CancelFunc
	done   chan struct{}
	// 0 running, 1 reported, 2 cancelled
	state   atomic.Int32
	outcome Outcome
}

const (
	taskRunning int32 = iota
	taskReported
	taskCancelled
)

func (t *Task) JobID() string { return t.jobID }

// Cancel stops the poll. An outcome not yet decided when Cancel is called is
// never reported; one already decided may still be delivering.
func (t *Task) Cancel() {
	t.state.CompareAndSwap(taskRunning, taskCancelled)
	t.cancel()
}

// Done is closed when the poll goroutine has exited and its timers are stopped.
func (t *Task) Done() <-chan struct{} { return t.done }

// Wait blocks until the poll ends. ok is false when it was cancelled.
func (t *Task) Wait() (Outcome, bool) {
	<-t.done
	if t.state.Load() != taskReported {
		return Outcome{}, false
	}
	return t.outcome, true
}

// Poll checks jobID every interval until it reaches a terminal state or the
// deadline passes, then calls report once. A poll already running for the same
// job is cancelled first. Cancelling ctx cancels the poll.
func (p *Pipeline) Poll(ctx context.Context, jobID string, report func(Outcome)) *Task {
	pctx, cancel := context.WithCancel(ctx)
	t := &Task{jobID: jobID, cancel: cancel, done: make(chan struct{})}
	p.mu.Lock()
	prev := p.active[jobID]
	p.active[jobID] = t
	p.mu.Unlock()
	if prev != nil {
		prev.Cancel()
		<-prev.done
		p.log.Debug("poll replaced", slog.String("job", jobID))
	}
	go p.run(pctx, t, report)
	return t
}

func (p *Pipeline) run(ctx context.Context, t *Task, report func(Outcome)) {
	ticker := time.NewTicker(p.cfg.Interval)
	deadline := time.NewTimer(p.cfg.Deadline)
	// status checks share the overall deadline so a hung call cannot outlive it
	sctx, stop := context.WithTimeout(ctx, p.cfg.Deadline)
	defer stop()
	lg := p.log.With(slog.String("job", t.jobID))
	defer func() {
		ticker.Stop()
		deadline.Stop()
		t.cancel()
		p.mu.Lock()
		if p.active[t.jobID] == t {
			delete(p.active, t.jobID)
		}
		p.mu.Unlock()
		close(t.done)
	}()

	finish := func(o Outcome) {
		o.JobID = t.jobID
		if !t.state.CompareAndSwap(taskRunning, taskReported) {
			return
		}
		t.outcome = o
		lg.Info("render finished", slog.String("state", string(o.State)), slog.Int("polls", o.Polls))
		if p.cfg.Recorder != nil {
			if err := p.cfg.Recorder.RecordOutcome(context.WithoutCancel(ctx), o); err != nil {
				lg.Warn("record outcome", slog.Any("err", err))
			}
		}
		if report != nil {
			report(o)
		}
	}

	polls := 0
	var last Job
	for {
		select {
		case <-ctx.Done():
			t.state.CompareAndSwap(taskRunning, taskCancelled)
			lg.Debug("poll cancelled", slog.Int("polls", polls))
			return
		case <-deadline.C:
			finish(Outcome{State: StateTimedOut, Job: last, Polls: polls, Err: ErrTimedOut})
			return
		case <-ticker.C:
		}

		polls++
		job, err := p.client.Status(sctx, t.jobID)
		if ctx.Err() != nil {
			t.state.CompareAndSwap(taskRunning, taskCancelled)
			return
		}
		if err != nil && sctx.Err() != nil {
			finish(Outcome{State: StateTimedOut, Job: last, Polls: polls, Err: ErrTimedOut})
			return
		}
		if err != nil {
			if errors.Is(err, ErrProtocol) {
				finish(Outcome{State: StateFailed, Job: last, Polls: polls, Err: err})
				return
			}
			lg.Warn("status check failed, retrying", slog.Int("poll", polls), slog.Any("err", err))
			continue
		}
		last = job
		switch Classify(job.Status) {
		case ClassSucceeded:
			finish(Outcome{State: StateSucceeded, Job: job, Polls: polls})
			return
		case ClassFailed:
			msg := job.Error
			if msg == "" {
				msg = "no reason given"
			}
			finish(Outcome{State: StateFailed, Job: job, Polls: polls, Err: fmt.Errorf("%w: %s", ErrJobFailed, msg)})
			return
		case ClassUnknown:
			finish(Outcome{State: StateFailed, Job: job, Polls: polls, Err: fmt.Errorf("%w: unexpected status %q", ErrProtocol, job.Status)})
			return
		default:
			lg.Debug("render in progress", slog.String("status", job.Status), slog.Int("poll", polls))
		}
	}
}

// SubmitAndWait submits comp and blocks until the job finishes or ctx ends.
func (p *Pipeline) SubmitAndWait(ctx context.Context, comp domain.Composition, outputFormat string, frameRate float64) (Outcome, error) {
	id, err := p.Submit(ctx, comp, outputFormat, frameRate)
	if err != nil {
		return Outcome{}, err
	}
	o, ok := p.Poll(ctx, id, nil).Wait()
	if !ok {
		if err := ctx.Err(); err != nil {
			return Outcome{JobID: id}, err
		}
		return Outcome{JobID: id}, context.Canceled
	}
	return o, nil
}

// Active lists the job ids currently being polled.
func (p *Pipeline) Active() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.active))
	for id := range p.active {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Close cancels every running poll and waits for them to stop.
func (p *Pipeline) Close() {
	p.mu.Lock()
	tasks := make([]*Task, 0, len(p.active))
	for _, t := range p.active {
		tasks = append(tasks, t)
	}
	p.mu.Unlock()
	for _, t := range tasks {
		t.Cancel()
		<-t.done
	}
}
