package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/qem-team/qem-engine/coreapp/core"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const scopeName = "github.com/qem-team/qem-engine/coreapp/scheduler"

type statusHistory map[string][]core.Status

type NormalScheduler struct {
	queue *NormalQueue

	mu            sync.Mutex
	statusHistory statusHistory

	tracer      trace.Tracer
	handledJobs metric.Int64Counter
}

type jobInScheduler struct {
	job      core.Job
	finished *sync.WaitGroup
}

func (n *NormalScheduler) Setup(conf *core.Conf) error {
	n.queue = &NormalQueue{}
	if err := n.queue.Setup(conf); err != nil {
		return err
	}
	n.statusHistory = make(statusHistory)
	n.tracer = otel.Tracer(scopeName)
	handledJobs, err := otel.Meter(scopeName).Int64Counter("scheduler.jobs.handled",
		metric.WithDescription("jobs the scheduler finished handling, by final status"))
	if err != nil {
		return err
	}
	n.handledJobs = handledJobs
	return nil
}

// Start launches the loop draining the queue. One job runs at a time, so
// the QPU never sees concurrent circuits.
func (n *NormalScheduler) Start() error {
	go n.processLoop()
	return nil
}

func (n *NormalScheduler) processLoop() {
	for {
		jis, err := n.queue.Dequeue(true)
		if err != nil {
			zap.L().Error(fmt.Sprintf("failed to get a job from queue. Reason:%s", err))
			continue
		}
		n.processOne(jis)
	}
}

// TODO: let jobs own the RUNNING transition
func (n *NormalScheduler) processOne(jis *jobInScheduler) {
	jd := jis.job.JobData()
	zap.L().Debug(fmt.Sprintf("processing job:%s", jd.ID))
	n.appendHistory(jd.ID, core.RUNNING)
	jd.Status = core.RUNNING
	jis.job.JobContext().DBChan <- jis.job.Clone()
	processWithRecover(jis.job)
	zap.L().Debug(fmt.Sprintf("processed job(%s)/status:%s", jd.ID, jd.Status))
	jis.finished.Done()
}

func (n *NormalScheduler) HandleJob(j core.Job) {
	zap.L().Debug(fmt.Sprintf("starting to handle job(%s) in %s", j.JobData().ID, j.JobData().Status))
	go func() {
		defer func() {
			zap.L().Debug(fmt.Sprintf("status history job(%s): %v", j.JobData().ID, n.historyOf(j.JobData().ID)))
			n.deleteHistory(j.JobData().ID)
		}()
		n.handleImpl(j)
	}()
}

func (n *NormalScheduler) HandleJobForTest(j core.Job, wg *sync.WaitGroup) {
	go func() {
		defer wg.Done()
		n.handleImpl(j)
	}()
}

func (n *NormalScheduler) handleImpl(j core.Job) {
	ctx, span := n.tracer.Start(context.Background(), "handle_job",
		trace.WithAttributes(
			attribute.String("job.id", j.JobData().ID),
			attribute.String("job.type", j.JobType())))
	defer span.End()
	for {
		jid := j.JobData().ID
		st := j.JobData().Status
		n.appendHistory(jid, st)
		if st != core.READY {
			// not written to DB: the record keeps whatever state got it here
			zap.L().Error(fmt.Sprintf("dropping job(%s) handled in unexpected status:%s", jid, st.String()))
			return
		}
		zap.L().Debug(fmt.Sprintf("pre-processing job(%s)", jid))
		n.runPhase(ctx, "pre_process", j.PreProcess)
		j.JobContext().DBChan <- j.Clone()
		if j.IsFinished() {
			zap.L().Debug(fmt.Sprintf("job(%s) done after pre-processing", jid))
			n.finishJob(ctx, j)
			return
		}
		var wg sync.WaitGroup
		wg.Add(1)
		_, processSpan := n.tracer.Start(ctx, "process")
		n.queue.queueChan <- &jobInScheduler{job: j, finished: &wg}
		wg.Wait() // wait for processing
		processSpan.End()
		if j.IsFinished() {
			zap.L().Debug(fmt.Sprintf("job(%s) done after processing with status:%s",
				jid, j.JobData().Status.String()))
			j.JobContext().DBChan <- j.Clone()
			n.finishJob(ctx, j)
			return
		}
		zap.L().Debug(fmt.Sprintf("post-processing job(%s)", jid))
		n.runPhase(ctx, "post_process", j.PostProcess)
		if j.IsFinished() {
			zap.L().Debug(fmt.Sprintf("job(%s) done after post-processing with status:%s",
				jid, j.JobData().Status.String()))
			j.JobContext().DBChan <- j.Clone()
			n.finishJob(ctx, j)
			return
		}
		zap.L().Debug(fmt.Sprintf("one more loop for job(%s)", jid))
	}
}

// A panicking job must not take the queue worker down with it.
func processWithRecover(j core.Job) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error(fmt.Sprintf("recovered from a panic while processing a job(%s). Reason:%v",
				j.JobData().ID, r))
			j.JobData().Status = core.FAILED
		}
	}()
	j.Process()
}

func (n *NormalScheduler) runPhase(ctx context.Context, name string, phase func()) {
	_, span := n.tracer.Start(ctx, name)
	defer span.End()
	phase()
}

func (n *NormalScheduler) finishJob(ctx context.Context, j core.Job) {
	st := j.JobData().Status
	n.appendHistory(j.JobData().ID, st)
	n.handledJobs.Add(ctx, 1,
		metric.WithAttributes(attribute.String("job.status", st.String())))
}

func (n *NormalScheduler) appendHistory(jobID string, st core.Status) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.statusHistory[jobID] = append(n.statusHistory[jobID], st)
}

func (n *NormalScheduler) historyOf(jobID string) []core.Status {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]core.Status(nil), n.statusHistory[jobID]...)
}

func (n *NormalScheduler) deleteHistory(jobID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.statusHistory, jobID)
}

func (n *NormalScheduler) GetCurrentQueueSize() int {
	return n.queue.GetCurrentSize()
}

func (n *NormalScheduler) IsOverRefillThreshold() bool {
	return n.queue.IsOverRefillThreshold()
}
