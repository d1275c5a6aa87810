// Package ingest consumes document ingestion jobs from NATS and runs them
// through the retrieval pipeline with retry and DLQ support. Transient
// failures (embedding quota, storage connectivity) are re-published with a
// retry counter; permanent failures (bad file type, parse errors) go
// straight to the dead letter queue since retrying cannot fix them.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/PitchlineAI/pitchline-mvp/engine/domain"
	"github.com/PitchlineAI/pitchline-mvp/pkg/metrics"
	"github.com/PitchlineAI/pitchline-mvp/pkg/natsutil"
)

const (
	// JobsSubject carries incoming document ingestion jobs.
	JobsSubject = "pitchline.ingest.docs"
	// ResultsSubject carries job outcomes for the upload-handling service.
	ResultsSubject = "pitchline.ingest.results"
	// DLQSubject is the dead letter queue for failed jobs.
	DLQSubject = "pitchline.ingest.dlq"
	// MaxRetries before a transient failure lands in the DLQ.
	MaxRetries = 3

	retryHeader = "X-Retry-Count"
)

// DocumentJob is one ingestion request: a materialized temp file plus the
// product it documents.
type DocumentJob struct {
	JobID       string `json:"job_id"`
	ProductID   string `json:"product_id"`
	Path        string `json:"path"`
	FileType    string `json:"file_type"`
	RequestedBy string `json:"requested_by,omitempty"`
}

// JobResult reports an ingestion outcome on ResultsSubject.
type JobResult struct {
	JobID       string    `json:"job_id"`
	ProductID   string    `json:"product_id"`
	ChunkIDs    []string  `json:"chunk_ids,omitempty"`
	Error       string    `json:"error,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// dlqMessage is published to the DLQ on permanent or exhausted failure.
type dlqMessage struct {
	Job     DocumentJob `json:"job"`
	Error   string      `json:"error"`
	Retries int         `json:"retries"`
}

// DocumentProcessor runs one document through load, chunk, embed, store.
type DocumentProcessor interface {
	ProcessDocument(ctx context.Context, path, productID, fileType string) ([]string, error)
}

// Deps holds the external dependencies for the ingestion consumer.
type Deps struct {
	Processor DocumentProcessor
	Metrics   *metrics.Registry
	Logger    *slog.Logger
}

type disposition int

const (
	dispatchDone disposition = iota
	dispatchRetry
	dispatchDLQ
)

// decide maps a processing outcome to what happens with the message.
// retries is the count of attempts already made before this one.
func decide(err error, retries int) disposition {
	switch {
	case err == nil:
		return dispatchDone
	case !domain.Transient(err):
		return dispatchDLQ
	case retries+1 >= MaxRetries:
		return dispatchDLQ
	default:
		return dispatchRetry
	}
}

type consumer struct {
	proc    DocumentProcessor
	logger  *slog.Logger
	jobs    func(outcome string) *metrics.Counter
	seconds *metrics.Histogram

	// publish seams exist for tests; production wires natsutil.
	publish    func(ctx context.Context, subject string, v any) error
	publishMsg func(ctx context.Context, msg *nats.Msg) error
}

func newConsumer(nc *nats.Conn, deps Deps) *consumer {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	reg := deps.Metrics
	if reg == nil {
		reg = metrics.New()
	}
	c := &consumer{
		proc:   deps.Processor,
		logger: log.With("component", "ingest"),
		jobs: func(outcome string) *metrics.Counter {
			return reg.Counter(metrics.WithLabels("ingest_jobs_total", "outcome", outcome), "Ingestion jobs by outcome")
		},
		seconds: reg.Histogram("ingest_job_seconds", "Ingestion job duration", nil),
	}
	c.publish = func(ctx context.Context, subject string, v any) error {
		return natsutil.Publish(ctx, nc, subject, v)
	}
	c.publishMsg = func(ctx context.Context, msg *nats.Msg) error {
		return natsutil.PublishMsg(ctx, nc, msg)
	}
	return c
}

// StartConsumer subscribes to JobsSubject and processes jobs as they arrive.
func StartConsumer(nc *nats.Conn, deps Deps) (*nats.Subscription, error) {
	c := newConsumer(nc, deps)
	return nc.Subscribe(JobsSubject, func(msg *nats.Msg) {
		c.handle(context.Background(), msg)
	})
}

func (c *consumer) handle(ctx context.Context, msg *nats.Msg) {
	var job DocumentJob
	if err := json.Unmarshal(msg.Data, &job); err != nil {
		c.logger.Error("unmarshal failed, dropping message", "error", err)
		c.jobs("malformed").Inc()
		return
	}

	retries := 0
	if msg.Header != nil {
		if v := msg.Header.Get(retryHeader); v != "" {
			fmt.Sscanf(v, "%d", &retries)
		}
	}

	start := time.Now()
	ids, err := c.proc.ProcessDocument(ctx, job.Path, job.ProductID, job.FileType)
	c.seconds.Since(start)

	switch decide(err, retries) {
	case dispatchDone:
		c.jobs("ok").Inc()
		c.logger.Info("job done", "job_id", job.JobID, "product_id", job.ProductID, "chunks", len(ids))
		c.publishResult(ctx, JobResult{
			JobID:       job.JobID,
			ProductID:   job.ProductID,
			ChunkIDs:    ids,
			CompletedAt: time.Now().UTC(),
		})

	case dispatchRetry:
		c.jobs("retry").Inc()
		c.logger.Warn("job failed, requeueing", "job_id", job.JobID, "error", err, "attempt", retries+1)
		retryMsg := nats.NewMsg(JobsSubject)
		retryMsg.Data = msg.Data
		retryMsg.Header.Set(retryHeader, fmt.Sprintf("%d", retries+1))
		if pubErr := c.publishMsg(ctx, retryMsg); pubErr != nil {
			c.logger.Error("retry publish failed", "job_id", job.JobID, "error", pubErr)
		}

	case dispatchDLQ:
		c.jobs("dlq").Inc()
		c.logger.Error("job failed permanently", "job_id", job.JobID, "error", err, "retries", retries)
		if pubErr := c.publish(ctx, DLQSubject, dlqMessage{
			Job:     job,
			Error:   err.Error(),
			Retries: retries,
		}); pubErr != nil {
			c.logger.Error("DLQ publish failed", "job_id", job.JobID, "error", pubErr)
		}
		c.publishResult(ctx, JobResult{
			JobID:       job.JobID,
			ProductID:   job.ProductID,
			Error:       err.Error(),
			CompletedAt: time.Now().UTC(),
		})
	}

	if msg.Reply != "" {
		_ = msg.Ack()
	}
}

func (c *consumer) publishResult(ctx context.Context, res JobResult) {
	if err := c.publish(ctx, ResultsSubject, res); err != nil {
		c.logger.Error("result publish failed", "job_id", res.JobID, "error", err)
	}
}
