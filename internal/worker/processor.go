package worker

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/qs3c/metrics_go_server/internal/model"
	"github.com/qs3c/metrics_go_server/internal/pkg/metrics"
	"github.com/qs3c/metrics_go_server/internal/pkg/pubsub"
	"github.com/qs3c/metrics_go_server/internal/pkg/queue"
	"github.com/qs3c/metrics_go_server/internal/repository"
	"github.com/qs3c/metrics_go_server/internal/service"
)

// 每完成多少天推送一次进度
const progressEvery = 30

// Processor 回填任务处理器
type Processor struct {
	jobRepo   *repository.JobRepository
	backfill  *service.BackfillService
	publisher *pubsub.Publisher
	metrics   *metrics.Collector
}

// NewProcessor 创建任务处理器
func NewProcessor(
	jobRepo *repository.JobRepository,
	backfill *service.BackfillService,
	publisher *pubsub.Publisher,
	collector *metrics.Collector,
) *Processor {
	return &Processor{
		jobRepo:   jobRepo,
		backfill:  backfill,
		publisher: publisher,
		metrics:   collector,
	}
}

// Process 处理回填任务，结束后释放公司锁
func (p *Processor) Process(ctx context.Context, msg *queue.BackfillMessage) error {
	defer func() {
		if err := p.backfill.ReleaseLock(context.Background(), msg.CompanyID, msg.JobID); err != nil {
			log.Printf("Job %s: failed to release lock: %v", msg.JobID, err)
		}
	}()

	job, err := p.jobRepo.GetByID(msg.JobID)
	if err != nil {
		return fmt.Errorf("failed to get job: %w", err)
	}
	if job.Finished() {
		log.Printf("Job %s: already %s, skipping", job.ID, job.Status)
		return nil
	}

	// 更新状态为处理中
	now := time.Now()
	job.Status = model.JobProcessing
	job.StartedAt = &now
	if err := p.jobRepo.Update(job); err != nil {
		log.Printf("Job %s: failed to update status: %v", job.ID, err)
	}

	// 定义进度推送辅助函数
	publishProgress := func(step, status string, done int, errMsg string) {
		if p.publisher == nil {
			return
		}
		progress := &pubsub.ProgressMessage{
			JobID:     job.ID,
			CompanyID: job.CompanyID,
			Status:    status,
			Step:      step,
			DaysDone:  done,
			DaysTotal: job.DaysTotal,
			Error:     errMsg,
		}
		if step == pubsub.StepComputing {
			progress.Progress = pubsub.ComputingProgress(done, job.DaysTotal)
		}
		if err := p.publisher.PublishProgress(ctx, progress); err != nil {
			log.Printf("Job %s: failed to publish progress: %v", job.ID, err)
		}
	}

	// 定义收尾函数
	finish := func(status string, err error) error {
		completedAt := time.Now()
		job.Status = status
		job.CompletedAt = &completedAt
		job.ElapsedSeconds = int(completedAt.Sub(*job.StartedAt).Seconds())
		if err != nil {
			job.ErrorMessage = err.Error()
		}
		if updateErr := p.jobRepo.Update(job); updateErr != nil {
			log.Printf("Job %s: failed to update job: %v", job.ID, updateErr)
		}
		p.metrics.RecordBackfill(err, completedAt.Sub(*job.StartedAt))
		return err
	}

	log.Printf("Job %s: backfilling company %s", job.ID, job.CompanyID)
	publishProgress(pubsub.StepFetching, model.JobProcessing, 0, "")

	var mu sync.Mutex
	onProgress := func(done, total int) {
		if done%progressEvery != 0 && done != total {
			return
		}
		// 并发回调时只写入更大的进度
		mu.Lock()
		defer mu.Unlock()
		if done <= job.DaysDone {
			return
		}
		job.DaysDone = done
		if err := p.jobRepo.UpdateProgress(job.ID, done); err != nil {
			log.Printf("Job %s: failed to update progress: %v", job.ID, err)
		}
		publishProgress(pubsub.StepComputing, model.JobProcessing, done, "")
	}

	if err := p.backfill.Backfill(ctx, job.CompanyID, msg.Days, onProgress); err != nil {
		publishProgress(pubsub.StepComputing, model.JobFailed, job.DaysDone, err.Error())
		return finish(model.JobFailed, fmt.Errorf("backfill failed: %w", err))
	}

	publishProgress(pubsub.StepSaving, model.JobProcessing, job.DaysDone, "")
	finish(model.JobCompleted, nil)
	publishProgress(pubsub.StepDone, model.JobCompleted, job.DaysDone, "")

	log.Printf("Job %s: completed in %d seconds, %d snapshots", job.ID, job.ElapsedSeconds, job.DaysDone)
	return nil
}
