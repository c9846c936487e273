package worker

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/qs3c/metrics_go_server/internal/pkg/queue"
)

// popTimeout 每次阻塞等待任务的时间
const popTimeout = 5 * time.Second

// Run 启动 n 个 worker 消费队列，ctx 结束后等待所有 worker 退出
func Run(ctx context.Context, q *queue.Queue, processor *Processor, n int) {
	if n <= 0 {
		n = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					log.Printf("Worker %d shutting down", workerID)
					return
				default:
					// 从队列获取任务
					msg, err := q.Pop(ctx, popTimeout)
					if err != nil {
						if ctx.Err() != nil {
							return
						}
						log.Printf("Worker %d: failed to pop job: %v", workerID, err)
						continue
					}

					if msg == nil {
						continue // 超时，继续等待
					}

					log.Printf("Worker %d: processing job %s", workerID, msg.JobID)
					if err := processor.Process(ctx, msg); err != nil {
						log.Printf("Worker %d: job %s failed: %v", workerID, msg.JobID, err)
					}
				}
			}
		}(i)
	}
	wg.Wait()
}
