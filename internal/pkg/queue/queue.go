package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrAlreadyQueued 同一个 JobID 已在队列中
var ErrAlreadyQueued = errors.New("job already queued")

type Queue struct {
	client    *redis.Client
	queueName string
}

// BackfillMessage 回填任务消息
type BackfillMessage struct {
	JobID      string    `json:"job_id"`
	CompanyID  string    `json:"company_id"`
	Days       int       `json:"days"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

func NewQueue(client *redis.Client, queueName string) *Queue {
	return &Queue{
		client:    client,
		queueName: queueName,
	}
}

// pendingKey 记录排队中的 JobID
func (q *Queue) pendingKey() string {
	return q.queueName + ":pending"
}

// Push 将任务加入队列，同一个 JobID 出队前只能入队一次
func (q *Queue) Push(ctx context.Context, msg *BackfillMessage) error {
	if msg.JobID == "" || msg.CompanyID == "" {
		return fmt.Errorf("invalid backfill message: job_id and company_id are required")
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	added, err := q.client.SAdd(ctx, q.pendingKey(), msg.JobID).Result()
	if err != nil {
		return fmt.Errorf("failed to mark job pending: %w", err)
	}
	if added == 0 {
		return ErrAlreadyQueued
	}

	if err := q.client.LPush(ctx, q.queueName, data).Err(); err != nil {
		q.client.SRem(ctx, q.pendingKey(), msg.JobID)
		return err
	}
	return nil
}

// Pending JobID 是否还在队列中
func (q *Queue) Pending(ctx context.Context, jobID string) (bool, error) {
	return q.client.SIsMember(ctx, q.pendingKey(), jobID).Result()
}

// Pop 从队列获取任务（阻塞）
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (*BackfillMessage, error) {
	result, err := q.client.BRPop(ctx, timeout, q.queueName).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // 超时，无任务
		}
		return nil, fmt.Errorf("failed to pop from queue: %w", err)
	}

	if len(result) < 2 {
		return nil, nil
	}

	var msg BackfillMessage
	if err := json.Unmarshal([]byte(result[1]), &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}

	if err := q.client.SRem(ctx, q.pendingKey(), msg.JobID).Err(); err != nil {
		return nil, fmt.Errorf("failed to clear pending job: %w", err)
	}

	return &msg, nil
}

// Length 获取队列长度
func (q *Queue) Length(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.queueName).Result()
}
