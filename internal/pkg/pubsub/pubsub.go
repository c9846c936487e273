package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const (
	DefaultChannel = "backfill_progress"
)

// ProgressMessage 回填进度消息
type ProgressMessage struct {
	Type      string `json:"type"`
	JobID     string `json:"job_id"`
	CompanyID string `json:"company_id"`
	Status    string `json:"status"`
	Step      string `json:"step"`
	Progress  int    `json:"progress"`
	DaysDone  int    `json:"days_done"`
	DaysTotal int    `json:"days_total"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
}

// 进度阶段常量
const (
	StepFetching  = "fetching"
	StepComputing = "computing"
	StepSaving    = "saving"
	StepDone      = "done"
)

// 阶段对应的进度百分比
var StepProgress = map[string]int{
	StepFetching:  10,
	StepComputing: 50,
	StepSaving:    90,
	StepDone:      100,
}

// 阶段对应的消息
var StepMessages = map[string]string{
	StepFetching:  "正在拉取账单数据",
	StepComputing: "正在计算历史快照",
	StepSaving:    "正在更新公司状态",
	StepDone:      "回填完成",
}

// ComputingProgress 计算阶段按天数插值
func ComputingProgress(done, total int) int {
	start, end := StepProgress[StepFetching], StepProgress[StepSaving]
	if total <= 0 {
		return start
	}
	if done > total {
		done = total
	}
	return start + (end-start)*done/total
}

// Publisher Redis 发布者
type Publisher struct {
	client  *redis.Client
	channel string
}

// NewPublisher 创建发布者，channel 为空时使用默认频道
func NewPublisher(client *redis.Client, channel string) *Publisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Publisher{client: client, channel: channel}
}

// PublishProgress 发布进度消息
func (p *Publisher) PublishProgress(ctx context.Context, msg *ProgressMessage) error {
	fill(msg)

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal progress message: %w", err)
	}

	return p.client.Publish(ctx, p.channel, data).Err()
}

// fill 自动填充进度和消息
func fill(msg *ProgressMessage) {
	msg.Type = "backfill_progress"
	if msg.Progress == 0 && msg.Step != "" {
		if progress, ok := StepProgress[msg.Step]; ok {
			msg.Progress = progress
		}
	}
	if msg.Message == "" && msg.Step != "" {
		if message, ok := StepMessages[msg.Step]; ok {
			msg.Message = message
		}
	}
}

// Subscriber Redis 订阅者
type Subscriber struct {
	client  *redis.Client
	channel string
}

// NewSubscriber 创建订阅者
func NewSubscriber(client *redis.Client, channel string) *Subscriber {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Subscriber{client: client, channel: channel}
}

// Subscribe 订阅进度消息，ctx 结束时返回
func (s *Subscriber) Subscribe(ctx context.Context, handler func(*ProgressMessage)) error {
	pubsub := s.client.Subscribe(ctx, s.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var progressMsg ProgressMessage
			if err := json.Unmarshal([]byte(msg.Payload), &progressMsg); err != nil {
				continue // 忽略解析错误
			}

			handler(&progressMsg)
		}
	}
}
