// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"

	"pog-gallery/internal/config"
	"pog-gallery/pkg/log"
	"pog-gallery/pkg/tasks"
)

const (
	maxAttempts   = 3
	pendingTTL    = 10 * time.Minute
	attemptsTTL   = 24 * time.Hour
	pendingPrefix = "thumbnail:pending:"
	attemptPrefix = "kafka:attempts:"
)

var (
	retryBackoff = 2 * time.Second
	fetchBackoff = 5 * time.Second
)

// TaskProcessor defines the interface for any service that can process a task.
// This decouples the Kafka consumer from the concrete pipeline implementation.
type TaskProcessor interface {
	Process(ctx context.Context, task tasks.ThumbnailTask) error
}

// Producer 发送缩略图生成任务，同一视频在 pendingTTL 内只会入队一次。
type Producer struct {
	writer *kafka.Writer
	rdb    redis.Cmdable
}

// NewProducer 初始化 Kafka 生产者。
func NewProducer(cfg config.KafkaConfig, rdb redis.Cmdable) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokerList(cfg.Brokers)...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	log.Info("Kafka 生产者初始化成功")
	return &Producer{writer: w, rdb: rdb}
}

// PublishThumbnailTask 发送一个缩略图任务到 Kafka。任务已在队列中时直接返回 nil。
func (p *Producer) PublishThumbnailTask(ctx context.Context, task tasks.ThumbnailTask) error {
	if task.VideoID == "" {
		return errors.New("video id is empty")
	}
	ok, err := p.rdb.SetNX(ctx, pendingPrefix+task.VideoID, 1, pendingTTL).Result()
	if err != nil {
		return fmt.Errorf("写入任务去重标记失败: %w", err)
	}
	if !ok {
		log.Debugf("缩略图任务已在队列中: videoID=%s", task.VideoID)
		return nil
	}

	taskBytes, err := json.Marshal(task)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(task.VideoID), Value: taskBytes}); err != nil {
		// 发送失败时移除去重标记，允许下次请求重新入队
		_ = p.rdb.Del(ctx, pendingPrefix+task.VideoID).Err()
		return err
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// StartConsumer 启动一个 Kafka 消费者来处理缩略图任务，直到 ctx 被取消。
func StartConsumer(ctx context.Context, cfg config.KafkaConfig, rdb redis.Cmdable, processor TaskProcessor) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokerList(cfg.Brokers),
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	defer func() {
		if err := r.Close(); err != nil {
			log.Errorf("关闭 Kafka 消费者失败: %v", err)
		}
	}()

	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", cfg.Topic)

	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("Kafka 消费者已停止")
				return
			}
			// broker 暂时不可用时等待后继续拉取
			log.Errorf("从 Kafka 读取消息失败: %v", err)
			if !sleepCtx(ctx, fetchBackoff) {
				log.Info("Kafka 消费者已停止")
				return
			}
			continue
		}

		var task tasks.ThumbnailTask
		if err := json.Unmarshal(m.Value, &task); err != nil {
			log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(m.Value))
			// 消息格式错误，直接提交，避免阻塞队列
			commit(ctx, r, m)
			continue
		}

		if !handleTask(ctx, rdb, processor, task) {
			// ctx 已取消，不提交 offset，重启后重新投递
			log.Info("Kafka 消费者已停止")
			return
		}
		commit(ctx, r, m)
	}
}

// handleTask 处理一个任务，返回 false 表示 ctx 在处理中被取消、消息不应提交。
// 之前进程中已失败的次数记录在 Redis 中，计入总的 maxAttempts。
func handleTask(ctx context.Context, rdb redis.Cmdable, processor TaskProcessor, task tasks.ThumbnailTask) bool {
	attemptsKey := attemptPrefix + task.VideoID
	remaining := maxAttempts
	if prev, err := rdb.Get(ctx, attemptsKey).Int(); err == nil {
		remaining -= prev
	}
	if remaining < 1 {
		remaining = 1
	}

	tries, err := processWithRetry(ctx, processor, task, remaining)
	if err == nil {
		log.Infof("缩略图任务处理成功: videoID=%s", task.VideoID)
		_ = rdb.Del(ctx, attemptsKey, pendingPrefix+task.VideoID).Err()
		return true
	}
	if ctx.Err() != nil {
		bg := context.Background()
		_ = rdb.IncrBy(bg, attemptsKey, int64(tries)).Err()
		_ = rdb.Expire(bg, attemptsKey, attemptsTTL).Err()
		return false
	}
	log.Errorf("缩略图任务多次失败(>=%d)，提交 offset 终止重试: videoID=%s, Error: %v", maxAttempts, task.VideoID, err)
	_ = rdb.Del(ctx, attemptsKey, pendingPrefix+task.VideoID).Err()
	return true
}

// processWithRetry 最多执行 remaining 次 Process，每次失败后等待的时间依次递增。
// 返回实际执行的次数和最后一次的错误。
func processWithRetry(ctx context.Context, processor TaskProcessor, task tasks.ThumbnailTask, remaining int) (int, error) {
	var err error
	tries := 0
	for tries < remaining {
		tries++
		if err = processor.Process(ctx, task); err == nil {
			return tries, nil
		}
		log.Warnf("处理缩略图任务失败(第 %d 次): videoID=%s, Error: %v", tries, task.VideoID, err)
		if tries == remaining {
			break
		}
		if !sleepCtx(ctx, time.Duration(tries)*retryBackoff) {
			return tries, ctx.Err()
		}
	}
	return tries, err
}

// sleepCtx 等待 d，ctx 先结束时返回 false。
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func commit(ctx context.Context, r *kafka.Reader, m kafka.Message) {
	if err := r.CommitMessages(ctx, m); err != nil {
		log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
	}
}

func brokerList(brokers string) []string {
	var out []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
