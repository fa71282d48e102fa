// Package relay 透過 Redis pub/sub 把房間事件轉發到所有服務實例。
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Envelope 是 Redis 頻道上傳遞的內容
type Envelope struct {
	RoomID uint            `json:"room_id"`
	Frame  json.RawMessage `json:"frame"`
}

// DeliverFunc 把收到的框架交給本機的 hub
type DeliverFunc func(roomID uint, frame []byte) int

type RedisRelay struct {
	client  *redis.Client
	channel string
	log     *zap.Logger
}

func NewRedisRelay(client *redis.Client, channel string, log *zap.Logger) *RedisRelay {
	return &RedisRelay{client: client, channel: channel, log: log}
}

func Encode(roomID uint, frame []byte) ([]byte, error) {
	if !json.Valid(frame) {
		return nil, errors.New("frame is not valid JSON")
	}
	return json.Marshal(Envelope{RoomID: roomID, Frame: frame})
}

func Decode(payload []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, err
	}
	if env.RoomID == 0 || len(env.Frame) == 0 {
		return nil, fmt.Errorf("incomplete envelope")
	}
	return &env, nil
}

// Publish 將房間事件發佈到 Redis 頻道
func (r *RedisRelay) Publish(ctx context.Context, roomID uint, frame []byte) error {
	payload, err := Encode(roomID, frame)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, payload).Err()
}

// Run 訂閱頻道並把每則事件交給 deliver，直到 ctx 結束
// 訂閱確認後才呼叫 ready，呼叫端應在此時才開始經由 relay 發佈
func (r *RedisRelay) Run(ctx context.Context, deliver DeliverFunc, ready func()) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	// 等待訂閱確認，連線失敗時直接回傳
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	r.log.Info("relay subscribed", zap.String("channel", r.channel))

	ch := pubsub.Channel()
	if ready != nil {
		ready()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			env, err := Decode([]byte(msg.Payload))
			if err != nil {
				r.log.Warn("drop malformed relay payload", zap.Error(err))
				continue
			}
			deliver(env.RoomID, env.Frame)
		}
	}
}

// Ping 確認 Redis 可連線
func (r *RedisRelay) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
