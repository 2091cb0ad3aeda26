package queue

import (
	"context"
	"errors"

	"gigfinder-ticketing/internal/model"
)

var ErrQueueFull = errors.New("notification queue is full")

type Delivery struct {
	Data *model.NotificationJob
	Ack  func()
	Nack func(requeue bool)
}

type NotificationQueue interface {
	// 發送通知任務到隊列
	PublishNotification(ctx context.Context, job *model.NotificationJob) error
	// 訂閱通知隊列
	SubscribeNotifications(ctx context.Context) (<-chan Delivery, error)
}

type MemoryNotificationQueueImpl struct {
	// 使用 Go channel 來模擬 MQ 隊列
	ch chan *model.NotificationJob
}

func NewMemoryNotificationQueue(bufferSize int) NotificationQueue {
	return &MemoryNotificationQueueImpl{
		ch: make(chan *model.NotificationJob, bufferSize),
	}
}

// PublishNotification never blocks the caller; a full buffer is reported instead.
func (q *MemoryNotificationQueueImpl) PublishNotification(ctx context.Context, job *model.NotificationJob) error {
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

func (q *MemoryNotificationQueueImpl) SubscribeNotifications(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case job, ok := <-q.ch:
				if !ok {
					return
				}

				d := Delivery{
					Data: job,
					Ack:  func() {},
					Nack: func(requeue bool) {
						if requeue {
							// 記憶體版：放回隊列尾端，滿了就丟棄
							select {
							case q.ch <- job:
							default:
							}
						}
					},
				}
				select {
				case out <- d:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
