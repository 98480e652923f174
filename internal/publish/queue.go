package publish

import (
	apperrors "github.com/vkozyrev/chanrelay/internal/errors"
)

type Kind string

const (
	KindPhoto     Kind = "photo"
	KindVideo     Kind = "video"
	KindAnimation Kind = "animation"
	KindSticker   Kind = "sticker"
)

// Delivery is one staged media attachment awaiting its single send attempt.
// The queue owns LocalPath from enqueue until the worker releases it.
type Delivery struct {
	LocalPath string
	Signature string
	Kind      Kind
}

// Queue is a bounded FIFO of pending deliveries, safe for concurrent
// enqueue from many submission handlers with exactly one consumer.
type Queue struct {
	ch chan Delivery
}

func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 1
	}
	return &Queue{ch: make(chan Delivery, size)}
}

// Enqueue never blocks: a full queue is a typed failure the caller reports
// to the submitter.
func (q *Queue) Enqueue(d Delivery) error {
	select {
	case q.ch <- d:
		return nil
	default:
		return apperrors.ErrQueueFull
	}
}

func (q *Queue) Len() int {
	return len(q.ch)
}
