// Herald - Notification Pipeline and Delivery Workers
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/herald

package broker

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
)

// HighPriorityMin is the lowest priority routed to a subject's high lane.
// Lower priorities are the ones the email worker holds for the send window.
const HighPriorityMin = 2

const highLaneSuffix = ".high"

// HighLane returns the high priority lane of subject.
func HighLane(subject string) string {
	return subject + highLaneSuffix
}

// LaneSubject returns the subject a message of the given priority is
// published to: the high lane from HighPriorityMin up, subject otherwise.
func LaneSubject(subject string, priority int) string {
	if priority >= HighPriorityMin {
		return HighLane(subject)
	}
	return subject
}

// LaneSubscriber consumes both lanes of a topic as one channel. A high lane
// message waiting when the next message is picked always goes first.
type LaneSubscriber struct {
	subscriber MessageSubscriber
}

// NewLaneSubscriber wraps sub.
func NewLaneSubscriber(sub MessageSubscriber) *LaneSubscriber {
	return &LaneSubscriber{subscriber: sub}
}

// Subscribe subscribes to HighLane(topic) and topic. The returned channel
// closes when ctx is cancelled or both lanes close.
func (l *LaneSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	high, err := l.subscriber.Subscribe(ctx, HighLane(topic))
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", HighLane(topic), err)
	}
	normal, err := l.subscriber.Subscribe(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", topic, err)
	}

	out := make(chan *message.Message)
	go mergeLanes(ctx, high, normal, out)
	return out, nil
}

func mergeLanes(ctx context.Context, high, normal <-chan *message.Message, out chan<- *message.Message) {
	defer close(out)

	for high != nil || normal != nil {
		var msg *message.Message
		var ok bool

		select {
		case msg, ok = <-high:
			if !ok {
				high = nil
				continue
			}
		default:
			select {
			case <-ctx.Done():
				return
			case msg, ok = <-high:
				if !ok {
					high = nil
					continue
				}
			case msg, ok = <-normal:
				if !ok {
					normal = nil
					continue
				}
			}
		}

		select {
		case out <- msg:
		case <-ctx.Done():
			msg.Nack()
			return
		}
	}
}
