package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/unclebandit/remarketing-console/internal/model"
	"github.com/unclebandit/remarketing-console/internal/repository"
)

// DefaultTopic is the queue campaign submissions are published to.
const DefaultTopic = "campaign_dispatch"

// Deliverer is a queue that can hand a message to its subscribers and wait
// for their acknowledgement.
type Deliverer interface {
	Deliver(topic string, payload any) error
}

// Dispatcher is the local campaign dispatch collaborator: it publishes the
// submission for the worker and reports how many contacts it will reach.
// When the queue is a Deliverer the submission is only reported accepted
// after every subscriber, the recorder included, has handled it.
type Dispatcher struct {
	Queue    Queue
	Topic    string
	Contacts repository.ContactRepositoryInterface
}

func (d *Dispatcher) topic() string {
	if d.Topic == "" {
		return DefaultTopic
	}
	return d.Topic
}

func (d *Dispatcher) SubmitCampaign(ctx context.Context, sub *model.Submission) (*model.DispatchResult, error) {
	if sub.Segment == "" {
		return nil, fmt.Errorf("submission %s has no audience segment", sub.Key)
	}

	recipients := 1
	if sub.Mode == model.SendFull {
		recipients = 0
		if d.Contacts != nil {
			count, err := d.Contacts.CountSegment(ctx, sub.BotID, sub.Segment)
			if err != nil {
				return nil, fmt.Errorf("count audience: %w", err)
			}
			recipients = count.Reachable
		}
	}

	body, err := json.Marshal(sub)
	if err != nil {
		return nil, fmt.Errorf("encode submission: %w", err)
	}
	if deliverer, ok := d.Queue.(Deliverer); ok {
		if err := deliverer.Deliver(d.topic(), body); err != nil {
			return nil, fmt.Errorf("deliver submission: %w", err)
		}
	} else if err := d.Queue.Publish(d.topic(), body); err != nil {
		return nil, fmt.Errorf("enqueue submission: %w", err)
	}

	log.Info().
		Str("bot_id", sub.BotID).
		Str("mode", string(sub.Mode)).
		Str("segment", sub.Segment).
		Int("recipients", recipients).
		Msg("Campaign submission queued")

	return &model.DispatchResult{Accepted: true, RecipientCount: recipients}, nil
}
