package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/unclebandit/remarketing-console/internal/model"
	"github.com/unclebandit/remarketing-console/internal/repository"
)

// Recorder turns accepted full sends into campaign history records. Test
// sends never reach history.
type Recorder struct {
	Campaigns repository.CampaignRepositoryInterface
	Contacts  repository.ContactRepositoryInterface
}

// Handle processes one queued submission body. Malformed bodies are logged
// and dropped; storage errors are returned so the queue retries.
func (r *Recorder) Handle(ctx context.Context, body []byte) error {
	var sub model.Submission
	if err := json.Unmarshal(body, &sub); err != nil {
		log.Error().Err(err).Msg("Invalid campaign submission payload, dropped")
		return nil // no retry
	}
	if sub.Mode != model.SendFull {
		log.Debug().Str("submission_key", sub.Key.String()).Msg("Test send, nothing to record")
		return nil
	}

	var counts model.SegmentCount
	if r.Contacts != nil {
		var err error
		if counts, err = r.Contacts.CountSegment(ctx, sub.BotID, sub.Segment); err != nil {
			return fmt.Errorf("count audience: %w", err)
		}
	}

	snapshot, err := json.Marshal(sub.Snapshot())
	if err != nil {
		return fmt.Errorf("encode content snapshot: %w", err)
	}

	// Zero-recipient campaigns are still recorded.
	rec, err := r.Campaigns.Record(ctx, sub.Key, &model.CampaignRecord{
		BotID:           sub.BotID,
		Target:          sub.Target,
		RecipientCount:  counts.Reachable,
		BlockedCount:    counts.Blocked,
		ContentSnapshot: string(snapshot),
	})
	if err != nil {
		return fmt.Errorf("record campaign: %w", err)
	}

	log.Info().
		Str("campaign_id", rec.ID).
		Str("bot_id", rec.BotID).
		Int("recipients", rec.RecipientCount).
		Msg("Campaign recorded")
	return nil
}

// StartCampaignRecorder subscribes the recorder to topic.
func StartCampaignRecorder(q Queue, topic string, rec *Recorder) error {
	if topic == "" {
		topic = DefaultTopic
	}
	return q.Subscribe(topic, func(payload any) error {
		body, ok := payload.([]byte)
		if !ok {
			log.Warn().Msgf("Invalid payload type %T, expected []byte", payload)
			return nil
		}
		return rec.Handle(context.Background(), body)
	})
}
