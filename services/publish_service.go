package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"specimenpro/config"
	"specimenpro/internal/codec"
	"specimenpro/internal/status"
	"specimenpro/internal/validation"
	"specimenpro/models"
	"specimenpro/monitoring"
)

// Redis keys written by Publish.
const (
	CanonicalKey       = "corpus:canonical"
	MetaKey            = "corpus:meta"
	ActiveEventsKey    = "active_events"
	PublishedEventsKey = "published_events"
	EventKeyPrefix     = "event:"
)

// NotificationType is the "type" of the message sent after a publish.
const NotificationType = "corpus_published"

type PublishResult struct {
	Version     int64     `json:"version"`
	EventCount  int       `json:"eventCount"`
	Drafts      []string  `json:"drafts"`
	PublishedAt time.Time `json:"publishedAt"`
	Notified    bool      `json:"notified"`
	Document    []byte    `json:"-"`
}

type PublishService struct {
	redis    *redis.Client
	notifier Notifier
	links    *LinkChecker
	monitor  *monitoring.Monitor
	channel  string
	now      func() time.Time
}

func NewPublishService(redisClient *redis.Client, notifier Notifier, links *LinkChecker, monitor *monitoring.Monitor, cfg *config.Config) *PublishService {
	return &PublishService{
		redis:    redisClient,
		notifier: notifier,
		links:    links,
		monitor:  monitor,
		channel:  cfg.PubNubChannel,
		now:      time.Now,
	}
}

// Publish validates the corpus, checks its media links, and stores the
// non-draft events as the new published snapshot. Nothing is stored when
// validation or a link check fails. A failed notification is logged and
// reported in the result but does not fail the publish.
func (s *PublishService) Publish(ctx context.Context, corpus *models.Corpus) (*PublishResult, error) {
	start := s.now()
	result, err := s.publish(ctx, corpus)
	count := 0
	if result != nil {
		count = result.EventCount
	}
	s.monitor.TrackPublish(count, s.now().Sub(start), err)
	return result, err
}

func (s *PublishService) publish(ctx context.Context, corpus *models.Corpus) (*PublishResult, error) {
	if errs := validation.ValidateCorpus(corpus); len(errs) > 0 {
		s.monitor.TrackValidation(false)
		return nil, errs
	}
	s.monitor.TrackValidation(true)

	// ids are drawn against the whole corpus so a new id never shadows a draft
	if err := codec.AssignCorpusIDs(corpus); err != nil {
		return nil, err
	}

	published := &models.Corpus{}
	var drafts []string
	var linkErrs status.ValidationErrors
	for i, e := range corpus.Events {
		if e.IsDraft() {
			drafts = append(drafts, e.ID)
			continue
		}
		if s.links != nil {
			linkErrs = append(linkErrs, s.links.CheckEvent(ctx, e).Prefix(fmt.Sprintf("events[%d].", i))...)
		}
		published.Events = append(published.Events, e)
	}
	if len(linkErrs) > 0 {
		return nil, linkErrs
	}

	document, err := codec.MarshalCorpus(published)
	s.monitor.TrackSerialization("encode", err)
	if err != nil {
		return nil, err
	}
	eventDocs := make(map[string]string, len(published.Events))
	for _, e := range published.Events {
		data, err := codec.MarshalEvent(e)
		if err != nil {
			return nil, err
		}
		eventDocs[e.ID] = string(data)
	}

	version, err := s.currentVersion(ctx)
	if err != nil {
		return nil, err
	}
	previous, err := s.redis.SMembers(ctx, PublishedEventsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("read published events: %w", err)
	}

	result := &PublishResult{
		Version:     version + 1,
		EventCount:  len(published.Events),
		Drafts:      drafts,
		PublishedAt: s.now().UTC(),
		Document:    document,
	}
	if err := s.store(ctx, published, result, eventDocs, previous); err != nil {
		return nil, err
	}
	slog.Info("Published corpus", "version", result.Version, "events", result.EventCount, "drafts", len(drafts))

	err = s.notifier.Notify(ctx, s.channel, map[string]any{
		"type":         NotificationType,
		"version":      result.Version,
		"event_count":  result.EventCount,
		"last_updated": codec.FormatTime(result.PublishedAt),
	})
	result.Notified = err == nil
	return result, nil
}

func (s *PublishService) currentVersion(ctx context.Context) (int64, error) {
	v, err := s.redis.HGet(ctx, MetaKey, "version").Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read published version: %w", err)
	}
	return v, nil
}

// store writes the snapshot in one MULTI/EXEC so readers never see a mix of
// two publishes.
func (s *PublishService) store(ctx context.Context, published *models.Corpus, result *PublishResult, eventDocs map[string]string, previous []string) error {
	ids := make([]interface{}, 0, len(published.Events))
	var active []interface{}
	for _, e := range published.Events {
		ids = append(ids, e.ID)
		if e.Status == models.EventStatusActive {
			active = append(active, e.ID)
		}
	}
	var stale []string
	for _, id := range previous {
		if _, ok := eventDocs[id]; !ok {
			stale = append(stale, EventKeyPrefix+id)
		}
	}
	sort.Strings(stale)

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, CanonicalKey, string(result.Document), 0)
		for _, e := range published.Events {
			pipe.Set(ctx, EventKeyPrefix+e.ID, eventDocs[e.ID], 0)
		}
		if len(stale) > 0 {
			pipe.Del(ctx, stale...)
		}
		pipe.Del(ctx, PublishedEventsKey)
		if len(ids) > 0 {
			pipe.SAdd(ctx, PublishedEventsKey, ids...)
		}
		pipe.Del(ctx, ActiveEventsKey)
		if len(active) > 0 {
			pipe.SAdd(ctx, ActiveEventsKey, active...)
		}
		pipe.HSet(ctx, MetaKey,
			"version", strconv.FormatInt(result.Version, 10),
			"last_updated", codec.FormatTime(result.PublishedAt),
			"event_count", strconv.Itoa(result.EventCount),
		)
		return nil
	})
	if err != nil {
		return fmt.Errorf("store published corpus: %w", err)
	}
	return nil
}

// Published returns the last published canonical document.
func (s *PublishService) Published(ctx context.Context) ([]byte, error) {
	data, err := s.redis.Get(ctx, CanonicalKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, status.ErrNotPublished
	}
	if err != nil {
		return nil, fmt.Errorf("read published corpus: %w", err)
	}
	return data, nil
}

// PublishedEvent returns the last published document of one event.
func (s *PublishService) PublishedEvent(ctx context.Context, eventID string) ([]byte, error) {
	data, err := s.redis.Get(ctx, EventKeyPrefix+eventID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %q", status.ErrEventNotFound, eventID)
	}
	if err != nil {
		return nil, fmt.Errorf("read published event: %w", err)
	}
	return data, nil
}
