package services

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/moby/sys/atomicwriter"

	"specimenpro/config"
	"specimenpro/internal/assets"
	"specimenpro/internal/codec"
	"specimenpro/internal/qr"
	"specimenpro/internal/status"
	"specimenpro/internal/validation"
	"specimenpro/models"
	"specimenpro/monitoring"
)

// Defaults for records created from scratch in the editor.
const (
	DefaultEventTitle       = "New Event"
	DefaultEventDescription = "Event description"
	DefaultLocationName     = "Location"
	DefaultBadgeIcon        = "star.fill"
	DefaultBadgeColor       = "blue"
)

// EditorService owns the authoring corpus file. All methods are safe for
// concurrent use; edits are kept in memory until Save.
type EditorService struct {
	path     string
	qrSize   int
	resolver *assets.Resolver
	monitor  *monitoring.Monitor
	now      func() time.Time

	mu     sync.Mutex
	corpus *models.Corpus
}

func NewEditorService(cfg *config.Config, resolver *assets.Resolver, monitor *monitoring.Monitor) *EditorService {
	return &EditorService{
		path:     cfg.CorpusPath,
		qrSize:   cfg.QRSize,
		resolver: resolver,
		monitor:  monitor,
		now:      time.Now,
		corpus:   &models.Corpus{},
	}
}

func (s *EditorService) Path() string { return s.path }

// Load replaces the in-memory corpus with the file's content. A missing file
// loads as an empty corpus.
func (s *EditorService) Load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.mu.Lock()
		s.corpus = &models.Corpus{}
		s.mu.Unlock()
		slog.Info("Corpus file not found, starting empty", "path", s.path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read corpus: %w", err)
	}

	corpus, err := codec.UnmarshalCorpus(data)
	s.monitor.TrackSerialization("decode", err)
	if err != nil {
		return fmt.Errorf("load %s: %w", s.path, err)
	}

	s.mu.Lock()
	s.corpus = corpus
	s.mu.Unlock()
	slog.Info("Loaded corpus", "path", s.path, "events", len(corpus.Events))
	return nil
}

// Save validates the whole corpus and writes its canonical form. The file is
// replaced atomically; on any error the previous file is left as it was.
func (s *EditorService) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := validation.ValidateCorpus(s.corpus).Err(); err != nil {
		s.monitor.TrackValidation(false)
		return err
	}
	s.monitor.TrackValidation(true)

	data, err := codec.MarshalCorpus(s.corpus)
	s.monitor.TrackSerialization("encode", err)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("save corpus: %w", err)
		}
	}
	if err := atomicwriter.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("save corpus: %w", err)
	}
	slog.Info("Saved corpus", "path", s.path, "events", len(s.corpus.Events))
	return nil
}

// Canonical returns the canonical encoding of the in-memory corpus. Missing
// ids are assigned as a side effect.
func (s *EditorService) Canonical() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := codec.MarshalCorpus(s.corpus)
	s.monitor.TrackSerialization("encode", err)
	return data, err
}

// Snapshot returns a deep copy of the corpus that callers may keep.
func (s *EditorService) Snapshot() (*models.Corpus, error) {
	data, err := s.Canonical()
	if err != nil {
		return nil, err
	}
	return codec.UnmarshalCorpus(data)
}

// NewEvent appends a draft event with editor defaults spanning today in UTC.
func (s *EditorService) NewEvent() (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := codec.NewEventID(s.corpus.IDs())
	if err != nil {
		return nil, err
	}
	y, m, d := s.now().UTC().Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	e := &models.Event{
		ID:          id,
		Title:       DefaultEventTitle,
		Description: DefaultEventDescription,
		Type:        models.EventTypeScavengerHunt,
		Status:      models.EventStatusDraft,
		StartTime:   start,
		EndTime:     start.Add(24*time.Hour - time.Second),
		Location:    models.Location{Name: DefaultLocationName},
	}
	s.corpus.Events = append(s.corpus.Events, e)
	slog.Info("Created event", "eventID", id)
	return e, nil
}

func (s *EditorService) Event(id string) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.find(id)
}

func (s *EditorService) find(id string) (*models.Event, error) {
	e, _ := s.corpus.Find(id)
	if e == nil {
		return nil, fmt.Errorf("%w: %q", status.ErrEventNotFound, id)
	}
	return e, nil
}

func (s *EditorService) DeleteEvent(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.corpus.Remove(id) {
		return fmt.Errorf("%w: %q", status.ErrEventNotFound, id)
	}
	slog.Info("Deleted event", "eventID", id)
	return nil
}

// UpdateEvent replaces the stored event with the same id.
func (s *EditorService) UpdateEvent(e *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, i := s.corpus.Find(e.ID)
	if e.ID == "" || i < 0 {
		return fmt.Errorf("%w: %q", status.ErrEventNotFound, e.ID)
	}
	s.corpus.Events[i] = e
	return nil
}

// UpsertSpecimen replaces the specimen with sp.ID, or appends sp with a fresh
// id when sp.ID is empty or unknown.
func (s *EditorService) UpsertSpecimen(eventID string, sp *models.Specimen) (*models.Specimen, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.find(eventID)
	if err != nil {
		return nil, err
	}
	if _, i := e.FindSpecimen(sp.ID); sp.ID != "" && i >= 0 {
		e.Specimens[i] = sp
		return sp, nil
	}
	e.Specimens = append(e.Specimens, sp)
	if err := codec.AssignIDs(e); err != nil {
		return nil, err
	}
	return sp, nil
}

func (s *EditorService) RemoveSpecimen(eventID, specimenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.find(eventID)
	if err != nil {
		return err
	}
	_, i := e.FindSpecimen(specimenID)
	if i < 0 {
		return fmt.Errorf("%w: %q in event %q", status.ErrSpecimenNotFound, specimenID, eventID)
	}
	e.Specimens = append(e.Specimens[:i], e.Specimens[i+1:]...)
	return nil
}

// UpsertBadge works like UpsertSpecimen. A new badge without icon, color or
// requirement gets star.fill, blue and "collect 1".
func (s *EditorService) UpsertBadge(eventID string, b *models.Badge) (*models.Badge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.find(eventID)
	if err != nil {
		return nil, err
	}
	if _, i := e.FindBadge(b.ID); b.ID != "" && i >= 0 {
		e.Badges[i] = b
		return b, nil
	}
	if b.IconName == "" {
		b.IconName = DefaultBadgeIcon
	}
	if b.Color == "" {
		b.Color = DefaultBadgeColor
	}
	if !b.Requirement.Type.IsSet() && b.Requirement.Count == 0 {
		b.Requirement.Type = models.RequirementCollectCount
		b.Requirement.Count = 1
	}
	e.Badges = append(e.Badges, b)
	if err := codec.AssignIDs(e); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *EditorService) RemoveBadge(eventID, badgeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.find(eventID)
	if err != nil {
		return err
	}
	_, i := e.FindBadge(badgeID)
	if i < 0 {
		return fmt.Errorf("%w: %q in event %q", status.ErrBadgeNotFound, badgeID, eventID)
	}
	e.Badges = append(e.Badges[:i], e.Badges[i+1:]...)
	return nil
}

// AttachAsset copies a local photo or audio note into the site and points the
// specimen at its published URL. The specimen is untouched when the copy
// fails.
func (s *EditorService) AttachAsset(eventID, specimenID, localPath string, kind assets.Kind, overwrite bool) (assets.Reference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.find(eventID)
	if err != nil {
		return assets.Reference{}, err
	}
	sp, _ := e.FindSpecimen(specimenID)
	if sp == nil {
		return assets.Reference{}, fmt.Errorf("%w: %q in event %q", status.ErrSpecimenNotFound, specimenID, eventID)
	}

	ref, err := s.resolver.Copy(localPath, kind, overwrite)
	s.monitor.TrackAssetCopy(ref.Kind.String(), err)
	if err != nil {
		return ref, err
	}
	switch ref.Kind {
	case assets.KindImage:
		sp.PhotoURL = ref.PublishedURL
	case assets.KindAudio:
		sp.AudioURL = ref.PublishedURL
	}
	slog.Info("Attached asset", "eventID", eventID, "specimenID", specimenID, "kind", ref.Kind.String(), "url", ref.PublishedURL)
	return ref, nil
}

// QRPayloads returns the deep links of every specimen of an event.
func (s *EditorService) QRPayloads(eventID string) ([]qr.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.find(eventID)
	if err != nil {
		return nil, err
	}
	entries, err := qr.EncodeAll(e)
	if err != nil {
		return nil, err
	}
	s.monitor.TrackQRPayloads(len(entries))
	return entries, nil
}

// ExportQR writes one PNG per specimen into dir and returns the payloads with
// the written paths in the same order.
func (s *EditorService) ExportQR(eventID, dir string) ([]qr.Entry, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.find(eventID)
	if err != nil {
		return nil, nil, err
	}
	entries, err := qr.EncodeAll(e)
	if err != nil {
		return nil, nil, err
	}
	paths, err := qr.WritePNGs(e, dir, s.qrSize)
	if err != nil {
		return nil, paths, err
	}
	s.monitor.TrackQRPayloads(len(entries))
	slog.Info("Exported QR codes", "eventID", eventID, "dir", dir, "count", len(paths))
	return entries, paths, nil
}

// Import decodes another corpus document and appends its events. Any id
// collision rejects the whole import. It returns the number of events added.
func (s *EditorService) Import(data []byte) (int, error) {
	src, err := codec.UnmarshalCorpus(data)
	s.monitor.TrackSerialization("decode", err)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := codec.Merge(s.corpus, src); err != nil {
		return 0, err
	}
	slog.Info("Imported events", "count", len(src.Events))
	return len(src.Events), nil
}
