// Package session holds the state of one user's picker and preview: the
// selected reference, the uploaded background, and whatever image the backend
// produced for it. Every front-end (web page, JSON API, terminal UI) drives
// the same Session type.
//
// Remote calls run without the session lock held. Only one image fetch runs
// at a time; a second one is refused with ErrBusy.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/youruser/ayahapp/internal/backend"
	imagepkg "github.com/youruser/ayahapp/internal/image"
	"github.com/youruser/ayahapp/internal/quran"
	"github.com/youruser/ayahapp/internal/reference"
)

// GenerateFailed is the alert shown when the backend could not produce a composite.
const GenerateFailed = "Failed to generate image"

var (
	ErrInvalidReference  = errors.New("invalid reference")
	ErrGenerateFailed    = errors.New("composite generation failed")
	ErrBusy              = errors.New("a request is already in progress")
	ErrNotFound          = errors.New("session not found")
	ErrVerseOutOfRange   = errors.New("verse out of range")
	ErrInvalidBackground = errors.New("background is not an image")
	ErrNoImage           = errors.New("no generated image")
)

// Backend is the image-generation API.
type Backend interface {
	AyahImageURL(ref reference.Reference) string
	GenerateComposite(ctx context.Context, ref reference.Reference, bg *backend.File, scale float64) (*backend.Image, error)
	Metadata(ctx context.Context) ([]json.RawMessage, error)
}

// Catalog supplies chapter metadata and verse text.
type Catalog interface {
	Chapters(ctx context.Context) ([]quran.Chapter, error)
	VerseText(ctx context.Context, ref reference.Reference) (string, error)
}

// Deps are shared by every session of a store.
type Deps struct {
	Backend Backend
	Catalog Catalog
	// ScaleFactor is sent with every composite request.
	ScaleFactor float64
	// DefaultBackground is shown when nothing was uploaded. Empty means blank.
	DefaultBackground string
	// CompositeURL maps a session id and image version to the URL the
	// composite is served from.
	CompositeURL func(id string, version int) string
	// OnChange receives a snapshot after every mutation.
	OnChange func(State)
}

// Background is the user's uploaded image.
type Background struct {
	Name       string
	Data       []byte
	PreviewURL string
}

// Composite is a generated image held in memory until the session expires.
type Composite struct {
	Data        []byte
	ContentType string
	URL         string
}

type Session struct {
	id   string
	deps Deps

	mu         sync.Mutex
	text       string
	inputError string
	chapter    int
	verse      int
	chapters   []quran.Chapter
	verses     []int
	verseText  string
	gallery    []json.RawMessage
	background *Background
	ayahURL    string
	composite  *Composite
	version    int
	loading    bool
	alert      string
	updated    time.Time
}

func New(id string, deps Deps) *Session {
	if deps.ScaleFactor <= 0 {
		deps.ScaleFactor = backend.DefaultScaleFactor
	}
	if deps.CompositeURL == nil {
		deps.CompositeURL = func(id string, version int) string {
			return fmt.Sprintf("/api/sessions/%s/composite?v=%d", id, version)
		}
	}
	return &Session{
		id:       id,
		deps:     deps,
		chapters: []quran.Chapter{},
		verses:   []int{},
		gallery:  []json.RawMessage{},
		updated:  time.Now(),
	}
}

func (s *Session) ID() string { return s.id }

// Init loads chapter metadata and the gallery concurrently. Either failing
// leaves its list empty; Init itself never fails.
func (s *Session) Init(ctx context.Context) {
	var chapters []quran.Chapter
	var gallery []json.RawMessage

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := s.deps.Catalog.Chapters(gctx)
		if err != nil {
			slog.Warn("chapter metadata unavailable", "session", s.id, "err", err)
			return nil
		}
		chapters = list
		return nil
	})
	g.Go(func() error {
		items, err := s.deps.Backend.Metadata(gctx)
		if err != nil {
			slog.Warn("gallery metadata unavailable", "session", s.id, "err", err)
			return nil
		}
		gallery = items
		return nil
	})
	_ = g.Wait()

	s.mu.Lock()
	if chapters != nil {
		s.chapters = chapters
	}
	if gallery != nil {
		s.gallery = gallery
	}
	s.touch()
	s.mu.Unlock()
	s.notify()
}

// SetText stores free-text input. A changed text clears both generated images.
func (s *Session) SetText(text string) {
	s.mu.Lock()
	s.setTextLocked(text)
	s.mu.Unlock()
	s.notify()
}

func (s *Session) setTextLocked(text string) {
	if text != s.text {
		s.text = text
		s.ayahURL = ""
		s.composite = nil
	}
	s.inputError = reference.Check(text)
	s.touch()
}

// SelectChapter picks a sura from the dropdown. When the sura is known the
// verse list becomes 1..verses_count and the verse resets to 1.
func (s *Session) SelectChapter(ctx context.Context, id int) error {
	if id <= 0 {
		return fmt.Errorf("%w: chapter %d", ErrInvalidReference, id)
	}
	s.mu.Lock()
	s.chapter = id
	if ch, ok := quran.Find(s.chapters, id); ok {
		s.verses = reference.Verses(ch.VersesCount)
		s.verse = 1
	}
	ref, ok := s.syncLocked()
	s.mu.Unlock()
	s.notify()

	if ok {
		s.loadVerseText(ctx, ref)
	}
	return nil
}

// SelectVerse picks an ayah from the dropdown.
func (s *Session) SelectVerse(ctx context.Context, n int) error {
	s.mu.Lock()
	if n <= 0 || (len(s.verses) > 0 && n > len(s.verses)) {
		count := len(s.verses)
		s.mu.Unlock()
		return fmt.Errorf("%w: %d not in 1..%d", ErrVerseOutOfRange, n, count)
	}
	s.verse = n
	ref, ok := s.syncLocked()
	s.mu.Unlock()
	s.notify()

	if ok {
		s.loadVerseText(ctx, ref)
	}
	return nil
}

// syncLocked writes the dropdown pair into the text field. It reports the
// reference when both halves are set.
func (s *Session) syncLocked() (reference.Reference, bool) {
	if s.chapter <= 0 || s.verse <= 0 {
		s.verseText = ""
		s.touch()
		return reference.Reference{}, false
	}
	ref := reference.Reference{Sura: s.chapter, Ayah: s.verse}
	s.setTextLocked(ref.String())
	return ref, true
}

func (s *Session) loadVerseText(ctx context.Context, ref reference.Reference) {
	text, err := s.deps.Catalog.VerseText(ctx, ref)
	if err != nil {
		slog.Debug("verse text unavailable", "session", s.id, "ref", ref.String(), "err", err)
		text = ""
	}
	s.mu.Lock()
	// a newer selection owns the field now
	if s.chapter != ref.Sura || s.verse != ref.Ayah {
		s.mu.Unlock()
		return
	}
	s.verseText = text
	s.touch()
	s.mu.Unlock()
	s.notify()
}

// SetBackground replaces the uploaded background.
func (s *Session) SetBackground(name string, data []byte) error {
	preview, err := imagepkg.PreviewDataURL(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBackground, err)
	}
	s.mu.Lock()
	s.background = &Background{Name: name, Data: data, PreviewURL: preview}
	s.touch()
	s.mu.Unlock()
	s.notify()
	return nil
}

// begin starts a fetch: it raises the loading flag, clears both images and
// validates the current text. On invalid text loading is already lowered again.
// While another fetch is running it changes nothing and returns ErrBusy.
func (s *Session) begin() (reference.Reference, *backend.File, error) {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return reference.Reference{}, nil, ErrBusy
	}
	s.loading = true
	s.alert = ""
	s.ayahURL = ""
	s.composite = nil
	text := s.text
	ref, err := reference.Parse(text)
	if err != nil {
		s.inputError = reference.FormatError
		s.loading = false
		s.touch()
		s.mu.Unlock()
		s.notify()
		return reference.Reference{}, nil, fmt.Errorf("%w: %q", ErrInvalidReference, text)
	}
	s.inputError = ""
	var bg *backend.File
	if s.background != nil {
		bg = &backend.File{Name: s.background.Name, Data: s.background.Data}
	}
	s.touch()
	s.mu.Unlock()
	s.notify()
	return ref, bg, nil
}

// FetchAyahImage shows the backend's plain image for the current reference.
func (s *Session) FetchAyahImage(ctx context.Context) error {
	ref, _, err := s.begin()
	if err != nil {
		return err
	}
	u := s.deps.Backend.AyahImageURL(ref)

	s.mu.Lock()
	s.ayahURL = u
	s.loading = false
	s.touch()
	s.mu.Unlock()
	s.notify()
	return nil
}

// GenerateComposite asks the backend to render the current reference over the
// uploaded background. A failure raises the alert and returns ErrGenerateFailed.
func (s *Session) GenerateComposite(ctx context.Context) error {
	ref, bg, err := s.begin()
	if err != nil {
		return err
	}
	img, err := s.deps.Backend.GenerateComposite(ctx, ref, bg, s.deps.ScaleFactor)

	s.mu.Lock()
	s.loading = false
	s.touch()
	if err != nil {
		s.alert = GenerateFailed
		s.mu.Unlock()
		s.notify()
		slog.Warn("composite generation failed", "session", s.id, "ref", ref.String(), "err", err)
		return fmt.Errorf("%w: %v", ErrGenerateFailed, err)
	}
	s.version++
	s.composite = &Composite{
		Data:        img.Data,
		ContentType: img.ContentType,
		URL:         s.deps.CompositeURL(s.id, s.version),
	}
	s.mu.Unlock()
	s.notify()
	slog.Info("composite generated", "session", s.id, "ref", ref.String(), "bytes", len(img.Data))
	return nil
}

// DismissAlert clears a pending alert.
func (s *Session) DismissAlert() {
	s.mu.Lock()
	s.alert = ""
	s.touch()
	s.mu.Unlock()
	s.notify()
}

func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Composite returns the current composite image, if any.
func (s *Session) Composite() (*Composite, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.composite, s.composite != nil
}

// AyahImageURL returns the current ayah image URL or "".
func (s *Session) AyahImageURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ayahURL
}

// Chapters returns the chapter metadata loaded at Init.
func (s *Session) Chapters() []quran.Chapter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chapters
}

// Updated is the time of the last mutation.
func (s *Session) Updated() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updated
}

func (s *Session) touch() { s.updated = time.Now() }

func (s *Session) notify() {
	if s.deps.OnChange != nil {
		s.deps.OnChange(s.State())
	}
}
