package session

import "encoding/json"

// Preview kinds, in precedence order.
const (
	KindComposite  = "composite"
	KindAyah       = "ayah"
	KindBackground = "background"
	KindBlank      = "blank"
)

const (
	CompositeFilename = "composite-image.png"
	AyahFilename      = "ayah-image.png"
)

// Download describes the image offered for saving.
type Download struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Kind     string `json:"kind"`
}

// Preview is what the preview pane shows.
type Preview struct {
	Kind     string    `json:"kind"`
	URL      string    `json:"url,omitempty"`
	Download *Download `json:"download,omitempty"`
}

// State is a point-in-time snapshot of a session, safe to serialize.
type State struct {
	ID             string            `json:"id"`
	Text           string            `json:"text"`
	InputError     string            `json:"input_error,omitempty"`
	Chapter        int               `json:"chapter,omitempty"`
	Verse          int               `json:"verse,omitempty"`
	Verses         []int             `json:"verses"`
	VerseText      string            `json:"verse_text,omitempty"`
	ChapterCount   int               `json:"chapter_count"`
	Gallery        []json.RawMessage `json:"gallery"`
	HasBackground  bool              `json:"has_background"`
	BackgroundName string            `json:"background_name,omitempty"`
	AyahImageURL   string            `json:"ayah_image_url,omitempty"`
	CompositeURL   string            `json:"composite_url,omitempty"`
	Loading        bool              `json:"loading"`
	Alert          string            `json:"alert,omitempty"`
	Preview        Preview           `json:"preview"`
}

// Preview picks the image to display: composite, then ayah image, then the
// background (upload or default), then blank.
func (s *Session) Preview() Preview {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.previewLocked()
}

func (s *Session) previewLocked() Preview {
	switch {
	case s.composite != nil:
		return Preview{
			Kind:     KindComposite,
			URL:      s.composite.URL,
			Download: &Download{URL: s.composite.URL, Filename: CompositeFilename, Kind: KindComposite},
		}
	case s.ayahURL != "":
		return Preview{
			Kind:     KindAyah,
			URL:      s.ayahURL,
			Download: &Download{URL: s.ayahURL, Filename: AyahFilename, Kind: KindAyah},
		}
	case s.background != nil:
		return Preview{Kind: KindBackground, URL: s.background.PreviewURL}
	case s.deps.DefaultBackground != "":
		return Preview{Kind: KindBackground, URL: s.deps.DefaultBackground}
	default:
		return Preview{Kind: KindBlank}
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := State{
		ID:           s.id,
		Text:         s.text,
		InputError:   s.inputError,
		Chapter:      s.chapter,
		Verse:        s.verse,
		Verses:       append([]int(nil), s.verses...),
		VerseText:    s.verseText,
		ChapterCount: len(s.chapters),
		Gallery:      s.gallery,
		AyahImageURL: s.ayahURL,
		Loading:      s.loading,
		Alert:        s.alert,
		Preview:      s.previewLocked(),
	}
	if st.Verses == nil {
		st.Verses = []int{}
	}
	if s.background != nil {
		st.HasBackground = true
		st.BackgroundName = s.background.Name
	}
	if s.composite != nil {
		st.CompositeURL = s.composite.URL
	}
	return st
}
