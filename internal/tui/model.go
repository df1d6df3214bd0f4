// Package tui is a terminal front-end over a single session.
package tui

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	imagepkg "github.com/youruser/ayahapp/internal/image"
	"github.com/youruser/ayahapp/internal/session"
	"github.com/youruser/ayahapp/internal/util"
)

// maxChapters is used for navigation when chapter metadata is unavailable.
const maxChapters = 114

type mode int

const (
	browseMode mode = iota
	editMode
)

type initDoneMsg struct{}

type selectDoneMsg struct{ err error }

type fetchDoneMsg struct {
	action string
	err    error
}

type savedMsg struct {
	path string
	err  error
}

type Model struct {
	sess   *session.Session
	http   *http.Client
	outDir string

	mode   mode
	input  string
	status string
	width  int
	ready  bool

	titleStyle lipgloss.Style
	labelStyle lipgloss.Style
	errStyle   lipgloss.Style
	okStyle    lipgloss.Style
	verseStyle lipgloss.Style
	dimStyle   lipgloss.Style
}

// New builds a model for s. Downloads are written under outDir.
func New(s *session.Session, client *http.Client, outDir string) Model {
	if outDir == "" {
		outDir = "."
	}
	return Model{
		sess:       s,
		http:       client,
		outDir:     outDir,
		titleStyle: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#93c5fd")),
		labelStyle: lipgloss.NewStyle().Bold(true),
		errStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("#f87171")),
		okStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("#4ade80")),
		verseStyle: lipgloss.NewStyle().Padding(0, 1).Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#3730a3")),
		dimStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280")),
	}
}

func (m Model) Init() tea.Cmd {
	s := m.sess
	return func() tea.Msg {
		s.Init(context.Background())
		return initDoneMsg{}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case initDoneMsg:
		m.ready = true
		m.status = fmt.Sprintf("%d chapters loaded", m.sess.State().ChapterCount)
		return m, nil
	case selectDoneMsg:
		if msg.err != nil {
			m.status = msg.err.Error()
		}
		return m, nil
	case fetchDoneMsg:
		// failures surface through InputError or the alert
		m.status = ""
		if msg.err == nil {
			m.status = msg.action + " ready"
		}
		return m, nil
	case savedMsg:
		if msg.err != nil {
			m.status = "save failed: " + msg.err.Error()
		} else {
			m.status = "saved " + msg.path
		}
		return m, nil
	case tea.KeyMsg:
		if m.mode == editMode {
			return m.updateEdit(msg)
		}
		return m.updateBrowse(msg)
	}
	return m, nil
}

func (m Model) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.sess.SetText(strings.TrimSpace(m.input))
		m.mode = browseMode
		m.status = ""
	case tea.KeyEsc:
		m.mode = browseMode
	case tea.KeyBackspace:
		if r := []rune(m.input); len(r) > 0 {
			m.input = string(r[:len(r)-1])
		}
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyRunes, tea.KeySpace:
		m.input += string(msg.Runes)
	}
	return m, nil
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	st := m.sess.State()
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "e", "/":
		m.mode = editMode
		m.input = st.Text
	case "right", "l":
		return m, m.selectChapter(st.Chapter + 1)
	case "left", "h":
		return m, m.selectChapter(st.Chapter - 1)
	case "down", "j":
		return m, m.selectVerse(st, st.Verse+1)
	case "up", "k":
		return m, m.selectVerse(st, st.Verse-1)
	case "pgdown":
		return m, m.selectVerse(st, st.Verse+10)
	case "pgup":
		return m, m.selectVerse(st, st.Verse-10)
	case "a":
		return m, m.fetch("ayah image", m.sess.FetchAyahImage)
	case "g":
		return m, m.fetch("composite", m.sess.GenerateComposite)
	case "x":
		m.sess.DismissAlert()
	case "s":
		return m, m.save()
	}
	return m, nil
}

func (m Model) selectChapter(id int) tea.Cmd {
	limit := m.sess.State().ChapterCount
	if limit == 0 {
		limit = maxChapters
	}
	if id < 1 || id > limit {
		return nil
	}
	s := m.sess
	return func() tea.Msg {
		return selectDoneMsg{err: s.SelectChapter(context.Background(), id)}
	}
}

func (m Model) selectVerse(st session.State, n int) tea.Cmd {
	if st.Chapter == 0 || len(st.Verses) == 0 {
		return nil
	}
	n = max(1, min(n, len(st.Verses)))
	if n == st.Verse {
		return nil
	}
	s := m.sess
	return func() tea.Msg {
		return selectDoneMsg{err: s.SelectVerse(context.Background(), n)}
	}
}

// fetch runs a backend action unless one is already running.
func (m Model) fetch(action string, fn func(context.Context) error) tea.Cmd {
	if m.sess.Loading() {
		return nil
	}
	return func() tea.Msg {
		return fetchDoneMsg{action: action, err: fn(context.Background())}
	}
}

// save writes the previewed image to outDir under its download filename.
func (m Model) save() tea.Cmd {
	p := m.sess.Preview()
	if p.Download == nil {
		return func() tea.Msg { return savedMsg{err: session.ErrNoImage} }
	}
	s, client := m.sess, m.http
	path := filepath.Join(m.outDir, p.Download.Filename)
	return func() tea.Msg {
		var data []byte
		switch p.Download.Kind {
		case session.KindComposite:
			img, ok := s.Composite()
			if !ok {
				return savedMsg{err: session.ErrNoImage}
			}
			data = img.Data
		default:
			b, err := imagepkg.DownloadPNG(context.Background(), client, p.Download.URL)
			if err != nil {
				return savedMsg{err: err}
			}
			data = b
		}
		return savedMsg{path: path, err: util.WriteFile(path, data)}
	}
}
