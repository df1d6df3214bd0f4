package tui

import (
	"fmt"
	"strings"

	"github.com/youruser/ayahapp/internal/quran"
	"github.com/youruser/ayahapp/internal/session"
)

const helpText = "←/→: Surah • ↑/↓: Ayah • e: Edit reference • a: Ayah image • g: Generate • s: Save • x: Dismiss • q: Quit"

func (m Model) View() string {
	st := m.sess.State()
	var b strings.Builder

	b.WriteString(m.titleStyle.Render("Quran Ayah Image Explorer"))
	b.WriteString("\n\n")
	if !m.ready {
		b.WriteString(m.dimStyle.Render("Loading chapters..."))
		b.WriteString("\n")
		return b.String()
	}

	surah := "Select Surah"
	if ch, ok := quran.Find(m.sess.Chapters(), st.Chapter); ok {
		surah = fmt.Sprintf("%d. %s (%s)", ch.ID, ch.NameSimple, ch.NameArabic)
	} else if st.Chapter > 0 {
		surah = fmt.Sprintf("%d", st.Chapter)
	}
	ayah := "Select Ayah"
	if st.Verse > 0 {
		ayah = fmt.Sprintf("%d / %d", st.Verse, len(st.Verses))
	}
	fmt.Fprintf(&b, "%s %s\n", m.labelStyle.Render("Surah:"), surah)
	fmt.Fprintf(&b, "%s %s\n", m.labelStyle.Render("Ayah: "), ayah)
	if st.Chapter > 0 && st.Verse > 0 {
		text := st.VerseText
		if text == "" {
			text = m.dimStyle.Render("Ayah text will appear here after selection.")
		}
		b.WriteString(m.verseStyle.Render(text))
		b.WriteString("\n")
	}

	ref := st.Text
	if m.mode == editMode {
		ref = m.input + "█"
	}
	fmt.Fprintf(&b, "\n%s %s\n", m.labelStyle.Render("Reference:"), ref)
	if st.InputError != "" {
		b.WriteString(m.errStyle.Render(st.InputError))
		b.WriteString("\n")
	}
	if st.HasBackground {
		fmt.Fprintf(&b, "%s %s\n", m.labelStyle.Render("Background:"), st.BackgroundName)
	}

	b.WriteString("\n")
	b.WriteString(m.previewLine(st))
	b.WriteString("\n")
	if st.Loading {
		b.WriteString(m.dimStyle.Render("Generating..."))
		b.WriteString("\n")
	}
	if st.Alert != "" {
		b.WriteString(m.errStyle.Render(st.Alert))
		b.WriteString("\n")
	}
	if m.status != "" {
		b.WriteString(m.okStyle.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.dimStyle.Render(helpText))
	return b.String()
}

func (m Model) previewLine(st session.State) string {
	label := m.labelStyle.Render("Preview:")
	switch st.Preview.Kind {
	case session.KindComposite:
		return fmt.Sprintf("%s composite image (s saves %s)", label, session.CompositeFilename)
	case session.KindAyah:
		return fmt.Sprintf("%s %s", label, st.Preview.URL)
	case session.KindBackground:
		if st.HasBackground {
			return fmt.Sprintf("%s uploaded background", label)
		}
		return fmt.Sprintf("%s default background", label)
	default:
		return fmt.Sprintf("%s No ayah image found. Enter a valid surah:ayah above.", label)
	}
}
