package quran

// Chapter is one sura as listed by the chapters endpoint.
type Chapter struct {
	ID              int            `json:"id"`
	NameSimple      string         `json:"name_simple"`
	NameArabic      string         `json:"name_arabic"`
	NameComplex     string         `json:"name_complex,omitempty"`
	RevelationPlace string         `json:"revelation_place,omitempty"`
	VersesCount     int            `json:"verses_count"`
	TranslatedName  TranslatedName `json:"translated_name"`
}

type TranslatedName struct {
	LanguageName string `json:"language_name"`
	Name         string `json:"name"`
}

type chaptersResponse struct {
	Chapters []Chapter `json:"chapters"`
}

type versesResponse struct {
	Verses []struct {
		ID          int    `json:"id"`
		VerseKey    string `json:"verse_key"`
		TextUthmani string `json:"text_uthmani"`
	} `json:"verses"`
}

// Find returns the chapter with the given id.
func Find(chapters []Chapter, id int) (Chapter, bool) {
	for _, c := range chapters {
		if c.ID == id {
			return c, true
		}
	}
	return Chapter{}, false
}
