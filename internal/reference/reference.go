package reference

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// FormatError is shown next to the input whenever the text is not a sura:ayah pair.
const FormatError = "Please enter in the format: surah:ayah (e.g. 2:255)"

var pattern = regexp.MustCompile(`^\d{1,3}:\d{1,3}$`)

var ErrInvalid = errors.New("invalid reference")

// Reference points at one ayah of one sura.
type Reference struct {
	Sura int `json:"sura"`
	Ayah int `json:"ayah"`
}

func (r Reference) String() string {
	return strconv.Itoa(r.Sura) + ":" + strconv.Itoa(r.Ayah)
}

// Valid reports whether text is a canonical reference.
func Valid(text string) bool {
	return pattern.MatchString(text)
}

// Parse turns "2:255" into a Reference. Leading zeros are accepted ("002:255"),
// anything else that fails the pattern is ErrInvalid.
func Parse(text string) (Reference, error) {
	if !Valid(text) {
		return Reference{}, fmt.Errorf("%w: %q", ErrInvalid, text)
	}
	sura, ayah, _ := strings.Cut(text, ":")
	s, _ := strconv.Atoi(sura)
	a, _ := strconv.Atoi(ayah)
	return Reference{Sura: s, Ayah: a}, nil
}

// Check returns the inline error for text: empty for "" and for valid input.
func Check(text string) string {
	if text == "" || Valid(text) {
		return ""
	}
	return FormatError
}

// Verses lists 1..count in order.
func Verses(count int) []int {
	if count <= 0 {
		return []int{}
	}
	out := make([]int, count)
	for i := range out {
		out[i] = i + 1
	}
	return out
}
