package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// audioExtensions are stripped from the end of a token before comparison.
var audioExtensions = []string{".m4a", ".mp3", ".wav", ".ogg"}

// accentTable folds the orthographic variants curators type most often.
// Anything it misses is handled by the NFD pass in foldAccents.
var accentTable = strings.NewReplacer(
	"é", "e", "è", "e", "ê", "e", "ë", "e",
	"à", "a", "â", "a", "ä", "a",
	"ç", "c",
	"ù", "u", "û", "u", "ü", "u",
	"î", "i", "ï", "i",
	"ô", "o", "ö", "o",
	"ñ", "n",
	"œ", "oe", "æ", "ae",
)

// Normalize canonicalizes a headword, translation or asset filename so that
// spellings differing only by case, accents, separators or an audio file
// extension compare equal:
//   - converts to lowercase
//   - folds accents (é→e, ç→c, ...)
//   - turns '_', '-' and whitespace runs into a single space, trims
//   - strips a trailing .m4a/.mp3/.wav/.ogg extension
//
// The result is stable: Normalize(Normalize(s)) == Normalize(s).
func Normalize(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	text = foldAccents(strings.ToLower(text))

	for {
		text = collapseSeparators(text)
		stripped := stripAudioExtension(text)
		if stripped == text {
			return text
		}
		text = stripped
	}
}

// NormalizeAssetName normalizes an asset filename and removes the trailing
// language marker curators append to tell the two pronunciations apart
// ("bweni s.m4a" is the Shimaoré take, "bweni k.m4a" the Kibouchi one).
// The marker is returned as the slot it designates, or "" when absent.
func NormalizeAssetName(filename string) (string, Language) {
	key := Normalize(filename)
	switch {
	case len(key) > 2 && strings.HasSuffix(key, " s"):
		return key[:len(key)-2], LangA
	case len(key) > 2 && strings.HasSuffix(key, " k"):
		return key[:len(key)-2], LangB
	default:
		return key, ""
	}
}

// foldAccents builds its transformer per call: a transform.Chain keeps
// state and the normalizer runs from several matching workers at once.
func foldAccents(s string) string {
	s = accentTable.Replace(s)
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		return s
	}
	return out
}

// collapseSeparators maps '_', '-' and any whitespace to a single space and trims.
func collapseSeparators(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	for _, r := range s {
		if r == '_' || r == '-' || unicode.IsSpace(r) {
			pendingSpace = b.Len() > 0
			continue
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

func stripAudioExtension(s string) string {
	for _, ext := range audioExtensions {
		if strings.HasSuffix(s, ext) {
			return s[:len(s)-len(ext)]
		}
	}
	return s
}

// HasAudioExtension reports whether a raw filename carries one of the
// supported audio extensions (case-insensitive).
func HasAudioExtension(filename string) bool {
	lower := strings.ToLower(strings.TrimSpace(filename))
	for _, ext := range audioExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
