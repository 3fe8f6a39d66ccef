package subtitles

import (
	"strings"
	"unicode"

	"golang.org/x/text/language"
)

// LanguageAuto asks the transcriber to detect the spoken language.
const LanguageAuto = "auto"

// NormalizeLanguage reduces a user-supplied language code to its base tag
// ("pt-BR" -> "pt"), which is the granularity the pipeline keys subtitles
// by. "auto" passes through unchanged.
func NormalizeLanguage(code string) string {
	code = strings.TrimSpace(strings.ToLower(code))
	if code == "" || code == LanguageAuto {
		return LanguageAuto
	}
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	base, _ := tag.Base()
	return base.String()
}

var vietnameseMarks = []rune("ăâđêôơưạảấầẩẫậắằẳẵặẹẻẽếềểễệịọỏốồổỗộớờởỡợụủứừửữựỳỵỷỹ")

// DetectLanguage guesses the dominant language of already-transcribed text
// by script and diacritic counts. It only has to be good enough to decide
// whether translation is needed; the transcriber's own detection already
// handled the audio side.
func DetectLanguage(text string) string {
	counts := map[string]int{}
	total := 0
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		total++
		switch {
		case unicode.Is(unicode.Han, r):
			counts["zh"]++
		case unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r):
			counts["ja"]++
		case unicode.Is(unicode.Hangul, r):
			counts["ko"]++
		case unicode.Is(unicode.Cyrillic, r):
			counts["ru"]++
		case unicode.Is(unicode.Arabic, r):
			counts["ar"]++
		case unicode.Is(unicode.Thai, r):
			counts["th"]++
		case unicode.Is(unicode.Devanagari, r):
			counts["hi"]++
		case isVietnameseMark(r):
			counts["vi"]++
		}
	}
	if total == 0 {
		return "en"
	}

	// Kana beats Han for Japanese text, which mixes both scripts.
	if counts["ja"] > 0 && counts["ja"]*10 >= counts["zh"] {
		counts["zh"] = 0
	}

	best, bestCount := "en", 0
	for lang, count := range counts {
		if count > bestCount {
			best, bestCount = lang, count
		}
	}
	// Mostly plain Latin letters: default to English rather than trusting a
	// handful of stray marks.
	if bestCount*20 < total {
		return "en"
	}
	return best
}

func isVietnameseMark(r rune) bool {
	for _, m := range vietnameseMarks {
		if r == m {
			return true
		}
	}
	return false
}
