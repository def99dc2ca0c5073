package evaluation

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/noah-isme/essay-eval-api/internal/models"
)

// levelBands defines the word-count requirement per rubric level. Bands are
// inclusive at the lower bound and exclusive at the upper bound; Expert has
// no upper bound.
var levelBands = map[models.Level]struct {
	min int
	max int // -1 means unbounded
}{
	models.LevelBasic:        {min: 50, max: 100},
	models.LevelIntermediate: {min: 100, max: 150},
	models.LevelAdvanced:     {min: 150, max: 200},
	models.LevelExpert:       {min: 200, max: -1},
}

// PreProcess runs the validation gate: word count, length band membership,
// and the English heuristic. Pure, no I/O.
func PreProcess(text string, level models.Level) models.PreProcessResult {
	wordCount := len(strings.Fields(text))

	band, ok := levelBands[level]
	if !ok {
		band = levelBands[models.LevelBasic]
	}
	meetsLength := wordCount >= band.min && (band.max < 0 || wordCount < band.max)

	isEnglish := dominantlyEnglish(text)

	return models.PreProcessResult{
		WordCount:              wordCount,
		IsEnglish:              isEnglish,
		MeetsLengthRequirement: meetsLength,
		IsValid:                isEnglish && meetsLength,
	}
}

// CheckEncoding rejects text that cannot be safely sent to the model call
// boundary: invalid UTF-8 or control characters other than tab and newlines.
func CheckEncoding(text string) error {
	if !utf8.ValidString(text) {
		return fmt.Errorf("%w: invalid UTF-8", ErrEncoding)
	}

	for _, r := range text {
		if r == '\t' || r == '\n' || r == '\r' {
			continue
		}
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character U+%04X", ErrEncoding, r)
		}
	}

	return nil
}

// dominantlyEnglish treats text as English when more than 80% of its runes
// are ASCII. Deliberately simple; the rubric targets English learners and the
// gate only needs to stop obviously non-English submissions.
func dominantlyEnglish(text string) bool {
	if len(text) == 0 {
		return false
	}

	total := 0
	ascii := 0
	for _, r := range text {
		total++
		if r < 128 {
			ascii++
		}
	}

	return float64(ascii)/float64(total) > 0.8
}
