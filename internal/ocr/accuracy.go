package ocr

import (
	"strings"
	"unicode/utf8"

	"go-dashboard-inspector/pkg/models"

	"github.com/arbovm/levenshtein"
	"github.com/codycollier/wer"
)

// ScoreAccuracy compares recognised text with the transcript the caller expected.
// Both rates are 0 for a perfect match; an empty expectation scores 0 only
// against empty output.
func ScoreAccuracy(expected, actual string) models.OCRAccuracy {
	acc := models.OCRAccuracy{ExpectedText: expected}

	refWords := strings.Fields(expected)
	hypWords := strings.Fields(actual)
	if len(refWords) == 0 {
		if len(hypWords) > 0 {
			acc.WER = 1
		}
	} else {
		acc.WER, _ = wer.WER(refWords, hypWords)
	}

	ref := normalizeWhitespace(expected)
	hyp := normalizeWhitespace(actual)
	refLen := utf8.RuneCountInString(ref)
	if refLen == 0 {
		if hyp != "" {
			acc.CER = 1
		}
	} else {
		acc.CER = float64(levenshtein.Distance(ref, hyp)) / float64(refLen)
	}
	return acc
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
