package curriculum

import (
	"iter"
	"regexp"
	"strings"
)

// SolutionMarker separates a question prompt from its solution.
const SolutionMarker = "**Solution**:"

var (
	// questionHeading captures the title up to the end of its line. (?s) lets
	// a heading with an empty remainder swallow one newline as its title,
	// which trims to "".
	questionHeading = regexp.MustCompile(`(?s)#### Q\d+: (.+?)\n`)

	// questionBoundary ends a block even when the next heading is malformed.
	questionBoundary = regexp.MustCompile(`#### Q\d+:`)
)

// SplitQuestions yields the question blocks of body in source order. Each
// block runs from its heading line to the next question marker or the end of
// the text. The sequence is lazy and can be ranged over repeatedly.
func SplitQuestions(body string) iter.Seq[QuestionBlock] {
	return func(yield func(QuestionBlock) bool) {
		pos := 0
		for pos < len(body) {
			loc := questionHeading.FindStringSubmatchIndex(body[pos:])
			if loc == nil {
				return
			}
			title := body[pos+loc[2] : pos+loc[3]]
			start := pos + loc[1]

			end := len(body)
			if b := questionBoundary.FindStringIndex(body[start:]); b != nil {
				end = start + b[0]
			}

			if !yield(newQuestionBlock(title, body[start:end])) {
				return
			}
			pos = end
		}
	}
}

func newQuestionBlock(title, raw string) QuestionBlock {
	block := strings.TrimSpace(raw)
	q := QuestionBlock{
		Title:       strings.TrimSpace(title),
		Description: block,
		Block:       block,
	}
	if before, after, found := strings.Cut(block, SolutionMarker); found {
		q.Description = strings.TrimSpace(before)
		q.Solution = strings.TrimSpace(after)
	}
	return q
}
