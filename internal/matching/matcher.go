package matching

import "requestarr/internal/textutil"

// Verdict classifies one request/candidate comparison.
type Verdict string

const (
	VerdictNone     Verdict = "none"
	VerdictPossible Verdict = "possible"
	VerdictCertain  Verdict = "certain"
)

// Candidate is one catalog entry under consideration.
type Candidate struct {
	ID     string
	Title  string
	Author string
}

// Request carries the request-side fields used for matching.
type Request struct {
	Title  string
	Author string
}

// Match is the outcome of comparing one request to one candidate.
type Match struct {
	Candidate   Candidate
	TitleScore  float64
	AuthorScore float64
	Verdict     Verdict
}

// Score computes the title similarity between two strings in [0, 1].
// Blank input on either side always scores 0.
func Score(a, b string) float64 {
	na := textutil.Normalize(a)
	nb := textutil.Normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	return textutil.TokenSetRatio(na, nb)
}

// AuthorScore computes the author similarity with a plain ratio; token-set
// comparison is too generous for short author names.
func AuthorScore(a, b string) float64 {
	na := textutil.Normalize(a)
	nb := textutil.Normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	return textutil.Ratio(na, nb)
}

// Classify compares a request to a single candidate at the given threshold.
//
// Certain: title meets the threshold and the author either is absent from the
// request or also meets it. Possible: title meets the threshold but the author
// does not. None: title below the threshold. An author score can never promote
// a sub-threshold title.
func Classify(req Request, candidate Candidate, threshold float64) Match {
	match := Match{Candidate: candidate}
	match.TitleScore = Score(req.Title, candidate.Title)

	authorRequired := textutil.Normalize(req.Author) != ""
	if authorRequired {
		match.AuthorScore = AuthorScore(req.Author, candidate.Author)
	}

	if match.TitleScore < threshold {
		match.Verdict = VerdictNone
		return match
	}
	if !authorRequired || match.AuthorScore >= threshold {
		match.Verdict = VerdictCertain
		return match
	}
	match.Verdict = VerdictPossible
	return match
}

// Best returns the winning match for a request across all candidates: the
// highest-title-score certain match if any exists, otherwise the highest-title-
// score possible match. Ties are broken by candidate ID ascending. The boolean
// result is false when no candidate reaches the threshold.
func Best(req Request, candidates []Candidate, threshold float64) (Match, bool) {
	matches := make([]Match, 0, len(candidates))
	for _, candidate := range candidates {
		matches = append(matches, Classify(req, candidate, threshold))
	}
	return BestOf(matches)
}

// BestOf folds already-classified matches with the same preference rules as
// Best: certain beats possible, then title score descending, then candidate
// ID ascending.
func BestOf(matches []Match) (Match, bool) {
	var bestCertain, bestPossible *Match
	for _, match := range matches {
		switch match.Verdict {
		case VerdictCertain:
			if preferred(bestCertain, match) {
				m := match
				bestCertain = &m
			}
		case VerdictPossible:
			if preferred(bestPossible, match) {
				m := match
				bestPossible = &m
			}
		}
	}
	if bestCertain != nil {
		return *bestCertain, true
	}
	if bestPossible != nil {
		return *bestPossible, true
	}
	return Match{Verdict: VerdictNone}, false
}

func preferred(current *Match, challenger Match) bool {
	if current == nil {
		return true
	}
	if challenger.TitleScore != current.TitleScore {
		return challenger.TitleScore > current.TitleScore
	}
	return challenger.Candidate.ID < current.Candidate.ID
}
