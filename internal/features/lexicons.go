package features

import "regexp"

// negativeLexicon and positiveLexicon are fixed word bags for the sentiment
// score. Lookup is on lower-cased, punctuation-stripped tokens.
var negativeLexicon = map[string]struct{}{
	"hate": {}, "lose": {}, "losing": {}, "miss": {}, "missing": {},
	"regret": {}, "sorry": {}, "unfortunately": {}, "fail": {}, "failure": {},
	"worst": {}, "never": {}, "no": {}, "not": {}, "refuse": {}, "deny": {},
	"risk": {}, "danger": {}, "warning": {}, "afraid": {}, "scared": {},
	"stupid": {}, "dumb": {}, "poor": {}, "broke": {}, "waste": {},
}

var positiveLexicon = map[string]struct{}{
	"save": {}, "saving": {}, "savings": {}, "free": {}, "win": {},
	"winner": {}, "best": {}, "great": {}, "love": {}, "enjoy": {},
	"yes": {}, "thanks": {}, "bonus": {}, "reward": {}, "gift": {},
	"exclusive": {}, "premium": {}, "deal": {}, "discount": {}, "happy": {},
}

// urgencyLexicon flags time-pressure wording.
var urgencyLexicon = map[string]struct{}{
	"hurry": {}, "now": {}, "today": {}, "last": {}, "limited": {},
	"expires": {}, "expiring": {}, "quick": {}, "quickly": {}, "fast": {},
	"immediately": {}, "instantly": {}, "soon": {}, "ending": {},
	"final": {}, "remaining": {}, "left": {},
}

// manipulativePhrases is the phrase bank; each hit subtracts a fixed penalty,
// tracked independently from the lexicon sentiment score.
var manipulativePhrases = []*regexp.Regexp{
	regexp.MustCompile(`(?i)don'?t\s+miss\s+(out|this)`),
	regexp.MustCompile(`(?i)you'?ll\s+regret`),
	regexp.MustCompile(`(?i)everyone\s+(else\s+)?is`),
	regexp.MustCompile(`(?i)act\s+(fast|now)`),
	regexp.MustCompile(`(?i)last\s+chance`),
	regexp.MustCompile(`(?i)before\s+it'?s\s+too\s+late`),
	regexp.MustCompile(`(?i)limited\s+time`),
	regexp.MustCompile(`(?i)only\s+\d+\s+left`),
	regexp.MustCompile(`(?i)exclusive\s+(deal|offer|access)`),
	regexp.MustCompile(`(?i)what\s+are\s+you\s+waiting\s+for`),
}

// manipulativePhrasePenalty is subtracted once per matched phrase.
const manipulativePhrasePenalty = 0.2

// HasManipulativeText reports whether s matches any phrase in the
// manipulative bank. The engine uses it during candidate enumeration.
func HasManipulativeText(s string) bool {
	for _, p := range manipulativePhrases {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

var (
	digitRe     = regexp.MustCompile(`\d`)
	countdownRe = regexp.MustCompile(`\d+\s*:\s*\d+|(?i)(expires?\s+in|time\s+(left|remaining)|countdown)`)
	tokenStrip  = regexp.MustCompile(`[^a-z0-9']+`)
)
