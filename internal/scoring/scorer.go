// Package scoring rates generated articles with a fixed set of structural
// and keyword heuristics. Scoring is pure: the same text and keywords always
// produce the same score and recommendations.
package scoring

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MaxScore = 10.0

	minWords     = 1500
	optimalWords = 2500
	maxWords     = 4000

	keywordsChecked    = 10
	keywordsSuggested  = 5
	minHeadingChars    = 30
	maxHeadingChars    = 60
	densityBonusFactor = 0.1
	densityBonusCap    = 0.5
)

var (
	h1Pattern         = regexp.MustCompile(`(?m)^# .+`)
	h2Pattern         = regexp.MustCompile(`(?m)^## .+`)
	h3Pattern         = regexp.MustCompile(`(?m)^### .+`)
	headingPattern    = regexp.MustCompile(`(?m)^#{1,3} (.+)`)
	sentenceSplit     = regexp.MustCompile(`[.!?]+`)
	introPattern      = regexp.MustCompile(`введение|вступление|introduction`)
	conclusionPattern = regexp.MustCompile(`заключение|выводы|итог|conclusion|summary`)
	listPattern       = regexp.MustCompile(`(?m)^([\*\-\+]|\d+\.) .+`)
	emphasisPattern   = regexp.MustCompile(`\*\*.+\*\*|\*.+\*`)
	linkPattern       = regexp.MustCompile(`\[.+\]\(.+\)`)
)

// Breakdown holds each component's contribution before the total cap.
type Breakdown struct {
	Length        float64 `json:"length"`         // max 2.0
	Headings      float64 `json:"headings"`       // max 2.0
	Keywords      float64 `json:"keywords"`       // max 2.0
	HeadingLength float64 `json:"heading_length"` // max 1.0
	IntroOutro    float64 `json:"intro_outro"`    // max 1.0
	Readability   float64 `json:"readability"`    // max 1.0
	Formatting    float64 `json:"formatting"`     // max 1.0
}

// Total sums the components.
func (b Breakdown) Total() float64 {
	return b.Length + b.Headings + b.Keywords + b.HeadingLength + b.IntroOutro + b.Readability + b.Formatting
}

// Result is the scorer output.
type Result struct {
	Score           float64   `json:"score"`
	Breakdown       Breakdown `json:"breakdown"`
	Recommendations []string  `json:"recommendations"`
}

// signals are the measurements both the score and the recommendations read.
type signals struct {
	words            int
	h1, h2, h3       int
	headings         []string
	checked          []string
	used             int
	densityPoints    float64
	unusedTop        []string
	intro, outro     bool
	sentences        int
	avgSentenceWords float64
	lists, emphasis  bool
	links            bool
}

// Score rates text against keywords.
func Score(text string, keywords []string) Result {
	s := measure(text, keywords)
	b := Breakdown{
		Length:        lengthScore(s.words),
		Headings:      headingScore(s),
		Keywords:      keywordScore(s),
		HeadingLength: headingLengthScore(s.headings),
		IntroOutro:    half(s.intro) + half(s.outro),
		Readability:   readabilityScore(s),
		Formatting:    formattingScore(s),
	}
	score := math.Min(b.Total(), MaxScore)
	return Result{
		Score:           math.Round(score*100) / 100,
		Breakdown:       b,
		Recommendations: recommend(s),
	}
}

func measure(text string, keywords []string) signals {
	lower := strings.ToLower(text)
	s := signals{
		words:    len(strings.Fields(text)),
		h1:       len(h1Pattern.FindAllString(text, -1)),
		h2:       len(h2Pattern.FindAllString(text, -1)),
		h3:       len(h3Pattern.FindAllString(text, -1)),
		intro:    introPattern.MatchString(lower),
		outro:    conclusionPattern.MatchString(lower),
		lists:    listPattern.MatchString(text),
		emphasis: emphasisPattern.MatchString(text),
		links:    linkPattern.MatchString(text),
	}

	for _, m := range headingPattern.FindAllStringSubmatch(text, -1) {
		s.headings = append(s.headings, m[1])
	}

	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		s.checked = append(s.checked, kw)
		if len(s.checked) == keywordsChecked {
			break
		}
	}
	for i, kw := range s.checked {
		n := strings.Count(lower, strings.ToLower(kw))
		if n == 0 {
			if i < keywordsSuggested {
				s.unusedTop = append(s.unusedTop, kw)
			}
			continue
		}
		s.used++
		if s.words == 0 {
			continue
		}
		density := float64(n) / float64(s.words) * 100
		switch {
		case density >= 1 && density <= 3:
			s.densityPoints += 1
		case (density >= 0.5 && density < 1) || (density > 3 && density <= 5):
			s.densityPoints += 0.5
		}
	}

	totalWords := 0
	for _, part := range sentenceSplit.Split(text, -1) {
		if strings.TrimSpace(part) == "" {
			continue
		}
		s.sentences++
		totalWords += len(strings.Fields(part))
	}
	if s.sentences > 0 {
		s.avgSentenceWords = float64(totalWords) / float64(s.sentences)
	}
	return s
}

func lengthScore(words int) float64 {
	switch {
	case words < minWords:
		return float64(words) / minWords * 2.0
	case words <= optimalWords:
		return 2.0
	case words <= maxWords:
		return 1.5
	default:
		return 1.0
	}
}

func headingScore(s signals) float64 {
	score := 0.0
	if s.h1 == 1 {
		score += 0.5
	}
	switch {
	case s.h2 >= 3:
		score += 1.0
	case s.h2 >= 1:
		score += 0.5
	}
	if s.h3 >= 2 {
		score += 0.5
	}
	return score
}

func keywordScore(s signals) float64 {
	if len(s.checked) == 0 {
		return 0
	}
	used := float64(s.used)
	total := float64(len(s.checked))
	var usage float64
	switch {
	case used >= total*0.7:
		usage = 1.5
	case used >= total*0.5:
		usage = 1.0
	default:
		usage = used / total
	}
	return usage + math.Min(s.densityPoints*densityBonusFactor, densityBonusCap)
}

func headingLengthScore(headings []string) float64 {
	if len(headings) == 0 {
		return 0
	}
	good := 0
	for _, h := range headings {
		if n := utf8.RuneCountInString(h); n >= minHeadingChars && n <= maxHeadingChars {
			good++
		}
	}
	return float64(good) / float64(len(headings))
}

func readabilityScore(s signals) float64 {
	if s.sentences == 0 {
		return 0
	}
	avg := s.avgSentenceWords
	switch {
	case avg >= 10 && avg <= 25:
		return 1.0
	case (avg >= 8 && avg < 10) || (avg > 25 && avg <= 30):
		return 0.7
	default:
		return 0.3
	}
}

func formattingScore(s signals) float64 {
	score := 0.0
	if s.lists {
		score += 0.4
	}
	if s.emphasis {
		score += 0.3
	}
	if s.links {
		score += 0.3
	}
	return score
}

func half(ok bool) float64 {
	if ok {
		return 0.5
	}
	return 0
}

func recommend(s signals) []string {
	recs := []string{}
	add := func(format string, args ...interface{}) {
		recs = append(recs, fmt.Sprintf(format, args...))
	}

	switch {
	case s.words < minWords:
		add("Increase the article length to %d+ words (currently %d)", minWords, s.words)
	case s.words > optimalWords:
		add("Tighten the article toward %d words (currently %d)", optimalWords, s.words)
	}

	switch {
	case s.h1 == 0:
		add("Add an H1 title")
	case s.h1 > 1:
		add("Use only one H1 title (found %d)", s.h1)
	}
	if s.h2 < 3 {
		add("Add more H2 subheadings for a clearer structure")
	}
	if s.h3 < 2 {
		add("Break long sections up with H3 subheadings")
	}

	if len(s.unusedTop) > 0 {
		add("Include keywords: %s", strings.Join(s.unusedTop, ", "))
	} else if float64(s.used) < float64(len(s.checked))*0.7 {
		add("Use more of the target keywords (%d of %d used)", s.used, len(s.checked))
	}
	if s.used > 0 && s.densityPoints*densityBonusFactor < densityBonusCap {
		add("Keep keyword density around 1-3%%")
	}

	if len(s.headings) > 0 && headingLengthScore(s.headings) < 1 {
		add("Keep headings between %d and %d characters", minHeadingChars, maxHeadingChars)
	}

	if !s.intro {
		add("Add an introduction")
	}
	if !s.outro {
		add("Add a conclusion")
	}

	if s.sentences > 0 && (s.avgSentenceWords < 10 || s.avgSentenceWords > 25) {
		add("Aim for sentences of 10-25 words (average %.1f)", s.avgSentenceWords)
	}

	if !s.lists {
		add("Add bulleted or numbered lists for readability")
	}
	if !s.emphasis {
		add("Use bold or italic emphasis for key points")
	}
	if !s.links {
		add("Link to supporting sources")
	}
	return recs
}
