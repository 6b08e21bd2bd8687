package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/timmy/quill/internal/config"
	"github.com/timmy/quill/internal/logger"
)

const (
	maxKeywords     = 20
	maxBasicKeyword = 15
	maxQuestions    = 5
	wordsPerResult  = 5
)

var (
	wordPattern = regexp.MustCompile(`\p{L}{3,}`)

	stopWords = map[string]bool{
		"the": true, "and": true, "for": true, "with": true, "that": true,
		"this": true, "what": true, "how": true, "are": true, "from": true,
		"you": true, "your": true, "why": true, "who": true, "its": true,
		"что": true, "как": true, "для": true, "это": true, "или": true,
	}

	basicSEOWords = []string{"benefits", "drawbacks", "usage", "applications", "choosing"}
)

// TopicAnalysis is the keyword and question seed for outline generation.
type TopicAnalysis struct {
	Keywords  []string `json:"keywords"`
	Questions []string `json:"questions"`
}

// TopicAnalyzer discovers keywords and questions for a topic. It never
// fails: on any internal error it falls back to extraction from the topic.
type TopicAnalyzer interface {
	Analyze(ctx context.Context, topic string) TopicAnalysis
}

// BasicAnalysis extracts keywords from the topic string itself and fills in
// template questions.
func BasicAnalysis(topic string) TopicAnalysis {
	keywords := topicKeywords(topic)
	seen := make(map[string]bool, len(keywords))
	for _, k := range keywords {
		seen[k] = true
	}
	for _, w := range basicSEOWords {
		if !seen[w] {
			keywords = append(keywords, w)
		}
	}
	if len(keywords) > maxBasicKeyword {
		keywords = keywords[:maxBasicKeyword]
	}
	return TopicAnalysis{Keywords: keywords, Questions: templateQuestions(topic)}
}

// topicKeywords returns the distinct lowercased words of topic with at
// least three letters.
func topicKeywords(topic string) []string {
	var keywords []string
	seen := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(topic)) {
		w = strings.Trim(w, ".,;:!?\"'()")
		if len([]rune(w)) < 3 || seen[w] {
			continue
		}
		seen[w] = true
		keywords = append(keywords, w)
	}
	return keywords
}

func templateQuestions(topic string) []string {
	topic = strings.TrimSpace(topic)
	return []string{
		fmt.Sprintf("What is %s?", topic),
		fmt.Sprintf("How does %s work?", topic),
		fmt.Sprintf("Why does %s matter?", topic),
		fmt.Sprintf("Where is %s used?", topic),
		fmt.Sprintf("What are the benefits of %s?", topic),
	}
}

// SERPAnalyzer queries a SerpAPI-compatible search endpoint and mines the
// organic results for keywords.
type SERPAnalyzer struct {
	client   *resty.Client
	endpoint string
	apiKey   string
	language string
}

var _ TopicAnalyzer = (*SERPAnalyzer)(nil)

type serpResponse struct {
	OrganicResults []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic_results"`
	RelatedQuestions []struct {
		Question string `json:"question"`
	} `json:"related_questions"`
	Error string `json:"error"`
}

// NewSERPAnalyzer creates a SERPAnalyzer. Without an API key every call
// returns BasicAnalysis.
func NewSERPAnalyzer(cfg *config.TopicConfig) *SERPAnalyzer {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	language := cfg.Language
	if language == "" {
		language = "en"
	}
	return &SERPAnalyzer{
		client:   resty.New().SetTimeout(timeout),
		endpoint: cfg.Endpoint,
		apiKey:   cfg.SerpAPIKey,
		language: language,
	}
}

// Analyze implements TopicAnalyzer.
func (s *SERPAnalyzer) Analyze(ctx context.Context, topic string) TopicAnalysis {
	basic := BasicAnalysis(topic)
	if s.apiKey == "" || s.endpoint == "" {
		return basic
	}

	start := time.Now()
	var resp serpResponse
	httpResp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":       topic,
			"api_key": s.apiKey,
			"engine":  "google",
			"num":     "10",
			"hl":      s.language,
		}).
		SetResult(&resp).
		SetError(&resp).
		Get(s.endpoint)
	if err != nil {
		logger.CtxWarn(ctx, "Topic search failed, using topic keywords: %v", err)
		return basic
	}
	if httpResp.StatusCode() != 200 || resp.Error != "" {
		logger.CtxWarn(ctx, "Topic search returned status %d: %s", httpResp.StatusCode(), resp.Error)
		return basic
	}

	keywords := topicKeywords(topic)
	seen := make(map[string]bool, len(keywords))
	for _, k := range keywords {
		seen[k] = true
	}
	for _, r := range resp.OrganicResults {
		words := wordPattern.FindAllString(strings.ToLower(r.Title+" "+r.Snippet), -1)
		taken := 0
		for _, w := range words {
			if taken == wordsPerResult || len(keywords) == maxKeywords {
				break
			}
			if stopWords[w] || seen[w] {
				continue
			}
			seen[w] = true
			keywords = append(keywords, w)
			taken++
		}
	}

	if len(keywords) == 0 {
		keywords = basic.Keywords
	}

	questions := make([]string, 0, maxQuestions)
	for _, q := range resp.RelatedQuestions {
		if len(questions) == maxQuestions {
			break
		}
		if q.Question != "" {
			questions = append(questions, q.Question)
		}
	}
	if len(questions) == 0 {
		questions = basic.Questions
	}

	logger.With(logger.Fields{
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
		logger.FieldCount:      len(resp.OrganicResults),
	}).Debug(ctx, "Topic analyzed: keywords=%d, questions=%d", len(keywords), len(questions))

	return TopicAnalysis{Keywords: keywords, Questions: questions}
}
