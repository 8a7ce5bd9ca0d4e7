package report

import (
	"math"
	"sort"
	"strings"
	"time"

	"peerprep/interview/internal/models"
)

const maxScore = 10

type QuestionResult struct {
	QuestionID    string              `json:"questionId"`
	Text          string              `json:"text"`
	Type          models.QuestionType `json:"type"`
	Topic         string              `json:"topic"`
	Difficulty    models.Difficulty   `json:"difficulty"`
	Answered      bool                `json:"answered"`
	Skipped       bool                `json:"skipped"`
	Fallback      bool                `json:"fallback"`
	Score         *float64            `json:"score,omitempty"`
	FollowUpsUsed int                 `json:"followUpsUsed"`
	Feedback      string              `json:"feedback,omitempty"`
	Answer        string              `json:"answer,omitempty"`
}

type TopicScore struct {
	Topic     string  `json:"topic"`
	Average   float64 `json:"average"`
	Questions int     `json:"questions"`
}

// Report is the end-of-session summary shown to the candidate.
type Report struct {
	SessionID         string            `json:"sessionId"`
	Difficulty        models.Difficulty `json:"difficulty"`
	FinalDifficulty   models.Difficulty `json:"finalDifficulty"`
	OverallScore      *float64          `json:"overallScore,omitempty"`
	Percentage        *int              `json:"percentage,omitempty"`
	QuestionsTotal    int               `json:"questionsTotal"`
	QuestionsAnswered int               `json:"questionsAnswered"`
	QuestionsSkipped  int               `json:"questionsSkipped"`
	EndedEarly        bool              `json:"endedEarly"`
	Duration          string            `json:"duration,omitempty"`
	Questions         []QuestionResult  `json:"questions"`
	Topics            []TopicScore      `json:"topics"`
	Strengths         []string          `json:"strengths"`
	Gaps              []string          `json:"gaps"`
}

// Build summarizes a session. Questions that never got a terminal evaluation
// appear unscored and are left out of every average.
func Build(s models.InterviewSession) Report {
	r := Report{
		SessionID:       s.ID,
		Difficulty:      s.Config.Difficulty,
		FinalDifficulty: s.CurrentDifficulty,
		QuestionsTotal:  len(s.Questions),
		EndedEarly:      s.EndedEarly,
		Questions:       make([]QuestionResult, 0, len(s.Questions)),
		Topics:          []TopicScore{},
		Strengths:       []string{},
		Gaps:            []string{},
	}
	if s.CompletedAt != nil && !s.StartedAt.IsZero() {
		r.Duration = s.CompletedAt.Sub(s.StartedAt).Round(time.Second).String()
	}

	answers := make(map[string]models.Answer, len(s.Answers))
	for _, a := range s.Answers {
		answers[a.QuestionID] = a
	}
	byQuestion := make(map[string][]models.Evaluation)
	for _, e := range s.Evaluations {
		byQuestion[e.QuestionID] = append(byQuestion[e.QuestionID], e)
	}

	strengths := newOrderedSet()
	gaps := newOrderedSet()
	topicSums := make(map[string]float64)
	topicCounts := make(map[string]int)
	var topicOrder []string
	var scoreSum float64
	var scored int

	for _, q := range s.Questions {
		result := QuestionResult{
			QuestionID: q.ID,
			Text:       q.Text,
			Type:       q.Type,
			Topic:      q.Topic,
			Difficulty: q.Difficulty,
		}
		if a, ok := answers[q.ID]; ok {
			result.Answer = a.Text
		}
		for _, e := range byQuestion[q.ID] {
			if e.FollowUpIndex > result.FollowUpsUsed {
				result.FollowUpsUsed = e.FollowUpIndex
			}
			if e.Fallback {
				result.Fallback = true
			}
			strengths.add(e.Strengths...)
			gaps.add(e.Gaps...)
			if !e.Terminal {
				continue
			}
			score := e.Score
			result.Score = &score
			result.Feedback = e.Feedback
			result.Skipped = e.Skipped
			result.Answered = !e.Skipped
		}

		switch {
		case result.Skipped:
			r.QuestionsSkipped++
		case result.Answered:
			r.QuestionsAnswered++
		}
		if result.Score != nil {
			scoreSum += *result.Score
			scored++
			topic := q.Topic
			if topic == "" {
				topic = "general"
			}
			if _, seen := topicCounts[topic]; !seen {
				topicOrder = append(topicOrder, topic)
			}
			topicSums[topic] += *result.Score
			topicCounts[topic]++
		}
		r.Questions = append(r.Questions, result)
	}

	switch {
	case s.OverallScore != nil:
		v := *s.OverallScore
		r.OverallScore = &v
	case scored > 0:
		v := round1(scoreSum / float64(scored))
		r.OverallScore = &v
	}
	if r.OverallScore != nil {
		pct := int(math.Round(*r.OverallScore / maxScore * 100))
		r.Percentage = &pct
	}

	for _, topic := range topicOrder {
		r.Topics = append(r.Topics, TopicScore{
			Topic:     topic,
			Average:   round1(topicSums[topic] / float64(topicCounts[topic])),
			Questions: topicCounts[topic],
		})
	}
	sort.SliceStable(r.Topics, func(i, j int) bool { return r.Topics[i].Average > r.Topics[j].Average })

	r.Strengths = strengths.items
	r.Gaps = gaps.items
	return r
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

// orderedSet keeps first-seen order and dedupes case-insensitively.
type orderedSet struct {
	seen  map[string]bool
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]bool), items: []string{}}
}

func (s *orderedSet) add(values ...string) {
	for _, v := range values {
		v = strings.TrimSpace(v)
		key := strings.ToLower(v)
		if v == "" || s.seen[key] {
			continue
		}
		s.seen[key] = true
		s.items = append(s.items, v)
	}
}
