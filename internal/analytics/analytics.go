// Package analytics computes aggregates over a harvested dataset. All
// functions are pure; an empty dataset yields zero values and empty
// slices, never an error.
package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/qnalytics/qna-crawler/internal/crawler"
)

// Granularity buckets for trend aggregation.
const (
	GranularityDaily   = "daily"
	GranularityWeekly  = "weekly"
	GranularityMonthly = "monthly"
)

// BasicStats computes the headline counters for a dataset.
func BasicStats(questions []crawler.QuestionRecord) crawler.BasicStats {
	if len(questions) == 0 {
		return crawler.BasicStats{}
	}
	stats := crawler.BasicStats{
		TotalQuestions: len(questions),
		MinViews:       questions[0].Views,
	}
	users := make(map[string]struct{})
	for _, q := range questions {
		stats.TotalViews += q.Views
		stats.TotalLikes += q.Likes
		stats.TotalAnswers += q.Answers
		stats.TotalReputation += q.Reputation
		users[q.Author] = struct{}{}
		if q.Views > stats.MaxViews {
			stats.MaxViews = q.Views
		}
		if q.Views < stats.MinViews {
			stats.MinViews = q.Views
		}
	}
	stats.TotalUsers = len(users)
	n := float64(len(questions))
	stats.AvgViews = float64(stats.TotalViews) / n
	stats.AvgLikes = float64(stats.TotalLikes) / n
	stats.AvgAnswers = float64(stats.TotalAnswers) / n
	return stats
}

// TopQuestions returns the limit most-viewed questions.
func TopQuestions(questions []crawler.QuestionRecord, limit int) []crawler.QuestionRecord {
	if len(questions) == 0 || limit <= 0 {
		return []crawler.QuestionRecord{}
	}
	sorted := append([]crawler.QuestionRecord(nil), questions...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Views > sorted[j].Views
	})
	if limit > len(sorted) {
		limit = len(sorted)
	}
	return sorted[:limit]
}

// TopUsers groups questions by author and returns the limit most prolific
// authors: question count, summed engagement, highest observed reputation.
func TopUsers(questions []crawler.QuestionRecord, limit int) []crawler.UserStats {
	stats := groupByUser(questions)
	if limit > len(stats) {
		limit = len(stats)
	}
	if limit < 0 {
		limit = 0
	}
	return stats[:limit]
}

// TopTags counts tag occurrences and returns the limit most common,
// breaking count ties by first appearance.
func TopTags(questions []crawler.QuestionRecord, limit int) []crawler.TagCount {
	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	order := 0
	for _, q := range questions {
		for _, tag := range q.Tags {
			if _, seen := counts[tag]; !seen {
				firstSeen[tag] = order
				order++
			}
			counts[tag]++
		}
	}
	tags := make([]crawler.TagCount, 0, len(counts))
	for tag, count := range counts {
		tags = append(tags, crawler.TagCount{Tag: tag, Count: count})
	}
	sort.SliceStable(tags, func(i, j int) bool {
		if tags[i].Count != tags[j].Count {
			return tags[i].Count > tags[j].Count
		}
		return firstSeen[tags[i].Tag] < firstSeen[tags[j].Tag]
	})
	if limit > 0 && limit < len(tags) {
		tags = tags[:limit]
	}
	return tags
}

// TrendPoint is one period's aggregate.
type TrendPoint struct {
	Period        string `json:"period"`
	QuestionCount int    `json:"question_count"`
	TotalViews    int    `json:"total_views"`
	TotalLikes    int    `json:"total_likes"`
	TotalAnswers  int    `json:"total_answers"`
}

// Trends buckets questions by their precise timestamp. Records whose
// precise time is absent or unparseable are excluded from the aggregation.
type Trends struct {
	Granularity string       `json:"granularity"`
	Data        []TrendPoint `json:"data"`
}

// ComputeTrends aggregates per period at the given granularity.
func ComputeTrends(questions []crawler.QuestionRecord, granularity string) Trends {
	switch granularity {
	case GranularityDaily, GranularityWeekly, GranularityMonthly:
	default:
		granularity = GranularityMonthly
	}
	buckets := make(map[string]*TrendPoint)
	for _, q := range questions {
		ts, ok := parsePreciseTime(q.PreciseTime)
		if !ok {
			continue
		}
		period := formatPeriod(ts, granularity)
		point := buckets[period]
		if point == nil {
			point = &TrendPoint{Period: period}
			buckets[period] = point
		}
		point.QuestionCount++
		point.TotalViews += q.Views
		point.TotalLikes += q.Likes
		point.TotalAnswers += q.Answers
	}
	data := make([]TrendPoint, 0, len(buckets))
	for _, point := range buckets {
		data = append(data, *point)
	}
	sort.Slice(data, func(i, j int) bool { return data[i].Period < data[j].Period })
	return Trends{Granularity: granularity, Data: data}
}

// UserAnalysis is the full per-user breakdown.
type UserAnalysis struct {
	TotalUsers          int                 `json:"total_users"`
	AvgQuestionsPerUser float64             `json:"avg_questions_per_user"`
	Users               []crawler.UserStats `json:"users"`
}

// ComputeUserAnalysis ranks authors by question count.
func ComputeUserAnalysis(questions []crawler.QuestionRecord, limit int) UserAnalysis {
	stats := groupByUser(questions)
	if len(stats) == 0 {
		return UserAnalysis{Users: []crawler.UserStats{}}
	}
	total := 0
	for _, s := range stats {
		total += s.QuestionCount
	}
	if limit > len(stats) {
		limit = len(stats)
	}
	if limit < 0 {
		limit = 0
	}
	top := make([]crawler.UserStats, limit)
	for i := range top {
		top[i] = stats[i]
		top[i].Rank = i + 1
	}
	return UserAnalysis{
		TotalUsers:          len(stats),
		AvgQuestionsPerUser: float64(total) / float64(len(stats)),
		Users:               top,
	}
}

func groupByUser(questions []crawler.QuestionRecord) []crawler.UserStats {
	byUser := make(map[string]*crawler.UserStats)
	firstSeen := make(map[string]int)
	order := 0
	for _, q := range questions {
		s := byUser[q.Author]
		if s == nil {
			s = &crawler.UserStats{User: q.Author}
			byUser[q.Author] = s
			firstSeen[q.Author] = order
			order++
		}
		s.QuestionCount++
		s.TotalViews += q.Views
		s.TotalLikes += q.Likes
		s.TotalAnswers += q.Answers
		if q.Reputation > s.Reputation {
			s.Reputation = q.Reputation
		}
	}
	stats := make([]crawler.UserStats, 0, len(byUser))
	for _, s := range byUser {
		stats = append(stats, *s)
	}
	sort.SliceStable(stats, func(i, j int) bool {
		if stats[i].QuestionCount != stats[j].QuestionCount {
			return stats[i].QuestionCount > stats[j].QuestionCount
		}
		return firstSeen[stats[i].User] < firstSeen[stats[j].User]
	})
	return stats
}

func parsePreciseTime(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func formatPeriod(ts time.Time, granularity string) string {
	switch granularity {
	case GranularityDaily:
		return ts.Format("2006-01-02")
	case GranularityWeekly:
		year, week := ts.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	default:
		return ts.Format("2006-01")
	}
}

// BuildResult assembles the self-contained per-task document from a
// dataset: the dataset itself plus every derived aggregate the dashboard
// serves.
func BuildResult(questions []crawler.QuestionRecord, completedAt time.Time) *crawler.ResultDocument {
	if questions == nil {
		questions = []crawler.QuestionRecord{}
	}
	return &crawler.ResultDocument{
		TotalQuestions: len(questions),
		BasicStats:     BasicStats(questions),
		TopQuestions:   TopQuestions(questions, 10),
		TopUsers:       TopUsers(questions, 5),
		TopTags:        TopTags(questions, 15),
		Questions:      questions,
		CompletedAt:    completedAt,
	}
}
