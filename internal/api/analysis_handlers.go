package api

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/qnalytics/qna-crawler/internal/analytics"
	"github.com/qnalytics/qna-crawler/internal/cache"
	"github.com/qnalytics/qna-crawler/internal/crawler"
	"github.com/qnalytics/qna-crawler/internal/metrics"
)

// Default TTLs per analytics endpoint, overridable per request via the
// cache_ttl query parameter.
const (
	dashboardTTL = time.Hour
	trendsTTL    = 2 * time.Hour
	usersTTL     = time.Hour
	tagsTTL      = 2 * time.Hour
)

type dashboardPayload struct {
	TotalQuestions int                      `json:"total_questions"`
	BasicStats     crawler.BasicStats       `json:"basic_stats"`
	TopQuestions   []crawler.QuestionRecord `json:"top_questions"`
	TopUsers       []crawler.UserStats      `json:"top_users"`
	TopTags        []crawler.TagCount       `json:"top_tags"`
	CompletedAt    time.Time                `json:"completed_at"`
}

func (s *Server) getDashboard(w http.ResponseWriter, r *http.Request) {
	s.serveCached(w, r, cache.Key("dashboard"), dashboardTTL, func(doc *crawler.ResultDocument) any {
		return dashboardPayload{
			TotalQuestions: doc.TotalQuestions,
			BasicStats:     doc.BasicStats,
			TopQuestions:   doc.TopQuestions,
			TopUsers:       doc.TopUsers,
			TopTags:        doc.TopTags,
			CompletedAt:    doc.CompletedAt,
		}
	})
}

func (s *Server) getTrends(w http.ResponseWriter, r *http.Request) {
	granularity := r.URL.Query().Get("granularity")
	if granularity == "" {
		granularity = analytics.GranularityMonthly
	}
	s.serveCached(w, r, cache.Key("trends", granularity), trendsTTL, func(doc *crawler.ResultDocument) any {
		return analytics.ComputeTrends(doc.Questions, granularity)
	})
}

func (s *Server) getUsers(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 10)
	s.serveCached(w, r, cache.Key("users", limit), usersTTL, func(doc *crawler.ResultDocument) any {
		return analytics.ComputeUserAnalysis(doc.Questions, limit)
	})
}

func (s *Server) getTags(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 15)
	s.serveCached(w, r, cache.Key("tags", limit), tagsTTL, func(doc *crawler.ResultDocument) any {
		tags := analytics.TopTags(doc.Questions, limit)
		return map[string]any{"total_tags": len(tags), "tags": tags}
	})
}

type questionsPayload struct {
	Total     int                      `json:"total"`
	Page      int                      `json:"page"`
	Limit     int                      `json:"limit"`
	Questions []crawler.QuestionRecord `json:"questions"`
}

// getQuestions serves the raw dataset with title search, sort and
// pagination. It always reads the latest archive directly; result sets
// vary too much per request to be worth caching.
func (s *Server) getQuestions(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.latestDataset(w)
	if doc == nil {
		if ok {
			writeData(w, http.StatusOK, questionsPayload{Page: 1, Limit: 20, Questions: []crawler.QuestionRecord{}})
		}
		return
	}

	questions := append([]crawler.QuestionRecord(nil), doc.Questions...)

	if search := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("search"))); search != "" {
		filtered := questions[:0]
		for _, q := range questions {
			if strings.Contains(strings.ToLower(q.Title), search) {
				filtered = append(filtered, q)
			}
		}
		questions = filtered
	}

	sortQuestions(questions, r.URL.Query().Get("sort_by"), r.URL.Query().Get("order"))

	page := queryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}
	limit := queryInt(r, "limit", 20)
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	total := len(questions)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	writeData(w, http.StatusOK, questionsPayload{
		Total:     total,
		Page:      page,
		Limit:     limit,
		Questions: questions[start:end],
	})
}

func sortQuestions(questions []crawler.QuestionRecord, sortBy, order string) {
	asc := order == "asc"
	var less func(a, b crawler.QuestionRecord) bool
	switch sortBy {
	case "likes":
		less = func(a, b crawler.QuestionRecord) bool { return a.Likes < b.Likes }
	case "answers":
		less = func(a, b crawler.QuestionRecord) bool { return a.Answers < b.Answers }
	case "time":
		less = func(a, b crawler.QuestionRecord) bool { return a.PreciseTime < b.PreciseTime }
	default:
		less = func(a, b crawler.QuestionRecord) bool { return a.Views < b.Views }
	}
	sort.SliceStable(questions, func(i, j int) bool {
		if asc {
			return less(questions[i], questions[j])
		}
		return less(questions[j], questions[i])
	})
}

// serveCached answers an analytics request from the cache when possible,
// otherwise computes the payload from the latest dataset and stores it.
func (s *Server) serveCached(
	w http.ResponseWriter,
	r *http.Request,
	key string,
	defaultTTL time.Duration,
	build func(doc *crawler.ResultDocument) any,
) {
	useCache, ttl := cacheParams(r, defaultTTL)

	if useCache {
		if raw, hit := s.cache.Get(key); hit {
			metrics.ObserveCacheLookup(true)
			writeData(w, http.StatusOK, json.RawMessage(raw))
			return
		}
		metrics.ObserveCacheLookup(false)
	}

	doc, ok := s.latestDataset(w)
	if doc == nil {
		if ok {
			writeEnvelope(w, http.StatusOK, envelope{Code: http.StatusOK, Message: "no data available"})
		}
		return
	}

	payload := build(doc)
	raw, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("marshal analytics payload failed", zap.String("key", key), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to encode payload")
		return
	}
	if useCache {
		s.cache.Set(key, raw, ttl)
	}
	writeData(w, http.StatusOK, json.RawMessage(raw))
}

// latestDataset loads the most recent archived document. The second return
// distinguishes a clean miss (nil, true) from a write already sent to the
// client (nil, false).
func (s *Server) latestDataset(w http.ResponseWriter) (*crawler.ResultDocument, bool) {
	doc, ok, err := s.archive.Latest()
	if err != nil {
		s.logger.Error("archive read failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read archived results")
		return nil, false
	}
	if !ok {
		return nil, true
	}
	return doc, true
}

func cacheParams(r *http.Request, defaultTTL time.Duration) (bool, time.Duration) {
	useCache := true
	switch strings.ToLower(r.URL.Query().Get("use_cache")) {
	case "false", "0", "no":
		useCache = false
	}
	ttl := defaultTTL
	if raw := r.URL.Query().Get("cache_ttl"); raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
			ttl = time.Duration(secs) * time.Second
		}
	}
	return useCache, ttl
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
