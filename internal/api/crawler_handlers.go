package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/qnalytics/qna-crawler/internal/crawler"
)

type startCrawlRequest struct {
	MaxPages  *int  `json:"max_pages"`
	Timeout   *int  `json:"timeout"`
	AsyncMode *bool `json:"async_mode"`
}

// startCrawl submits a crawl. The default asynchronous path enqueues the
// task and answers immediately; async_mode=false runs the crawl inline and
// answers with the settled task.
func (s *Server) startCrawl(w http.ResponseWriter, r *http.Request) {
	var req startCrawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	maxPages := s.cfg.Crawler.MaxPagesDefault
	if req.MaxPages != nil {
		maxPages = *req.MaxPages
	}
	if maxPages < 1 || maxPages > s.cfg.Crawler.MaxPagesLimit {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("max_pages must be between 1 and %d", s.cfg.Crawler.MaxPagesLimit))
		return
	}
	timeout := s.cfg.FetchTimeout()
	if req.Timeout != nil && *req.Timeout > 0 {
		timeout = time.Duration(*req.Timeout) * time.Second
	}
	async := true
	if req.AsyncMode != nil {
		async = *req.AsyncMode
	}

	taskID, err := s.idGen.NewTaskID()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate task id")
		return
	}
	s.registry.Create(taskID, maxPages)

	crawlReq := crawler.CrawlRequest{
		TaskID:    taskID,
		Params:    crawler.TaskParameters{MaxPages: maxPages, Timeout: timeout},
		Submitted: s.clock.Now().Unix(),
	}

	if !async {
		s.runner.Process(r.Context(), crawlReq)
		snapshot, ok := s.registry.Get(taskID)
		if !ok {
			writeError(w, http.StatusInternalServerError, "task vanished during crawl")
			return
		}
		if snapshot.Status == crawler.TaskStatusFailed {
			writeEnvelope(w, http.StatusInternalServerError, envelope{
				Code:    http.StatusInternalServerError,
				Message: snapshot.Error,
				Data:    snapshot,
			})
			return
		}
		writeData(w, http.StatusOK, snapshot)
		return
	}

	queueCtx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := s.dispatcher.Enqueue(queueCtx, crawlReq); err != nil {
		s.logger.Error("enqueue failed", zap.String("task_id", taskID), zap.Error(err))
		s.registry.Fail(taskID, "queue full or unavailable")
		writeError(w, http.StatusServiceUnavailable, "crawl queue unavailable")
		return
	}

	writeData(w, http.StatusAccepted, map[string]any{
		"task_id":  taskID,
		"status":   crawler.TaskStatusRunning,
		"progress": 0,
		"message":  "crawl task accepted",
	})
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "task_id")
	snapshot, ok := s.registry.Get(taskID)
	if !ok {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeData(w, http.StatusOK, snapshot)
}

// stopTask requests cooperative termination. Stopping an already settled
// task is acknowledged without effect.
func (s *Server) stopTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "task_id")
	if !s.registry.RequestStop(taskID) {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeData(w, http.StatusOK, map[string]string{
		"task_id": taskID,
		"status":  string(crawler.TaskStatusStopped),
	})
}
