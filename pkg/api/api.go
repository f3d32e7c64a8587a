package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"

	"github.com/newdaksh/FB-explorer/pkg/feed"
	"github.com/newdaksh/FB-explorer/pkg/models"
	"github.com/newdaksh/FB-explorer/pkg/storage"
	"github.com/newdaksh/FB-explorer/pkg/summary"
)

// CommentSource walks a post's full comment history upstream. Implemented
// by graph.Client.
type CommentSource interface {
	AllComments(ctx context.Context, postID string) ([]models.Comment, error)
}

// Summarizer produces the comment summary for the analyze endpoint.
// Implemented by summary.Summarizer.
type Summarizer interface {
	Summarize(ctx context.Context, comments []models.Comment) (summary.Result, error)
}

type API struct {
	ServiceName string

	r          *mux.Router
	db         storage.Storage
	feed       *feed.Feed
	comments   CommentSource
	summarizer Summarizer
	kw         *kafka.Writer
	staticDir  string
}

func New(name string, db storage.Storage, f *feed.Feed, comments CommentSource, summarizer Summarizer, kafkaWriter *kafka.Writer, staticDir string) *API {
	api := API{
		ServiceName: name,
		r:           mux.NewRouter(),
		db:          db,
		feed:        f,
		comments:    comments,
		summarizer:  summarizer,
		kw:          kafkaWriter,
		staticDir:   staticDir,
	}
	api.endpoints()

	return &api
}

func (api *API) Router() *mux.Router {
	return api.r
}

func (api *API) endpoints() {
	api.r.Use(api.requestIDMiddleware)
	if api.kw != nil {
		api.r.Use(api.loggingMiddleware(api.kw))
	}

	rest := api.r.PathPrefix("/api").Subrouter()
	rest.Use(api.headerMiddleware)
	rest.HandleFunc("/posts", api.savePostsHandler).Methods(http.MethodPost)
	rest.HandleFunc("/posts", api.listPostsHandler).Methods(http.MethodGet)
	rest.HandleFunc("/analyze-comments", api.analyzeCommentsHandler).Methods(http.MethodPost)
	rest.HandleFunc("/health", api.healthHandler).Methods(http.MethodGet)

	fd := api.r.PathPrefix("/feed").Subrouter()
	fd.Use(api.headerMiddleware)
	fd.HandleFunc("/refresh", api.refreshFeedHandler).Methods(http.MethodPost)
	fd.HandleFunc("/posts", api.feedPostsHandler).Methods(http.MethodGet)
	fd.HandleFunc("/posts/{id}/comments/toggle", api.toggleCommentsHandler).Methods(http.MethodPost)
	fd.HandleFunc("/posts/{id}/comments/page", api.commentsPageHandler).Methods(http.MethodPost)
	fd.HandleFunc("/posts/{id}/attachments/toggle", api.toggleAttachmentsHandler).Methods(http.MethodPost)
	fd.HandleFunc("/posts/{id}/attachments", api.attachmentsPageHandler).Methods(http.MethodGet)

	// The dashboard itself, when a static dir is configured. Served without
	// the JSON header middleware.
	if api.staticDir != "" {
		api.r.PathPrefix("/").Handler(http.FileServer(http.Dir(api.staticDir)))
	}
}

// savePostsHandler receives a batch of client-side post summaries, re-fetches
// each post's complete comment history from the upstream gateway (the
// client's partial page cache is ignored) and upserts one denormalized
// document per post. One post's failure does not abort the batch.
func (api *API) savePostsHandler(w http.ResponseWriter, r *http.Request) {
	reqID := GetRequestID(r.Context())
	sID := shorten(reqID)

	var req savePostsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Posts array is required"})
		log.Debugf("[savePostsHandler][%s] failed to decode request body: %v", sID, err)
		return
	}
	defer r.Body.Close()

	if req.Posts == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Posts array is required"})
		log.Debugf("[savePostsHandler][%s] request without posts array", sID)
		return
	}

	results := make([]postResult, 0, len(req.Posts))
	for _, p := range req.Posts {
		result := api.savePost(r.Context(), p)
		if !result.Success {
			log.Errorf("[savePostsHandler][%s] failed to process post %s: %s", sID, p.ID, result.Error)
		}
		results = append(results, result)
	}

	successCount := 0
	for _, res := range results {
		if res.Success {
			successCount++
		}
	}
	errorCount := len(results) - successCount

	resp := savePostsResponse{
		Success: errorCount == 0,
		Message: fmt.Sprintf("Processed %d posts. %d successful, %d failed.", len(results), successCount, errorCount),
		Results: results,
	}
	writeJSON(w, http.StatusOK, resp)
	log.Debugf("[savePostsHandler][%s] %s", sID, resp.Message)
}

// savePost walks the full comment history for one post and upserts the
// document. The stored commentCount is the actual fetched count, which may
// disagree with the upstream summary hint.
func (api *API) savePost(ctx context.Context, p postPayload) postResult {
	allComments, err := api.comments.AllComments(ctx, p.ID)
	if err != nil {
		return postResult{PostID: p.ID, Error: err.Error()}
	}

	attachments := p.Attachments
	if attachments == nil {
		attachments = []models.Attachment{}
	}
	if allComments == nil {
		allComments = []models.Comment{}
	}

	created, err := api.db.UpsertPost(ctx, models.StoredPost{
		PostID:       p.ID,
		Message:      p.Message,
		CreatedTime:  p.CreatedTime,
		CommentCount: len(allComments),
		Comments:     allComments,
		Attachments:  attachments,
		LastUpdated:  time.Now().UTC(),
	})
	if err != nil {
		return postResult{PostID: p.ID, Error: err.Error()}
	}

	operation := "updated"
	if created {
		operation = "created"
	}

	return postResult{PostID: p.ID, Success: true, Operation: operation}
}

func (api *API) listPostsHandler(w http.ResponseWriter, r *http.Request) {
	reqID := GetRequestID(r.Context())
	sID := shorten(reqID)

	posts, err := api.db.Posts(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to fetch posts: " + err.Error()})
		log.Errorf("[listPostsHandler][%s] Posts() returned error: %v", sID, err)
		return
	}

	writeJSON(w, http.StatusOK, listPostsResponse{Success: true, Posts: posts})
	log.Debugf("[listPostsHandler][%s] %d posts sent to: %v", sID, len(posts), r.RemoteAddr)
}

// analyzeCommentsHandler loads the stored post and summarizes its comment
// text. A post with no analyzable text yields the fixed degenerate result
// and zero inference calls.
func (api *API) analyzeCommentsHandler(w http.ResponseWriter, r *http.Request) {
	reqID := GetRequestID(r.Context())
	sID := shorten(reqID)

	var req analyzeCommentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PostID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Post ID is required"})
		log.Debugf("[analyzeCommentsHandler][%s] missing post ID: %v", sID, err)
		return
	}
	defer r.Body.Close()

	post, err := api.db.Post(r.Context(), req.PostID)
	if err != nil {
		if errors.Is(err, storage.ErrPostNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "Post not found"})
			log.Debugf("[analyzeCommentsHandler][%s] post %s not stored", sID, req.PostID)
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error: " + err.Error()})
		log.Errorf("[analyzeCommentsHandler][%s] Post() returned error: %v", sID, err)
		return
	}

	result, err := api.summarizer.Summarize(r.Context(), post.Comments)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to analyze comments with Ollama API"})
		log.Errorf("[analyzeCommentsHandler][%s] inference call failed for post %s: %v", sID, req.PostID, err)
		return
	}

	writeJSON(w, http.StatusOK, analyzeCommentsResponse{
		Success:      true,
		Summary:      result.Summary,
		CommentCount: result.CommentCount,
	})
	log.Debugf("[analyzeCommentsHandler][%s] summarized %d comments of post %s", sID, result.CommentCount, req.PostID)
}

func (api *API) healthHandler(w http.ResponseWriter, r *http.Request) {
	dbStatus := "connected"
	if err := api.db.Ping(r.Context()); err != nil {
		dbStatus = "disconnected"
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Success:   true,
		Message:   "Server is running",
		Database:  dbStatus,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("[writeJSON] failed to encode response: %v", err)
	}
}
