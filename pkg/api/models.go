package api

import (
	"time"

	"github.com/newdaksh/FB-explorer/pkg/models"
)

// Relay request/response shapes. The /api contract matches what the
// dashboard client sends and expects.

type savePostsRequest struct {
	Posts []postPayload `json:"posts"`
}

// postPayload is one client-side post summary: identity, message, timestamp
// and whatever attachments the client had loaded. The comment history is
// deliberately NOT taken from the client; the relay re-fetches it in full.
type postPayload struct {
	ID          string              `json:"id"`
	Message     string              `json:"message"`
	CreatedTime string              `json:"created_time"`
	Attachments []models.Attachment `json:"attachments"`
}

type postResult struct {
	PostID    string `json:"postId"`
	Success   bool   `json:"success"`
	Operation string `json:"operation,omitempty"` // "created" or "updated"
	Error     string `json:"error,omitempty"`
}

type savePostsResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Results []postResult `json:"results"`
}

type listPostsResponse struct {
	Success bool                `json:"success"`
	Posts   []models.StoredPost `json:"posts"`
}

type analyzeCommentsRequest struct {
	PostID string `json:"postId"`
}

type analyzeCommentsResponse struct {
	Success      bool   `json:"success"`
	Summary      string `json:"summary"`
	CommentCount int    `json:"commentCount,omitempty"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type healthResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	// The field name predates the pluggable backends and the dashboard
	// still reads it, whichever store is active.
	Database  string `json:"mongodb"` // "connected" or "disconnected"
	Timestamp string `json:"timestamp"`
}

type commentsPageRequest struct {
	Page int `json:"page"`
}

// LogEntry is the request log record shipped to Kafka and indexed by the
// logkeeper binary.
type LogEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	IP         string    `json:"ip"`
	StatusCode int       `json:"status_code"`
	RequestID  string    `json:"request_id"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	Duration   float64   `json:"duration_sec"`
	Service    string    `json:"service"`
}
