package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/newdaksh/FB-explorer/pkg/feed"
)

// Feed handlers: the dashboard's action dispatch surface. Pagination
// failures are not HTTP failures — they land on the affected post record and
// come back inside the panel view, so the control stays re-invokable.

func (api *API) refreshFeedHandler(w http.ResponseWriter, r *http.Request) {
	reqID := GetRequestID(r.Context())
	sID := shorten(reqID)

	if err := api.feed.Refresh(r.Context()); err != nil {
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		log.Errorf("[refreshFeedHandler][%s] failed to fetch post list: %v", sID, err)
		return
	}

	cards := api.feed.Cards()
	writeJSON(w, http.StatusOK, cards)
	log.Debugf("[refreshFeedHandler][%s] feed replaced with %d posts", sID, len(cards))
}

func (api *API) feedPostsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.feed.Cards())
}

func (api *API) toggleCommentsHandler(w http.ResponseWriter, r *http.Request) {
	reqID := GetRequestID(r.Context())
	sID := shorten(reqID)
	postID := mux.Vars(r)["id"]

	if err := api.feed.ToggleComments(r.Context(), postID); err != nil {
		if errors.Is(err, feed.ErrPostNotFound) {
			http.Error(w, "Post not found", http.StatusNotFound)
			return
		}
		// Fetch errors are recorded on the post; fall through to the panel.
		log.Debugf("[toggleCommentsHandler][%s] comment fetch for %s failed: %v", sID, postID, err)
	}

	api.writeCommentPanel(w, postID)
}

func (api *API) commentsPageHandler(w http.ResponseWriter, r *http.Request) {
	reqID := GetRequestID(r.Context())
	sID := shorten(reqID)
	postID := mux.Vars(r)["id"]

	var req commentsPageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Page < 1 {
		http.Error(w, "Page number >= 1 is required", http.StatusBadRequest)
		log.Debugf("[commentsPageHandler][%s] invalid page request: %v", sID, err)
		return
	}
	defer r.Body.Close()

	if err := api.feed.EnsureCommentsPage(r.Context(), postID, req.Page); err != nil {
		if errors.Is(err, feed.ErrPostNotFound) {
			http.Error(w, "Post not found", http.StatusNotFound)
			return
		}
		log.Debugf("[commentsPageHandler][%s] page walk for %s failed: %v", sID, postID, err)
	}

	api.writeCommentPanel(w, postID)
}

func (api *API) toggleAttachmentsHandler(w http.ResponseWriter, r *http.Request) {
	reqID := GetRequestID(r.Context())
	sID := shorten(reqID)
	postID := mux.Vars(r)["id"]

	if err := api.feed.ToggleAttachments(r.Context(), postID); err != nil {
		if errors.Is(err, feed.ErrPostNotFound) {
			http.Error(w, "Post not found", http.StatusNotFound)
			return
		}
		log.Debugf("[toggleAttachmentsHandler][%s] attachment fetch for %s failed: %v", sID, postID, err)
	}

	api.writeAttachmentPanel(w, postID, 1)
}

func (api *API) attachmentsPageHandler(w http.ResponseWriter, r *http.Request) {
	postID := mux.Vars(r)["id"]

	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	api.writeAttachmentPanel(w, postID, page)
}

func (api *API) writeCommentPanel(w http.ResponseWriter, postID string) {
	panel, err := api.feed.CommentPanel(postID)
	if err != nil {
		http.Error(w, "Post not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, panel)
}

func (api *API) writeAttachmentPanel(w http.ResponseWriter, postID string, page int) {
	panel, err := api.feed.AttachmentPanel(postID, page)
	if err != nil {
		http.Error(w, "Post not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, panel)
}
