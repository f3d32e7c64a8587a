package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/newdaksh/FB-explorer/pkg/models"
)

// Field sets requested from the upstream API. Fixed so every fetch of the
// same resource returns the same shape.
const (
	postFields       = "message,created_time,comments.summary(true).limit(0)"
	commentFields    = "from,message,created_time"
	attachmentFields = "attachments{media,media_type,subattachments,description,title,url}"

	// allCommentsLimit is the page size used when walking a comment chain to
	// exhaustion for persistence. Larger than the dashboard page sizes to
	// keep the number of round-trips down.
	allCommentsLimit = 100

	defaultTimeout = 10 * time.Second

	// unknownAuthor is used when the upstream redacts the comment author.
	unknownAuthor = "Unknown"
)

// Config carries the upstream API coordinates. The access token is injected
// here at process start, never embedded as a constant.
type Config struct {
	BaseURL     string
	PageID      string
	AccessToken string
}

func (c *Config) IsValid() bool {
	return c.BaseURL != "" && c.PageID != "" && c.AccessToken != ""
}

func (c Config) String() string {
	var sb strings.Builder
	for i := 0; i < len([]rune(c.AccessToken)); i++ {
		sb.WriteString("*")
	}
	c.AccessToken = sb.String()

	return fmt.Sprintf("%#v", c)
}

// RequestError is a normalized upstream failure: the message comes from the
// error body when the upstream sent one, else from the HTTP status line.
type RequestError struct {
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	return e.Message
}

// Client is the read-only gateway to the social graph API. It holds no
// cache; every method is a single request/response exchange except
// AllComments, which walks the cursor chain.
type Client struct {
	conf   Config
	client *http.Client
}

func New(conf Config) *Client {
	return &Client{
		conf:   conf,
		client: &http.Client{Timeout: defaultTimeout},
	}
}

// Posts returns the upstream post list with the per-post comment summary
// count. The count is a hint only; no comment data is fetched here.
func (c *Client) Posts(ctx context.Context) ([]models.PostSummary, error) {
	v := url.Values{}
	v.Set("fields", postFields)
	v.Set("access_token", c.conf.AccessToken)
	u := fmt.Sprintf("%s/%s/posts?%s", c.conf.BaseURL, c.conf.PageID, v.Encode())

	var pr postsResponse
	if err := c.get(ctx, u, &pr); err != nil {
		return nil, err
	}

	posts := make([]models.PostSummary, 0, len(pr.Data))
	for _, p := range pr.Data {
		count := 0
		if p.Comments != nil && p.Comments.Summary != nil {
			count = p.Comments.Summary.TotalCount
		}
		posts = append(posts, models.PostSummary{
			ID:           p.ID,
			Message:      p.Message,
			CreatedTime:  p.CreatedTime,
			CommentCount: count,
		})
	}

	return posts, nil
}

// Attachments fetches the attachment edge of a post and returns the raw
// nested tree in upstream order.
func (c *Client) Attachments(ctx context.Context, postID string) ([]AttachmentNode, error) {
	v := url.Values{}
	v.Set("fields", attachmentFields)
	v.Set("access_token", c.conf.AccessToken)
	u := fmt.Sprintf("%s/%s?%s", c.conf.BaseURL, url.PathEscape(postID), v.Encode())

	var ar attachmentsResponse
	if err := c.get(ctx, u, &ar); err != nil {
		return nil, err
	}
	if ar.Attachments == nil {
		return nil, nil
	}

	return ar.Attachments.Data, nil
}

// CommentsPage fetches one cursor page of comments. An empty after starts at
// the beginning of the chain. The returned page's After cursor is empty when
// the chain ends at this page.
func (c *Client) CommentsPage(ctx context.Context, postID string, limit int, after string) (models.CommentPage, error) {
	v := url.Values{}
	v.Set("fields", commentFields)
	v.Set("limit", strconv.Itoa(limit))
	if after != "" {
		v.Set("after", after)
	}
	v.Set("access_token", c.conf.AccessToken)
	u := fmt.Sprintf("%s/%s/comments?%s", c.conf.BaseURL, url.PathEscape(postID), v.Encode())

	var cr commentsResponse
	if err := c.get(ctx, u, &cr); err != nil {
		return models.CommentPage{}, err
	}

	page := models.CommentPage{Data: make([]models.Comment, 0, len(cr.Data))}
	for _, e := range cr.Data {
		name := unknownAuthor
		if e.From != nil && e.From.Name != "" {
			name = e.From.Name
		}
		page.Data = append(page.Data, models.Comment{
			ID:          e.ID,
			FromName:    name,
			Message:     e.Message,
			CreatedTime: e.CreatedTime,
		})
	}
	if cr.Paging != nil && cr.Paging.Cursors != nil {
		page.Cursors = models.Cursors{
			Before: cr.Paging.Cursors.Before,
			After:  cr.Paging.Cursors.After,
		}
	}

	return page, nil
}

// AllComments walks the comment cursor chain of a post to exhaustion and
// returns the complete history. Used by the persistence relay, which ignores
// whatever partial pages the dashboard has cached.
func (c *Client) AllComments(ctx context.Context, postID string) ([]models.Comment, error) {
	var all []models.Comment
	after := ""
	for {
		page, err := c.CommentsPage(ctx, postID, allCommentsLimit, after)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Data...)
		if page.Cursors.After == "" {
			return all, nil
		}
		after = page.Cursors.After
	}
}

func (c *Client) get(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return normalizeError(resp)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// normalizeError converts a non-success upstream response into a
// RequestError, preferring the message from the error body when parseable.
func normalizeError(resp *http.Response) error {
	msg := fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err == nil && er.Error != nil && er.Error.Message != "" {
		msg = er.Error.Message
	}

	return &RequestError{StatusCode: resp.StatusCode, Message: msg}
}
