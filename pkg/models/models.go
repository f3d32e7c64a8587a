package models

import "time"

// Comment is a single upstream comment as shown on the dashboard and
// persisted by the relay. FromName falls back to "Unknown" when the
// author is redacted upstream.
type Comment struct {
	ID          string `json:"id" bson:"id"`
	FromName    string `json:"fromName" bson:"fromName"`
	Message     string `json:"message" bson:"message"`
	CreatedTime string `json:"created_time" bson:"created_time"`
}

// Cursors holds the opaque pagination tokens of one comment page.
// An empty After means the cursor chain ends at this page.
type Cursors struct {
	Before string `json:"before,omitempty"`
	After  string `json:"after,omitempty"`
}

// CommentPage is one server-cursor page of comments.
type CommentPage struct {
	Data    []Comment `json:"data"`
	Cursors Cursors   `json:"cursors"`
}

// Attachment is one flattened attachment record. URL is empty when the
// upstream entry carries no previewable media.
type Attachment struct {
	ID          string `json:"id" bson:"id"`
	URL         string `json:"url,omitempty" bson:"url,omitempty"`
	Type        string `json:"type,omitempty" bson:"type,omitempty"`
	Title       string `json:"title,omitempty" bson:"title,omitempty"`
	Description string `json:"description,omitempty" bson:"description,omitempty"`
}

// PostSummary is one item of the upstream post list. CommentCount is the
// upstream-reported total; it is a hint and may diverge from the number of
// comments actually loaded or persisted.
type PostSummary struct {
	ID           string `json:"id"`
	Message      string `json:"message"`
	CreatedTime  string `json:"created_time"`
	CommentCount int    `json:"commentCount"`
}

// StoredPost is the denormalized document the persistence relay keeps, one
// per post. CommentCount here is recomputed from the full comment walk and
// may legitimately disagree with the upstream summary count.
type StoredPost struct {
	PostID       string       `json:"postId" bson:"postId"`
	Message      string       `json:"message" bson:"message"`
	CreatedTime  string       `json:"created_time" bson:"created_time"`
	CommentCount int          `json:"commentCount" bson:"commentCount"`
	Comments     []Comment    `json:"comments" bson:"comments"`
	Attachments  []Attachment `json:"attachments" bson:"attachments"`
	LastUpdated  time.Time    `json:"lastUpdated" bson:"lastUpdated"`
}
