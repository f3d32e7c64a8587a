package feed

import "github.com/newdaksh/FB-explorer/pkg/models"

// View models: the data the dashboard renders. Layout and styling live
// entirely on the other side of this contract.

// PostCard is the per-post header the dashboard lists after a refresh.
type PostCard struct {
	ID              string `json:"id"`
	Message         string `json:"message"`
	CreatedTime     string `json:"created_time"`
	CommentCount    int    `json:"comment_count"`
	ShowComments    bool   `json:"show_comments"`
	ShowAttachments bool   `json:"show_attachments"`

	AttachmentState string `json:"attachment_state"`
	AttachmentCount int    `json:"attachment_count"`
}

// CommentPanel shows every comment from pages 1..current plus the controls
// state. CanLoadMore is true while the upstream cursor chain has not ended.
type CommentPanel struct {
	Comments    []models.Comment `json:"comments"`
	CurrentPage int              `json:"current_page"`
	CachedPages int              `json:"cached_pages"`
	CanLoadMore bool             `json:"can_load_more"`
	Loading     bool             `json:"loading"`
	Error       string           `json:"error,omitempty"`
}

// AttachmentPanel is one client-side page of the flattened attachment list.
type AttachmentPanel struct {
	State       string              `json:"state"`
	Error       string              `json:"error,omitempty"`
	Items       []models.Attachment `json:"items,omitempty"`
	CurrentPage int                 `json:"current_page,omitempty"`
	TotalPages  int                 `json:"total_pages,omitempty"`
	TotalItems  int                 `json:"total_items,omitempty"`
}

// Cards returns the post card views in collection order.
func (f *Feed) Cards() []PostCard {
	posts := f.store.Posts()
	cards := make([]PostCard, 0, len(posts))
	for _, p := range posts {
		cards = append(cards, PostCard{
			ID:              p.ID,
			Message:         p.Message,
			CreatedTime:     p.CreatedTime,
			CommentCount:    p.CommentCount,
			ShowComments:    p.ShowComments,
			ShowAttachments: p.ShowAttachments,
			AttachmentState: p.Attachments.State.String(),
			AttachmentCount: len(p.Attachments.Items),
		})
	}

	return cards
}

// CommentPanel builds the comment panel view for one post.
func (f *Feed) CommentPanel(postID string) (CommentPanel, error) {
	post, ok := f.store.Post(postID)
	if !ok {
		return CommentPanel{}, ErrPostNotFound
	}

	panel := CommentPanel{
		Comments:    []models.Comment{},
		CurrentPage: post.CommentsCurrentPage,
		CachedPages: len(post.CommentPages),
		Loading:     post.CommentsLoading,
		Error:       post.CommentsError,
	}
	for i := 0; i < post.CommentsCurrentPage && i < len(post.CommentPages); i++ {
		panel.Comments = append(panel.Comments, post.CommentPages[i].Data...)
	}
	panel.CanLoadMore = len(post.CommentPages) == 0 ||
		post.CommentPages[len(post.CommentPages)-1].Cursors.After != ""

	return panel, nil
}

// AttachmentPanel builds one attachment page view for a post. In any state
// other than loaded the panel carries the state (and error) only.
func (f *Feed) AttachmentPanel(postID string, page int) (AttachmentPanel, error) {
	post, ok := f.store.Post(postID)
	if !ok {
		return AttachmentPanel{}, ErrPostNotFound
	}

	panel := AttachmentPanel{
		State: post.Attachments.State.String(),
		Error: post.Attachments.Err,
	}
	if post.Attachments.State != AttachmentsLoaded {
		return panel, nil
	}

	items, current, total, err := f.AttachmentsPage(postID, page)
	if err != nil {
		return AttachmentPanel{}, err
	}
	panel.Items = items
	panel.CurrentPage = current
	panel.TotalPages = total
	panel.TotalItems = len(post.Attachments.Items)

	return panel, nil
}
