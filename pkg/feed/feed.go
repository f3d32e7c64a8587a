package feed

import (
	"context"
	"fmt"

	"github.com/newdaksh/FB-explorer/pkg/graph"
	"github.com/newdaksh/FB-explorer/pkg/models"
)

var (
	ErrPostNotFound         = fmt.Errorf("post not found in feed")
	ErrAttachmentsNotLoaded = fmt.Errorf("attachments not loaded")
)

// Source supplies the upstream data the feed paginates over.
// Implemented by graph.Client; faked in tests.
type Source interface {
	Posts(ctx context.Context) ([]models.PostSummary, error)
	Attachments(ctx context.Context, postID string) ([]graph.AttachmentNode, error)
	CommentsPage(ctx context.Context, postID string, limit int, after string) (models.CommentPage, error)
}

// Config carries the pagination policy knobs. These affect batching only,
// never correctness.
type Config struct {
	// CommentsInitialLimit is the page size of the very first comment fetch
	// for a post; CommentsPageLimit applies to every follow-up page.
	CommentsInitialLimit int
	CommentsPageLimit    int

	// AttachmentsPageSize is the fixed client-side slice size for the
	// flattened attachment list.
	AttachmentsPageSize int
}

const (
	defaultCommentsInitialLimit = 2
	defaultCommentsPageLimit    = 5
	defaultAttachmentsPageSize  = 4
)

func (c Config) withDefaults() Config {
	if c.CommentsInitialLimit < 1 {
		c.CommentsInitialLimit = defaultCommentsInitialLimit
	}
	if c.CommentsPageLimit < 1 {
		c.CommentsPageLimit = defaultCommentsPageLimit
	}
	if c.AttachmentsPageSize < 1 {
		c.AttachmentsPageSize = defaultAttachmentsPageSize
	}
	return c
}

// Feed reconciles the three upstream pagination schemes (post list,
// server-cursor comment pages, client-sliced attachments) against the post
// store. All mutations go through keyed, generation-guarded store commits.
type Feed struct {
	src   Source
	store *Store
	conf  Config
}

func New(src Source, conf Config) *Feed {
	return &Feed{
		src:   src,
		store: NewStore(),
		conf:  conf.withDefaults(),
	}
}

// Refresh fetches the post list and replaces the whole collection. All
// previously cached sub-resources are discarded; there is no merge.
func (f *Feed) Refresh(ctx context.Context) error {
	summaries, err := f.src.Posts(ctx)
	if err != nil {
		return err
	}
	f.store.ReplaceAll(summaries)

	return nil
}

// Post returns a snapshot of one post record.
func (f *Feed) Post(postID string) (Post, bool) {
	return f.store.Post(postID)
}

// Posts returns snapshots of all post records in collection order.
func (f *Feed) Posts() []Post {
	return f.store.Posts()
}

// EnsureCommentsPage guarantees that after it returns either the page cache
// holds at least targetPage pages, or the upstream cursor chain ended before
// reaching it. CommentsCurrentPage is clamped to the last cached page either
// way. A page that is already cached costs zero network calls.
//
// A fetch failure mid-walk keeps every page cached so far, records the error
// on the post and clears the loading flag; nothing is retried automatically.
func (f *Feed) EnsureCommentsPage(ctx context.Context, postID string, targetPage int) error {
	if targetPage < 1 {
		targetPage = 1
	}

	gen := f.store.Generation()
	post, ok := f.store.Post(postID)
	if !ok {
		return ErrPostNotFound
	}

	// Already cached: move the pointer and stop.
	if targetPage <= len(post.CommentPages) {
		f.store.update(gen, postID, func(p *Post) {
			p.CommentsCurrentPage = targetPage
			p.CommentsError = ""
		})
		return nil
	}

	// The chain already ended before targetPage: clamp without refetching.
	if n := len(post.CommentPages); n > 0 && post.CommentPages[n-1].Cursors.After == "" {
		f.store.update(gen, postID, func(p *Post) {
			p.CommentsCurrentPage = len(p.CommentPages)
		})
		return nil
	}

	// Claim the walk before the first suspension point. The claim is a
	// single locked check-and-set, so a concurrent caller for the same post
	// cannot start a second walk; it backs off and leaves this one alone.
	post, ok = f.store.beginCommentsWalk(gen, postID)
	if !ok {
		return nil
	}

	// Re-derive the walk start from the claim-time snapshot: another walk
	// may have finished between the first look and the claim.
	pages := len(post.CommentPages)
	if targetPage <= pages || (pages > 0 && post.CommentPages[pages-1].Cursors.After == "") {
		f.store.update(gen, postID, func(p *Post) {
			p.CommentsCurrentPage = min(targetPage, len(p.CommentPages))
			p.CommentsLoading = false
		})
		return nil
	}
	after := ""
	if pages > 0 {
		after = post.CommentPages[pages-1].Cursors.After
	}

	for pages < targetPage {
		limit := f.conf.CommentsPageLimit
		if pages == 0 {
			limit = f.conf.CommentsInitialLimit
		}

		page, err := f.src.CommentsPage(ctx, postID, limit, after)
		if err != nil {
			f.store.update(gen, postID, func(p *Post) {
				p.CommentsLoading = false
				p.CommentsError = err.Error()
			})
			return err
		}

		pages++
		if !f.store.update(gen, postID, func(p *Post) {
			p.CommentPages = append(p.CommentPages, page)
		}) {
			// The collection was replaced mid-walk; drop the stale page.
			return nil
		}

		after = page.Cursors.After
		if after == "" {
			break
		}
	}

	f.store.update(gen, postID, func(p *Post) {
		p.CommentsCurrentPage = min(targetPage, len(p.CommentPages))
		p.CommentsLoading = false
	})

	return nil
}

// LoadAttachments fetches the attachment edge of a post exactly once and
// stores the flattened list. Page navigation afterwards is a pure
// client-side slice. A failed fetch is retryable; a successful one is not
// re-fetched for the lifetime of the collection.
func (f *Feed) LoadAttachments(ctx context.Context, postID string) error {
	gen := f.store.Generation()
	if _, ok := f.store.Post(postID); !ok {
		return ErrPostNotFound
	}

	// Claim the fetch before the suspension point. One locked check-and-set:
	// a second caller cannot start a parallel fetch, and a completed load is
	// never re-fetched.
	if !f.store.beginAttachmentsLoad(gen, postID) {
		return nil
	}

	nodes, err := f.src.Attachments(ctx, postID)
	if err != nil {
		f.store.update(gen, postID, func(p *Post) {
			p.Attachments = AttachmentSet{State: AttachmentsFailed, Err: err.Error()}
		})
		return err
	}

	flat := Flatten(postID, nodes)
	f.store.update(gen, postID, func(p *Post) {
		p.Attachments = AttachmentSet{State: AttachmentsLoaded, Items: flat}
	})

	return nil
}

// AttachmentsPage slices the flattened attachment list into fixed-size
// client pages. The requested page is clamped into [1, totalPages]; there is
// no network effect.
func (f *Feed) AttachmentsPage(postID string, page int) (items []models.Attachment, currentPage, totalPages int, err error) {
	post, ok := f.store.Post(postID)
	if !ok {
		return nil, 0, 0, ErrPostNotFound
	}
	if post.Attachments.State != AttachmentsLoaded {
		return nil, 0, 0, ErrAttachmentsNotLoaded
	}

	size := f.conf.AttachmentsPageSize
	all := post.Attachments.Items

	totalPages = (len(all) + size - 1) / size
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * size
	end := start + size
	if start > len(all) {
		start = len(all)
	}
	if end > len(all) {
		end = len(all)
	}

	return all[start:end], page, totalPages, nil
}

// ToggleComments flips the comment panel visibility. The first show fetches
// page 1; hiding keeps every cached page so re-showing costs nothing.
func (f *Feed) ToggleComments(ctx context.Context, postID string) error {
	gen := f.store.Generation()

	// Flip against the stored record, not an earlier snapshot, so racing
	// toggles cannot lose an update.
	var needFetch bool
	if !f.store.update(gen, postID, func(p *Post) {
		p.ShowComments = !p.ShowComments
		needFetch = p.ShowComments && len(p.CommentPages) == 0
	}) {
		return ErrPostNotFound
	}

	if needFetch {
		return f.EnsureCommentsPage(ctx, postID, 1)
	}

	return nil
}

// ToggleAttachments flips the attachment panel visibility and triggers the
// one-time full fetch on first show.
func (f *Feed) ToggleAttachments(ctx context.Context, postID string) error {
	gen := f.store.Generation()

	var needFetch bool
	if !f.store.update(gen, postID, func(p *Post) {
		p.ShowAttachments = !p.ShowAttachments
		needFetch = p.ShowAttachments && p.Attachments.State == AttachmentsNotFetched
	}) {
		return ErrPostNotFound
	}

	if needFetch {
		return f.LoadAttachments(ctx, postID)
	}

	return nil
}
