package feed

import (
	"sync"

	"github.com/newdaksh/FB-explorer/pkg/models"
)

// AttachmentState distinguishes "never fetched" from "fetched and empty",
// and keeps loading/failure out of the item list itself.
type AttachmentState int

const (
	AttachmentsNotFetched AttachmentState = iota
	AttachmentsLoading
	AttachmentsLoaded
	AttachmentsFailed
)

func (s AttachmentState) String() string {
	switch s {
	case AttachmentsLoading:
		return "loading"
	case AttachmentsLoaded:
		return "loaded"
	case AttachmentsFailed:
		return "failed"
	default:
		return "not_fetched"
	}
}

// AttachmentSet is the tagged attachment slot of a post. Items is only
// meaningful in the Loaded state, Err only in the Failed state.
type AttachmentSet struct {
	State AttachmentState
	Items []models.Attachment
	Err   string
}

// Post is one dashboard record with its lazily-loaded sub-resources.
//
// CommentPages is append-only: index i holds page i+1, pages are never
// re-fetched, reordered or truncated once cached. CommentsCurrentPage never
// exceeds len(CommentPages).
type Post struct {
	ID           string
	Message      string
	CreatedTime  string
	CommentCount int // upstream summary hint, not the loaded count

	Attachments     AttachmentSet
	ShowAttachments bool

	CommentPages        []models.CommentPage
	CommentsCurrentPage int
	CommentsLoading     bool
	CommentsError       string
	ShowComments        bool
}

// Store holds the ordered post collection for the current session. Posts are
// addressed by ID through an index map so a sub-resource commit touches only
// its own record; iteration order is the upstream list order.
//
// Every record set installed by ReplaceAll gets a new generation number.
// Commits carry the generation they were started under, so a fetch that
// outlives a ReplaceAll cannot resurrect stale data into the new collection.
type Store struct {
	mu    sync.Mutex
	order []string
	posts map[string]*Post
	gen   uint64
}

func NewStore() *Store {
	return &Store{posts: make(map[string]*Post)}
}

// ReplaceAll discards every record, including all cached sub-resources, and
// installs a fresh set in the given order. Duplicate IDs keep the first
// occurrence.
func (s *Store) ReplaceAll(summaries []models.PostSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	s.order = make([]string, 0, len(summaries))
	s.posts = make(map[string]*Post, len(summaries))

	for _, sum := range summaries {
		if _, dup := s.posts[sum.ID]; dup {
			continue
		}
		s.order = append(s.order, sum.ID)
		s.posts[sum.ID] = &Post{
			ID:                  sum.ID,
			Message:             sum.Message,
			CreatedTime:         sum.CreatedTime,
			CommentCount:        sum.CommentCount,
			CommentsCurrentPage: 1,
		}
	}
}

// Generation returns the current collection generation.
func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.gen
}

// Post returns a snapshot copy of the identified post. The slices inside the
// copy share backing arrays with the store; that is safe because pages are
// append-only and attachment items are never mutated in place.
func (s *Store) Post(id string) (Post, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[id]
	if !ok {
		return Post{}, false
	}

	return *p, true
}

// Posts returns snapshot copies of all posts in collection order.
func (s *Store) Posts() []Post {
	s.mu.Lock()
	defer s.mu.Unlock()

	posts := make([]Post, 0, len(s.order))
	for _, id := range s.order {
		posts = append(posts, *s.posts[id])
	}

	return posts
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.order)
}

// beginCommentsWalk claims the comment walk for a post: one lock acquisition
// checks the generation, the post and the loading flag and sets the flag, so
// two callers racing for the same post cannot both start a walk. Returns a
// snapshot taken at claim time; the caller owns the walk until it clears the
// flag through update.
func (s *Store) beginCommentsWalk(gen uint64, id string) (Post, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		return Post{}, false
	}
	p, ok := s.posts[id]
	if !ok || p.CommentsLoading {
		return Post{}, false
	}
	p.CommentsLoading = true
	p.CommentsError = ""

	return *p, true
}

// beginAttachmentsLoad claims the one-shot attachment fetch under a single
// lock acquisition. It refuses unless the slot is fetchable: never fetched,
// or a retryable failure.
func (s *Store) beginAttachmentsLoad(gen uint64, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		return false
	}
	p, ok := s.posts[id]
	if !ok {
		return false
	}
	switch p.Attachments.State {
	case AttachmentsLoading, AttachmentsLoaded:
		return false
	}
	p.Attachments = AttachmentSet{State: AttachmentsLoading}

	return true
}

// update applies fn to the identified post. It refuses to touch anything
// when the collection generation has moved on or the post is gone, and
// reports whether the commit happened.
func (s *Store) update(gen uint64, id string, fn func(*Post)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		return false
	}
	p, ok := s.posts[id]
	if !ok {
		return false
	}
	fn(p)

	return true
}
