package feed

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"github.com/newdaksh/FB-explorer/pkg/graph"
	"github.com/newdaksh/FB-explorer/pkg/models"
)

// fakeSource scripts upstream responses and counts calls. Comment pages are
// keyed by the requested after cursor; "" is the first page of a chain.
type fakeSource struct {
	posts    []models.PostSummary
	postsErr error

	attachments    map[string][]graph.AttachmentNode
	attachmentsErr map[string]error

	pages    map[string]models.CommentPage
	pagesErr map[string]error

	postsCalls      int
	attachmentCalls int
	commentCalls    int
	limits          []int

	onCommentsPage func()
	onAttachments  func()
}

func (s *fakeSource) Posts(ctx context.Context) ([]models.PostSummary, error) {
	s.postsCalls++
	if s.postsErr != nil {
		return nil, s.postsErr
	}
	return s.posts, nil
}

func (s *fakeSource) Attachments(ctx context.Context, postID string) ([]graph.AttachmentNode, error) {
	s.attachmentCalls++
	if s.onAttachments != nil {
		s.onAttachments()
	}
	if err := s.attachmentsErr[postID]; err != nil {
		return nil, err
	}
	return s.attachments[postID], nil
}

func (s *fakeSource) CommentsPage(ctx context.Context, postID string, limit int, after string) (models.CommentPage, error) {
	s.commentCalls++
	s.limits = append(s.limits, limit)
	if s.onCommentsPage != nil {
		s.onCommentsPage()
	}
	if err := s.pagesErr[after]; err != nil {
		return models.CommentPage{}, err
	}
	page, ok := s.pages[after]
	if !ok {
		return models.CommentPage{}, fmt.Errorf("no page scripted for cursor %q", after)
	}
	return page, nil
}

func testComments(prefix string, n int) []models.Comment {
	comments := make([]models.Comment, 0, n)
	for i := 0; i < n; i++ {
		comments = append(comments, models.Comment{
			ID:          fmt.Sprintf("%s-%d", prefix, i),
			FromName:    "John Doe",
			Message:     fmt.Sprintf("comment %s-%d", prefix, i),
			CreatedTime: "2025-06-01T10:00:00+0000",
		})
	}
	return comments
}

func newTestFeed(t *testing.T, src *fakeSource) *Feed {
	t.Helper()

	if src.posts == nil {
		src.posts = []models.PostSummary{
			{ID: "A", Message: "hello", CreatedTime: "2025-06-01T09:00:00+0000", CommentCount: 7},
		}
	}

	f := New(src, Config{CommentsInitialLimit: 2, CommentsPageLimit: 5, AttachmentsPageSize: 2})
	if err := f.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error refreshing feed: %v", err)
	}

	return f
}

func TestFeed_EnsureCommentsPage(t *testing.T) {
	src := &fakeSource{
		pages: map[string]models.CommentPage{
			"":  {Data: testComments("p1", 2), Cursors: models.Cursors{Before: "b1", After: "X"}},
			"X": {Data: testComments("p2", 5), Cursors: models.Cursors{Before: "b2"}},
		},
	}
	f := newTestFeed(t, src)

	// First page: one fetch with the initial limit.
	if err := f.EnsureCommentsPage(context.Background(), "A", 1); err != nil {
		t.Fatalf("unexpected error fetching page 1: %v", err)
	}
	if src.commentCalls != 1 {
		t.Errorf("want 1 comment fetch, got %d", src.commentCalls)
	}
	if want := []int{2}; !reflect.DeepEqual(src.limits, want) {
		t.Errorf("want limits %v, got %v", want, src.limits)
	}

	post, _ := f.Post("A")
	if len(post.CommentPages) != 1 {
		t.Fatalf("want 1 cached page, got %d", len(post.CommentPages))
	}
	if post.CommentsCurrentPage != 1 {
		t.Errorf("want current page 1, got %d", post.CommentsCurrentPage)
	}

	// Re-navigating to a cached page costs zero network calls.
	if err := f.EnsureCommentsPage(context.Background(), "A", 1); err != nil {
		t.Fatalf("unexpected error re-navigating to page 1: %v", err)
	}
	if src.commentCalls != 1 {
		t.Errorf("want no additional fetch for cached page, got %d calls", src.commentCalls)
	}

	// Second page: one more fetch with the follow-up limit, using cursor X.
	if err := f.EnsureCommentsPage(context.Background(), "A", 2); err != nil {
		t.Fatalf("unexpected error fetching page 2: %v", err)
	}
	if src.commentCalls != 2 {
		t.Errorf("want 2 comment fetches, got %d", src.commentCalls)
	}
	if want := []int{2, 5}; !reflect.DeepEqual(src.limits, want) {
		t.Errorf("want limits %v, got %v", want, src.limits)
	}

	post, _ = f.Post("A")
	if len(post.CommentPages) != 2 {
		t.Fatalf("want 2 cached pages, got %d", len(post.CommentPages))
	}
	if post.CommentsCurrentPage != 2 {
		t.Errorf("want current page 2, got %d", post.CommentsCurrentPage)
	}

	// Page 2 ended the chain: asking for page 3 clamps with zero fetches.
	if err := f.EnsureCommentsPage(context.Background(), "A", 3); err != nil {
		t.Fatalf("unexpected error requesting page past the chain end: %v", err)
	}
	if src.commentCalls != 2 {
		t.Errorf("want no fetch past the chain end, got %d calls", src.commentCalls)
	}

	post, _ = f.Post("A")
	if len(post.CommentPages) != 2 {
		t.Errorf("want 2 cached pages after clamp, got %d", len(post.CommentPages))
	}
	if post.CommentsCurrentPage != 2 {
		t.Errorf("want current page clamped to 2, got %d", post.CommentsCurrentPage)
	}
}

func TestFeed_EnsureCommentsPage_FetchesForward(t *testing.T) {
	src := &fakeSource{
		pages: map[string]models.CommentPage{
			"":   {Data: testComments("p1", 2), Cursors: models.Cursors{After: "c1"}},
			"c1": {Data: testComments("p2", 5), Cursors: models.Cursors{After: "c2"}},
			"c2": {Data: testComments("p3", 3), Cursors: models.Cursors{}},
		},
	}
	f := newTestFeed(t, src)

	// Jumping straight to page 3 walks pages 1..3 sequentially.
	if err := f.EnsureCommentsPage(context.Background(), "A", 3); err != nil {
		t.Fatalf("unexpected error walking to page 3: %v", err)
	}
	if src.commentCalls != 3 {
		t.Errorf("want 3 sequential fetches, got %d", src.commentCalls)
	}

	post, _ := f.Post("A")
	if len(post.CommentPages) != 3 {
		t.Fatalf("want 3 cached pages, got %d", len(post.CommentPages))
	}
	if post.CommentsCurrentPage != 3 {
		t.Errorf("want current page 3, got %d", post.CommentsCurrentPage)
	}
	if post.CommentsLoading {
		t.Error("want loading flag cleared after the walk")
	}
}

func TestFeed_EnsureCommentsPage_SinglePageClamp(t *testing.T) {
	src := &fakeSource{
		pages: map[string]models.CommentPage{
			"": {Data: testComments("only", 2), Cursors: models.Cursors{Before: "b"}},
		},
	}
	f := newTestFeed(t, src)

	// The first page has no after cursor: the post has exactly one page.
	if err := f.EnsureCommentsPage(context.Background(), "A", 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.commentCalls != 1 {
		t.Errorf("want exactly 1 fetch, got %d", src.commentCalls)
	}

	post, _ := f.Post("A")
	if len(post.CommentPages) != 1 {
		t.Fatalf("want 1 cached page, got %d", len(post.CommentPages))
	}
	if post.CommentsCurrentPage != 1 {
		t.Errorf("want current page clamped to 1, got %d", post.CommentsCurrentPage)
	}

	// Repeating the impossible request must stay at zero additional fetches.
	if err := f.EnsureCommentsPage(context.Background(), "A", 2); err != nil {
		t.Fatalf("unexpected error on repeat: %v", err)
	}
	if src.commentCalls != 1 {
		t.Errorf("want no additional fetch on repeat, got %d calls", src.commentCalls)
	}
}

func TestFeed_EnsureCommentsPage_PartialFailure(t *testing.T) {
	src := &fakeSource{
		pages: map[string]models.CommentPage{
			"":   {Data: testComments("p1", 2), Cursors: models.Cursors{After: "c1"}},
			"c1": {Data: testComments("p2", 5), Cursors: models.Cursors{After: "c2"}},
		},
		pagesErr: map[string]error{
			"c2": fmt.Errorf("upstream unavailable"),
		},
	}
	f := newTestFeed(t, src)

	if err := f.EnsureCommentsPage(context.Background(), "A", 2); err != nil {
		t.Fatalf("unexpected error fetching pages 1-2: %v", err)
	}

	before, _ := f.Post("A")
	snapshot := make([]models.CommentPage, len(before.CommentPages))
	copy(snapshot, before.CommentPages)

	err := f.EnsureCommentsPage(context.Background(), "A", 3)
	if err == nil {
		t.Fatal("want error from failed page 3 fetch, got nil")
	}

	post, _ := f.Post("A")
	if len(post.CommentPages) != 2 {
		t.Errorf("want the 2 previously fetched pages retained, got %d", len(post.CommentPages))
	}
	if !reflect.DeepEqual(post.CommentPages, snapshot) {
		t.Error("want cached pages unchanged after the failed walk")
	}
	if post.CommentsCurrentPage != 2 {
		t.Errorf("want current page still 2, got %d", post.CommentsCurrentPage)
	}
	if post.CommentsError == "" {
		t.Error("want error recorded on the post")
	}
	if post.CommentsLoading {
		t.Error("want loading flag cleared after the failure")
	}
}

func TestFeed_EnsureCommentsPage_StaleFetchGuard(t *testing.T) {
	src := &fakeSource{
		pages: map[string]models.CommentPage{
			"": {Data: testComments("p1", 2), Cursors: models.Cursors{After: "c1"}},
		},
	}
	f := newTestFeed(t, src)

	// The collection is replaced while the page fetch is in flight; the
	// result must not leak into the fresh record.
	src.onCommentsPage = func() {
		src.onCommentsPage = nil
		if err := f.Refresh(context.Background()); err != nil {
			t.Fatalf("unexpected error refreshing mid-fetch: %v", err)
		}
	}

	if err := f.EnsureCommentsPage(context.Background(), "A", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	post, ok := f.Post("A")
	if !ok {
		t.Fatal("want post A present after refresh")
	}
	if len(post.CommentPages) != 0 {
		t.Errorf("want no stale pages in the replaced record, got %d", len(post.CommentPages))
	}
	if post.CommentsLoading {
		t.Error("want fresh record without a stuck loading flag")
	}
}

func TestFeed_EnsureCommentsPage_SingleWalker(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})

	src := &fakeSource{
		pages: map[string]models.CommentPage{
			"": {Data: testComments("p1", 2), Cursors: models.Cursors{After: "c1"}},
		},
	}
	src.onCommentsPage = func() {
		src.onCommentsPage = nil
		close(entered)
		<-release
	}
	f := newTestFeed(t, src)

	done := make(chan error, 1)
	go func() {
		done <- f.EnsureCommentsPage(context.Background(), "A", 1)
	}()
	<-entered

	// A second caller arriving while the walk holds the claim must back off
	// without fetching; only one walker per post exists at a time.
	if err := f.EnsureCommentsPage(context.Background(), "A", 1); err != nil {
		t.Fatalf("unexpected error from concurrent caller: %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("unexpected error from walker: %v", err)
	}

	post, _ := f.Post("A")
	if len(post.CommentPages) != 1 {
		t.Errorf("want exactly 1 cached page, got %d", len(post.CommentPages))
	}
	if src.commentCalls != 1 {
		t.Errorf("want exactly 1 fetch, got %d", src.commentCalls)
	}
	if post.CommentsLoading {
		t.Error("want loading flag cleared after the walk")
	}
}

func TestFeed_LoadAttachments_SingleFetcher(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})

	src := &fakeSource{
		attachments: map[string][]graph.AttachmentNode{
			"A": {{ID: "att1", Type: "photo"}},
		},
	}
	src.onAttachments = func() {
		src.onAttachments = nil
		close(entered)
		<-release
	}
	f := newTestFeed(t, src)

	done := make(chan error, 1)
	go func() {
		done <- f.LoadAttachments(context.Background(), "A")
	}()
	<-entered

	if err := f.LoadAttachments(context.Background(), "A"); err != nil {
		t.Fatalf("unexpected error from concurrent caller: %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("unexpected error from fetcher: %v", err)
	}

	post, _ := f.Post("A")
	if post.Attachments.State != AttachmentsLoaded {
		t.Fatalf("want state loaded, got %v", post.Attachments.State)
	}
	if len(post.Attachments.Items) != 1 {
		t.Errorf("want 1 attachment, got %d", len(post.Attachments.Items))
	}
	if src.attachmentCalls != 1 {
		t.Errorf("want exactly 1 fetch, got %d", src.attachmentCalls)
	}
}

func TestFeed_ToggleComments_DuringFetch(t *testing.T) {
	src := &fakeSource{
		pages: map[string]models.CommentPage{
			"": {Data: testComments("p1", 2), Cursors: models.Cursors{After: "c1"}},
		},
	}
	f := newTestFeed(t, src)

	// The panel is hidden again while the first show's fetch is in flight;
	// the flip must land on the stored record, not an earlier snapshot.
	src.onCommentsPage = func() {
		src.onCommentsPage = nil
		if err := f.ToggleComments(context.Background(), "A"); err != nil {
			t.Errorf("unexpected error toggling mid-fetch: %v", err)
		}
	}

	if err := f.ToggleComments(context.Background(), "A"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	post, _ := f.Post("A")
	if post.ShowComments {
		t.Error("want the mid-fetch hide to win")
	}
	if len(post.CommentPages) != 1 {
		t.Errorf("want the fetched page cached regardless, got %d", len(post.CommentPages))
	}
	if src.commentCalls != 1 {
		t.Errorf("want 1 fetch, got %d", src.commentCalls)
	}
}

func TestFeed_EnsureCommentsPage_UnknownPost(t *testing.T) {
	f := newTestFeed(t, &fakeSource{pages: map[string]models.CommentPage{}})

	err := f.EnsureCommentsPage(context.Background(), "nope", 1)
	if err != ErrPostNotFound {
		t.Errorf("want ErrPostNotFound, got %v", err)
	}
}

func TestFeed_ToggleComments(t *testing.T) {
	src := &fakeSource{
		pages: map[string]models.CommentPage{
			"": {Data: testComments("p1", 2), Cursors: models.Cursors{After: "c1"}},
		},
	}
	f := newTestFeed(t, src)

	// First show fetches page 1.
	if err := f.ToggleComments(context.Background(), "A"); err != nil {
		t.Fatalf("unexpected error showing comments: %v", err)
	}
	post, _ := f.Post("A")
	if !post.ShowComments {
		t.Error("want comments visible after first toggle")
	}
	if src.commentCalls != 1 {
		t.Errorf("want page 1 fetched on first show, got %d calls", src.commentCalls)
	}

	// Hiding keeps the cache.
	if err := f.ToggleComments(context.Background(), "A"); err != nil {
		t.Fatalf("unexpected error hiding comments: %v", err)
	}
	post, _ = f.Post("A")
	if post.ShowComments {
		t.Error("want comments hidden after second toggle")
	}
	if len(post.CommentPages) != 1 {
		t.Errorf("want cached pages kept while hidden, got %d", len(post.CommentPages))
	}

	// Re-showing costs nothing.
	if err := f.ToggleComments(context.Background(), "A"); err != nil {
		t.Fatalf("unexpected error re-showing comments: %v", err)
	}
	if src.commentCalls != 1 {
		t.Errorf("want no refetch on re-show, got %d calls", src.commentCalls)
	}
}

func TestFeed_LoadAttachments_FetchedOnce(t *testing.T) {
	src := &fakeSource{
		attachments: map[string][]graph.AttachmentNode{
			"A": {{ID: "att1", Type: "photo", URL: "https://cdn.example/1.jpg"}},
		},
	}
	f := newTestFeed(t, src)

	if err := f.LoadAttachments(context.Background(), "A"); err != nil {
		t.Fatalf("unexpected error loading attachments: %v", err)
	}
	post, _ := f.Post("A")
	if post.Attachments.State != AttachmentsLoaded {
		t.Fatalf("want state loaded, got %v", post.Attachments.State)
	}
	if len(post.Attachments.Items) != 1 {
		t.Errorf("want 1 flattened attachment, got %d", len(post.Attachments.Items))
	}

	// A second call must not hit the network again.
	if err := f.LoadAttachments(context.Background(), "A"); err != nil {
		t.Fatalf("unexpected error on repeated load: %v", err)
	}
	if src.attachmentCalls != 1 {
		t.Errorf("want a single attachment fetch per session, got %d", src.attachmentCalls)
	}
}

func TestFeed_LoadAttachments_FailureIsRetryable(t *testing.T) {
	src := &fakeSource{
		attachments: map[string][]graph.AttachmentNode{
			"A": {{ID: "att1", Type: "photo"}},
		},
		attachmentsErr: map[string]error{
			"A": fmt.Errorf("expired token"),
		},
	}
	f := newTestFeed(t, src)

	if err := f.LoadAttachments(context.Background(), "A"); err == nil {
		t.Fatal("want error from failed attachment fetch, got nil")
	}
	post, _ := f.Post("A")
	if post.Attachments.State != AttachmentsFailed {
		t.Fatalf("want state failed, got %v", post.Attachments.State)
	}
	if post.Attachments.Err == "" {
		t.Error("want error string recorded")
	}

	// An explicit retry after the failure succeeds.
	delete(src.attachmentsErr, "A")
	if err := f.LoadAttachments(context.Background(), "A"); err != nil {
		t.Fatalf("unexpected error on retry: %v", err)
	}
	post, _ = f.Post("A")
	if post.Attachments.State != AttachmentsLoaded {
		t.Errorf("want state loaded after retry, got %v", post.Attachments.State)
	}
}

func TestFeed_AttachmentsPage(t *testing.T) {
	nodes := make([]graph.AttachmentNode, 0, 5)
	for i := 0; i < 5; i++ {
		nodes = append(nodes, graph.AttachmentNode{
			ID:   fmt.Sprintf("att%d", i),
			Type: "photo",
			URL:  fmt.Sprintf("https://cdn.example/%d.jpg", i),
		})
	}
	src := &fakeSource{attachments: map[string][]graph.AttachmentNode{"A": nodes}}
	f := newTestFeed(t, src) // page size 2

	if err := f.LoadAttachments(context.Background(), "A"); err != nil {
		t.Fatalf("unexpected error loading attachments: %v", err)
	}

	tests := []struct {
		name        string
		page        int
		wantPage    int
		wantItems   int
		wantFirstID string
	}{
		{"first page", 1, 1, 2, "att0"},
		{"middle page", 2, 2, 2, "att2"},
		{"last page is short", 3, 3, 1, "att4"},
		{"page below range clamps to 1", 0, 1, 2, "att0"},
		{"page above range clamps to last", 9, 3, 1, "att4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, current, total, err := f.AttachmentsPage("A", tt.page)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if total != 3 {
				t.Errorf("want 3 total pages, got %d", total)
			}
			if current != tt.wantPage {
				t.Errorf("want current page %d, got %d", tt.wantPage, current)
			}
			if len(items) != tt.wantItems {
				t.Fatalf("want %d items, got %d", tt.wantItems, len(items))
			}
			if items[0].ID != tt.wantFirstID {
				t.Errorf("want first item %q, got %q", tt.wantFirstID, items[0].ID)
			}
		})
	}

	// Slicing never touches the network.
	if src.attachmentCalls != 1 {
		t.Errorf("want client-side slicing without fetches, got %d calls", src.attachmentCalls)
	}
}

func TestFeed_AttachmentsPage_EmptyList(t *testing.T) {
	src := &fakeSource{attachments: map[string][]graph.AttachmentNode{"A": {}}}
	f := newTestFeed(t, src)

	if err := f.LoadAttachments(context.Background(), "A"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	items, current, total, err := f.AttachmentsPage("A", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 {
		t.Errorf("want minimum 1 total page for an empty list, got %d", total)
	}
	if current != 1 {
		t.Errorf("want current page 1, got %d", current)
	}
	if len(items) != 0 {
		t.Errorf("want empty page, got %d items", len(items))
	}
}

func TestFeed_AttachmentsPage_NotLoaded(t *testing.T) {
	f := newTestFeed(t, &fakeSource{})

	_, _, _, err := f.AttachmentsPage("A", 1)
	if err != ErrAttachmentsNotLoaded {
		t.Errorf("want ErrAttachmentsNotLoaded, got %v", err)
	}
}

func TestFeed_CommentPanel(t *testing.T) {
	src := &fakeSource{
		pages: map[string]models.CommentPage{
			"":   {Data: testComments("p1", 2), Cursors: models.Cursors{After: "c1"}},
			"c1": {Data: testComments("p2", 5), Cursors: models.Cursors{}},
		},
	}
	f := newTestFeed(t, src)

	// Before any fetch the panel offers loading more.
	panel, err := f.CommentPanel("A")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !panel.CanLoadMore {
		t.Error("want CanLoadMore before the first fetch")
	}
	if len(panel.Comments) != 0 {
		t.Errorf("want no comments before the first fetch, got %d", len(panel.Comments))
	}

	if err := f.EnsureCommentsPage(context.Background(), "A", 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	panel, err = f.CommentPanel("A")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(panel.Comments) != 7 {
		t.Errorf("want 7 comments across pages 1-2, got %d", len(panel.Comments))
	}
	if panel.CurrentPage != 2 {
		t.Errorf("want current page 2, got %d", panel.CurrentPage)
	}
	if panel.CanLoadMore {
		t.Error("want CanLoadMore false once the chain ended")
	}
}
