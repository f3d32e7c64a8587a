package graph

// Wire shapes of the social graph REST API. Only the fields the dashboard
// requests are modeled; everything else is ignored on decode.

type postsResponse struct {
	Data []postEntry `json:"data"`
}

type postEntry struct {
	ID          string `json:"id"`
	Message     string `json:"message"`
	CreatedTime string `json:"created_time"`
	Comments    *struct {
		Summary *struct {
			TotalCount int `json:"total_count"`
		} `json:"summary"`
	} `json:"comments"`
}

type commentsResponse struct {
	Data   []commentEntry `json:"data"`
	Paging *paging        `json:"paging"`
}

type commentEntry struct {
	ID   string `json:"id"`
	From *struct {
		Name string `json:"name"`
	} `json:"from"`
	Message     string `json:"message"`
	CreatedTime string `json:"created_time"`
}

type paging struct {
	Cursors *struct {
		Before string `json:"before"`
		After  string `json:"after"`
	} `json:"cursors"`
}

type attachmentsResponse struct {
	Attachments *struct {
		Data []AttachmentNode `json:"data"`
	} `json:"attachments"`
}

// AttachmentNode is one node of the upstream attachment tree. An entry may
// carry nested sub-attachments; the feed flattens the tree for display.
type AttachmentNode struct {
	ID             string  `json:"id"`
	Type           string  `json:"type"`
	MediaType      string  `json:"media_type"`
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	URL            string  `json:"url"`
	Media          *Media          `json:"media"`
	Target         *Target         `json:"target"`
	Subattachments *Subattachments `json:"subattachments"`
}

// Subattachments wraps the nested attachment list of a parent node.
type Subattachments struct {
	Data []AttachmentNode `json:"data"`
}

// Media is the optional media reference of an attachment node.
type Media struct {
	Image *Image `json:"image"`
	Src   string `json:"src"`
}

// Image is the resolved preview image of a media reference.
type Image struct {
	Src string `json:"src"`
}

// Target identifies the object an attachment points at.
type Target struct {
	ID string `json:"id"`
}

type errorResponse struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}
