package feed

import (
	"fmt"

	"github.com/newdaksh/FB-explorer/pkg/graph"
	"github.com/newdaksh/FB-explorer/pkg/models"
)

// Flatten collapses the two-level attachment tree into one ordered list.
// Entries with sub-attachments expand in place, one record per
// sub-attachment, inheriting the parent's type, title and description when
// the sub-record lacks its own. Flattening identical input always yields an
// identical list.
func Flatten(postID string, nodes []graph.AttachmentNode) []models.Attachment {
	flat := make([]models.Attachment, 0, len(nodes))

	for _, node := range nodes {
		if node.Subattachments != nil && len(node.Subattachments.Data) > 0 {
			parentID := node.ID
			if parentID == "" {
				parentID = postID
			}
			for _, sub := range node.Subattachments.Data {
				id := targetID(sub.Target)
				if id == "" {
					// Synthesized fallback, unique within the post.
					id = fmt.Sprintf("%s-%d", parentID, len(flat))
				}
				flat = append(flat, models.Attachment{
					ID:          id,
					URL:         mediaURL(sub),
					Type:        firstNonEmpty(sub.Type, sub.MediaType, node.Type, node.MediaType),
					Title:       firstNonEmpty(sub.Title, node.Title),
					Description: firstNonEmpty(sub.Description, node.Description),
				})
			}
			continue
		}

		id := targetID(node.Target)
		if id == "" {
			id = node.ID
		}
		if id == "" {
			id = fmt.Sprintf("%s-%d", postID, len(flat))
		}
		flat = append(flat, models.Attachment{
			ID:          id,
			URL:         mediaURL(node),
			Type:        firstNonEmpty(node.Type, node.MediaType),
			Title:       node.Title,
			Description: node.Description,
		})
	}

	return flat
}

// mediaURL resolves the preview URL of a node: nested image source first,
// then the generic media source, then the direct URL field, else empty.
func mediaURL(n graph.AttachmentNode) string {
	if n.Media != nil {
		if n.Media.Image != nil && n.Media.Image.Src != "" {
			return n.Media.Image.Src
		}
		if n.Media.Src != "" {
			return n.Media.Src
		}
	}

	return n.URL
}

func targetID(t *graph.Target) string {
	if t == nil {
		return ""
	}
	return t.ID
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
