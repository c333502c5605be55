package history

import "time"

// MediaKind classifies an attached media reference.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
	MediaAudio MediaKind = "audio"
	MediaFile  MediaKind = "file"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleDeveloper = "developer"
)

// Media is a reference to an uploaded attachment.
type Media struct {
	URL  string    `json:"url"`
	Kind MediaKind `json:"type"`
}

// Turn is one immutable message in a user's conversation history,
// ordered by creation time and owned by a single user.
type Turn struct {
	ID        string    `json:"id,omitempty"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content,omitempty"`
	Media     *Media    `json:"media_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTurn builds a turn for the given user. An imageURL attaches image
// media; empty content is allowed (image-only turns).
func NewTurn(userID, role, content, imageURL string) Turn {
	t := Turn{
		UserID:    userID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if imageURL != "" {
		t.Media = &Media{URL: imageURL, Kind: MediaImage}
	}
	return t
}
