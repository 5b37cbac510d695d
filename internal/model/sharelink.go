package model

// ShareLink is a policy-bound capability to view one document. The record is
// never deleted while analytics reference it; deactivation is its terminal
// state.
type ShareLink struct {
	ID              string `json:"id"`
	OwnerID         string `json:"owner_id"`
	DocumentID      string `json:"document_id"`
	ShareKey        string `json:"share_key"`
	PasswordHash    string `json:"-"`
	ExpiresAt       int64  `json:"expires_at"`        // unix seconds, 0 = never
	MaxViews        int    `json:"max_views"`         // 0 = unlimited
	ViewCount       int    `json:"view_count"`        // distinct viewing sessions
	RestrictToEmail string `json:"restrict_to_email"` // empty = anyone
	AllowDownload   bool   `json:"allow_download"`
	State           int    `json:"state"`
	Ctime           int64  `json:"ctime"`
	Mtime           int64  `json:"mtime"`
}

// ViewerContext is the authorized capability handed out by a successful
// policy check. It is ephemeral and never persisted.
type ViewerContext struct {
	ShareKey      string
	DocumentID    string
	ViewerEmail   string
	AllowDownload bool
}
