package model

// ViewRecord is one distinct viewing session. Append-only; outlives the
// share link's active lifetime.
type ViewRecord struct {
	ID          string `json:"id"`
	DocumentID  string `json:"document_id"`
	ShareKey    string `json:"share_key"`
	ViewerEmail string `json:"viewer_email"`
	IPAddress   string `json:"ip_address"`
	UserAgent   string `json:"user_agent"`
	Country     string `json:"country"`
	ViewedAt    int64  `json:"viewed_at"`
}
