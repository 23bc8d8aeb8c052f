package entity

const (
	// NoLinkAvailable replaces the link of a headline whose container carries no anchor.
	NoLinkAvailable = "no link available"
	// UnknownPublishedTime replaces a missing or empty publication timestamp.
	UnknownPublishedTime = "unknown"
)

// LinkStatus is the outcome of probing a headline link.
type LinkStatus string

const (
	LinkValid   LinkStatus = "valid"
	LinkInvalid LinkStatus = "invalid"
)

// HeadlineRecord is a single extracted headline. Rank reflects its position in page-traversal order.
type HeadlineRecord struct {
	Rank          int        `json:"rank"`
	Headline      string     `json:"headline"`
	Link          string     `json:"link"`
	PublishedTime string     `json:"published_time"`
	LinkStatus    LinkStatus `json:"link_status,omitempty"` // only set when link validation is enabled
}

// HasLink reports whether the record points at a real URL rather than the sentinel.
func (r HeadlineRecord) HasLink() bool {
	return r.Link != "" && r.Link != NoLinkAvailable
}
