package request

// TriggerRunRequest overrides the configured run parameters. Zero values keep the defaults.
type TriggerRunRequest struct {
	Pages            int    `json:"pages" validate:"gte=0"`
	HeadlinesPerPage int    `json:"headlines_per_page" validate:"gte=0"`
	Recipient        string `json:"recipient" validate:"omitempty,email"`
}
