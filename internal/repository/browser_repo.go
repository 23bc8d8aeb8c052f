package repository

import "context"

// Locator identifies DOM elements. It is a CSS selector; bare tag names are valid selectors.
type Locator string

// Browser hands out browser sessions. Each session is owned by exactly one run.
type Browser interface {
	// Open starts a new session. The caller must Close it on every exit path.
	Open(ctx context.Context) (Session, error)
}

// Session is a controlled browser tab.
type Session interface {
	// Navigate loads url and blocks until the document is loaded.
	Navigate(ctx context.Context, url string) error
	// Find returns the first element matching loc, or ErrElementNotFound.
	Find(ctx context.Context, loc Locator) (Element, error)
	// FindAll returns every element matching loc. An empty result is not an error.
	FindAll(ctx context.Context, loc Locator) ([]Element, error)
	// Execute runs a script in the page and discards its result.
	Execute(ctx context.Context, script string) error
	// CurrentURL returns the address of the loaded document.
	CurrentURL(ctx context.Context) (string, error)
	// Close releases the underlying browser. It is safe to call more than once.
	Close() error
}

// Element is a handle on a DOM node of the session that produced it.
type Element interface {
	Text(ctx context.Context) (string, error)
	// Attribute returns the value of name and whether it was present.
	Attribute(ctx context.Context, name string) (string, bool, error)
	Find(ctx context.Context, loc Locator) (Element, error)
	FindAll(ctx context.Context, loc Locator) ([]Element, error)
	Click(ctx context.Context) error
	// IsStale reports whether the node is no longer part of the live document.
	IsStale(ctx context.Context) (bool, error)
}
