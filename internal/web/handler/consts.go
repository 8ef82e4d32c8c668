package handler

const (
	// RootPath is the root path the route group.
	RootPath = "/"

	// RouterRootPath is the root path within a route group.
	RouterRootPath = "/"

	// APIPath is the base path for the JSON API.
	APIPath = "/api"

	// ErrNilACDFatalLogMsg is used if app or cfg or db var pointer is nil.
	ErrNilACDFatalLogMsg = "app, cfg or db is nil"
)
