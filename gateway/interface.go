package gateway

import (
	"net/http"
)

// HTTPHandler is implemented by anything that mounts routes on a shared mux.
//
// The prefix is the URL path prefix for the routes, "/" for the root. It always
// ends with a slash.
type HTTPHandler interface {
	RegisterHTTPHandlers(prefix string, mux *http.ServeMux)
}
