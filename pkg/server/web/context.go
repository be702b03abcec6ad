package web

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/inbucket/mailbag/pkg/config"
	"github.com/inbucket/mailbag/pkg/mailbox"
	"github.com/inbucket/mailbag/pkg/msghub"
)

// Context is passed into every request handler function.
type Context struct {
	Vars       map[string]string
	MsgHub     *msghub.Hub
	Registry   *mailbox.Registry
	RootConfig *config.Root
}

// Close the Context (currently does nothing)
func (c *Context) Close() {
	// Do nothing
}

// NewContext returns a Context for the given HTTP Request
func NewContext(req *http.Request) (*Context, error) {
	return &Context{
		Vars:       mux.Vars(req),
		MsgHub:     msgHub,
		Registry:   registry,
		RootConfig: rootConfig,
	}, nil
}
