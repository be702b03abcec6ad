package config

import (
	"fmt"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	prefix      = "mailbag"
	tableFormat = `Mailbag is configured via the environment. The following environment
variables can be used:

KEY	DEFAULT	REQUIRED	DESCRIPTION
{{range .}}{{usage_key .}}	{{usage_default .}}	{{usage_required .}}	{{usage_description .}}
{{end}}`
)

var (
	// Version of this build, set by main
	Version = ""

	// BuildDate for this build, set by main
	BuildDate = ""
)

// Root wraps all other configurations.
type Root struct {
	LogLevel string `required:"true" default:"info" desc:"debug, info, warn, or error"`
	Web      Web
	Mailbox  Mailbox
}

// Web contains the HTTP server configuration.
type Web struct {
	Addr           string `required:"true" default:"0.0.0.0:9000" desc:"Web server IP4 host:port"`
	MonitorHistory int    `required:"true" default:"30" desc:"Monitor remembered messages"`
}

// Mailbox contains the mailbox core configuration.
type Mailbox struct {
	Domain          string        `required:"true" default:"mailbag.local" desc:"Domain for generated addresses"`
	LocalPrefix     string        `required:"true" default:"mb" desc:"Local part prefix for generated addresses"`
	DefaultPageSize int           `required:"true" default:"20" desc:"Message list page size when unspecified"`
	OpTimeout       time.Duration `required:"true" default:"5s" desc:"Mailbox operation reply timeout"`
}

// Process loads and parses configuration from the environment.
func Process() (*Root, error) {
	c := &Root{}
	if err := envconfig.Process(prefix, c); err != nil {
		return nil, err
	}
	if c.Mailbox.DefaultPageSize < 1 {
		return nil, fmt.Errorf("MAILBAG_MAILBOX_DEFAULTPAGESIZE must be positive, got %v",
			c.Mailbox.DefaultPageSize)
	}
	return c, nil
}

// Usage prints out the envconfig usage to Stderr.
func Usage() {
	tabs := tabwriter.NewWriter(os.Stderr, 1, 0, 4, ' ', 0)
	if err := envconfig.Usagef(prefix, &Root{}, tabs, tableFormat); err != nil {
		log.Fatalf("Unable to parse env config: %v", err)
	}
	tabs.Flush()
}
