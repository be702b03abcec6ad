package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"

	"github.com/inbucket/mailbag/pkg/rest/client"
)

type sendCmd struct {
	from    string
	subject string
	body    string
}

func (*sendCmd) Name() string {
	return "send"
}

func (*sendCmd) Synopsis() string {
	return "post a message into a mailbox"
}

func (*sendCmd) Usage() string {
	return `send [flags] <mailbox>:
	post a message into mailbox, print the message ID.
	Body is read from stdin unless -body is given.
`
}

func (s *sendCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&s.from, "from", "", "sender address")
	f.StringVar(&s.subject, "subject", "", "message subject")
	f.StringVar(&s.body, "body", "", "message body (default: read stdin)")
}

func (s *sendCmd) Execute(
	ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	mailbox := f.Arg(0)
	if mailbox == "" {
		return usage("mailbox required")
	}
	body := s.body
	if body == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fatal("Couldn't read body from stdin", err)
		}
		body = string(data)
	}

	// Setup rest client
	c, err := client.New(baseURL())
	if err != nil {
		return fatal("Couldn't build client", err)
	}

	id, err := c.PostMessage(ctx, mailbox, s.from, s.subject, body)
	if err != nil {
		return fatal("REST call failed", err)
	}
	fmt.Println(id)

	return subcommands.ExitSuccess
}
