package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/inbucket/mailbag/pkg/rest/client"
)

type listCmd struct {
	size int
}

func (*listCmd) Name() string {
	return "list"
}

func (*listCmd) Synopsis() string {
	return "list contents of mailbox"
}

func (*listCmd) Usage() string {
	return `list [flags] <mailbox>:
	list messages in mailbox, most recent first, following cursors
	until the mailbox is exhausted
`
}

func (l *listCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&l.size, "size", 0, "page size per request (default: server default)")
}

func (l *listCmd) Execute(
	ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	mailbox := f.Arg(0)
	if mailbox == "" {
		return usage("mailbox required")
	}

	// Setup rest client
	c, err := client.New(baseURL())
	if err != nil {
		return fatal("Couldn't build client", err)
	}

	// Follow cursors until exhausted
	cursor := ""
	for {
		page, err := c.ListMailbox(ctx, mailbox, cursor, l.size)
		if err != nil {
			return fatal("REST call failed", err)
		}
		for _, h := range page.Messages {
			fmt.Printf("%s  %s  %-30q  %q\n",
				h.ID, h.Date.Format("2006-01-02 15:04:05"), h.From, h.Subject)
		}
		if page.Cursor == nil {
			break
		}
		cursor = *page.Cursor
	}

	return subcommands.ExitSuccess
}
