package main

import (
	"context"
	"flag"

	"github.com/google/subcommands"

	"github.com/inbucket/mailbag/pkg/rest/client"
)

type deleteCmd struct{}

func (*deleteCmd) Name() string {
	return "delete"
}

func (*deleteCmd) Synopsis() string {
	return "delete a message or an entire mailbox"
}

func (*deleteCmd) Usage() string {
	return `delete <mailbox> [id]:
	delete the message with the given ID, or the entire mailbox
	when no ID is given
`
}

func (d *deleteCmd) SetFlags(f *flag.FlagSet) {}

func (d *deleteCmd) Execute(
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

	if id := f.Arg(1); id != "" {
		err = c.DeleteMessage(ctx, mailbox, id)
	} else {
		err = c.DeleteMailbox(ctx, mailbox)
	}
	if err != nil {
		return fatal("REST call failed", err)
	}

	return subcommands.ExitSuccess
}
