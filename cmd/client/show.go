package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/inbucket/mailbag/pkg/rest/client"
)

type showCmd struct{}

func (*showCmd) Name() string {
	return "show"
}

func (*showCmd) Synopsis() string {
	return "print a single message"
}

func (*showCmd) Usage() string {
	return `show <mailbox> <id>:
	print the message with the given ID
`
}

func (s *showCmd) SetFlags(f *flag.FlagSet) {}

func (s *showCmd) Execute(
	ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	mailbox := f.Arg(0)
	id := f.Arg(1)
	if mailbox == "" || id == "" {
		return usage("mailbox and id required")
	}

	// Setup rest client
	c, err := client.New(baseURL())
	if err != nil {
		return fatal("Couldn't build client", err)
	}

	msg, err := c.GetMessage(ctx, mailbox, id)
	if err != nil {
		return fatal("REST call failed", err)
	}
	fmt.Printf("From: %s\nSubject: %s\nDate: %s\n\n%s\n",
		msg.From, msg.Subject, msg.Date.Format("2006-01-02 15:04:05"), msg.Body)

	return subcommands.ExitSuccess
}
