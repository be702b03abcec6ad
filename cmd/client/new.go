package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/inbucket/mailbag/pkg/rest/client"
)

type newCmd struct{}

func (*newCmd) Name() string {
	return "new"
}

func (*newCmd) Synopsis() string {
	return "allocate a new mailbox"
}

func (*newCmd) Usage() string {
	return `new:
	allocate a new mailbox, print its address
`
}

func (n *newCmd) SetFlags(f *flag.FlagSet) {}

func (n *newCmd) Execute(
	ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	// Setup rest client
	c, err := client.New(baseURL())
	if err != nil {
		return fatal("Couldn't build client", err)
	}

	addr, err := c.CreateMailbox(ctx)
	if err != nil {
		return fatal("REST call failed", err)
	}
	fmt.Println(addr)

	return subcommands.ExitSuccess
}
