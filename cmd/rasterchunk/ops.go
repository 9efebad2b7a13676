package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/eak1mov/go-rasterchunk/ops"
	"github.com/google/subcommands"
)

type opsCmd struct{}

func (c *opsCmd) Name() string             { return "ops" }
func (c *opsCmd) Synopsis() string         { return "list available operations" }
func (c *opsCmd) Usage() string            { return "rasterchunk ops\n" }
func (c *opsCmd) SetFlags(f *flag.FlagSet) {}

func (c *opsCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	for _, name := range ops.Names() {
		description, _ := ops.Describe(name)
		fmt.Printf("%-12s %s\n", name, description)
	}
	return subcommands.ExitSuccess
}
