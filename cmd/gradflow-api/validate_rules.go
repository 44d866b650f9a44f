package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dukex/gradflow/pkg/rules"
	cli "github.com/urfave/cli/v3"
)

// ValidateRulesCommand checks a rule table file and prints its state graph.
func ValidateRulesCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate-rules",
		Usage:     "Validate a rule table file and print its state graph",
		ArgsUsage: "[rules.yaml]",
		Action: func(_ context.Context, command *cli.Command) error {
			path := command.Args().First()
			if path == "" {
				path = command.String("rules-file")
			}

			table, err := rules.FromPath(path)
			if err != nil {
				return err
			}

			printGraph(command.Root().Writer, table)

			return nil
		},
	}
}

func printGraph(w io.Writer, table *rules.Table) {
	fmt.Fprintf(w, "initial: %s\n", table.Initial())

	for _, state := range table.States() {
		if table.IsTerminal(state) {
			fmt.Fprintf(w, "%s (terminal)\n", state)

			continue
		}

		fmt.Fprintln(w, state)

		actions, _ := table.Actions(state)
		for _, action := range actions {
			fields := make([]string, 0, len(action.SubmitData))
			for _, field := range action.SubmitData {
				fields = append(fields, field.Name)
			}

			fmt.Fprintf(w, "  %s [%s] %s -> %s", action.Key, action.WhoCan, action.Name, action.Next)

			if len(fields) > 0 {
				fmt.Fprintf(w, " (%s)", strings.Join(fields, ", "))
			}

			fmt.Fprintln(w)
		}
	}
}
