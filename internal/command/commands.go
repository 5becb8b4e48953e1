// Package command parses chat messages addressed to the importer and
// dispatches them to the batch orchestrator or the diagnostic dump.
package command

// Handler identifiers mapping sub-commands to dispatcher actions.
const (
	HandlerImport = "import"
	HandlerDump   = "dump"
	HandlerHelp   = "help"
)

// DefaultPrefix is the chat prefix the importer answers to, without the "!".
const DefaultPrefix = "tac"

// Subcommand defines one operator-invocable sub-command.
type Subcommand struct {
	// Name is the canonical flag name, written as --<name>.
	Name string
	// Aliases are alternate flag names.
	Aliases []string
	// Usage is the help line shown for the sub-command.
	Usage string
	// Handler selects the dispatcher action.
	Handler string
}

// BuiltinSubcommands returns the sub-commands in help order.
func BuiltinSubcommands() []Subcommand {
	return []Subcommand{
		{
			Name:    "import",
			Usage:   "Use --import {json} to import TAC data.",
			Handler: HandlerImport,
		},
		{
			Name:    "dump",
			Usage:   "Use --dump to log every character and its attributes.",
			Handler: HandlerDump,
		},
		{
			Name:    "help",
			Aliases: []string{"h"},
			Usage:   "Use --help to show this message.",
			Handler: HandlerHelp,
		},
	}
}
