package commands

// CheckCmd implements the 'check' command: load and render every post and
// print the report without writing anything.
type CheckCmd struct {
	Source string `short:"s" help:"Directory containing the posts" default:"." type:"path"`
	Drafts bool   `help:"Also check drafts as if they were to be rendered"`
}

func (c *CheckCmd) Run(g *Global, root *CLI) error {
	return execute(g, root, runRequest{
		source: c.Source,
		dryRun: true,
		drafts: c.Drafts,
	})
}
