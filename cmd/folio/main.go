// Command folio serves, checks, and exports a folio site.
package main

import (
	"errors"
	"io/fs"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
)

// version is set at build time via ldflags.
var version = "dev"

// CLI definition & global flags.
type CLI struct {
	EnvFile string           `name:"env-file" default:".env" help:"Load environment variables from this file when it exists."`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Serve  ServeCmd  `cmd:"" default:"1" help:"Serve the site"`
	Export ExportCmd `cmd:"" help:"Render the site to static files"`
	Posts  PostsCmd  `cmd:"" help:"List posts"`
	Check  CheckCmd  `cmd:"" help:"Validate every post and its local images"`
	Images ImagesCmd `cmd:"" help:"Generate responsive image variants"`
	New    NewCmd    `cmd:"" help:"Create a new folio project"`
	Draft  DraftCmd  `cmd:"" help:"Create a new post"`
}

// AfterApply runs after flag parsing, before any command. Variables already
// set in the environment win over the file.
func (c *CLI) AfterApply() error {
	if c.EnvFile == "" {
		return nil
	}
	if err := godotenv.Load(c.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("folio"),
		kong.Description("A portfolio and blog engine built with Go, Echo, and templ."),
		kong.UsageOnError(),
		kong.Vars{"version": "folio " + version},
	)
	ctx.FatalIfErrorf(ctx.Run(&cli))
}
