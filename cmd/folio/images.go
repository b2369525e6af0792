package main

import (
	"fmt"

	"github.com/eringen/folio/media"
)

// ImagesCmd generates width variants for every image in the static dir.
type ImagesCmd struct {
	Static string `short:"s" help:"Static directory (overrides STATIC_DIR)."`
	Force  bool   `short:"f" help:"Regenerate variants that are up to date."`
}

func (i *ImagesCmd) Run(_ *CLI) error {
	root := staticDir(i.Static)
	sources, err := media.FindImages(root)
	if err != nil {
		return err
	}

	created, skipped := 0, 0
	for _, src := range sources {
		variants, err := media.GenerateVariants(src, media.Widths, i.Force)
		if err != nil {
			return fmt.Errorf("%s: %w", src, err)
		}
		for _, v := range variants {
			if v.Skipped {
				skipped++
				continue
			}
			created++
			fmt.Printf("  created %s (%dx%d)\n", v.Path, v.Width, v.Height)
		}
	}
	fmt.Printf("%d images, %d variants written, %d up to date\n", len(sources), created, skipped)
	return nil
}
