package commands

import (
	"fmt"

	"git.home.luguber.info/inful/docsbuild/internal/artifact"
	ferrors "git.home.luguber.info/inful/docsbuild/internal/foundation/errors"
)

// CompareCmd implements the 'compare' command.
type CompareCmd struct {
	Left  string `arg:"" help:"First output tree" type:"existingdir"`
	Right string `arg:"" help:"Second output tree" type:"existingdir"`
}

func (c *CompareCmd) Run(g *Global) error {
	diff, err := artifact.Compare(c.Left, c.Right)
	if err != nil {
		return ferrors.FileSystemError("cannot read output trees").WithCause(err).Build()
	}
	if diff.Equal() {
		_, _ = fmt.Fprintln(g.stdout(), "Trees are structurally identical")
		return nil
	}
	_, _ = fmt.Fprint(g.stdout(), diff.String())
	return ferrors.ValidationError("output trees differ").
		WithContext("only_left", len(diff.OnlyLeft)).
		WithContext("only_right", len(diff.OnlyRight)).
		Build()
}
