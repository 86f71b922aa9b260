package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/docsbuild/cmd/docsbuild/commands"
	ferrors "git.home.luguber.info/inful/docsbuild/internal/foundation/errors"
	"git.home.luguber.info/inful/docsbuild/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	cli := &commands.CLI{}
	err := run(ctx, cli, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		ferrors.NewCLIErrorAdapter(cli.Verbose, nil).HandleError(err)
	}
}

func run(ctx context.Context, cli *commands.CLI, args []string, stdout, stderr io.Writer) error {
	parser, err := kong.New(cli,
		kong.Name("docsbuild"),
		kong.Description("Build a documentation site with a static-site generator and validate the result."),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
		commands.Vars(version.String()),
		kong.Bind(cli, &commands.Global{Stdout: stdout, Stderr: stderr}),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	if err != nil {
		return fmt.Errorf("build command line parser: %w", err)
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return ferrors.ConfigError("invalid command line").WithCause(err).Build()
	}
	return kctx.Run()
}
