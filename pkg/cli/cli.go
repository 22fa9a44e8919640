package cli

import (
	"context"
	"flag"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/lirigen/lirigen/pkg/cmd/check"
	"github.com/lirigen/lirigen/pkg/cmd/download"
	"github.com/lirigen/lirigen/pkg/cmd/generate"
	"github.com/lirigen/lirigen/pkg/cmd/paste"
	"github.com/lirigen/lirigen/pkg/cmd/web"
	"github.com/peterbourgon/ff/ffyaml"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
)

func New(version, commit, date string) *ffcli.Command {
	fs := flag.NewFlagSet("lirigen", flag.ExitOnError)

	return &ffcli.Command{
		ShortUsage: "lirigen [flags] <subcommand>",
		FlagSet:    fs,
		Exec: func(context.Context, []string) error {
			return flag.ErrHelp
		},
		Subcommands: []*ffcli.Command{
			newVersionCommand(version, commit, date),
			newGenerateCommand(),
			newCheckCommand(),
			newPasteCommand(),
			newDownloadCommand(),
			newWebCommand(),
		},
	}
}

func newVersionCommand(version, commit, date string) *ffcli.Command {
	return &ffcli.Command{
		Name:       "version",
		ShortUsage: "lirigen version",
		ShortHelp:  "print version",
		Exec: func(ctx context.Context, args []string) error {
			v := version
			if v == "" {
				if buildInfo, ok := debug.ReadBuildInfo(); ok {
					v = buildInfo.Main.Version
				}
			}
			if v == "" {
				v = "dev"
			}
			versionFields := []string{v}
			if commit != "" {
				versionFields = append(versionFields, commit)
			}
			if date != "" {
				versionFields = append(versionFields, date)
			}
			fmt.Println(strings.Join(versionFields, " "))
			return nil
		},
	}
}

func options() []ff.Option {
	return []ff.Option{
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ffyaml.Parser),
		ff.WithEnvVarPrefix("LIRIGEN"),
	}
}

func addClientFlags(fs *flag.FlagSet, apiKey *string, baseURL *string, proxy *string, wait *time.Duration, debug *bool) {
	fs.StringVar(apiKey, "api-key", "", "bearer token for the generation API")
	fs.StringVar(baseURL, "base-url", "", "base URL of the generation API (optional)")
	fs.StringVar(proxy, "proxy", "", "proxy URL (optional)")
	fs.DurationVar(wait, "wait", 1*time.Second, "minimum wait between API requests")
	fs.BoolVar(debug, "debug", false, "debug mode")
}

func newGenerateCommand() *ffcli.Command {
	cmd := "generate"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &generate.Config{}
	addClientFlags(fs, &cfg.APIKey, &cfg.BaseURL, &cfg.Proxy, &cfg.Wait, &cfg.Debug)
	fs.StringVar(&cfg.Prompt, "prompt", "", "lyrics or music description")
	fs.StringVar(&cfg.Style, "style", "", "style of the song")
	fs.StringVar(&cfg.Title, "title", "", "title for the song")
	fs.StringVar(&cfg.Model, "model", "V4", "model version (V3_5, V4, V4_5)")
	fs.BoolVar(&cfg.CustomMode, "custom", true, "custom mode with style and title control")
	fs.BoolVar(&cfg.Instrumental, "instrumental", false, "instrumental song")
	fs.StringVar(&cfg.NegativeTags, "negative-tags", "", "styles to avoid")
	fs.IntVar(&cfg.Count, "count", 2, "number of variations to generate")
	fs.DurationVar(&cfg.Watch, "watch", 0, "re-check interval until completion (0 disables)")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("lirigen %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "submit song generations",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return generate.Run(ctx, cfg)
		},
	}
}

func newCheckCommand() *ffcli.Command {
	cmd := "check"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &check.Config{}
	addClientFlags(fs, &cfg.APIKey, &cfg.BaseURL, &cfg.Proxy, &cfg.Wait, &cfg.Debug)
	fs.StringVar(&cfg.TaskID, "task", "", "task id to check")
	fs.DurationVar(&cfg.Watch, "watch", 0, "re-check interval until completion (0 disables)")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("lirigen %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "probe the status endpoints for a task",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return check.Run(ctx, cfg)
		},
	}
}

func newPasteCommand() *ffcli.Command {
	cmd := "paste"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &paste.Config{}
	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.Input, "input", "-", "callback payload file, - for stdin")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("lirigen %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "parse a manually pasted callback payload",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return paste.Run(ctx, cfg)
		},
	}
}

func newDownloadCommand() *ffcli.Command {
	cmd := "download"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &download.Config{}
	addClientFlags(fs, &cfg.APIKey, &cfg.BaseURL, &cfg.Proxy, &cfg.Wait, &cfg.Debug)
	fs.StringVar(&cfg.URL, "url", "", "audio url to download")
	fs.StringVar(&cfg.TaskID, "task", "", "task id to resolve the audio url from")
	fs.StringVar(&cfg.Output, "output", "", "output file")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("lirigen %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "download a completed song",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return download.Run(ctx, cfg)
		},
	}
}

func newWebCommand() *ffcli.Command {
	cmd := "web"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &web.Config{}
	addClientFlags(fs, &cfg.APIKey, &cfg.BaseURL, &cfg.Proxy, &cfg.Wait, &cfg.Debug)
	fs.StringVar(&cfg.Addr, "addr", ":1337", "address to listen on")
	fs.DurationVar(&cfg.Refresh, "refresh", 0, "background status refresh interval (0 disables)")
	var user, pass string
	fs.StringVar(&user, "user", "", "basic auth user (optional)")
	fs.StringVar(&pass, "pass", "", "basic auth password (optional)")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("lirigen %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  "serve the web front end",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			if user != "" {
				cfg.Credentials = map[string]string{user: pass}
			}
			return web.Serve(ctx, cfg)
		},
	}
}
