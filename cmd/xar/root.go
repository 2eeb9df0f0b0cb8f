package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	flagCreate     = "create"
	flagExtract    = "extract"
	flagList       = "list"
	flagFile       = "file"
	flagDir        = "directory"
	flagVerbose    = "verbose"
	flagDumpHeader = "dump-header"
	flagDumpTOC    = "dump-toc"
	flagVersion    = "version"
	flagVerify     = "verify"
	flagChecksum   = "checksum"
	flagWorkers    = "workers"
	flagConfig     = "config"
	flagS3Region   = "s3-region"
	flagS3Endpoint = "s3-endpoint"
	flagS3Path     = "s3-path-style"
)

var errNoMode = errors.New("specify one of -c, -x, -t, --dump-header, --dump-toc or --version")

// cli carries the resolved settings of one invocation.
type cli struct {
	v      *viper.Viper
	out    io.Writer
	errOut io.Writer
	logger *slog.Logger
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	c := &cli{v: viper.New(), out: out, errOut: errOut}

	cmd := &cobra.Command{
		Use:   "xar -c|-x|-t -f ARCHIVE [flags] [paths...]",
		Short: "Create, list and extract xar archives",
		Long: `xar reads and writes eXtensible ARchives.

Archives given to -f may be local paths, http(s):// URLs or s3://bucket/key
URLs. Remote archives are read with range requests.

  xar -c -f out.xar ./dir          pack the contents of ./dir
  xar -t -v -f https://host/a.xar  list entries with details
  xar -x -f a.xar -C dest dir/a.txt extract one entry
  xar --dump-toc toc.xml -f a.xar  write the TOC document`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.initConfig(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, args)
		},
	}
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	flags := cmd.Flags()
	flags.BoolP(flagCreate, "c", false, "create an archive from a directory")
	flags.BoolP(flagExtract, "x", false, "extract entries")
	flags.BoolP(flagList, "t", false, "list entries")
	flags.StringP(flagFile, "f", "", "archive path or URL")
	flags.StringP(flagDir, "C", ".", "destination directory for -x")
	flags.CountP(flagVerbose, "v", "increase verbosity")
	flags.Bool(flagDumpHeader, false, "print the archive header")
	flags.String(flagDumpTOC, "", "write the TOC document to `file` (- for stdout)")
	flags.Bool(flagVersion, false, "print the version")
	flags.Bool(flagVerify, false, "verify the TOC checksum and extracted files")
	flags.String(flagChecksum, "sha1", "checksum algorithm for -c (none, sha1, md5)")
	flags.Int(flagWorkers, 4, "concurrent extraction workers")
	flags.String(flagConfig, "", "config file (default is $HOME/.xar.yaml)")
	flags.String(flagS3Region, "", "AWS region for s3:// archives")
	flags.String(flagS3Endpoint, "", "custom S3 endpoint URL")
	flags.Bool(flagS3Path, false, "use path-style S3 addressing")

	return cmd
}

// initConfig layers flags over XAR_* environment variables over the config file.
func (c *cli) initConfig(cmd *cobra.Command) error {
	if err := c.v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	c.v.SetEnvPrefix("xar")
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()

	if cfgFile := c.v.GetString(flagConfig); cfgFile != "" {
		c.v.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			return fmt.Errorf("find home directory: %w", err)
		}
		c.v.AddConfigPath(home)
		c.v.SetConfigName(".xar")
		c.v.SetConfigType("yaml")
	}
	if err := c.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	level := slog.LevelWarn
	switch n := c.v.GetInt(flagVerbose); {
	case n >= 2:
		level = slog.LevelDebug
	case n == 1:
		level = slog.LevelInfo
	}
	c.logger = slog.New(slog.NewTextHandler(c.errOut, &slog.HandlerOptions{Level: level}))
	if used := c.v.ConfigFileUsed(); used != "" {
		c.logger.Debug("using config file", "path", used)
	}
	return nil
}

func (c *cli) run(cmd *cobra.Command, args []string) error {
	modes := 0
	for _, name := range []string{flagCreate, flagExtract, flagList, flagDumpHeader, flagVersion} {
		if c.v.GetBool(name) {
			modes++
		}
	}
	if c.v.GetString(flagDumpTOC) != "" {
		modes++
	}
	switch {
	case modes == 0:
		_ = cmd.Usage() //nolint:errcheck // usage goes to stderr
		return errNoMode
	case modes > 1:
		return errors.New("only one of -c, -x, -t, --dump-header, --dump-toc and --version may be given")
	}

	if c.v.GetBool(flagVersion) {
		_, err := fmt.Fprintf(c.out, "xar %s\n", version)
		return err
	}

	location := c.v.GetString(flagFile)
	if location == "" {
		return errors.New("an archive is required (-f)")
	}

	ctx := cmd.Context()
	switch {
	case c.v.GetBool(flagCreate):
		return c.create(ctx, location, args)
	case c.v.GetBool(flagExtract):
		return c.extract(ctx, location, args)
	case c.v.GetBool(flagList):
		return c.list(ctx, location, args)
	case c.v.GetBool(flagDumpHeader):
		return c.dumpHeader(ctx, location)
	default:
		return c.dumpTOC(ctx, location, c.v.GetString(flagDumpTOC))
	}
}
