// Command wpkgar inspects, builds and converts package archives.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/unigw/wpkgar"
	"github.com/unigw/wpkgar/fileinfo"
)

var (
	verbose  bool
	logger   *slog.Logger
	fileOpts []wpkgar.Option
)

func main() {
	root := &cobra.Command{
		Use:           "wpkgar",
		Short:         "inspect, build and convert package archives",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
			fileOpts = []wpkgar.Option{wpkgar.WithLogger(logger)}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newListCmd(),
		newCreateCmd(),
		newExtractCmd(),
		newMD5SumCmd(),
		newCompressCmd(),
		newDecompressCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "wpkgar:", err)
		os.Exit(1)
	}
}

func newListCmd() *cobra.Command {
	var recursive bool
	cmd := &cobra.Command{
		Use:   "list <archive>",
		Short: "list archive entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			f := wpkgar.New(fileOpts...)
			if err := f.ReadFile(args[0]); err != nil {
				return err
			}
			dir, err := f.DirRewind(wpkgar.WithRecursive(recursive))
			if err != nil {
				return err
			}
			for {
				info, _, err := dir.Next()
				if errors.Is(err, io.EOF) {
					return nil
				}
				if err != nil {
					return err
				}
				printEntry(info)
			}
		},
	}
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", true, "descend into subdirectories")
	return cmd
}

func printEntry(info *fileinfo.Info) {
	date := "-"
	if mtime, ok := info.MTime(); ok {
		date = mtime.UTC().Format("2006-01-02 15:04:05")
	}
	name := info.FilenameOr("?")
	if target, ok := info.LinkTo(); ok && target != "" {
		name += " -> " + target
	}
	fmt.Printf("%s %8s/%-8s %10d %s %s\n",
		info.ModeString(),
		info.UserOr("-"), info.GroupOr("-"),
		info.SizeOr(0), date, name)
}

func newCreateCmd() *cobra.Command {
	var formatName string
	cmd := &cobra.Command{
		Use:   "create <archive> <directory>",
		Short: "build an archive from a directory tree",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			format, err := wpkgar.ParseFormat(formatName)
			if err != nil {
				return err
			}

			src := wpkgar.New(fileOpts...)
			if err := src.ReadFile(args[1]); err != nil {
				return err
			}
			dir, err := src.DirRewind()
			if err != nil {
				return err
			}

			out := wpkgar.New(fileOpts...)
			if err := out.Create(format); err != nil {
				return err
			}
			for {
				info, data, err := dir.Next()
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					return err
				}
				if err := out.AppendFile(info, data); err != nil {
					return err
				}
			}
			if err := out.CloseArchive(); err != nil {
				return err
			}
			return out.WriteFile(args[0])
		},
	}
	cmd.Flags().StringVarP(&formatName, "format", "f", "tar", "archive format (tar, ar, wpkg, meta)")
	return cmd
}

func newExtractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract <archive> <directory>",
		Short: "extract an archive into a directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			src := wpkgar.New(fileOpts...)
			if err := src.ReadFile(args[0]); err != nil {
				return err
			}
			if src.Format().IsCompressed() {
				plain := wpkgar.New(fileOpts...)
				if err := src.Decompress(plain); err != nil {
					return err
				}
				src = plain
			}
			dir, err := src.DirRewind()
			if err != nil {
				return err
			}

			if err := os.MkdirAll(args[1], 0o755); err != nil {
				return err
			}
			dst := wpkgar.New(fileOpts...)
			if err := dst.Create(wpkgar.Directory); err != nil {
				return err
			}
			dst.SetFilename(args[1])
			for {
				info, data, err := dir.Next()
				if errors.Is(err, io.EOF) {
					return nil
				}
				if err != nil {
					return err
				}
				if err := dst.AppendFile(info, data); err != nil {
					return err
				}
			}
		},
	}
}

func newMD5SumCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "md5sum <file>...",
		Short: "print the MD5 digest of each file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			for _, name := range args {
				f := wpkgar.New(fileOpts...)
				if err := f.ReadFile(name); err != nil {
					return err
				}
				sum, err := f.MD5Sum()
				if err != nil {
					return err
				}
				fmt.Printf("%s  %s\n", sum, name)
			}
			return nil
		},
	}
}

func newCompressCmd() *cobra.Command {
	var (
		formatName string
		level      int
	)
	cmd := &cobra.Command{
		Use:   "compress <input> <output>",
		Short: "compress a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			format, err := wpkgar.ParseFormat(formatName)
			if err != nil {
				return err
			}
			src := wpkgar.New(fileOpts...)
			if err := src.ReadFile(args[0]); err != nil {
				return err
			}
			dst := wpkgar.New(fileOpts...)
			if err := src.Compress(dst, format, level); err != nil {
				return err
			}
			return dst.WriteFile(args[1])
		},
	}
	cmd.Flags().StringVarP(&formatName, "format", "f", "best", "compression format (gzip, bzip2, zstd, best)")
	cmd.Flags().IntVarP(&level, "level", "l", 9, "compression level (1-9)")
	return cmd
}

func newDecompressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decompress <input> <output>",
		Short: "decompress a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			src := wpkgar.New(fileOpts...)
			if err := src.ReadFile(args[0]); err != nil {
				return err
			}
			dst := wpkgar.New(fileOpts...)
			if err := src.Decompress(dst); err != nil {
				return err
			}
			return dst.WriteFile(args[1])
		},
	}
}
