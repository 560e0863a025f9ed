package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/anirudhraja/protostream"
	"github.com/anirudhraja/protostream/dynamic"
	"github.com/anirudhraja/protostream/registry"
	"github.com/anirudhraja/protostream/wire"
)

type options struct {
	protoPaths   []string // -I: import search directories
	protoFiles   []string // schemas to load
	outputFormat string
	verbose      bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "protostream",
		Short: "Encode, decode and inspect protobuf wire data without generated code",
		Long: `protostream loads .proto schemas at runtime and converts between the
protobuf binary wire format and JSON or YAML documents.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !opts.verbose {
				return nil
			}
			logger, err := zap.NewDevelopment()
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			wire.SetLogger(logger.Named("wire"))
			registry.SetLogger(logger.Named("registry"))
			dynamic.SetLogger(logger.Named("dynamic"))
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringSliceVarP(&opts.protoPaths, "proto-path", "I", nil, "directory to search for .proto files and their imports")
	flags.StringSliceVarP(&opts.protoFiles, "proto", "p", nil, ".proto file or directory to load")
	flags.StringVarP(&opts.outputFormat, "output", "o", "json", "output format: json or yaml")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log schema loading and decoding to stderr")

	root.AddCommand(
		newEncodeCmd(opts),
		newDecodeCmd(opts),
		newRawCmd(opts),
		newListCmd(opts),
	)
	return root
}

// load builds a Protostream from the --proto and --proto-path flags. With
// import directories, files are resolved against them and their imports are
// followed; otherwise each path is loaded as given.
func (o *options) load() (protostream.Protostream, error) {
	if len(o.protoFiles) == 0 {
		return nil, fmt.Errorf("no schema given, use --proto")
	}

	ps := protostream.New(o.protoPaths...)
	for _, path := range o.protoFiles {
		var err error
		if len(o.protoPaths) > 0 && filepath.Ext(path) == ".proto" && !filepath.IsAbs(path) {
			err = ps.LoadFile(path)
		} else {
			err = ps.LoadSchemaFromFile(path)
		}
		if err != nil {
			return nil, err
		}
	}
	return ps, nil
}

// readInput reads the named file, or stdin when no file is given or the
// name is "-".
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(args[0])
}
