package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/anirudhraja/protostream"
)

func newRawCmd(opts *options) *cobra.Command {
	var hexInput bool

	cmd := &cobra.Command{
		Use:   "raw [file]",
		Short: "Dump the fields of a message without a schema",
		Long: `raw prints every field of a protobuf message keyed by field number,
with its wire type and undecoded value. No schema is needed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readBinary(cmd, args, hexInput)
			if err != nil {
				return err
			}
			result, err := protostream.New().ParseRaw(data)
			if err != nil {
				return err
			}
			return writeDocument(cmd, result, opts.outputFormat)
		},
	}

	cmd.Flags().BoolVar(&hexInput, "hex", false, "input is hex encoded")
	return cmd
}

func newListCmd(opts *options) *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the message and enum types of the loaded schemas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ps, err := opts.load()
			if err != nil {
				return err
			}

			switch strings.ToLower(kind) {
			case "messages":
				return writeList(cmd, "Messages", ps.ListMessages())
			case "enums":
				return writeList(cmd, "Enums", ps.ListEnums())
			default:
				if err := writeList(cmd, "Messages", ps.ListMessages()); err != nil {
					return err
				}
				return writeList(cmd, "Enums", ps.ListEnums())
			}
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "all", "what to list: messages, enums or all")
	return cmd
}
