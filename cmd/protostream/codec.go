package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newEncodeCmd(opts *options) *cobra.Command {
	var (
		messageType string
		inputFormat string
		hexOutput   bool
	)

	cmd := &cobra.Command{
		Use:   "encode [file]",
		Short: "Encode a JSON or YAML document as a protobuf message",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ps, err := opts.load()
			if err != nil {
				return err
			}
			input, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			doc, err := parseDocument(input, inputFormat)
			if err != nil {
				return err
			}

			data, err := ps.Marshal(doc, messageType)
			if err != nil {
				return err
			}
			if hexOutput {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(data))
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().StringVarP(&messageType, "type", "t", "", "message type to encode")
	cmd.Flags().StringVar(&inputFormat, "input", "json", "input format: json or yaml")
	cmd.Flags().BoolVar(&hexOutput, "hex", false, "print the encoding as hex")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func newDecodeCmd(opts *options) *cobra.Command {
	var (
		messageType string
		hexInput    bool
	)

	cmd := &cobra.Command{
		Use:   "decode [file]",
		Short: "Decode a protobuf message to JSON or YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ps, err := opts.load()
			if err != nil {
				return err
			}
			data, err := readBinary(cmd, args, hexInput)
			if err != nil {
				return err
			}

			result, err := ps.Parse(data, messageType)
			if err != nil {
				return err
			}
			return writeDocument(cmd, result, opts.outputFormat)
		},
	}

	cmd.Flags().StringVarP(&messageType, "type", "t", "", "message type to decode")
	cmd.Flags().BoolVar(&hexInput, "hex", false, "input is hex encoded")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func readBinary(cmd *cobra.Command, args []string, hexInput bool) ([]byte, error) {
	data, err := readInput(cmd, args)
	if err != nil || !hexInput {
		return data, err
	}
	decoded, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("invalid hex input: %w", err)
	}
	return decoded, nil
}

func parseDocument(input []byte, format string) (map[string]any, error) {
	var doc map[string]any
	switch strings.ToLower(format) {
	case "json":
		dec := json.NewDecoder(bytes.NewReader(input))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("invalid JSON input: %w", err)
		}
	case "yaml":
		if err := yaml.Unmarshal(input, &doc); err != nil {
			return nil, fmt.Errorf("invalid YAML input: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported input format %q", format)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}
