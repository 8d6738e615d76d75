package cli

import (
	"github.com/spf13/cobra"

	"github.com/alanyoungcy/polycache/internal/codec"
)

// TranscodeOptions holds flags of the transcode command.
type TranscodeOptions struct {
	Input  string
	Output string
	Type   string
	Prefix string
	Suffix string
}

// NewTranscodeCommand creates the transcode command.
func NewTranscodeCommand(_ *RootOptions) *cobra.Command {
	opts := &TranscodeOptions{}

	cmd := &cobra.Command{
		Use:   "transcode",
		Short: "Convert records between API JSON and the store encoding",
		Long: `Read records from stdin and write them to stdout in another format.
JSON input is a stream of documents; binary input is a sequence of items,
each behind an 8-byte little-endian length. Binary output goes through the
same admission gate as a download.

Unless set explicitly, binary output is framed with len-u64-le and JSON
output ends each document with a newline.`,
		Example: `  polycache transcode -i json -o binary --type market-response < market.json > market.bin
  polycache transcode -i binary -o json --type order-book < books.bin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranscode(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "input format (json|binary)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output format (json|binary)")
	cmd.Flags().StringVar(&opts.Type, "type", "", "record type (market-response|order-book)")
	cmd.Flags().StringVarP(&opts.Prefix, "prefix", "p", "", "length prefix written before each item (len-u64-le|len-u64-be)")
	cmd.Flags().StringVarP(&opts.Suffix, "suffix", "s", "", "bytes written after each item")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}

func runTranscode(cmd *cobra.Command, opts *TranscodeOptions) error {
	in, err := codec.ParseFormat(opts.Input)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid input format", err)
	}
	out, err := codec.ParseFormat(opts.Output)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid output format", err)
	}
	typ, err := codec.ParseRecordType(opts.Type)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid record type", err)
	}
	prefix, err := codec.ParsePrefix(opts.Prefix)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid prefix", err)
	}

	suffix := []byte(opts.Suffix)
	if out == codec.FormatBinary && !cmd.Flags().Changed("prefix") {
		prefix = codec.PrefixLenU64LE
	}
	if out == codec.FormatJSON && !cmd.Flags().Changed("suffix") {
		suffix = []byte("\n")
	}

	t := codec.Transcoder{In: in, Out: out, Type: typ, Prefix: prefix, Suffix: suffix}
	_, err = t.Run(cmd.InOrStdin(), cmd.OutOrStdout())
	return err
}
