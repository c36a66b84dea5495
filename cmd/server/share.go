package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/livebox/internal/domain/share"
	"github.com/GriffinCanCode/livebox/internal/shared/types"
)

var (
	shareMarkup string
	shareStyle  string
	shareScript string
	shareFormat string
	shareDecode string
)

var shareCmd = &cobra.Command{
	Use:   "share",
	Short: "Encode fragments into a share token, or decode one",
	Long: `Encode files into a token usable as ?code= on a share link, or print the
fragments carried by an existing token.

Examples:
  livebox share --markup index.html --script app.js
  livebox share --decode z.eJyrVs...`,
	RunE: runShare,
}

func init() {
	shareCmd.Flags().StringVar(&shareMarkup, "markup", "", "HTML file")
	shareCmd.Flags().StringVar(&shareStyle, "style", "", "CSS file")
	shareCmd.Flags().StringVar(&shareScript, "script", "", "JavaScript file")
	shareCmd.Flags().StringVar(&shareFormat, "format", string(share.FormatCompact), "token format: compact or legacy")
	shareCmd.Flags().StringVar(&shareDecode, "decode", "", "token to decode")
}

func runShare(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	if shareDecode != "" {
		bundle, err := share.Decode(shareDecode)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "<!-- markup -->\n%s\n/* style */\n%s\n// script\n%s\n", bundle.Markup, bundle.Style, bundle.Script)
		return nil
	}

	var bundle types.SourceBundle
	for f, path := range map[types.Fragment]string{
		types.FragmentMarkup: shareMarkup,
		types.FragmentStyle:  shareStyle,
		types.FragmentScript: shareScript,
	} {
		text, err := readFragment(path)
		if err != nil {
			return err
		}
		bundle = bundle.With(f, text)
	}

	token, err := share.Encode(bundle, share.Format(shareFormat))
	if err != nil {
		return err
	}
	fmt.Fprintln(out, token)
	return nil
}
