package main

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"discdrive/internal/disc"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

var acronyms = map[string]bool{"cd": true, "dvd": true, "ptp": true, "otp": true}

// mediaLabel turns a media type label such as dvd_dual_layer_otp into
// "DVD Dual Layer OTP".
func mediaLabel(m disc.MediaType) string {
	upper := cases.Upper(language.Und)
	title := cases.Title(language.Und)
	words := strings.Split(m.String(), "_")
	for i, word := range words {
		if acronyms[word] {
			words[i] = upper.String(word)
		} else {
			words[i] = title.String(word)
		}
	}
	return strings.Join(words, " ")
}
