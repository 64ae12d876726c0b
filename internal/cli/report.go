package cli

import (
	"fmt"
	"io"
	"os"
)

// outcome is the result of applying one manifest document.
type outcome struct {
	Source  string `json:"source"`
	Kind    string `json:"kind"`
	Name    string `json:"name"`
	ID      int64  `json:"id,omitempty"`
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func succeeded(m Manifest, msg string) outcome {
	return outcome{Source: m.Source, Kind: string(m.Kind), Name: m.Name(), ID: m.ID, OK: true, Message: msg}
}

func failed(m Manifest, err error) outcome {
	return outcome{Source: m.Source, Kind: string(m.Kind), Name: m.Name(), ID: m.ID, Error: errorText(err)}
}

// printOutcomes prints one line per document. Failures go to stderr unless
// errors are being ignored, in which case the whole report stays on stdout.
func printOutcomes(outcomes []outcome, verb string, ignoreErrors bool) {
	if len(outcomes) == 0 {
		return
	}
	if jsonOutput {
		printJSON(outcomes)
		return
	}
	for _, o := range outcomes {
		if o.OK {
			okLabel.Fprintf(os.Stdout, "[OK] ")
			fmt.Fprintf(os.Stdout, "%s %s: %s", verb, o.Kind, o.Name)
			if o.Message != "" {
				fmt.Fprintf(os.Stdout, " (%s)", o.Message)
			}
			fmt.Fprintln(os.Stdout)
			continue
		}
		var w io.Writer = os.Stderr
		if ignoreErrors {
			w = os.Stdout
		}
		errorLabel.Fprintf(w, "[ERROR] ")
		fmt.Fprintf(w, "%s: %s: %s\n", o.Kind, o.Name, o.Error)
	}
}

// hasFailures reports whether any outcome failed.
func hasFailures(outcomes []outcome) bool {
	for _, o := range outcomes {
		if !o.OK {
			return true
		}
	}
	return false
}
