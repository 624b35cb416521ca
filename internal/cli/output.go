package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/ascgate/internal/api"
	"golang.org/x/term"
)

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (a *App) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	if isTerminal(a.out) {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

// printResponse writes an opaque body verbatim and anything else as JSON.
func (a *App) printResponse(resp *api.Response) error {
	if resp.Opaque {
		_, err := fmt.Fprintln(a.out, string(resp.Raw))
		return err
	}
	return a.printJSON(resp)
}
