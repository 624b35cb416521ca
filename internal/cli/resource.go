package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/dmitrijs2005/ascgate/internal/api"
	"github.com/dmitrijs2005/ascgate/internal/common"
	"github.com/spf13/cobra"
)

func (a *App) tokenCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a signed bearer token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tok, err := a.tokens.Issue(cmd.Context(), a.config.Credentials())
			if err != nil {
				return err
			}
			if asJSON {
				return a.printJSON(map[string]any{
					"token":     tok.Value,
					"issuedAt":  tok.IssuedAt.UTC(),
					"expiresAt": tok.ExpiresAt.UTC(),
				})
			}
			_, err = fmt.Fprintln(a.out, tok.Value)
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the token with its validity window")
	return cmd
}

func (a *App) resourceCommand(name, short string) *cobra.Command {
	method := strings.ToUpper(name)
	var (
		bodyPath string
		all      bool
	)

	cmd := &cobra.Command{
		Use:   name + " <endpoint> [key=value ...]",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := parseParams(args[1:])
			if err != nil {
				return err
			}
			req := api.Request{Method: method, Endpoint: args[0], Query: q}

			if method == http.MethodPost || method == http.MethodPatch {
				if bodyPath == "" {
					return fmt.Errorf("%w: %s needs --body", common.ErrConfiguration, name)
				}
				body, err := readBody(bodyPath, cmd.InOrStdin())
				if err != nil {
					return err
				}
				req.Body = body
			}

			resp, err := a.client.Execute(cmd.Context(), req, a.config.Credentials())
			if err != nil {
				return err
			}
			if all {
				if resp, err = a.followPages(cmd, resp); err != nil {
					return err
				}
			}
			return a.printResponse(resp)
		},
	}

	switch method {
	case http.MethodPost, http.MethodPatch:
		cmd.Flags().StringVar(&bodyPath, "body", "", "JSON document to send, - for stdin")
	case http.MethodGet:
		cmd.Flags().BoolVar(&all, "all", false, "follow links.next and merge every page")
	}
	return cmd
}

// followPages fetches every following page and appends its records to resp.
func (a *App) followPages(cmd *cobra.Command, resp *api.Response) (*api.Response, error) {
	merged := *resp
	for page := resp; ; {
		next, ok := api.NextPage(page)
		if !ok {
			break
		}
		var err error
		page, err = a.client.Execute(cmd.Context(), next, a.config.Credentials())
		if err != nil {
			return nil, err
		}
		merged.Records = append(merged.Records, page.Records...)
		merged.Included = append(merged.Included, page.Included...)
	}
	merged.Links = api.Links{Self: resp.Links.Self}
	merged.Raw = nil
	return &merged, nil
}

// parseParams turns key=value arguments into an ordered query.
func parseParams(args []string) (api.Query, error) {
	var q api.Query
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: query parameter %q is not key=value", common.ErrConfiguration, arg)
		}
		q = q.Set(key, value)
	}
	return q, nil
}

func readBody(path string, stdin io.Reader) (json.RawMessage, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", common.ErrConfiguration, err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: body %s is not valid JSON", common.ErrConfiguration, path)
	}
	return json.RawMessage(data), nil
}
