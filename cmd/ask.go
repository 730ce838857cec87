// File: cmd/ask.go
package cmd

import (
	"fmt"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/promptrelay/api/schemas"
	"github.com/xkilldash9x/promptrelay/internal/observability"
	"github.com/xkilldash9x/promptrelay/internal/provider"
	"github.com/xkilldash9x/promptrelay/internal/relay"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func newAskCommand() *cobra.Command {
	var (
		providerNames []string
		rawOutput     bool
		jsonOutput    bool
	)

	askCmd := &cobra.Command{
		Use:   "ask [prompt]",
		Short: "Send a prompt to one or more providers and print the reconstructed answer.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := strings.Join(args, " ")
			logger := observability.GetLogger()

			profiles := make([]provider.Profile, 0, len(providerNames))
			for _, name := range providerNames {
				p, ok := provider.Lookup(name)
				if !ok {
					return fmt.Errorf("unknown provider %q", name)
				}
				profiles = append(profiles, p)
			}

			// Sessions are fully independent, so providers run concurrently,
			// one tab each.
			var mu sync.Mutex
			results := make(map[provider.ID]schemas.CaptureResult, len(profiles))

			g, ctx := errgroup.WithContext(cmd.Context())
			for _, profile := range profiles {
				g.Go(func() error {
					r, err := relay.New(ctx, cfg, profile, logger)
					if err != nil {
						return err
					}
					defer r.Close()

					result, err := r.Ask(ctx, prompt)
					if err != nil {
						return fmt.Errorf("%s: %w", profile.ID, err)
					}
					mu.Lock()
					results[profile.ID] = result
					mu.Unlock()
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			for _, profile := range profiles {
				result, ok := results[profile.ID]
				if !ok {
					continue
				}
				if err := printResult(cmd, profile.ID, result, len(profiles) > 1, rawOutput, jsonOutput); err != nil {
					return err
				}
				logger.Debug("Capture finished.",
					zap.String("provider", string(profile.ID)),
					zap.Int("frames", len(result.Frames)),
					zap.Duration("elapsed", result.Elapsed))
			}
			return nil
		},
	}

	askCmd.Flags().StringSliceVarP(&providerNames, "provider", "p", []string{"chatgpt"},
		"provider front end(s) to ask (chatgpt, gemini)")
	askCmd.Flags().BoolVar(&rawOutput, "raw", false, "print the answer with Markdown/LaTeX markup intact")
	askCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the full capture result as JSON")
	return askCmd
}

func printResult(cmd *cobra.Command, id provider.ID, result schemas.CaptureResult, labeled, raw, asJSON bool) error {
	out := cmd.OutOrStdout()
	if asJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}
	if labeled {
		fmt.Fprintf(out, "--- %s ---\n", id)
	}
	if raw {
		fmt.Fprintln(out, result.RawText)
	} else {
		fmt.Fprintln(out, result.Text)
	}
	return nil
}

func newProvidersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List the supported provider front ends.",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, p := range provider.All() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s\n", p.ID, p.URL)
			}
			return nil
		},
	}
}
