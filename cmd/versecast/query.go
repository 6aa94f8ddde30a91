package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrWong99/versecast/internal/app"
	"github.com/MrWong99/versecast/internal/config"
	"github.com/MrWong99/versecast/internal/phonetic"
	"github.com/MrWong99/versecast/internal/quote"
	"github.com/MrWong99/versecast/internal/translation"
	"github.com/MrWong99/versecast/pkg/scripture"
)

// errVerseNotFound makes lookup exit non-zero when the store has no text.
var errVerseNotFound = errors.New("verse not found")

func lookupCmd(opts *rootOptions) *cobra.Command {
	var code string
	cmd := &cobra.Command{
		Use:   `lookup "John 3:16"`,
		Short: "Print the text of one verse",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			ref, err := scripture.Parse(args[0])
			if err != nil {
				return err
			}
			if cfg.Pipeline.CanonicalizeBooks {
				ref = scripture.NewCanonicalizer(phonetic.New()).CanonicalRef(ref)
			}
			if code == "" {
				code = cfg.Pipeline.DefaultTranslation
			}
			code, err = translation.Parse(code)
			if err != nil {
				return err
			}

			return withLookup(cmd.Context(), cfg, func(l *quote.Lookup) error {
				text, ok, err := l.Find(cmd.Context(), ref, code)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("%w: %s (%s)", errVerseNotFound, ref, code)
				}
				fmt.Fprintln(cmd.OutOrStdout(), text)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&code, "translation", "t", "", "translation code (default: pipeline.default_translation)")
	return cmd
}

func translationsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "translations",
		Short: "List the translations present in storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			return withLookup(cmd.Context(), cfg, func(l *quote.Lookup) error {
				codes, err := l.Translations(cmd.Context())
				if err != nil {
					return err
				}
				for _, c := range codes {
					fmt.Fprintln(cmd.OutOrStdout(), c)
				}
				return nil
			})
		},
	}
}

// withLookup opens the configured store for the duration of fn.
func withLookup(ctx context.Context, cfg *config.Config, fn func(*quote.Lookup) error) error {
	reg := config.NewRegistry()
	app.RegisterBuiltins(reg)
	store, closeStore, err := app.OpenStore(ctx, cfg.Storage, reg)
	if err != nil {
		return err
	}
	defer closeStore()
	return fn(quote.NewLookup(store))
}
