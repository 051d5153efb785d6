package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"feedplanner/internal/frames"
	"feedplanner/internal/injector"
	"feedplanner/internal/library"
	"feedplanner/internal/placeholder"
	"feedplanner/internal/templates"
)

var errTemplatesInvalid = errors.New("template corpus has problems")

func newTemplatesCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Work with the embedded template corpus.",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Validate every template against the content library.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			corpus, err := templates.Load()
			if err != nil {
				return err
			}
			lib, err := library.Load()
			if err != nil {
				return err
			}
			return checkTemplates(cmd.OutOrStdout(), corpus, lib)
		},
	})
	return cmd
}

// checkTemplates validates each template's frames and fills it for every
// fashion style the matching vibe offers, reporting missing placeholders.
func checkTemplates(out io.Writer, corpus *templates.Corpus, lib *library.Library) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TEMPLATE\tSTYLE\tFRAMES\tRESULT")
	failed := 0
	for _, key := range corpus.Keys() {
		tpl, _ := corpus.Get(key)
		report := frames.ValidateTemplate(tpl.Body)
		if !report.IsValid {
			failed++
			fmt.Fprintf(tw, "%s\t-\t%d\tinvalid structure\n", key, report.FrameCount)
			continue
		}
		styles := lib.FashionStyles(key)
		if len(styles) == 0 {
			failed++
			fmt.Fprintf(tw, "%s\t-\t%d\tno library content\n", key, report.FrameCount)
			continue
		}
		for _, style := range styles {
			values, err := injector.BuildPlaceholders(lib, injector.Context{Vibe: key, FashionStyle: style})
			if err != nil {
				failed++
				fmt.Fprintf(tw, "%s\t%s\t%d\t%v\n", key, style, report.FrameCount, err)
				continue
			}
			if v := placeholder.Validate(tpl.Body, values); !v.IsValid {
				failed++
				fmt.Fprintf(tw, "%s\t%s\t%d\tmissing %v\n", key, style, report.FrameCount, v.Missing)
				continue
			}
			// Validate only sees letter keys; numbered slots show up here.
			if left := placeholder.Unresolved(placeholder.Replace(tpl.Body, values)); len(left) > 0 {
				failed++
				fmt.Fprintf(tw, "%s\t%s\t%d\tunresolved %v\n", key, style, report.FrameCount, left)
				continue
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\tok\n", key, style, report.FrameCount)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d failing combination(s)", errTemplatesInvalid, failed)
	}
	return nil
}
