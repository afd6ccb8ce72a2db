package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/DoyleJ11/auction-draft-backend/internal/catalog"
	"github.com/DoyleJ11/auction-draft-backend/internal/config"
	"github.com/DoyleJ11/auction-draft-backend/internal/engine"
)

type catalogOptions struct {
	JSON   bool
	Strict bool
}

// LotSummary is one line of the catalog report.
type LotSummary struct {
	Name     string              `json:"name"`
	Players  int                 `json:"players"`
	Overseas int                 `json:"overseas"`
	Uncapped int                 `json:"uncapped"`
	Roles    map[engine.Role]int `json:"roles"`
}

type CatalogReport struct {
	Path        string       `json:"path"`
	Lots        []LotSummary `json:"lots"`
	Players     int          `json:"players"`
	SourceTeams []string     `json:"source_teams"`
	Problems    []string     `json:"problems,omitempty"`
}

var errCatalogProblems = errors.New("catalog has problems")

func newCatalogCommand(_ *rootOptions) *cobra.Command {
	opts := &catalogOptions{}
	cmd := &cobra.Command{
		Use:   "catalog [workbook.xlsx]",
		Short: "Check a player workbook before the auction",
		Long: `Load a player workbook the way the server does and summarize it:
lots in order, player counts per role, and every row that would be skipped.
Without an argument the CATALOG_PATH setting is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			} else {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				path = cfg.CatalogPath
			}
			return runCatalog(cmd.OutOrStdout(), path, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "print the report as JSON")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "exit non-zero if any row was skipped")
	return cmd
}

func runCatalog(w io.Writer, path string, opts *catalogOptions) error {
	cat, loadErr := catalog.ReadFile(path)
	report := summarize(path, cat, loadErr)
	if len(cat.Lots) == 0 && loadErr != nil {
		return loadErr
	}

	if opts.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		printReport(w, report)
	}
	if opts.Strict && len(report.Problems) > 0 {
		return fmt.Errorf("%w: %d", errCatalogProblems, len(report.Problems))
	}
	return nil
}

func summarize(path string, cat engine.Catalog, loadErr error) CatalogReport {
	r := CatalogReport{Path: path, Players: cat.PlayerCount(), SourceTeams: cat.SourceTeams()}
	for _, lot := range cat.Lots {
		s := LotSummary{Name: lot.Name, Players: len(lot.Players), Roles: map[engine.Role]int{}}
		for _, role := range engine.Roles {
			s.Roles[role] = 0
		}
		for _, p := range lot.Players {
			s.Roles[p.Role]++
			if p.IsOverseas() {
				s.Overseas++
			}
			if p.Uncapped {
				s.Uncapped++
			}
		}
		r.Lots = append(r.Lots, s)
	}
	for _, err := range multierr.Errors(loadErr) {
		r.Problems = append(r.Problems, err.Error())
	}
	return r
}

func printReport(w io.Writer, r CatalogReport) {
	fmt.Fprintf(w, "%s: %d lots, %d players, %d source teams\n\n", r.Path, len(r.Lots), r.Players, len(r.SourceTeams))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tLOT\tPLAYERS\tBAT\tBOWL\tAR\tWK\tOVERSEAS\tUNCAPPED")
	for i, l := range r.Lots {
		note := ""
		if l.Players == 0 {
			note = " (empty, skipped)"
		}
		fmt.Fprintf(tw, "%d\t%s%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\n", i+1, l.Name, note, l.Players,
			l.Roles[engine.RoleBatter], l.Roles[engine.RoleBowler], l.Roles[engine.RoleAllRounder], l.Roles[engine.RoleWicketKeeper],
			l.Overseas, l.Uncapped)
	}
	_ = tw.Flush()
	if len(r.Problems) > 0 {
		fmt.Fprintf(w, "\n%d problem(s):\n", len(r.Problems))
		for _, p := range r.Problems {
			fmt.Fprintf(w, "  - %s\n", p)
		}
	}
}
