package main

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"radiology-worklist/internal/models"
	"radiology-worklist/internal/pacs"
	"radiology-worklist/internal/worklist"

	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02"

type studiesOptions struct {
	rangeLabel string
	from, to   string
	modalities []string
	columns    models.ClientFilters
}

func (a *app) studiesCmd() *cobra.Command {
	var opts studiesOptions
	cmd := &cobra.Command{
		Use:   "studies",
		Short: "List the studies of a date range",
		Example: `  worklistctl studies --range 1W --modality CT --modality MR
  worklistctl studies --from 2024-06-01 --to 2024-06-05 --patient-name doe`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runStudies(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.rangeLabel, "range", string(worklist.Range1D), "relative range: 1D, 3D, 1W, 1M, 1Y or ANY")
	f.StringVar(&opts.from, "from", "", "start date (YYYY-MM-DD); overrides --range")
	f.StringVar(&opts.to, "to", "", "end date (YYYY-MM-DD); overrides --range")
	f.StringSliceVar(&opts.modalities, "modality", nil, "restrict the query to a modality (repeatable)")
	f.StringVar(&opts.columns.PatientID, "patient-id", "", "filter rows by patient ID")
	f.StringVar(&opts.columns.PatientName, "patient-name", "", "filter rows by patient name")
	f.StringVar(&opts.columns.AccessionNumber, "accession", "", "filter rows by accession number")
	f.StringVar(&opts.columns.Description, "description", "", "filter rows by study description")
	f.StringVar(&opts.columns.SourceAE, "source-ae", "", "filter rows by source AE title")
	return cmd
}

func (a *app) runStudies(cmd *cobra.Command, opts studiesOptions) error {
	cfg, log, err := a.setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	policy, err := worklist.ParseAbsentPolicy(cfg.AbsentFieldPolicy)
	if err != nil {
		return err
	}

	order := cfg.Modalities()
	bar := worklist.NewQueryBar(order, a.now, loc)
	if err := applyRange(bar, opts, loc); err != nil {
		return err
	}
	for _, m := range opts.modalities {
		code := strings.ToUpper(strings.TrimSpace(m))
		if !slices.Contains(order, code) {
			return fmt.Errorf("unknown modality %q (configured: %s)", m, strings.Join(order, ", "))
		}
		bar.ToggleModality(code)
	}

	filters := bar.Filters()
	res, err := archiveClient(cfg, log).QueryWorklist(cmd.Context(), filters.StartDate, filters.EndDate, bar.Modalities())
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), pacs.Describe(err))
		return err
	}
	if res.Status == pacs.StatusNoResults {
		fmt.Fprintln(a.out, pacs.MsgNoResults)
		return nil
	}

	rows := worklist.Filter(res.Studies, opts.columns, policy)
	printStudies(a, rows)
	fmt.Fprintf(a.out, "\n%d of %d studies, %s to %s\n", len(rows), len(res.Studies),
		filters.StartDate.Format(dateLayout), filters.EndDate.Format(dateLayout))
	return nil
}

// applyRange sets the bar's dates from --from/--to when either is given,
// from --range otherwise.
func applyRange(bar *worklist.QueryBar, opts studiesOptions, loc *time.Location) error {
	if opts.from == "" && opts.to == "" {
		_, err := bar.ApplyRelativeRange(worklist.RangeLabel(strings.ToUpper(opts.rangeLabel)))
		if errors.Is(err, worklist.ErrUnknownRange) {
			return fmt.Errorf("%w: %q", err, opts.rangeLabel)
		}
		return err
	}
	var start, end time.Time
	var err error
	if opts.from != "" {
		if start, err = time.ParseInLocation(dateLayout, opts.from, loc); err != nil {
			return fmt.Errorf("--from: %w", err)
		}
	}
	if opts.to != "" {
		if end, err = time.ParseInLocation(dateLayout, opts.to, loc); err != nil {
			return fmt.Errorf("--to: %w", err)
		}
	}
	bar.SetExplicitRange(start, end)
	return nil
}

func printStudies(a *app, rows []models.Study) {
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PATIENT ID\tNAME\tACCESSION\tMODALITIES\tDESCRIPTION\tSOURCE AE\tDATE/TIME\tSTUDY UID")
	for i := range rows {
		s := &rows[i]
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			s.PatientID, s.DisplayName(), s.AccessionNumber, s.Modalities(),
			s.Description(), s.SourceAE(), s.DisplayDateTime(), s.StudyInstanceUID)
	}
	w.Flush()
}
