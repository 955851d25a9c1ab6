package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"radiology-worklist/internal/pacs"
	"radiology-worklist/internal/report"
	"radiology-worklist/internal/session"
	"radiology-worklist/internal/store"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func (a *app) reportCmd() *cobra.Command {
	var text, file, user string
	cmd := &cobra.Command{
		Use:   "report <study-instance-uid>",
		Short: "Compose a Basic Text SR for a study and store it in the archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if file != "" {
				b, err := readSource(cmd, file)
				if err != nil {
					return err
				}
				text = string(b)
			}
			return a.runReport(cmd, args[0], text, user)
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "report text")
	cmd.Flags().StringVar(&file, "file", "", "read the report text from a file, - for stdin")
	cmd.Flags().StringVar(&user, "user", "worklistctl", "username recorded in the submission log")
	cmd.MarkFlagsMutuallyExclusive("text", "file")
	return cmd
}

func readSource(cmd *cobra.Command, file string) ([]byte, error) {
	if file == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(file)
}

func (a *app) runReport(cmd *cobra.Command, uid, text, user string) error {
	cfg, log, err := a.setup()
	if err != nil {
		return err
	}
	defer log.Sync()
	ctx := cmd.Context()

	var submissions report.SubmissionLog = store.NewMemorySubmissionLog()
	if cfg.DatabaseURL != "" {
		conn, err := store.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer conn.Close()
		submissions = store.NewPostgresSubmissionLog(conn)
	}

	svc := report.NewService(archiveClient(cfg, log), store.NewMemoryDraftStore(), submissions,
		report.NewComposer(report.Observer{
			Organization: cfg.VerifyingOrganization,
			Name:         cfg.VerifyingObserverName,
		}), log.Named("report"))

	out, err := svc.Submit(ctx, report.Session{ID: uuid.NewString(), Username: user}, uid, text)
	if err != nil {
		var verrs validation.Errors
		if errors.As(err, &verrs) {
			return fmt.Errorf("invalid report: %w", err)
		}
		fmt.Fprintln(cmd.ErrOrStderr(), pacs.Describe(err))
		return err
	}
	fmt.Fprintf(a.out, "stored report %s (series %s) for study %s\n",
		out.Submission.SOPInstanceUID, out.Submission.SeriesInstanceUID, uid)
	return nil
}

func (a *app) hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print a bcrypt hash for an ACCOUNTS entry",
		Long: `Print a bcrypt hash for use in ACCOUNTS ("user:role:hash,...").
Without an argument the password is read from the first line of stdin.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var pw string
			if len(args) == 1 {
				pw = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return err
				}
				pw = strings.TrimRight(line, "\r\n")
			}
			if pw == "" {
				return errors.New("empty password")
			}
			h, err := session.HashPassword(pw)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, h)
			return nil
		},
	}
}
