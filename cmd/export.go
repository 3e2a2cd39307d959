package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/scribeworks/scribe/analytics"
	"github.com/scribeworks/scribe/memory"
	"github.com/scribeworks/scribe/report"
)

var (
	exportSession string
	exportFormat  string
	exportOut     string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a session's task timeline to a file",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := memory.New(cfg.Storage.DatabasePath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()

		sessionID, err := resolveSessionID(cmd, store, exportSession)
		if err != nil {
			return err
		}

		tasks, err := store.TasksForSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if len(tasks) == 0 {
			return fmt.Errorf("session %s has no tasks", sessionID)
		}

		out := exportOut
		if out == "" {
			out = fmt.Sprintf("scribe-%s.%s", sessionID, exportFormat)
		}

		switch exportFormat {
		case "json":
			err = report.ToJSON(sessionID.String(), tasks, out)
		case "csv":
			err = report.ToCSV(tasks, out)
		default:
			return fmt.Errorf("unknown export format %q", exportFormat)
		}
		if err != nil {
			return err
		}

		if cfg.Analytics.Enabled {
			if client, err := buildAnalyticsClient(cfg); err == nil {
				analytics.EmitTimelineExported(client, sessionID.String(), exportFormat, len(tasks))
				client.Close()
			}
		}

		fmt.Printf("Exported %d task(s) to %s\n", len(tasks), out)
		return nil
	},
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List recorded sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := memory.New(cfg.Storage.DatabasePath)
		if err != nil {
			return err
		}
		defer store.Close()

		sessions, err := store.ListSessions(cmd.Context())
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Println("No sessions recorded.")
			return nil
		}

		for _, s := range sessions {
			end := "active"
			if s.EndedAt != nil {
				end = s.EndedAt.Local().Format("2006-01-02 15:04")
			}
			fmt.Printf("%s  %s .. %s\n", s.ID, s.StartedAt.Local().Format("2006-01-02 15:04"), end)
		}
		return nil
	},
}

// resolveSessionID parses the flag value or falls back to the most recent
// session.
func resolveSessionID(cmd *cobra.Command, store *memory.Store, flagValue string) (uuid.UUID, error) {
	if flagValue != "" {
		id, err := uuid.Parse(flagValue)
		if err != nil {
			return uuid.Nil, fmt.Errorf("invalid session id %q: %w", flagValue, err)
		}
		return id, nil
	}

	sessions, err := store.ListSessions(cmd.Context())
	if err != nil {
		return uuid.Nil, err
	}
	if len(sessions) == 0 {
		return uuid.Nil, fmt.Errorf("no sessions recorded")
	}
	return sessions[len(sessions)-1].ID, nil
}

func init() {
	exportCmd.Flags().StringVar(&exportSession, "session", "", "session id (defaults to the most recent)")
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "output format: json or csv")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output path")
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(sessionsCmd)
}
