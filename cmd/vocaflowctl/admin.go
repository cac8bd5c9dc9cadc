package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"vocaflow/internal/conversation"
	"vocaflow/internal/repository"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup-assignments",
	Short: "Permanently delete inactive or orphaned assignments and their sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		admin := repository.NewAdminRepository(e.db)
		out := cmd.OutOrStdout()

		if !yes {
			stale, err := admin.ListStaleAssignments()
			if err != nil {
				return err
			}
			if len(stale) == 0 {
				fmt.Fprintln(out, "No stale assignments")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tSESSIONS\tREASON")
			for _, a := range stale {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", a.ID, a.Title, a.SessionCount, a.Reason)
			}
			tw.Flush()
			fmt.Fprintf(out, "%d assignment(s) would be deleted; rerun with --yes\n", len(stale))
			return nil
		}

		removed, err := admin.CleanupInactiveAssignments()
		if err != nil {
			return err
		}
		e.log.WithField("count", len(removed)).Info("Deleted stale assignments")
		fmt.Fprintf(out, "Deleted %d assignment(s)\n", len(removed))
		return nil
	},
}

var clearUsersCmd = &cobra.Command{
	Use:   "clear-users",
	Short: "Delete every teacher and student account",
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		admin := repository.NewAdminRepository(e.db)
		out := cmd.OutOrStdout()

		if !yes {
			counts, err := admin.CountUsers()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%d teacher(s) and %d student(s) would be deleted; rerun with --yes\n", counts.Teachers, counts.Students)
			return nil
		}

		counts, err := admin.ClearUsers()
		if err != nil {
			return err
		}
		e.log.WithFields(logrus.Fields{
			"teachers": counts.Teachers,
			"students": counts.Students,
		}).Warn("Cleared all accounts")
		fmt.Fprintf(out, "Deleted %d teacher(s) and %d student(s)\n", counts.Teachers, counts.Students)
		return nil
	},
}

var seedWordsCmd = &cobra.Command{
	Use:   "seed-words",
	Short: "Add prohibited words from a URL or the built-in list",
	RunE: func(cmd *cobra.Command, args []string) error {
		url, _ := cmd.Flags().GetString("url")

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		if url == "" {
			url = e.cfg.ProhibitedWordsURL
		}

		var added int
		if url != "" {
			added, err = e.db.SeedProhibitedWordsFromURL(cmd.Context(), url)
		} else {
			added, err = e.db.SeedProhibitedWords(conversation.DefaultProhibitedWords)
		}
		if err != nil {
			return err
		}

		words, err := e.db.ProhibitedWords()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %d word(s), %d total\n", added, len(words))
		return nil
	},
}

func init() {
	cleanupCmd.Flags().Bool("yes", false, "Delete instead of listing")
	clearUsersCmd.Flags().Bool("yes", false, "Delete instead of counting")
	seedWordsCmd.Flags().String("url", "", "Newline separated word list (overrides PROHIBITED_WORDS_URL)")
}
