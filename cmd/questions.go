package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/scribeworks/scribe/memory"
)

var questionsSession string

var questionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "List the clarifying questions recorded for a session",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := memory.New(cfg.Storage.DatabasePath)
		if err != nil {
			return err
		}
		defer store.Close()

		sessionID, err := resolveSessionID(cmd, store, questionsSession)
		if err != nil {
			return err
		}

		questions, err := store.QuestionsForSession(cmd.Context(), sessionID)
		if err != nil {
			return err
		}
		if len(questions) == 0 {
			fmt.Println("No questions recorded.")
			return nil
		}

		for _, q := range questions {
			answer := "(unanswered)"
			if q.Answer != nil {
				answer = *q.Answer
			}
			fmt.Printf("%d  %s  %s\n    %s\n", q.ID, q.AskedAt.Local().Format("2006-01-02 15:04"), q.Question, answer)
		}
		return nil
	},
}

var answerCmd = &cobra.Command{
	Use:   "answer <question-id> <answer>",
	Short: "Record the user's answer to a clarifying question",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid question id %q: %w", args[0], err)
		}

		store, err := memory.New(cfg.Storage.DatabasePath)
		if err != nil {
			return err
		}
		defer store.Close()

		return store.AnswerQuestion(cmd.Context(), id, args[1])
	},
}

func init() {
	questionsCmd.Flags().StringVar(&questionsSession, "session", "", "session id (defaults to the most recent)")
	rootCmd.AddCommand(questionsCmd)
	rootCmd.AddCommand(answerCmd)
}
