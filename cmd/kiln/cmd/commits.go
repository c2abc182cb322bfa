package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kiln-ai/kiln/internal/adapters/git"
)

var commitsCount int

var commitsCmd = &cobra.Command{
	Use:   "commits",
	Short: "Commit history utilities",
}

var commitsGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Print a digest of recent commits with type markers",
	RunE: func(cmd *cobra.Command, _ []string) error {
		root, err := os.Getwd()
		if err != nil {
			return err
		}
		client, err := git.NewClient(root,
			git.WithTimeout(parseDuration(appConfig.Git.Timeout, 30*time.Second)))
		if err != nil {
			return err
		}

		digest, err := client.CommitDigest(cmd.Context(), commitsCount)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), digest)
		return nil
	},
}

func init() {
	commitsGenerateCmd.Flags().IntVar(&commitsCount, "count", 20, "number of commits to include")
	commitsCmd.AddCommand(commitsGenerateCmd)
	rootCmd.AddCommand(commitsCmd)
}
