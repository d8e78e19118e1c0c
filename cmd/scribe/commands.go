package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/scribe/internal/config"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the scribe version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version)
	},
}

// --- submit ---

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a transcription job",
	Long: `Submit a transcription job and print its id.

Examples:
  scribe submit
  scribe submit --owner alice
  scribe submit --owner alice --wait`,
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, _ := cmd.Flags().GetString("owner")
		wait, _ := cmd.Flags().GetBool("wait")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		body := map[string]string{}
		if owner != "" {
			body["owner"] = owner
		}

		resp, err := client.post(cmd.Context(), "/transcribe", body)
		if err != nil {
			return err
		}

		var created struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		}
		if err := decodeJSON(resp, &created); err != nil {
			return err
		}

		printSuccess("Submitted job %s", created.ID)
		if !wait {
			return nil
		}

		return pollJob(cmd, client, created.ID, timeout)
	},
}

func pollJob(cmd *cobra.Command, client *apiClient, id string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	lastProgress := -1

	for {
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out after %s waiting for job %s", timeout, id)
		}

		resp, err := client.get(cmd.Context(), "/jobs/"+id)
		if err != nil {
			return err
		}

		var job struct {
			Status   string `json:"status"`
			Progress int    `json:"progress"`
			Result   string `json:"result"`
			Error    string `json:"error"`
		}
		if err := decodeJSON(resp, &job); err != nil {
			return err
		}

		if job.Progress != lastProgress {
			printStatus("Progress", "%d%% (%s)", job.Progress, job.Status)
			lastProgress = job.Progress
		}

		switch job.Status {
		case "completed":
			fmt.Println(job.Result)
			return nil
		case "failed":
			return fmt.Errorf("job failed: %s", job.Error)
		}

		select {
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func init() {
	submitCmd.Flags().String("owner", "", "identifier of the submitting user")
	submitCmd.Flags().Bool("wait", false, "poll until the job reaches a terminal state")
	submitCmd.Flags().Duration("timeout", 60*time.Second, "maximum time to wait with --wait")
}

// --- jobs ---

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect transcription jobs",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/jobs")
		if err != nil {
			return err
		}

		var list []struct {
			ID        string `json:"id"`
			Owner     string `json:"owner"`
			Status    string `json:"status"`
			Progress  int    `json:"progress"`
			CreatedAt string `json:"created_at"`
		}
		if err := decodeJSON(resp, &list); err != nil {
			return err
		}

		if len(list) == 0 {
			fmt.Println("No jobs found.")
			return nil
		}

		for _, j := range list {
			owner := j.Owner
			if owner == "" {
				owner = "-"
			}
			short := j.ID
			if len(short) > 8 {
				short = short[:8]
			}
			fmt.Printf("%s  %-10s  %3d%%  %-12s  %s\n",
				colorize(colorCyan, short),
				j.Status,
				j.Progress,
				owner,
				j.CreatedAt,
			)
		}
		return nil
	},
}

var jobsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single job as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/jobs/"+args[0])
		if err != nil {
			return err
		}

		var job any
		if err := decodeJSON(resp, &job); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(job)
	},
}

func init() {
	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsShowCmd)
}

// --- caches ---

var cachesCmd = &cobra.Command{
	Use:   "caches",
	Short: "Show cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/caches/stats")
		if err != nil {
			return err
		}

		var stats map[string]int
		if err := decodeJSON(resp, &stats); err != nil {
			return err
		}

		printStatus("Preference entries", "%d", stats["preferences"])
		printStatus("Categorization entries", "%d", stats["categorizations"])
		return nil
	},
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
}
