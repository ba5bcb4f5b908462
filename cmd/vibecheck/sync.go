package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/climbsec/vibecheck/internal/apperr"
	"github.com/climbsec/vibecheck/internal/config"
	"github.com/climbsec/vibecheck/internal/model"
	"github.com/climbsec/vibecheck/internal/syncrun"
	"github.com/climbsec/vibecheck/internal/tracker"
)

var (
	findingsPath string
	repoOwner    string
	repoName     string
	repoCommit   string
	repoHost     string
	runNumber    int64
	branchPrefix string
	githubToken  string
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile a findings file against the tracker's existing issues",
	RunE:  runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().StringVar(&findingsPath, "findings", "", "Path to a findings JSON file (- for stdin)")
	syncCmd.Flags().StringVar(&repoOwner, "owner", "", "Repository owner")
	syncCmd.Flags().StringVar(&repoName, "repo", "", "Repository name")
	syncCmd.Flags().StringVar(&repoCommit, "commit", "", "Commit SHA under analysis")
	syncCmd.Flags().StringVar(&repoHost, "host", "github.com", "Tracker host")
	syncCmd.Flags().Int64Var(&runNumber, "run", 0, "Monotonically increasing run number")
	syncCmd.Flags().StringVar(&branchPrefix, "branch-prefix", "vibecheck", "Prefix for suggested fix branch names")
	syncCmd.Flags().StringVar(&githubToken, "token", os.Getenv("GITHUB_TOKEN"), "Tracker API token")
	syncCmd.MarkFlagRequired("findings")
	syncCmd.MarkFlagRequired("owner")
	syncCmd.MarkFlagRequired("repo")
	syncCmd.MarkFlagRequired("commit")
}

func runSync(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	raw, err := readFindings(findingsPath)
	if err != nil {
		return fmt.Errorf("read findings: %w", err)
	}

	path := configPath
	if path == "" {
		p, err := config.Path()
		if err != nil {
			return fmt.Errorf("resolve config path: %w", err)
		}
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	token := githubToken
	if token == "" {
		token = cfg.Token
	}
	gh := tracker.NewGitHubTracker(repoOwner, repoName, token)
	if cfg.TrackerURL != "" {
		gh = gh.WithBaseURL(cfg.TrackerURL)
	}
	trk := tracker.NewRateLimited(gh, 1.0, 5)

	opts := syncrun.Options{
		Repo: model.Repo{
			Owner:  repoOwner,
			Name:   repoName,
			Commit: repoCommit,
			Host:   repoHost,
		},
		RunNumber:    runNumber,
		Config:       cfg.Issue,
		BranchPrefix: branchPrefix,
		DryRun:       dryRun,
		Now:          time.Now(),
		Logger:       logger,
	}

	stats, err := syncrun.Run(context.Background(), trk, raw, opts)
	if encErr := json.NewEncoder(os.Stdout).Encode(stats); encErr != nil {
		logger.Error("failed to encode stats", "error", encErr)
	}
	if err != nil {
		if apperr.IsInput(err) {
			return err
		}
		logger.Error("sync run completed with errors", "error", err)
		return err
	}
	return nil
}

func readFindings(path string) ([]*model.RawFinding, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, apperr.NewInput("read findings file", err)
	}

	var raw []*model.RawFinding
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, apperr.NewInput("parse findings json", err)
	}
	return raw, nil
}
