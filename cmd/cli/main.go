package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/kurihiro0119/github-review-metrics/internal/domain"
	apperrors "github.com/kurihiro0119/github-review-metrics/internal/errors"
	"github.com/kurihiro0119/github-review-metrics/internal/logger"
	"github.com/kurihiro0119/github-review-metrics/pkg/client"
)

var (
	cfgFile    string
	outputJSON bool
	useAPI     bool
	verbose    bool

	memberName      string
	memberTrackID   string
	memberTrackName string
	memberActive    bool
	runsLimit       int
)

var rootCmd = &cobra.Command{
	Use:   "review-metrics",
	Short: "GitHub pull request review metrics tool",
	Long: `A CLI tool for syncing pull request activity from GitHub and ranking team members.

This tool collects pull requests, reviews and comments of one repository for one
calendar month, stores them, and recomputes each member's monthly summary.`,
	SilenceUsage: true,
}

var syncCmd = &cobra.Command{
	Use:   "sync [month] [owner] [repo]",
	Short: "Sync one month of a repository",
	Long:  `Replace the stored activity of a repository for a month (YYYY-MM) with fresh data from GitHub.`,
	Args:  cobra.ExactArgs(3),
	RunE:  runSync,
}

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard [month]",
	Short: "Show the leaderboard of a month",
	Long:  `Display active members ranked by score for a month (YYYY-MM).`,
	Args:  cobra.ExactArgs(1),
	RunE:  runLeaderboard,
}

var memberCmd = &cobra.Command{
	Use:   "member",
	Short: "Manage team members",
}

var memberSetCmd = &cobra.Command{
	Use:   "set [handle]",
	Short: "Create or update a member",
	Long:  `Create a member or update its name, track and active flag.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runMemberSet,
}

var memberShowCmd = &cobra.Command{
	Use:   "show [handle] [month]",
	Short: "Show a member's activity of a month",
	Args:  cobra.ExactArgs(2),
	RunE:  runMemberShow,
}

var memberListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active members by track",
	Args:  cobra.NoArgs,
	RunE:  runMemberList,
}

var memberStatsCmd = &cobra.Command{
	Use:   "stats [handle] [month]",
	Short: "Show a member's monthly summary",
	Args:  cobra.ExactArgs(2),
	RunE:  runMemberStats,
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show recent sync runs",
	Args:  cobra.NoArgs,
	RunE:  runRuns,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env and environment)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&useAPI, "api", false, "talk to the API server at API_ENDPOINT instead of the local database")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log progress")

	memberSetCmd.Flags().StringVar(&memberName, "name", "", "display name")
	memberSetCmd.Flags().StringVar(&memberTrackID, "track-id", "", "track identifier")
	memberSetCmd.Flags().StringVar(&memberTrackName, "track-name", "", "track display name")
	memberSetCmd.Flags().BoolVar(&memberActive, "active", true, "whether the member appears on leaderboards")
	_ = memberSetCmd.MarkFlagRequired("name")

	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "number of runs to show")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(leaderboardCmd)
	rootCmd.AddCommand(memberCmd)
	memberCmd.AddCommand(memberSetCmd)
	memberCmd.AddCommand(memberShowCmd)
	memberCmd.AddCommand(memberListCmd)
	memberCmd.AddCommand(memberStatsCmd)
	rootCmd.AddCommand(runsCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if h := hint(err); h != "" {
			fmt.Fprintf(os.Stderr, "Hint: %s\n", h)
		}
		os.Exit(1)
	}
}

// hint suggests a next step for errors the user can act on. Errors from the API
// server carry only their code, so they are mapped back onto an AppError first.
func hint(err error) string {
	var remote *client.Error
	if errors.As(err, &remote) {
		err = &apperrors.AppError{Code: apperrors.ErrCode(remote.Code), Message: remote.Message}
	}
	switch {
	case apperrors.IsRateLimited(err):
		return "GitHub rate limit reached; retry after the limit resets"
	case apperrors.IsNotFound(err):
		return "check the handle and month, or run sync for that month first"
	default:
		return ""
	}
}

func openBackend(cmd *cobra.Command) (backend, error) {
	log := logger.Discard()
	if verbose {
		log = logger.Setup("local")
	}
	return getBackend(cmd.Context(), log)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runSync(cmd *cobra.Command, args []string) error {
	month, err := domain.ParseMonth(args[0])
	if err != nil {
		return err
	}
	scope := domain.Scope{Month: month, RepoOwner: args[1], RepoName: args[2]}

	b, err := openBackend(cmd)
	if err != nil {
		return err
	}
	defer b.Close()

	if !outputJSON {
		fmt.Printf("Syncing %s/%s for %s...\n", scope.RepoOwner, scope.RepoName, month)
	}

	result, err := b.Sync(cmd.Context(), scope)
	if err != nil {
		return fmt.Errorf("failed to sync: %w", err)
	}

	if outputJSON {
		return printJSON(result)
	}

	fmt.Printf("Successfully synced %d PRs with %d comments\n", result.ProcessedPRs, result.TotalComments)
	if result.DegradedPRs > 0 {
		fmt.Printf("Warning: %d PRs were stored without commits, reviews and comments\n", result.DegradedPRs)
	}
	return nil
}

func runLeaderboard(cmd *cobra.Command, args []string) error {
	month, err := domain.ParseMonth(args[0])
	if err != nil {
		return err
	}

	b, err := openBackend(cmd)
	if err != nil {
		return err
	}
	defer b.Close()

	board, err := b.Leaderboard(cmd.Context(), month)
	if err != nil {
		return fmt.Errorf("failed to get leaderboard: %w", err)
	}

	if outputJSON {
		return printJSON(board)
	}

	fmt.Printf("\nLeaderboard: %s\n\n", board.Month)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Rank", "Member", "Handle", "Track", "Commits", "PRs", "Comments", "Received", "Score"})
	for _, e := range board.Entries {
		table.Append([]string{
			strconv.Itoa(e.Rank),
			e.Name,
			e.GitHubID,
			e.TrackName,
			fmt.Sprintf("%d", e.CommitsCount),
			fmt.Sprintf("%d", e.PRsCount),
			fmt.Sprintf("%d", e.TotalCommentsCount),
			fmt.Sprintf("%d", e.PRCommentsCount),
			fmt.Sprintf("%d", e.Score),
		})
	}
	table.Render()

	fmt.Printf("\nMean score: %.2f  Median score: %.2f\n", board.MeanScore, board.MedianScore)
	return nil
}

func runMemberSet(cmd *cobra.Command, args []string) error {
	handle := args[0]
	update := client.MemberUpdate{
		Name:      memberName,
		TrackID:   memberTrackID,
		TrackName: memberTrackName,
	}
	if cmd.Flags().Changed("active") {
		update.IsActive = &memberActive
	}

	b, err := openBackend(cmd)
	if err != nil {
		return err
	}
	defer b.Close()

	member, err := b.PutMember(cmd.Context(), handle, update)
	if err != nil {
		return fmt.Errorf("failed to save member: %w", err)
	}

	if outputJSON {
		return printJSON(member)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Field", "Value"})
	table.Append([]string{"Handle", member.GitHubID})
	table.Append([]string{"Name", member.Name})
	table.Append([]string{"Track", fmt.Sprintf("%s (%s)", member.TrackName, member.TrackID)})
	table.Append([]string{"Active", strconv.FormatBool(member.IsActive)})
	table.Render()

	return nil
}

func runMemberShow(cmd *cobra.Command, args []string) error {
	handle := args[0]
	month, err := domain.ParseMonth(args[1])
	if err != nil {
		return err
	}

	b, err := openBackend(cmd)
	if err != nil {
		return err
	}
	defer b.Close()

	activities, err := b.MemberActivities(cmd.Context(), handle, month)
	if err != nil {
		return fmt.Errorf("failed to get member activities: %w", err)
	}

	if outputJSON {
		return printJSON(activities)
	}

	fmt.Printf("\nPull Requests: %s (%s)\n\n", activities.Member.Name, activities.Month)

	prs := tablewriter.NewWriter(os.Stdout)
	prs.SetHeader([]string{"Repository", "PR", "Title", "State", "Commits", "Comments", "Reviews"})
	for _, pr := range activities.PRs {
		prs.Append([]string{
			pr.RepoOwner + "/" + pr.RepoName,
			fmt.Sprintf("#%d", pr.PRNumber),
			pr.PRTitle,
			pr.PRState,
			fmt.Sprintf("%d", pr.CommitsCount),
			fmt.Sprintf("%d", pr.ReceivedCommentsCount),
			fmt.Sprintf("%d", pr.ReceivedReviewsCount),
		})
	}
	prs.Render()

	fmt.Printf("\nReviews: %s (%s)\n\n", activities.Member.Name, activities.Month)

	reviews := tablewriter.NewWriter(os.Stdout)
	reviews.SetHeader([]string{"Repository", "PR", "State", "Reviewed At"})
	for _, r := range activities.Reviews {
		reviews.Append([]string{
			r.RepoOwner + "/" + r.RepoName,
			fmt.Sprintf("#%d", r.PRNumber),
			r.ReviewState,
			r.ReviewedAt.Format("2006-01-02 15:04"),
		})
	}
	reviews.Render()

	return nil
}

func runMemberList(cmd *cobra.Command, args []string) error {
	b, err := openBackend(cmd)
	if err != nil {
		return err
	}
	defer b.Close()

	list, err := b.ListMembers(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list members: %w", err)
	}

	if outputJSON {
		return printJSON(list)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Track", "Name", "Handle"})
	for _, m := range list {
		table.Append([]string{m.TrackName, m.Name, m.GitHubID})
	}
	table.Render()

	return nil
}

func runMemberStats(cmd *cobra.Command, args []string) error {
	handle := args[0]
	month, err := domain.ParseMonth(args[1])
	if err != nil {
		return err
	}

	b, err := openBackend(cmd)
	if err != nil {
		return err
	}
	defer b.Close()

	perf, err := b.MemberPerformance(cmd.Context(), handle, month)
	if err != nil {
		return fmt.Errorf("failed to get member performance: %w", err)
	}

	if outputJSON {
		return printJSON(perf)
	}

	fmt.Printf("\nMember Summary: %s (%s)\n\n", perf.Member.Name, perf.Performance.Month)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Metric", "Value"})
	table.Append([]string{"Commits", fmt.Sprintf("%d", perf.Performance.CommitsCount)})
	table.Append([]string{"Pull Requests", fmt.Sprintf("%d", perf.Performance.PRsCount)})
	table.Append([]string{"Comments Written", fmt.Sprintf("%d", perf.Performance.TotalCommentsCount)})
	table.Append([]string{"Comments Received", fmt.Sprintf("%d", perf.Performance.PRCommentsCount)})
	table.Append([]string{"Score", fmt.Sprintf("%d", perf.Score)})
	table.Render()

	return nil
}

func runRuns(cmd *cobra.Command, args []string) error {
	b, err := openBackend(cmd)
	if err != nil {
		return err
	}
	defer b.Close()

	runs, err := b.SyncRuns(cmd.Context(), runsLimit)
	if err != nil {
		return fmt.Errorf("failed to list sync runs: %w", err)
	}

	if outputJSON {
		return printJSON(runs)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Started", "Repository", "Month", "Status", "PRs", "Comments", "Degraded", "Error"})
	for _, run := range runs {
		errText := ""
		if run.Error != nil {
			errText = *run.Error
		}
		table.Append([]string{
			run.StartedAt.Format("2006-01-02 15:04:05"),
			run.RepoOwner + "/" + run.RepoName,
			run.Month,
			string(run.Status),
			fmt.Sprintf("%d", run.ProcessedPRs),
			fmt.Sprintf("%d", run.TotalComments),
			fmt.Sprintf("%d", run.DegradedPRs),
			errText,
		})
	}
	table.Render()

	return nil
}
