package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/goodtune/meetingstt/internal/config"
	"github.com/goodtune/meetingstt/internal/quota"
	"github.com/goodtune/meetingstt/internal/storage"
	"github.com/goodtune/meetingstt/internal/usage"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	usageHistory int
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show speech-to-text quota usage",
	Long:  `Show how much of the monthly Azure Speech free quota has been used.`,
	Example: `  meetingstt -c config.yaml usage
  meetingstt usage --history 10`,
	RunE: runUsage,
}

func init() {
	usageCmd.Flags().IntVar(&usageHistory, "history", 0, "Also list the latest N usage events")
	rootCmd.AddCommand(usageCmd)
}

func runUsage(cmd *cobra.Command, args []string) error {
	if usageHistory < 0 {
		return fmt.Errorf("invalid history count: %d", usageHistory)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Create a quiet logger for CLI mode
	logger := zerolog.New(os.Stderr).Level(zerolog.ErrorLevel).With().Timestamp().Logger()

	store, err := openStorage(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	ledger := usage.NewLedger(store.Usage(), logger)

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	now := ledger.Now()
	used, err := ledger.UsageHours(ctx, storage.ProviderAzureSpeech, now)
	if err != nil {
		return fmt.Errorf("failed to read usage: %w", err)
	}

	printUsageStatus(now, used, cfg.STT.FreeQuotaHoursPerMonth)

	if usageHistory > 0 {
		events, err := ledger.History(ctx, storage.ProviderAzureSpeech, usageHistory)
		if err != nil {
			return fmt.Errorf("failed to read usage history: %w", err)
		}
		printUsageHistory(events)
	}

	return nil
}

// printUsageStatus shows the month's consumption colored by how close it is to the quota
func printUsageStatus(now time.Time, usedHours, quotaHours float64) {
	cyan := color.New(color.FgCyan, color.Bold)
	start, end := usage.MonthWindow(now)
	remaining := quota.Remaining(usedHours, quotaHours)

	statusColor := color.New(color.FgGreen, color.Bold)
	status := "OK"
	switch {
	case remaining <= 0:
		statusColor = color.New(color.FgRed, color.Bold)
		status = "EXHAUSTED"
	case usedHours >= quotaHours*0.8:
		statusColor = color.New(color.FgYellow, color.Bold)
		status = "NEARLY EXHAUSTED"
	}

	_, _ = cyan.Println("Azure Speech free quota")
	fmt.Printf("  Window:     %s to %s (UTC)\n", start.Format("2006-01-02"), end.Format("2006-01-02"))
	fmt.Printf("  Used:       %.3f h\n", usedHours)
	fmt.Printf("  Quota:      %.3f h\n", quotaHours)
	fmt.Printf("  Remaining:  %.3f h\n", remaining)
	_, _ = statusColor.Printf("  Status:     %s\n", status)
}

func printUsageHistory(events []storage.UsageEvent) {
	cyan := color.New(color.FgCyan, color.Bold)

	fmt.Println()
	_, _ = cyan.Printf("Latest %d event(s)\n", len(events))
	if len(events) == 0 {
		fmt.Println("  (none)")
		return
	}
	for _, event := range events {
		fmt.Printf("  %s  %8.1fs  %s\n",
			event.OccurredAt.UTC().Format(time.RFC3339),
			event.DurationSeconds,
			event.ID,
		)
	}
}
