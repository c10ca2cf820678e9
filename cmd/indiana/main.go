package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"indiana/internal/config"
	"indiana/internal/helpers"
	"indiana/internal/models"
	"indiana/internal/services"

	"github.com/spf13/cobra"
)

var (
	configFile string
	dryRun     bool
	assumeYes  bool
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "indiana",
		Short: "Indiana - create a backlog of epics, features and user stories",
		Long: `Indiana reads a JSON backlog of epics, features and user stories and
creates it in Azure DevOps (azdo), GitHub (github) or a markdown document
(markdown). Every setting can also come from an INDIANA_* environment variable.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			helpers.DisableColorUnlessTerminal()
		},
		RunE: runCreate,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Optional YAML configuration file")
	config.RegisterFlags(rootCmd.PersistentFlags())
	addCreateFlags(rootCmd)

	// Create command
	var createCmd = &cobra.Command{
		Use:   "create",
		Short: "Create the backlog in the selected backend",
		Args:  cobra.NoArgs,
		RunE:  runCreate,
	}
	addCreateFlags(createCmd)
	rootCmd.AddCommand(createCmd)

	// List command
	var listCmd = &cobra.Command{
		Use:   "list",
		Short: "List the work items already in the project",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}
	rootCmd.AddCommand(listCmd)

	if err := rootCmd.Execute(); err != nil {
		helpers.PrintError("Error: %v", err)
		os.Exit(1)
	}
}

func addCreateFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "d", false, "Show what would be created without calling the backend")
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	helpers.Verbose = cfg.Verbose
	return cfg, nil
}

func loadWorkItems(path string) ([]models.WorkItem, error) {
	var items []models.WorkItem
	if err := helpers.LoadJSON(path, &items); err != nil {
		return nil, fmt.Errorf("failed to load work items: %w", err)
	}

	if err := models.ValidateTree(items, -1); err != nil {
		return nil, fmt.Errorf("invalid work items: %w", err)
	}

	return models.NormalizeTree(items), nil
}

func runCreate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateInput(); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	helpers.PrintTitle("Creating Backlog")
	helpers.PrintInfo("Input file: %s", cfg.File)
	helpers.PrintInfo("Orchestrator: %s", cfg.Orchestrator)

	items, err := loadWorkItems(cfg.File)
	if err != nil {
		return err
	}

	if dryRun {
		services.DisplayBacklog(items)
		helpers.PrintInfo("Dry run mode - nothing will be created")
		return nil
	}

	if cfg.Orchestrator != config.BackendMarkdown && !assumeYes && helpers.IsInteractive() {
		services.DisplayBacklog(items)
		if !confirmCreation(cfg) {
			helpers.PrintInfo("Operation cancelled by user")
			return nil
		}
	}

	orchestrator, err := services.New(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	summary, err := services.Run(ctx, orchestrator, items)
	if err != nil {
		if errors.Is(err, services.ErrDocumentIO) {
			helpers.PrintWarning("The document was not updated; fix the file and run again")
		} else if summary != nil && summary.Roots > 0 {
			helpers.PrintWarning("%d of %d epics were fully created before the failure", summary.Roots, len(items))
		}
		return err
	}

	helpers.PrintSuccess("Created %d work items under %d epics", summary.Created, summary.Roots)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	orchestrator, err := services.New(cfg)
	if err != nil {
		return err
	}

	diag, err := orchestrator.ListByProject(cmd.Context(), cfg.Project)
	if err != nil {
		return fmt.Errorf("failed to list project: %w", err)
	}

	services.DisplayDiagnostics(diag)
	return nil
}

func confirmCreation(cfg *config.Config) bool {
	reader := bufio.NewReader(os.Stdin)
	fmt.Printf("Do you want to create these work items in %s/%s? (y/N): ", cfg.Organization, cfg.Project)
	response, _ := reader.ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
