package main

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/pders01/wikan/internal/api"
	"github.com/pders01/wikan/internal/config"
	"github.com/pders01/wikan/internal/debuglog"
	"github.com/pders01/wikan/internal/tui"
)

// Version is the version of the application, set at build time
var Version = "dev"

var (
	configPath string
	apiURL     string
	storeURL   string
	quiet      bool
)

var rootCmd = &cobra.Command{
	Use:   "wikan",
	Short: "Search, analyse and annotate Wikipedia articles from the terminal",
	Long: `wikan searches Wikipedia through an analysis backend, shows word
frequencies and sentiment for an article and keeps an annotated personal
collection of saved articles.`,
	SilenceUsage: true,
	RunE:         runTUI,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("wikan %s\n", Version)
		fmt.Println("Wikipedia article analyzer")
		fmt.Println("github.com/pders01/wikan")
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configGenCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate default config file",
	Run: func(cmd *cobra.Command, args []string) {
		home, _ := os.UserHomeDir()
		configFile := filepath.Join(home, ".config", "wikan", "config.toml")

		if err := config.GenerateDefaultConfig(configFile); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Generated default configuration at: %s\n", configFile)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "Analysis backend base URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&storeURL, "store", "", "Article store base URL (defaults to --api)")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Skip startup banner")

	configCmd.AddCommand(configGenCmd)
	rootCmd.AddCommand(versionCmd, configCmd, serveCmd, savedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies endpoint flags. --api moves
// both endpoints unless --store names the article store separately.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if apiURL != "" {
		cfg.API.BaseURL = apiURL
		cfg.API.StoreURL = ""
	}
	if storeURL != "" {
		cfg.API.StoreURL = storeURL
	}
	if apiURL != "" || storeURL != "" {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := debuglog.Setup(debuglog.ParseLogLevel(cfg.Log.Level), cfg.Log.File); err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer debuglog.Close()

	tui.ApplyColors(cfg.UI.Colors)
	if !quiet {
		tui.ShowBanner(Version)
	}

	debuglog.Infof("starting wikan %s against %s", Version, cfg.API.BaseURL)

	app := tui.NewApp(api.NewClient(cfg), cfg)
	p := tea.NewProgram(app, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running ui: %w", err)
	}
	return nil
}
