package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/AlexanderGrooff/confgen/pkg/common"
	"github.com/AlexanderGrooff/confgen/pkg/compile"
	"github.com/AlexanderGrooff/confgen/pkg/config"
	"github.com/AlexanderGrooff/confgen/pkg/generator"
	"github.com/AlexanderGrooff/confgen/pkg/inventory"
	"github.com/AlexanderGrooff/confgen/pkg/roles"
	"github.com/AlexanderGrooff/confgen/pkg/vars"
)

var (
	configFile string
	outputDir  string
	noShared   bool

	cfg *config.Config
)

// playbookAutodetectNames are tried in order when no playbook argument is
// given.
var playbookAutodetectNames = []string{"playbook.yml", "site.yml", "main.yml", "deploy.yml"}

// defaultInventoryRelPath is where the example inventory lives by
// convention, relative to the project root.
const defaultInventoryRelPath = "inventory/.hosts.yml.example"

var LoadConfig = func(configFile string) error {
	// Load configuration
	configPaths := []string{}

	// If no config file specified, try to use confgen.yaml from current directory
	if configFile == "" {
		defaultConfig := "confgen.yaml"
		if _, err := os.Stat(defaultConfig); err == nil {
			configPaths = append(configPaths, defaultConfig)
		}
	} else {
		// Use specified config file
		configPaths = append(configPaths, configFile)
	}

	loaded, err := config.Load(configPaths...)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg = loaded

	if err := common.SetLogFormat(cfg.Logging); err != nil {
		return err
	}
	common.SetLogLevel(cfg.Logging.Level)
	return nil
}

var RootCmd = &cobra.Command{
	Use:   "confgen [playbook] [inventory]",
	Short: "Generate example host_vars configs from roles",
	Long: `Statically resolves which roles the main playbook applies to which hosts and
generates an example host_vars config file per host from the roles' declared
variables, without running Ansible. Roles tagged 'shared' land in a common
config, secret-flagged variables in a separate secrets file.

Without arguments the playbook is autodetected (playbook.yml, site.yml,
main.yml, deploy.yml) and the inventory defaults to
inventory/.hosts.yml.example next to it.`,
	Args:          cobra.MaximumNArgs(2),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return LoadConfig(configFile)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(args)
	},
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file path (default: ./confgen.yaml)")
	RootCmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory (default: <project root>/host_vars)")
	RootCmd.Flags().BoolVar(&noShared, "no-shared", false, "Do not generate the shared 'all' config files")
}

func run(args []string) error {
	common.SetRunID(uuid.NewString())

	playbookPath, err := resolvePlaybookPath(args)
	if err != nil {
		return err
	}
	projectRoot := filepath.Dir(playbookPath)

	inventoryPath := filepath.Join(projectRoot, defaultInventoryRelPath)
	if len(args) > 1 {
		inventoryPath = args[1]
	}

	common.LogInfo("Starting config generation", map[string]interface{}{
		"playbook":  playbookPath,
		"inventory": inventoryPath,
	})

	inv, err := inventory.Load(inventoryPath)
	if err != nil {
		return err
	}

	store := roles.NewStore(projectRoot, cfg.RolesPath)
	resolver := compile.NewResolver(inv, store)
	result, err := resolver.Resolve(playbookPath)
	if err != nil {
		return err
	}

	if !noShared && cfg.Shared.Enabled {
		compile.ApplyShared(result.Resolution, result.SharedBlocks, cfg.Shared.Scope)
	}

	collected := vars.Collect(result.Resolution, store)

	outDir := outputDir
	if outDir == "" {
		outDir = cfg.Output.Dir
	}
	if !filepath.IsAbs(outDir) {
		outDir = filepath.Join(projectRoot, outDir)
	}

	written, err := generator.NewWriter(outDir).Write(collected)
	if err != nil {
		return err
	}

	reportSummary(result.Skipped, collected, len(written))
	return nil
}

// resolvePlaybookPath takes the playbook from the arguments or autodetects
// it in the working directory.
func resolvePlaybookPath(args []string) (string, error) {
	if len(args) > 0 {
		info, err := os.Stat(args[0])
		if err != nil || info.IsDir() {
			return "", fmt.Errorf("playbook %q does not exist or is not a file", args[0])
		}
		return args[0], nil
	}
	for _, name := range playbookAutodetectNames {
		if info, err := os.Stat(name); err == nil && !info.IsDir() {
			return name, nil
		}
	}
	return "", fmt.Errorf("failed to find a playbook in the working directory (tried %v)", playbookAutodetectNames)
}

// reportSummary surfaces everything that was skipped or failed softly.
// Partial results are still useful, so none of this affects the exit code.
func reportSummary(skipped []compile.Skipped, collected *vars.Result, artifacts int) {
	for _, s := range skipped {
		common.LogWarn("Skipped unresolved dynamic inclusion; add a manual fallback config if needed", map[string]interface{}{
			"file":   s.File,
			"block":  s.Block,
			"reason": s.Reason,
		})
	}
	for _, f := range collected.Failures {
		common.LogWarn("Role contributed no variables", map[string]interface{}{
			"role":  f.Role,
			"path":  f.Path,
			"error": f.Error(),
		})
	}
	common.LogInfo("Run complete", map[string]interface{}{
		"artifacts":          artifacts,
		"skipped_inclusions": len(skipped),
		"failed_roles":       len(collected.Failures),
	})
}
