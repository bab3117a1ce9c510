// Package cli implements the command-line interface.
package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/aidanlsb/wlh/internal/config"
	"github.com/aidanlsb/wlh/internal/logger"
	"github.com/aidanlsb/wlh/internal/ui"
)

// siteEnv names the environment variable consulted when --site is not given.
const siteEnv = "WLH_SITE"

var (
	// Global flags
	sitePathFlag string
	configPath   string
	debugLogging bool

	// Resolved values
	resolvedSitePath string
	cfg              *config.SiteConfig
	log              *logger.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "wlh",
	Short: "wlh - what links here",
	Long: `wlh keeps a bidirectional index of links between the documents of a site:
for every document, which documents it links to and which documents link to it.

Documents are loaded from the site's content directory. Changed documents are
queued and reconciled on the next drain ('wlh drain', or periodically by
'wlh serve').`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch cmd.Name() {
		case "init", "completion", "help", "version", "docs":
			return nil
		}
		if cmd.Parent() != nil && cmd.Parent().Name() == "completion" {
			return nil
		}

		var err error
		resolvedSitePath, err = resolveSitePath()
		if err != nil {
			return handleError(ErrSiteNotFound, err, "Run 'wlh init <dir> --base-url <url>' to create a site")
		}

		path := configPath
		if strings.TrimSpace(path) == "" {
			path = config.Path(resolvedSitePath)
		}
		cfg, err = config.LoadFrom(path)
		if err != nil {
			return handleError(ErrConfigInvalid, err, "")
		}
		ui.ConfigureTheme(cfg.UI.Accent)

		log, err = logger.New(cfg.LogMode, debugLogging)
		if err != nil {
			return handleError(ErrInternal, fmt.Errorf("failed to create logger: %w", err), "")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			log.Sync()
		}
	},
}

// Execute runs the CLI. Errors already written as JSON are not printed again.
func Execute() error {
	err := rootCmd.Execute()
	var reported errReported
	if err != nil && !errors.As(err, &reported) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&sitePathFlag, "site", "s", "", "Path to the site directory (default: $WLH_SITE, or the nearest directory containing wlh.toml)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: <site>/wlh.toml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format (for script use)")
	rootCmd.PersistentFlags().BoolVar(&debugLogging, "debug", false, "Enable debug logging")
	rootCmd.SetGlobalNormalizationFunc(normalizeFlagName)
}

// normalizeFlagName accepts config-style spellings such as --base_url.
func normalizeFlagName(f *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

// resolveSitePath picks the site directory: --site, then $WLH_SITE, then the
// nearest ancestor of the working directory holding a config file.
func resolveSitePath() (string, error) {
	if sitePathFlag != "" {
		return checkSiteDir(sitePathFlag)
	}
	if env := strings.TrimSpace(os.Getenv(siteEnv)); env != "" {
		return checkSiteDir(env)
	}

	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, config.FileName)); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no site found: no %s in the working directory or its parents", config.FileName)
		}
		dir = parent
	}
}

func checkSiteDir(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("site not found: %s", abs)
	}
	return abs, nil
}

// getSitePath returns the resolved site path.
func getSitePath() string {
	return resolvedSitePath
}

// getConfig returns the loaded site config.
func getConfig() *config.SiteConfig {
	return cfg
}
