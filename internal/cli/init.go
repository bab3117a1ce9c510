package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/wlh/internal/audit"
	"github.com/aidanlsb/wlh/internal/config"
	"github.com/aidanlsb/wlh/internal/engine"
	"github.com/aidanlsb/wlh/internal/index"
	"github.com/aidanlsb/wlh/internal/logger"
	"github.com/aidanlsb/wlh/internal/ui"
)

var initBaseURL string

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Initialize a site and install the link index",
	Long: `Creates a site at the given directory (default: the working directory) and
installs the link index.

Creates:
  - wlh.toml     (site configuration)
  - content/     (content directory)
  - .wlh/        (index directory)
  - .gitignore   (ignores the index)

On an existing site, init re-runs the install: it stores the current schema
version and registers the drain schedule if it is missing. This is also the
upgrade path after installing a newer wlh.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

type initResult struct {
	Site          string `json:"site"`
	Config        string `json:"config"`
	ConfigCreated bool   `json:"config_created"`
	Gitignore     string `json:"gitignore"`
	Version       string `json:"version"`
	Previous      string `json:"previous_version,omitempty"`
}

func init() {
	initCmd.Flags().StringVar(&initBaseURL, "base-url", "", "Address the site is served from (required for a new site)")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	} else if sitePathFlag != "" {
		dir = sitePathFlag
	}
	sitePath, err := filepath.Abs(dir)
	if err != nil {
		return handleError(ErrInvalidInput, err, "")
	}

	cfgPath := config.Path(sitePath)
	created := false
	if _, err := os.Stat(cfgPath); errors.Is(err, os.ErrNotExist) {
		if strings.TrimSpace(initBaseURL) == "" {
			return handleErrorMsg(ErrMissingArgument, "--base-url is required for a new site", "wlh init "+dir+" --base-url https://example.com")
		}
		cfgPath, created, err = config.CreateDefault(sitePath, initBaseURL)
		if err != nil {
			return handleError(ErrConfigInvalid, err, "")
		}
	} else if initBaseURL != "" {
		return handleErrorMsg(ErrInvalidInput, fmt.Sprintf("%s already exists; edit base_url there instead of passing --base-url", cfgPath), "")
	}

	siteCfg, err := config.LoadFrom(cfgPath)
	if err != nil {
		return handleError(ErrConfigInvalid, err, "")
	}
	if err := os.MkdirAll(siteCfg.ContentPath(sitePath), 0o755); err != nil {
		return handleError(ErrFileWriteError, fmt.Errorf("failed to create content directory: %w", err), "")
	}
	gitignore, err := ensureGitignore(sitePath)
	if err != nil {
		return handleError(ErrFileWriteError, err, "")
	}

	l, err := logger.New(siteCfg.LogMode, debugLogging)
	if err != nil {
		return handleError(ErrInternal, err, "")
	}
	defer l.Sync()

	s, err := openSiteAt(sitePath, siteCfg, l, siteOptions{lock: true})
	if err != nil {
		return err
	}
	defer s.close()

	previous, err := s.engine.InstalledVersion()
	if err != nil {
		return handleError(ErrDatabaseError, err, "")
	}
	if err := s.engine.Install(); err != nil {
		return handleError(ErrDatabaseError, err, "")
	}

	switch {
	case previous == "":
		s.record(s.history.LogLifecycle(audit.OpInstall, engine.Version))
	case previous != engine.Version:
		s.record(s.history.LogLifecycle(audit.OpUpgrade, engine.Version))
	}

	result := initResult{
		Site:          sitePath,
		Config:        cfgPath,
		ConfigCreated: created,
		Gitignore:     gitignore,
		Version:       engine.Version,
	}
	if previous != engine.Version {
		result.Previous = previous
	}

	if isJSONOutput() {
		outputSuccess(result, nil)
		return nil
	}

	if created {
		fmt.Println(ui.Successf("Created %s", cfgPath))
	}
	switch {
	case previous == "":
		fmt.Println(ui.Successf("Installed link index %s at %s", engine.Version, sitePath))
	case previous != engine.Version:
		fmt.Println(ui.Successf("Upgraded link index %s → %s", previous, engine.Version))
	default:
		fmt.Println(ui.Successf("Link index %s already installed", engine.Version))
	}
	fmt.Println(ui.Hint("Next: add files to " + siteCfg.ContentPath(sitePath) + " and run 'wlh sync --drain'"))
	return nil
}

// ensureGitignore adds the index directory to .gitignore. Returns
// "created", "updated" or "unchanged".
func ensureGitignore(sitePath string) (string, error) {
	path := filepath.Join(sitePath, ".gitignore")
	entry := index.DirName + "/"

	existing, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("failed to read .gitignore: %w", err)
	}
	for _, line := range strings.Split(string(existing), "\n") {
		if strings.TrimSpace(line) == entry {
			return "unchanged", nil
		}
	}

	status := "created"
	content := "# wlh index (rebuilt with 'wlh sync --force')\n" + entry + "\n"
	if len(existing) > 0 {
		status = "updated"
		content = strings.TrimRight(string(existing), "\n") + "\n\n" + content
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write .gitignore: %w", err)
	}
	return status, nil
}
