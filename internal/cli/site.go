package cli

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aidanlsb/wlh/internal/audit"
	"github.com/aidanlsb/wlh/internal/config"
	"github.com/aidanlsb/wlh/internal/content"
	"github.com/aidanlsb/wlh/internal/engine"
	"github.com/aidanlsb/wlh/internal/index"
	"github.com/aidanlsb/wlh/internal/logger"
	"github.com/aidanlsb/wlh/internal/metrics"
	"github.com/aidanlsb/wlh/internal/model"
	"github.com/aidanlsb/wlh/internal/queue"
	"github.com/aidanlsb/wlh/internal/render"
	"github.com/aidanlsb/wlh/internal/scheduler"
)

// site bundles everything a command needs to work on one site.
type site struct {
	path     string
	cfg      *config.SiteConfig
	db       *index.Database
	engine   *engine.Engine
	schedule *scheduler.Registry
	metrics  *metrics.Metrics
	log      *logger.Logger
	history  *audit.Logger
	lock     *index.Lock
}

type siteOptions struct {
	// lock takes the site lock for the lifetime of the command.
	lock bool
	// registry receives the metrics collectors; nil disables metrics.
	registry prometheus.Registerer
}

// openSite opens the index of the resolved site and builds its engine.
func openSite(opts siteOptions) (*site, error) {
	return openSiteAt(getSitePath(), getConfig(), log, opts)
}

func openSiteAt(path string, cfg *config.SiteConfig, l *logger.Logger, opts siteOptions) (*site, error) {
	s := &site{
		path:    path,
		cfg:     cfg,
		log:     logger.OrNop(l),
		history: audit.New(filepath.Join(path, index.DirName), cfg.IsHistoryEnabled()),
	}

	if opts.lock {
		lock, err := index.AcquireLock(path)
		if err != nil {
			if errors.Is(err, index.ErrIndexLocked) {
				return nil, handleError(ErrIndexLocked, err, "Another wlh process (probably 'wlh serve') is using this site")
			}
			return nil, handleError(ErrDatabaseError, err, "")
		}
		s.lock = lock
	}

	// Only the lock holder may rebuild an outdated index.
	var (
		db      *index.Database
		rebuilt bool
		err     error
	)
	if s.lock != nil {
		db, rebuilt, err = index.OpenWithRebuildLocked(path)
	} else {
		db, err = index.Open(path)
	}
	if err != nil {
		s.close()
		return nil, handleError(ErrDatabaseError, fmt.Errorf("failed to open index: %w", err), "")
	}
	s.db = db
	if rebuilt {
		s.log.Warn("index schema was outdated and has been rebuilt; run 'wlh sync --force'", "site", path)
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		s.close()
		return nil, handleError(ErrConfigInvalid, err, "")
	}
	db.SetBaseURL(base)

	if opts.registry != nil {
		s.metrics = metrics.New(opts.registry)
	}
	s.schedule = scheduler.NewRegistry(db)

	eng, err := engine.New(engine.Config{
		BaseURL:       cfg.BaseURL,
		PostTypes:     cfg.PostTypes,
		Interval:      cfg.Interval(),
		AllowRelative: cfg.AllowRelative,
		Linkify:       cfg.Linkify,
		Documents:     db,
		Attributes:    db,
		Options:       db,
		Scheduler:     s.schedule,
		Logger:        s.log,
		Metrics:       s.metrics,
	})
	if err != nil {
		s.close()
		return nil, handleError(ErrConfigInvalid, err, "")
	}
	s.engine = eng
	return s, nil
}

// requireInstalled fails unless 'wlh init' ran for this site.
func (s *site) requireInstalled() error {
	if err := s.engine.RequireInstalled(); err != nil {
		if errors.Is(err, engine.ErrNotInstalled) {
			return handleError(ErrNotInstalled, err, "Run 'wlh init' in the site directory")
		}
		return handleError(ErrDatabaseError, err, "")
	}
	return nil
}

// upgradeWarnings reports a stored schema version older than this binary's.
func (s *site) upgradeWarnings() []Warning {
	needs, err := s.engine.NeedsUpgrade()
	if err != nil || !needs {
		return nil
	}
	stored, _ := s.engine.InstalledVersion()
	return []Warning{{
		Code:    WarnDatabaseOutdated,
		Message: fmt.Sprintf("index was installed by version %s; run 'wlh init' to upgrade to %s", stored, engine.Version),
	}}
}

// record appends to the site history. A failed write is logged and ignored.
func (s *site) record(err error) {
	if err != nil {
		s.log.Warn("failed to write history", "error", err)
	}
}

func (s *site) recordDrain(report queue.DrainReport) {
	s.record(s.history.LogDrain(report.RunID.String(), idsToInt64(report.Batch), idsToInt64(report.FailedIDs()), report.Duration))
}

func (s *site) syncer() *content.Syncer {
	return content.NewSyncer(s.cfg.ContentPath(s.path), s.db, s.engine, content.ParseOptions{
		DefaultFormat: model.Format(s.cfg.DefaultFormat),
	}, s.log)
}

func (s *site) renderer() *render.Renderer {
	base, _ := url.Parse(s.cfg.BaseURL)
	return render.New(base, nil)
}

func (s *site) close() {
	if s.db != nil {
		s.db.Close()
	}
	if s.lock != nil {
		_ = s.lock.Release()
	}
}

// parseIDs parses document id arguments. Every argument must be a positive
// integer; a comma separated list counts as several ids.
func parseIDs(args []string) ([]model.DocID, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("at least one document id is required")
	}
	var ids []model.DocID
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			id, ok := model.ParseDocID(part)
			if !ok {
				return nil, fmt.Errorf("invalid document id %q", part)
			}
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("at least one document id is required")
	}
	return ids, nil
}

func idsToInt64(ids []model.DocID) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}

func printIDs(ids []model.DocID) string {
	if len(ids) == 0 {
		return "none"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ", ")
}
