package main

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/objbrowser/pkg/config"
	"github.com/entrhq/objbrowser/pkg/display"
	"github.com/entrhq/objbrowser/pkg/loader"
	"github.com/entrhq/objbrowser/pkg/logging"
	"github.com/entrhq/objbrowser/pkg/remote"
	"github.com/entrhq/objbrowser/pkg/resource"
	"github.com/spf13/cobra"
)

// globalOptions holds the persistent flags.
type globalOptions struct {
	configPath   string
	settingsPath string
	pageURL      string
	timeout      time.Duration
	verbosity    string
}

// session is everything one command needs to draw objects: the client,
// the settings, the resource registry and a page with a loader behind it.
type session struct {
	clientConfig *config.ClientConfig
	client       *remote.Client
	layouts      *config.LayoutStore
	resources    *resource.Registry
	page         *display.Page
	loader       *loader.Loader
	logger       *logging.Logger

	mu       sync.Mutex
	openView func(url, path string)
}

// loadClientConfig reads the YAML client config and applies flag overrides.
func loadClientConfig(opts *globalOptions, cmd *cobra.Command) (*config.ClientConfig, error) {
	cc := config.DefaultClientConfig()
	if opts.configPath != "" {
		var err error
		if cc, err = config.LoadClientConfig(opts.configPath); err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("page-url") {
		cc.PageURL = opts.pageURL
	}
	if flags.Changed("timeout") {
		cc.Timeout = opts.timeout
	}
	if flags.Changed("verbosity") {
		cc.Logging.Verbosity = opts.verbosity
	}

	if err := cc.Validate(); err != nil {
		return nil, &usageError{err: fmt.Errorf("invalid client configuration: %w", err)}
	}
	return cc, nil
}

func openSession(opts *globalOptions, cmd *cobra.Command) (*session, error) {
	cc, err := loadClientConfig(opts, cmd)
	if err != nil {
		return nil, err
	}

	level, err := logging.ParseLevel(cc.Logging.Verbosity)
	if err != nil {
		return nil, &usageError{err: err}
	}
	logging.SetDefaultLevel(level)
	logger, logErr := logging.NewLogger("objbrowser")
	if logErr != nil {
		logger.Warnf("file logging unavailable: %v", logErr)
	}

	if err := config.Initialize(opts.settingsPath); err != nil {
		logger.Close()
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	layouts, err := config.NewLayoutStore(config.Global())
	if err != nil {
		logger.Close()
		return nil, err
	}

	client, err := remote.NewClient(cc.PageURL,
		remote.WithTimeout(cc.Timeout),
		remote.WithUserAgent(cc.UserAgent),
		remote.WithLogger(logger.With("remote")),
	)
	if err != nil {
		logger.Close()
		return nil, &usageError{err: err}
	}

	loaderSettings := config.GetLoader()
	resources := resource.New(client,
		resource.WithPolicy(resource.ParseCachePolicy(loaderSettings.GetProbeCache())),
		resource.WithLogger(logger.With("resource")),
		resource.WithAttachHook(func(r resource.Resource) {
			logger.Debugf("attached %s %s", r.Kind, r.URL)
		}),
	)

	s := &session{
		clientConfig: cc,
		client:       client,
		layouts:      layouts,
		resources:    resources,
		logger:       logger,
	}

	highlight, theme := config.GetUI().GetJSONDisplay()
	if !highlight {
		theme = ""
	}
	s.page = display.NewPage(display.Env{
		Fetcher:       client,
		Layouts:       layouts,
		ViewURL:       client.ViewURL,
		OpenView:      s.handleOpenView,
		Logger:        logger.With("display"),
		RefreshPeriod: config.GetRefresh().GetDefaultPeriod(),
		JSONTheme:     theme,
	})

	s.loader, err = loader.New(s.page, client, resources,
		loader.WithLogger(logger.With("loader")),
		loader.WithSkipPatterns(loaderSettings.GetSkipClasses()...),
	)
	if err != nil {
		logger.Close()
		return nil, &usageError{err: err}
	}
	s.page.SetResolver(s.loader)

	logger.Infof("session for %s (probe cache %s)", cc.PageURL, resources.Policy())
	return s, nil
}

// rootPath picks the object to show: the argument, else the ObjPath of the
// page address.
func (s *session) rootPath(args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return remote.NormalizePath(args[0]), nil
	}
	if p := s.client.ObjPath(); p != "" {
		return p, nil
	}
	return "", &usageError{err: errors.New("no object path: pass one or set ObjPath in the page URL")}
}

func (s *session) setOpenView(fn func(url, path string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openView = fn
}

func (s *session) handleOpenView(url, path string) {
	s.mu.Lock()
	fn := s.openView
	s.mu.Unlock()
	if fn == nil {
		s.logger.Warnf("no handler for new view %s", url)
		return
	}
	fn(url, path)
}

func (s *session) close() {
	_ = s.logger.Close()
}
