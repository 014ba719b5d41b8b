// Command adscan scans domains against the Google Ads Transparency Center,
// either as a one-shot batch run or as a long-running HTTP service.
package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"

	"github.com/go-scripts/adscan/internal/api"
	"github.com/go-scripts/adscan/internal/browser"
	"github.com/go-scripts/adscan/internal/config"
	"github.com/go-scripts/adscan/internal/dataset"
	"github.com/go-scripts/adscan/internal/ingest"
	"github.com/go-scripts/adscan/internal/metrics"
	"github.com/go-scripts/adscan/internal/ocr"
	"github.com/go-scripts/adscan/internal/progress"
	"github.com/go-scripts/adscan/internal/scraper"
	"github.com/go-scripts/adscan/internal/ui"
)

// CLI flags structure
type CLI struct {
	Config string `help:"Config file name (without extension), searched in . and /etc/adscan" default:"adscan"`
	Debug  bool   `help:"Enable debug logging" default:"false"`

	Run   RunCmd   `cmd:"" help:"Scan a batch of domains and write the results"`
	Serve ServeCmd `cmd:"" help:"Serve the scraping pipeline over HTTP"`
}

// RunCmd is the one-shot batch scan.
type RunCmd struct {
	Input       string   `help:"Input file holding a JSON run record or one domain per line" short:"i"`
	Output      string   `help:"NDJSON results file" short:"o"`
	Excel       string   `help:"Also write an Excel report to this path"`
	Concurrency int      `help:"Concurrent domain scans" short:"c"`
	Region      string   `help:"Transparency region code"`
	Domains     []string `arg:"" optional:"" help:"Domains to scan"`
}

// ServeCmd runs the HTTP API front door.
type ServeCmd struct {
	Host string `help:"Bind address"`
	Port int    `help:"Listen port" short:"p"`
}

func main() {
	// A .env file carries dataset tokens during development.
	_ = godotenv.Load()

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("adscan"),
		kong.Description("Google Ads Transparency Center domain scanner."),
		kong.UsageOnError(),
	)

	if cli.Debug {
		log.SetLevel(log.DebugLevel)
	}

	cfg, err := loadConfig(cli.Config)
	kctx.FatalIfErrorf(err)

	kctx.FatalIfErrorf(kctx.Run(cfg))
}

// loadConfig loads the configuration from the named config file plus
// ADSCAN_ environment variables.
func loadConfig(name string) (*config.Configuration, error) {
	v := viper.New()
	config.SetupViper(v, name)
	return config.New(v)
}

func (r *RunCmd) Run(cfg *config.Configuration) error {
	input := ingest.Input{Domains: r.Domains}
	if r.Input != "" {
		loaded, err := ingest.LoadFile(r.Input)
		if err != nil {
			return fmt.Errorf("loading input file: %w", err)
		}
		loaded.Domains = append(loaded.Domains, r.Domains...)
		input = loaded
	}
	if len(input.Domains) == 0 {
		return errors.New("nothing to scan: pass domains as arguments or via --input")
	}
	if input.MaxConcurrency > 0 {
		cfg.Concurrency = input.MaxConcurrency
	}

	// Override config with command line flags if provided
	if r.Output != "" {
		cfg.Output.File = r.Output
	}
	if r.Excel != "" {
		cfg.Output.Excel = r.Excel
	}
	if r.Concurrency > 0 {
		cfg.Concurrency = r.Concurrency
	}
	if r.Region != "" {
		cfg.Region = r.Region
	}

	sink, err := dataset.New(dataset.Config{
		File:      cfg.Output.File,
		Excel:     cfg.Output.Excel,
		Endpoint:  cfg.Dataset.Endpoint,
		DatasetID: cfg.Dataset.ID,
		Token:     cfg.Dataset.Token,
	})
	if err != nil {
		return fmt.Errorf("building result sinks: %w", err)
	}

	b, err := browser.NewChrome()
	if err != nil {
		return fmt.Errorf("launching browser: %w", err)
	}
	defer b.Close()

	// Batch runs carry no metrics registry; the recorders are nil-safe.
	opts, err := pipelineOptions(cfg, nil)
	if err != nil {
		return err
	}
	opts.Browser = b

	collector := &dataset.Collector{}
	tracker := progress.New(len(input.Domains))
	opts.Sink = dataset.Multi{sink, collector, tracker}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("Starting scan",
		"domains", len(input.Domains),
		"concurrency", cfg.Concurrency,
		"region", cfg.Region)

	processor := scraper.NewProcessor(opts)
	tracker.Start()
	failed := scraper.Scheduler{Processor: processor}.Run(ctx, input.Domains, cfg.Concurrency)
	tracker.Stop()

	if err := dataset.Close(sink); err != nil {
		return fmt.Errorf("closing result sinks: %w", err)
	}

	fmt.Println(ui.Summary(processor.Stats().Snapshot(), len(input.Domains)))
	if results := collector.Results(); len(results) > 0 {
		fmt.Println(ui.ResultsTable(results))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d domains failed", failed, len(input.Domains))
	}
	return nil
}

func (s *ServeCmd) Run(cfg *config.Configuration) error {
	// Override config with command line flags if provided
	if s.Host != "" {
		cfg.API.Host = s.Host
	}
	if s.Port > 0 {
		cfg.API.Port = s.Port
	}

	m := metrics.New()
	opts, err := pipelineOptions(cfg, m)
	if err != nil {
		return err
	}
	opts.Stats = scraper.NewStats()

	// The Excel sink only writes its workbook on close, which a long-running
	// server never reaches, so serve mode persists to file and dataset only.
	sink, err := dataset.New(dataset.Config{
		File:      cfg.Output.File,
		Endpoint:  cfg.Dataset.Endpoint,
		DatasetID: cfg.Dataset.ID,
		Token:     cfg.Dataset.Token,
	})
	if err != nil && !errors.Is(err, dataset.ErrNoSink) {
		return fmt.Errorf("building result sinks: %w", err)
	}

	handler := &api.Handler{
		NewBrowser:  func() (browser.Browser, error) { return browser.NewChrome() },
		Options:     opts,
		Sink:        sink,
		Limiter:     api.NewRateLimiter(cfg.API.RateLimit, cfg.API.RateWindow),
		Metrics:     m,
		KeyHeader:   cfg.API.KeyHeader,
		ResultsFile: cfg.Output.File,
	}

	addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
	log.Info("Serving API", "addr", addr)

	wrapped := api.Wrap(api.NewRouter(handler), cfg.API.KeyHeader, cfg.API.EnableGzip)
	return api.Serve(context.Background(), addr, cfg.API.ReadTimeout, cfg.API.WriteTimeout, wrapped)
}

// pipelineOptions maps the configuration onto the processor wiring shared by
// both commands. Browser and Sink are left for the caller to fill in.
func pipelineOptions(cfg *config.Configuration, m *metrics.Metrics) (scraper.ProcessorOptions, error) {
	engine, err := ocr.New(cfg.OCR.Engine, cfg.OCR.Binary, cfg.OCR.Language)
	if err != nil {
		return scraper.ProcessorOptions{}, err
	}

	texts := scraper.NewTextExtractor(engine, scraper.TextExtractorOptions{
		Timeout:   cfg.Fetch.Timeout,
		MaxBytes:  cfg.Fetch.MaxBytes,
		FetchRate: rate.Limit(cfg.Fetch.Rate),
		Burst:     cfg.Fetch.Burst,
	})

	return scraper.ProcessorOptions{
		Classifier: scraper.PageClassifier{
			Wait:     cfg.Browser.MarkerWait,
			Interval: cfg.Browser.PollInterval,
		},
		Extractor: scraper.CreativeExtractor{
			Selector: cfg.Browser.Selector,
			Wait:     cfg.Browser.ContainerWait,
			Interval: cfg.Browser.PollInterval,
		},
		Texts: texts,
		Retry: scraper.RetryPolicy{
			Attempts:  cfg.Retry.Attempts,
			BaseDelay: cfg.Retry.BaseDelay,
			MaxDelay:  cfg.Retry.MaxDelay,
			Retryable: browser.IsTransient,
		},
		Metrics:    m,
		Region:     cfg.Region,
		Preset:     cfg.PresetDate,
		NavTimeout: cfg.Browser.NavTimeout,
	}, nil
}
