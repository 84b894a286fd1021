package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/LaChance971123/NewAutoContent/api"
	"github.com/LaChance971123/NewAutoContent/config"
	"github.com/LaChance971123/NewAutoContent/notify"
	"github.com/LaChance971123/NewAutoContent/pipeline"
	"github.com/LaChance971123/NewAutoContent/scriptgen"
	"github.com/LaChance971123/NewAutoContent/tui"
	"github.com/LaChance971123/NewAutoContent/upload"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var cfg config.Config
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	rootCmd := &cobra.Command{
		Use:           "autocontent",
		Short:         "Turn a text script into a short vertical video",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(configFlag)
			if err != nil {
				return err
			}
			if err := loaded.Validate(); err != nil {
				return err
			}
			cfg = loaded
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "config.json", "Configuration file path")

	rootCmd.AddCommand(newRunCommand(&cfg, logger))
	rootCmd.AddCommand(newTuiCommand(&cfg, logger))
	rootCmd.AddCommand(newBatchCommand(&cfg, logger))
	rootCmd.AddCommand(newServeCommand(&cfg, logger))
	rootCmd.AddCommand(newGenerateCommand(&cfg))
	rootCmd.AddCommand(newUploadCommand(logger))
	return rootCmd
}

// runFlags is the shared flag surface of run and batch.
type runFlags struct {
	style          string
	background     string
	resolution     string
	noWatermark    bool
	dryRun         bool
	debug          bool
	developerMode  bool
	timeoutSeconds int
	watch          bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.style, "style", "", "Subtitle style: karaoke, progressive, or simple")
	cmd.Flags().StringVar(&f.background, "background", "", "Background style folder to use")
	cmd.Flags().StringVar(&f.resolution, "resolution", "", "Output resolution, e.g. 1080x1920")
	cmd.Flags().BoolVar(&f.noWatermark, "no-watermark", false, "Disable the watermark overlay")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Stop after subtitles, skip the render")
	cmd.Flags().BoolVar(&f.debug, "debug", false, "Verbose logging to stderr")
	cmd.Flags().BoolVar(&f.developerMode, "dev", false, "Degrade to placeholders instead of failing")
	cmd.Flags().IntVar(&f.timeoutSeconds, "step-timeout", 0, "Per-step timeout in seconds")
}

func (f *runFlags) options(cfg config.Config) pipeline.Options {
	opts := pipeline.OptionsFromConfig(cfg)
	if f.style != "" {
		opts.Style = f.style
	}
	if f.background != "" {
		opts.BackgroundStyle = f.background
	}
	if f.resolution != "" {
		opts.Resolution = f.resolution
	}
	if f.noWatermark {
		off := false
		opts.Watermark = &off
	}
	if f.timeoutSeconds > 0 {
		opts.StepTimeout = time.Duration(f.timeoutSeconds) * time.Second
	}
	opts.DryRun = f.dryRun
	opts.Debug = f.debug
	if f.developerMode {
		on := true
		opts.DeveloperMode = &on
	}
	return opts
}

func newRunCommand(cfg *config.Config, logger *slog.Logger) *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run [script file]",
		Short: "Produce a video from a script file (or stdin)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runScriptE(cfg, logger, flags),
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&flags.watch, "watch", false, "Show a live progress view while the run executes")
	return cmd
}

func newTuiCommand(cfg *config.Config, logger *slog.Logger) *cobra.Command {
	flags := &runFlags{watch: true}
	cmd := &cobra.Command{
		Use:   "tui [script file]",
		Short: "Produce a video with a live progress view",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runScriptE(cfg, logger, flags),
	}
	flags.register(cmd)
	return cmd
}

func runScriptE(cfg *config.Config, logger *slog.Logger, flags *runFlags) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		script, name, err := readScript(args)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		p := pipeline.New(*cfg, logger)
		opts := flags.options(*cfg)

		if flags.watch {
			run, err := p.Start(ctx, script, name, opts)
			if err != nil {
				return err
			}
			if _, err := tea.NewProgram(tui.NewModel(run)).Run(); err != nil {
				return err
			}
			if state := run.State(); state != pipeline.StateCompleted && state != pipeline.StateFailed {
				fmt.Fprintf(cmd.OutOrStdout(), "run continuing in background: %s\n", run.Dir)
				return nil
			}
			return reportRun(cmd, run, nil)
		}

		run, runErr := p.Run(ctx, script, name, opts)
		if run != nil {
			maybeNotify(ctx, logger, run, runErr)
		}
		return reportRun(cmd, run, runErr)
	}
}

func newBatchCommand(cfg *config.Config, logger *slog.Logger) *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:   "batch <dir>",
		Short: "Produce one video per .txt script in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			p := pipeline.New(*cfg, logger)
			registry := pipeline.NewRegistry()
			if err := p.RunDirectory(ctx, args[0], flags.options(*cfg), registry); err != nil {
				return err
			}
			failed := 0
			for _, run := range registry.List() {
				if run.Failed() {
					failed++
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", run.State(), run.Dir)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d runs failed", failed, len(registry.List()))
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newServeCommand(cfg *config.Config, logger *slog.Logger) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose the pipeline over an HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := pipeline.New(*cfg, logger)
			registry := pipeline.NewRegistry()
			server := api.NewServer(*cfg, p, registry, logger)
			logger.Info("starting API server", "addr", addr)
			return server.NewRouter().Run(addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	return cmd
}

func newGenerateCommand(cfg *config.Config) *cobra.Command {
	var topic, genre, tone, articleURL, feed, outPath, model string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a script from a topic, article URL, or RSS feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			gen, err := scriptgen.NewGenerator(model)
			if err != nil && err != scriptgen.ErrNoProvider {
				return err
			}

			var script string
			switch {
			case topic != "":
				if gen == nil {
					return fmt.Errorf("generating from a topic requires COHERE_API_KEY")
				}
				script, err = gen.FromStory(ctx, scriptgen.StoryRequest{Topic: topic, Genre: genre, Tone: tone})
			case articleURL != "":
				script, err = scriptgen.FromArticle(ctx, gen, articleURL)
			case feed != "":
				script, _, err = scriptgen.FromFeed(ctx, gen, scriptgen.ResolveFeedURL(feed))
			default:
				return fmt.Errorf("one of --topic, --url, or --feed is required")
			}
			if err != nil {
				return err
			}

			if outPath != "" {
				return os.WriteFile(outPath, []byte(script+"\n"), 0o644)
			}
			fmt.Fprintln(cmd.OutOrStdout(), script)
			return nil
		},
	}
	cmd.Flags().StringVar(&topic, "topic", "", "Topic to write a narration about")
	cmd.Flags().StringVar(&genre, "genre", "", "Optional genre for topic generation")
	cmd.Flags().StringVar(&tone, "tone", "", "Optional tone for topic generation")
	cmd.Flags().StringVar(&articleURL, "url", "", "Article URL to condense into a narration")
	cmd.Flags().StringVar(&feed, "feed", "", "RSS feed URL or preset name (cna, st, hn, tr)")
	cmd.Flags().StringVar(&outPath, "out", "", "Write the script to a file instead of stdout")
	cmd.Flags().StringVar(&model, "model", "", "Override the chat model")
	return cmd
}

func newUploadCommand(logger *slog.Logger) *cobra.Command {
	var serviceAccount, bucket, region string
	cmd := &cobra.Command{
		Use:   "upload <run dir>",
		Short: "Publish a finished run to YouTube and/or S3",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			dir := args[0]
			videoPath := filepath.Join(dir, "final_video.mp4")
			if _, err := os.Stat(videoPath); err != nil {
				return fmt.Errorf("no final video in %s: %w", dir, err)
			}
			script, scriptName := readRunScript(dir)

			if serviceAccount != "" {
				yt, err := upload.NewYouTube(ctx, serviceAccount, logger)
				if err != nil {
					return err
				}
				videoID, err := yt.Upload(ctx, videoPath, upload.GenerateMetadata(scriptName, script))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "https://youtube.com/shorts/%s\n", videoID)
			}

			if bucket != "" {
				store, err := upload.NewS3(ctx, upload.S3Config{Bucket: bucket, Region: region})
				if err != nil {
					return err
				}
				paths := []string{videoPath, filepath.Join(dir, "metadata.json"), filepath.Join(dir, "summary.txt")}
				if err := store.PutRunArtifacts(ctx, filepath.Base(dir), paths); err != nil {
					return err
				}
				logger.Info("artifacts uploaded", "bucket", bucket, "run", filepath.Base(dir))
			}

			if serviceAccount == "" && bucket == "" {
				return fmt.Errorf("nothing to do: pass --service-account and/or --s3-bucket")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&serviceAccount, "service-account", "", "YouTube service account JSON key file")
	cmd.Flags().StringVar(&bucket, "s3-bucket", "", "S3 bucket for run artifacts")
	cmd.Flags().StringVar(&region, "s3-region", "", "AWS region override")
	return cmd
}

// readScript loads the script from the named file, or stdin when no file
// (or "-") is given.
func readScript(args []string) (script, name string, err error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), "stdin", nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", "", err
	}
	name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
	return string(data), name, nil
}

// readRunScript recovers the script copy from a run folder for upload
// metadata. Missing copies degrade to the folder name.
func readRunScript(dir string) (script, scriptName string) {
	scriptName = filepath.Base(dir)
	matches, _ := filepath.Glob(filepath.Join(dir, "*.txt"))
	for _, path := range matches {
		if filepath.Base(path) == "summary.txt" {
			continue
		}
		if data, err := os.ReadFile(path); err == nil {
			return string(data), strings.TrimSuffix(filepath.Base(path), ".txt")
		}
	}
	return "", scriptName
}

// maybeNotify publishes a run event when KAFKA_BROKERS is configured.
func maybeNotify(ctx context.Context, logger *slog.Logger, run *pipeline.Run, runErr error) {
	brokers := strings.TrimSpace(os.Getenv("KAFKA_BROKERS"))
	if brokers == "" {
		return
	}
	topic := os.Getenv("KAFKA_TOPIC")
	if topic == "" {
		topic = "autocontent.runs"
	}
	producer, err := notify.NewProducer(notify.ProducerConfig{
		Brokers: strings.Split(brokers, ","),
		Topic:   topic,
	}, logger)
	if err != nil {
		logger.Warn("kafka notify unavailable", "error", err)
		return
	}
	defer producer.Close()

	md := run.Metadata()
	event := notify.RunEvent{
		RunID:           md.RunID,
		ScriptName:      md.ScriptName,
		Status:          md.Status,
		DurationSeconds: md.DurationSeconds,
		Timestamp:       md.Timestamp,
	}
	if runErr == nil && !run.Options.DryRun {
		event.VideoPath = run.VideoPath()
	}
	event.ArchivePath = run.ArchivePath()
	for _, stepErr := range md.Errors {
		event.Errors = append(event.Errors, stepErr.Kind+": "+stepErr.Message)
	}
	if err := producer.Publish(ctx, event); err != nil {
		logger.Warn("run event publish failed", "error", err)
	}
}

// reportRun prints the outcome; the run folder is the durable record either way.
func reportRun(cmd *cobra.Command, run *pipeline.Run, runErr error) error {
	if run == nil {
		return runErr
	}
	if run.Failed() || runErr != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "run failed, artifacts kept at %s\n", run.Dir)
		if runErr != nil {
			return runErr
		}
		return fmt.Errorf("run %s failed", run.ID)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "done: %s\n", run.Dir)
	return nil
}
