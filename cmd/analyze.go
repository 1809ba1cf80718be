package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/google/uuid"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/tender-analyzer/internal/logger"
	"github.com/spigell/tender-analyzer/internal/pipeline"
	"github.com/spigell/tender-analyzer/internal/report"
)

const (
	PromptShowReport   = "Show report"
	PromptReportByBids = "Report by bids"
	PromptReportToFile = "Dump report to file"
	PromptExit         = "Exit"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "What next?",
	Items: []string{PromptShowReport, PromptReportByBids, PromptReportToFile, PromptExit},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [bid.pdf...]",
	Short: "Analyze bid PDFs against tender requirements",
	Run: func(cmd *cobra.Command, args []string) {
		analyze(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringP("requirements", "r", "", "tender requirements text")
	analyzeCmd.Flags().StringP("requirements-file", "f", "", "file with tender requirements text")
	analyzeCmd.Flags().StringP("bids-dir", "b", "", "directory with bid PDFs")
	analyzeCmd.Flags().StringP("output", "o", "json", "report format: json or yaml")
	analyzeCmd.Flags().String("remote", "", "analyze on a remote tender-analyzer server instead of locally")
	analyzeCmd.Flags().BoolP("interactive", "i", false, "choose what to do with the report interactively")

	viper.BindPFlag("remote.url", analyzeCmd.Flags().Lookup("remote"))
}

type analyzeOptions struct {
	requirements     string
	requirementsFile string
	bidsDir          string
	output           string
	remote           string
}

func analyze(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the tender-analyzer", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	opts := analyzeOptions{
		requirements:     flagString(cmd, "requirements"),
		requirementsFile: flagString(cmd, "requirements-file"),
		bidsDir:          flagString(cmd, "bids-dir"),
		output:           flagString(cmd, "output"),
		remote:           config.Remote.URL,
	}

	format, err := report.ParseFormat(opts.output)
	if err != nil {
		logger.Fatal("parsing output format", zap.Error(err))
	}

	rep, err := runAnalysis(ctx, logger, config, opts, args)
	if err != nil {
		logger.Fatal("analysis failed", zap.Error(err))
	}

	if interactive, _ := cmd.Flags().GetBool("interactive"); !interactive {
		if err := rep.Render(cmd.OutOrStdout(), format); err != nil {
			logger.Fatal("rendering report", zap.Error(err))
		}
		return
	}

	for {
		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleAction(action, logger, rep, format, cmd.OutOrStdout()); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

// runAnalysis produces the report either locally or through a remote server.
func runAnalysis(ctx context.Context, log *zap.Logger, config *Config, opts analyzeOptions, args []string) (*report.Report, error) {
	requirements, err := readRequirements(opts.requirements, opts.requirementsFile)
	if err != nil {
		return nil, err
	}

	files, err := collectBidFiles(args, opts.bidsDir)
	if err != nil {
		return nil, err
	}

	if opts.remote != "" {
		log.Info("sending bids to remote server", zap.String("url", opts.remote), zap.Int("count", len(files)))
		c, err := newClient(ctx, config.Remote, opts.remote, log)
		if err != nil {
			return nil, fmt.Errorf("creating remote client: %w", err)
		}
		rep, err := c.AnalyzeBids(requirements, files)
		if err != nil {
			return nil, fmt.Errorf("remote analysis: %w", err)
		}
		return rep, nil
	}

	runLog := logger.WithRun(log, uuid.NewString())
	out := newPipeline(config.Pipeline, runLog).ProcessBids(ctx, runLog, requirements, files)

	switch o := out.(type) {
	case *pipeline.Success:
		return report.FromSuccess(o), nil
	case *pipeline.Failure:
		return nil, o
	default:
		return nil, fmt.Errorf("unexpected outcome %T", out)
	}
}

func handleAction(action string, logger *zap.Logger, rep *report.Report, format report.Format, w io.Writer) error {
	switch action {
	case PromptShowReport:
		return rep.Render(w, format)
	case PromptReportByBids:
		pretty, _ := json.MarshalIndent(rep.ByBid(), "", "  ")
		logger.Info(string(pretty), zap.Int("qualified bids", rep.QualifiedBids))
		return nil
	case PromptReportToFile:
		filename, err := rep.DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump report to file: %w", err)
		}
		logger.Info("dumping report to file", zap.String("filename", filename))
		return nil
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func flagString(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}

