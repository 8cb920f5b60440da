package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/lead-scorer/internal/leads"
	"github.com/spigell/lead-scorer/internal/service"
)

const (
	PromptPrintJSON      = "Print results as JSON"
	PromptReportByIntent = "Report by intent"
	PromptResultsToFile  = "Dump results to CSV file"
	PromptExit           = "Exit"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "Scoring finished. What next?",
	Items: []string{PromptPrintJSON, PromptReportByIntent, PromptResultsToFile, PromptExit},
}

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a lead sheet against an offer without starting the server",
	Run: func(cmd *cobra.Command, _ []string) {
		score(cmd)
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().StringP("offer", "o", "", "offer JSON file (required)")
	scoreCmd.Flags().StringP("leads", "l", "", "leads CSV file (required)")
	scoreCmd.Flags().String("output", "", "write results to this file; .json for JSON, CSV otherwise")
	scoreCmd.Flags().BoolP("yes", "y", false, "do not prompt, print results as JSON")

	scoreCmd.MarkFlagRequired("offer")
	scoreCmd.MarkFlagRequired("leads")
}

func score(cmd *cobra.Command) {
	logger := newLogger()
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	svc, err := newService(config, logger)
	if err != nil {
		logger.Fatal("building the scoring service", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run, err := scoreFiles(ctx, svc, cmd.Flag("offer").Value.String(), cmd.Flag("leads").Value.String(), logger)
	if err != nil {
		logger.Fatal("scoring failed", zap.Error(err))
	}

	if output := cmd.Flag("output").Value.String(); output != "" {
		if err := run.WriteFile(output); err != nil {
			logger.Fatal("writing results", zap.Error(err))
		}
		logger.Info("results written", zap.String("filename", output), zap.Int("count", run.Count))
		return
	}

	if cmd.Flag("yes").Value.String() == "true" {
		if err := run.WriteJSON(os.Stdout); err != nil {
			logger.Fatal("printing results", zap.Error(err))
		}
		return
	}

	for {
		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleAction(action, run, logger); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func scoreFiles(ctx context.Context, svc *service.Service, offerFile, leadsFile string, logger *zap.Logger) (service.Run, error) {
	data, err := os.ReadFile(offerFile)
	if err != nil {
		return service.Run{}, fmt.Errorf("read offer: %w", err)
	}

	var offer leads.Offer
	if err := json.Unmarshal(data, &offer); err != nil {
		return service.Run{}, fmt.Errorf("parse offer %s: %w", offerFile, err)
	}
	if err := svc.SetOffer(offer); err != nil {
		return service.Run{}, err
	}

	file, err := os.Open(leadsFile)
	if err != nil {
		return service.Run{}, fmt.Errorf("open leads: %w", err)
	}
	defer file.Close()

	summary, err := svc.UploadCSV(file)
	if err != nil {
		return service.Run{}, err
	}
	for _, d := range summary.Defects {
		logger.Debug("defective lead row", zap.Int("row", d.Row), zap.Int("missing_value_count", d.MissingValueCount))
	}

	if _, err := svc.RunScoring(ctx); err != nil {
		return service.Run{}, err
	}

	return svc.Results()
}

func handleAction(action string, run service.Run, logger *zap.Logger) error {
	switch action {
	case PromptPrintJSON:
		return run.WriteJSON(os.Stdout)
	case PromptReportByIntent:
		pretty, _ := json.MarshalIndent(run.ReportByIntent(), "", "  ")
		logger.Info(string(pretty), zap.Int("leads count", run.Count))
		return nil
	case PromptResultsToFile:
		filename, err := run.DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		logger.Info("dumping result to file", zap.String("filename", filename))
		return nil
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}
