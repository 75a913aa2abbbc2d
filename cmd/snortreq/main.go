// Command snortreq reads a Snort rules file, parses the HTTP-relevant
// subset of each rule, and optionally synthesizes and sends the HTTP
// request each rule implies.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/felixe/snortreq/internal/config"
	"github.com/felixe/snortreq/internal/pcregen"
	"github.com/felixe/snortreq/internal/rules"
	"github.com/felixe/snortreq/internal/synth"
)

func main() {
	os.Exit(run())
}

func run() int {
	var cfg config.Config
	var help bool

	pflag.StringVarP(&cfg.RulesFile, "file", "f", "", "path to rules file (required)")
	pflag.StringVarP(&cfg.Server, "server", "s", "", "hostname or IP to send synthesized requests to")
	pflag.BoolVarP(&cfg.Print, "print", "p", false, "print parsed rules to stdout")
	pflag.BoolVarP(&cfg.Response, "response", "r", false, "enable response capture (requires -s)")
	pflag.BoolVarP(&cfg.Verbose, "verbose", "v", false, "verbose dispatch diagnostics")
	pflag.BoolVarP(&cfg.ContinueOnError, "continue", "c", false, "downgrade fatal parse errors to warnings")
	pflag.BoolVarP(&help, "help", "h", false, "print usage and exit")
	pflag.Parse()

	if help {
		pflag.Usage()
		return 1
	}
	if cfg.RulesFile == "" {
		fmt.Fprintln(os.Stderr, "Error: -f/--file is required")
		pflag.Usage()
		return 1
	}
	if cfg.Response && cfg.Server == "" {
		fmt.Fprintln(os.Stderr, "Error: -r/--response requires -s/--server")
		return 1
	}

	level := zerolog.InfoLevel
	if cfg.Verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()

	if cfg.SendPackets() {
		if err := pcregen.CheckSampler(); err != nil {
			log.Error().Err(err).Msg("Error: regex sampler unavailable")
			return 1
		}
	}

	printConfigSummary(cfg)

	stats, err := processFile(cfg)
	if err != nil {
		log.Error().Err(err).Msg("Error")
		return 1
	}

	printBanner(cfg, stats)
	return 0
}

func printConfigSummary(cfg config.Config) {
	fmt.Printf("Configured to read rules from %s\n", cfg.RulesFile)
	if cfg.SendPackets() {
		fmt.Printf("Configured to send requests to %s\n", cfg.Server)
	}
	if cfg.Print {
		fmt.Println("Configured to print parsed rules")
	}
	if cfg.Response {
		fmt.Println("Configured to capture responses")
	}
	if cfg.Verbose {
		fmt.Println("Configured for verbose diagnostics")
	}
	if cfg.ContinueOnError {
		fmt.Println("Configured to continue past parse errors")
	}
}

func printBanner(cfg config.Config, stats config.Stats) {
	fmt.Printf("%d rules successfully parsed\n", stats.RulesParsed)
	if !cfg.Print {
		fmt.Println("Not printing rules")
	}
	if !cfg.SendPackets() {
		fmt.Println("Not sending out packets")
	}
	fmt.Println("Done.")
}

func processFile(cfg config.Config) (config.Stats, error) {
	var stats config.Stats

	f, err := os.Open(cfg.RulesFile)
	if err != nil {
		return stats, fmt.Errorf("opening rules file: %w", err)
	}
	defer f.Close()

	ctx := context.Background()
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		stats.LinesRead++

		if line == "" || rules.IsComment(line) {
			continue
		}

		if skip, reason := rules.FilterRule(line); skip {
			stats.RulesSkipped++
			log.Info().Int("line", lineNum).Msgf("Rule in line number %d ignored: %s", lineNum, reason)
			continue
		}
		if rules.MissingHTTPModifier(line) {
			log.Warn().Int("line", lineNum).Msg("WARNING: content part ignored, no http_ modifier found anywhere in the rule")
		}

		rule, diags, err := rules.Parse(line, lineNum)
		logDiagnostics(diags)
		if err != nil {
			stats.RulesSkipped++
			pe, _ := err.(*rules.ParseError)

			// RuleFilter (e.g. $HTTP_PORTS source) and LocationMissing
			// (content with no resolved http_ location) always drop the
			// rule and warn; continue-on-error never enters into it.
			alwaysSkip := pe != nil && (pe.Kind == rules.ErrRuleFilter || pe.Kind == rules.ErrLocationMissing)

			fatal := !alwaysSkip && !cfg.ContinueOnError
			evt, msg := log.Warn(), "WARNING: rule dropped"
			if fatal {
				evt, msg = log.Error(), "Error: rule could not be parsed"
			}
			evt.Int("line", lineNum).Err(err).Msg(msg)
			if fatal {
				return stats, err
			}
			continue
		}
		stats.RulesParsed++

		if cfg.Print {
			fmt.Println(rule.String())
		}

		if cfg.SendPackets() {
			result, err := synth.Send(ctx, cfg.Server, rule)
			if err != nil {
				stats.PacketsFailed++
				fmt.Fprintf(os.Stderr, "Error: sid %s: %v\n", rule.SID, err)
				continue
			}
			for _, w := range result.Warnings {
				log.Warn().Str("sid", rule.SID).Msg("WARNING: " + w)
			}
			stats.PacketsSent++
			if cfg.Response {
				fmt.Printf("sid %s -> %s %s: status %d\n", rule.SID, result.Method, result.URI, result.StatusCode)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("reading rules file: %w", err)
	}
	return stats, nil
}

func logDiagnostics(diags []rules.Diagnostic) {
	for _, d := range diags {
		evt := log.Info()
		switch d.Level {
		case "WARNING":
			evt = log.Warn()
		case "Error":
			evt = log.Error()
		}
		evt.Int("line", d.Line).Str("sid", d.SID).Msg(d.Level + ": " + d.Message)
	}
}
