// Copyright 2025 The WordNext Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements the next-word prediction server, trainer and CLI [DBG] application.

Note: This is a BETA release. APIs and functionality may rapidly change.

WordNext learns n-gram statistics from plain text and predicts the words
most likely to come next. Predictions can be biased toward a personal
dictionary of custom words. It operates as a MessagePack IPC server for
editors, as a trainer that writes model files, or as a CLI for testing.

# Usage

Train bigram and trigram models on the built-in sample and seed the
custom dictionary:

	wordnext -train-sample

Train on your own text:

	wordnext -train notes.txt

Start the server with debug logs on stderr:

	wordnext -d

Run in CLI mode for interactive testing:

	wordnext -c -limit 8

# Configuration

Runtime configuration lives in a TOML file, created with defaults on first
run at ~/.config/wordnext/config.toml unless -config points elsewhere:

	[model]
	dir = "models"
	orders = [2, 3]
	default_order = 2
	extension = ".mpk"

	[predict]
	default_top_k = 5
	max_top_k = 64

	[dict]
	path = "data/custom_dictionary.json"
	autosave = true

Server mode watches the file and applies new limits without restart.

# Files

Models are stored as <dir>/<name>_model<extension>, where name is bigram,
trigram or "<n>gram". The extension selects the encoding: .mpk (msgpack),
.json, .yaml or .toml. The custom dictionary format follows its path the
same way.

# IPC Protocol

See package server. Every request is one msgpack map:

	{"id": "r1", "action": "predict", "text": "machine learning", "l": 5}
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/bastiangx/wordnext/internal/cli"
	"github.com/bastiangx/wordnext/internal/corpus"
	"github.com/bastiangx/wordnext/internal/utils"
	"github.com/bastiangx/wordnext/pkg/config"
	"github.com/bastiangx/wordnext/pkg/dictionary"
	"github.com/bastiangx/wordnext/pkg/ngram"
	"github.com/bastiangx/wordnext/pkg/persist"
	"github.com/bastiangx/wordnext/pkg/predict"
	"github.com/bastiangx/wordnext/pkg/server"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

const (
	Version = "0.3.0-beta"
	gh      = "https://github.com/bastiangx/wordnext"
)

// sigHandler is a simple handler for OS signals to exit normally.
func sigHandler(cancel context.CancelFunc) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		cancel()
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		os.Exit(0)
	}()
}

// main wires config, models and the dictionary into the trainer, the CLI
// or the server. It does not implement logic for them and only manages the flow.
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigHandler(cancel)
	defaultConfig := config.DefaultConfig()

	showVersion := flag.Bool("version", false, "Show current version")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	cliMode := flag.Bool("c", false, "Run CLI -- useful for testing and debugging")
	configPath := flag.String("config", "", "Path to a config.toml (default: user config dir)")
	resetConfig := flag.Bool("reset-config", false, "Rewrite the default config file with built-in defaults and exit")
	trainFile := flag.String("train", "", "Train models on this text file, save them and exit")
	trainSample := flag.Bool("train-sample", false, "Train on the built-in sample, seed the custom dictionary and exit")
	modelDir := flag.String("models", "", "Directory holding trained models (overrides config)")
	dictPath := flag.String("dict", "", "Custom dictionary file (overrides config)")
	limit := flag.Int("limit", defaultConfig.CLI.DefaultLimit, "Number of predictions to show in CLI mode")
	maxLength := flag.Int("max-length", defaultConfig.CLI.DefaultMaxLength, "Words to generate with :gen in CLI mode")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if *debugMode {
		log.SetLevel(log.DebugLevel)
		log.SetReportTimestamp(true)
	} else {
		log.SetLevel(log.WarnLevel)
	}

	if *resetConfig {
		if err := config.RebuildConfigFile(); err != nil {
			log.Fatalf("Failed to rebuild config: %v", err)
		}
		fmt.Fprintf(os.Stderr, "Config reset at %s\n", config.GetActiveConfigPath(""))
		return
	}

	cfg, activeConfigPath, err := config.LoadConfigWithPriority(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Debugf("Using config file: (%s)", config.GetActiveConfigPath(activeConfigPath))

	resolver := utils.NewPathResolver()
	if *modelDir != "" {
		cfg.Model.Dir = *modelDir
	}
	if *dictPath != "" {
		cfg.Dict.Path = *dictPath
	}
	cfg.Model.Dir = resolver.Resolve(cfg.Model.Dir)
	cfg.Dict.Path = resolver.Resolve(cfg.Dict.Path)
	log.Debugf("Using model dir at: %s", cfg.Model.Dir)
	log.Debugf("Using custom dictionary at: %s", cfg.Dict.Path)

	dict := dictionary.New(cfg.Dict.Path)
	if err := dict.Load(); err != nil {
		log.Fatalf("Failed to load custom dictionary: %v", err)
	}

	if *trainFile != "" || *trainSample {
		if err := train(cfg, dict, *trainFile, *trainSample); err != nil {
			log.Fatalf("Training failed: %v", err)
		}
		return
	}

	sources, err := corpus.Load(cfg)
	if err != nil {
		log.Fatalf("Failed to load models: %v", err)
	}
	if len(sources) == 0 {
		log.Warn("No models loaded, predictions fall back to the custom dictionary")
	}

	// CLI would be mainly used for testing and dbg purposes.
	if *cliMode {
		log.SetReportTimestamp(false)
		log.Debug("Input info:", "limit", *limit, "maxLength", *maxLength, "models", len(sources))

		p := predict.New(defaultModel(cfg, sources), dict)
		inputHandler := cli.NewInputHandler(p, sources, *limit, *maxLength)
		if err := inputHandler.Start(); err != nil {
			log.Fatalf("CLI error: %v", err)
		}
		return
	}

	log.Debug("spawning IPC")
	srv := server.NewServer(sources, dict, cfg, activeConfigPath)
	if cfg.Server.ReloadConfig {
		if err := srv.WatchConfig(ctx); err != nil {
			log.Warnf("Config hot reload disabled: %v", err)
		}
	}

	showStartupInfo(cfg, sources, dict)

	if err := srv.Start(ctx); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}

// train fits one model per configured order, saves them and prints a few
// sample predictions.
func train(cfg *config.Config, dict *dictionary.Dictionary, file string, sample bool) error {
	sources := corpus.Train(cfg.Model.Orders)
	if file != "" {
		var err error
		if sources, err = corpus.TrainFiles(cfg.Model.Orders, file); err != nil {
			return err
		}
	}
	if sample {
		for _, src := range sources {
			src.Model.Train(corpus.Sample)
		}
	}

	paths, err := corpus.Save(cfg, sources)
	if err != nil {
		return err
	}

	if sample {
		corpus.Seed(dict)
		if err := dict.Save(); err != nil {
			return fmt.Errorf("failed to save custom dictionary: %w", err)
		}
	}

	fmt.Println("Training completed!")
	fmt.Println("Models saved:")
	for i, p := range paths {
		fmt.Printf("- %s model: %s\n", sources[i].Name, p)
	}
	if sample {
		fmt.Printf("- Custom dictionary: %s (%d words)\n", dict.Path(), dict.Len())
	}

	fmt.Println()
	fmt.Println("Testing predictions...")
	m := defaultModel(cfg, sources)
	for _, ctx := range corpus.TestContexts {
		preds := m.PredictNext(ngram.Tokenize(ctx), 3)
		fmt.Printf("Context: %s -> Predictions:", ctx)
		for _, p := range preds {
			fmt.Printf(" %s (%s)", p.Word, utils.FormatPercent(p.Probability))
		}
		fmt.Println()
	}
	return nil
}

// defaultModel returns the model of the configured default order, or the
// first one loaded.
func defaultModel(cfg *config.Config, sources []predict.Source) *ngram.Model {
	for _, src := range sources {
		if src.Model.Order() == cfg.Model.DefaultOrder {
			return src.Model
		}
	}
	if len(sources) > 0 {
		return sources[0].Model
	}
	return nil
}

func printVersion() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    false,
		ReportTimestamp: false,
		Prefix:          "",
	})

	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"}).
		Background(lipgloss.AdaptiveColor{Light: "#f2e9e1", Dark: "#26233a"})
	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	logger.SetStyles(styles)

	logger.Print("")
	logger.Print("[ WordNext ] Predicts your next word!")
	logger.Print("", "version", Version)
	logger.Print("")
	logger.Print("use -h or --help to see available options")
	logger.Print("Github Repo", "gh", gh)
}

// showStartupInfo displays some basic info about the init process on stderr.
func showStartupInfo(cfg *config.Config, sources []predict.Source, dict *dictionary.Dictionary) {
	pid := os.Getpid()
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)

	println("===========")
	println(" WordNext  ")
	println("===========")
	log.Infof("Version: %s", Version)
	log.Infof("Process ID: [ %d ]", pid)
	for _, src := range sources {
		st := src.Model.Stats()
		log.Infof("model: %s ( %s contexts, %s words )", src.Name, utils.FormatWithCommas(st.Contexts), utils.FormatWithCommas(st.Vocabulary))
	}
	log.Infof("model dir: ( %s )", cfg.Model.Dir)
	if f, err := persist.DetectFormat(cfg.Model.Extension); err == nil {
		if info, ok := persist.GetFormatInfo(f); ok {
			log.Infof("model format: %s ( %s )", info.Description, strings.Join(info.Extensions, ", "))
		}
	}
	log.Infof("custom words: %d ( %s )", dict.Len(), dict.Path())
	log.Info("status: ready")
	println("===========")
	println("Press Ctrl+C to exit")

	log.SetLevel(currentLevel)
}
