package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"proxygen/internal/config"
	"proxygen/internal/generation"
	"proxygen/internal/logger"
	"proxygen/internal/metadata"
)

func main() {
	var configPath = flag.String("config", "", "The path to a JSON config file. Flags override its values.")
	var metadataFilePath = flag.String("metadataPath", "", "The metadata file to read: a JSON dump (.json) or a .winmd/.dll file.")
	var inputFilePath = flag.String("input", "", "The path to a file listing the types and/or namespaces to generate, one per line.")
	var outputPath = flag.String("outputPath", "", "The path where all generated files will be placed.")
	var modulePath = flag.String("modulePath", "", "The import path prefix of the generated packages.")
	var forceClean = flag.Bool("forceCleanOutput", false, "If given forces cleaning output file before generation.")
	var nugetPackage = flag.String("nuget", "", "Download the metadata from this NuGet package when the metadata file is missing.")
	var logLevel = flag.String("logLevel", "", "Log level: debug, info, warn or error.")
	var logFormat = flag.String("logFormat", "", "Log format: text or json.")
	var dryRun = flag.Bool("dryRun", false, "Synthesize and render without writing any file.")
	var flat = flag.Bool("flat", false, "Write every namespace into a single package.")
	flag.Usage = func() {
		fmt.Println("App that generates Go proxies for foreign runtime types.")
		flag.PrintDefaults()
	}

	flag.Parse()

	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatal(err)
		}
		cfg = *loaded
	}
	overrideString(&cfg.MetadataPath, *metadataFilePath)
	overrideString(&cfg.OutputPath, *outputPath)
	overrideString(&cfg.ModulePath, *modulePath)
	overrideString(&cfg.LogLevel, *logLevel)
	overrideString(&cfg.LogFormat, *logFormat)
	cfg.Flat = cfg.Flat || *flat
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	level, _ := logger.ParseLevel(cfg.LogLevel)
	logConfig := logger.DefaultConfig()
	logConfig.Level = level
	logConfig.Format = cfg.LogFormat
	if err := logger.Init(logConfig); err != nil {
		log.Fatal(err)
	}

	if _, err := os.Stat(cfg.MetadataPath); errors.Is(err, os.ErrNotExist) {
		if *nugetPackage == "" {
			log.Fatalf("Metadata file %s does not exist!", cfg.MetadataPath)
		}
		if err := metadata.DownloadMetadata(*nugetPackage, cfg.MetadataPath); err != nil {
			log.Fatal(err)
		}
	}

	metadataLog := logger.With("metadata", cfg.MetadataPath)
	graph, err := loadMetadata(cfg.MetadataPath)
	if err != nil {
		log.Fatal(err)
	}
	metadataLog.Info("Metadata loaded", "types", len(graph.Types()))

	include := cfg.Include
	if *inputFilePath != "" {
		names, err := readInputFile(*inputFilePath)
		if err != nil {
			log.Fatal(err)
		}
		include = append(include, names...)
	}

	generator := generation.NewGenerator(graph, cfg.GenerationOptions(), cfg.RenderOptions())
	generator.Exclude = cfg.IsExcluded
	generator.DryRun = *dryRun
	for from, to := range cfg.Renames {
		generator.Renames[from] = to
	}

	if len(include) == 0 {
		generator.RegisterAll()
	}
	for _, name := range include {
		if !generator.Register(name) {
			logger.Warn("Nothing matches input entry", "entry", name)
		}
	}

	if !*dryRun {
		err = ClearDirectoryIfNotEmpty(cfg.OutputPath, *forceClean)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Fatal(err)
		}
	}

	summary, err := generator.Generate(cfg.OutputPath)
	if err != nil {
		log.Fatal(err)
	}

	logger.Info("Generation finished", "types", summary.Types, "files", summary.Files, "skipped", len(summary.Diagnostics))
}

func overrideString(target *string, value string) {
	if value != "" {
		*target = value
	}
}

// JSON dumps go through the dump loader, everything else is read as ECMA-335 metadata.
func loadMetadata(path string) (*metadata.Graph, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return metadata.LoadDump(path)
	}
	return metadata.ReadWinMd(path)
}

func readInputFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	names := []string{}
	fileScanner := bufio.NewScanner(file)
	for fileScanner.Scan() {
		line := strings.TrimSpace(fileScanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}

	return names, fileScanner.Err()
}

func ClearDirectoryIfNotEmpty(path string, silent bool) error {
	directory, err := os.Open(path)
	if err != nil {
		return err
	}
	defer directory.Close()

	_, err = directory.Readdirnames(1)
	if err == io.EOF {
		return nil
	}

	if err != nil {
		return err
	}

	var response string
	if !silent {
		fmt.Print("Output directory is not empty. Continuation will result in removing all output file. Proceed? [Y/n]")
		fmt.Scan(&response)
		if strings.ToUpper(response) != "Y" {
			log.Fatal("Explicit agreement was not given. Exiting.")
		}
	}

	logger.Info("Cleaning output directory", "path", path)
	return os.RemoveAll(path)
}
