// Command docscan classifies document photographs from the command line.
//
// It runs the full pipeline (codec, tensor preparation, inference, decode,
// suppression, remapping, refinement) over a single image or a directory of
// images and prints the results as text or JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/docsight-ai/go-docscan/analyzer"
	"github.com/docsight-ai/go-docscan/classes"
	"github.com/docsight-ai/go-docscan/codec"
	"github.com/docsight-ai/go-docscan/common"
	"github.com/docsight-ai/go-docscan/inference"
	"github.com/docsight-ai/go-docscan/inference/opencv"
	"github.com/docsight-ai/go-docscan/refine"
	"github.com/docsight-ai/go-docscan/util"
)

// fileConfig is the YAML configuration file layout. Flags override file
// values.
type fileConfig struct {
	Model        string            `yaml:"model"`
	Library      string            `yaml:"library"`
	ClassesFile  string            `yaml:"classes"`
	Engine       string            `yaml:"engine"`
	InputSize    int               `yaml:"inputSize"`
	IoUThreshold float32           `yaml:"iouThreshold"`
	NumClasses   int               `yaml:"numClasses"`
	Concurrency  int               `yaml:"concurrency"`
	Tolerances   refine.Tolerances `yaml:"tolerances"`
}

func main() {
	var (
		configPath   = flag.String("config", "", "optional YAML configuration file")
		modelPath    = flag.String("model", "", "path to the ONNX model artifact")
		libraryPath  = flag.String("library", "", "path to the ONNX Runtime shared library")
		classesPath  = flag.String("classes", "", "path to the class-name table (one label per line; empty uses bundled defaults)")
		engineName   = flag.String("engine", "onnx", "inference engine: onnx or opencv")
		inputSize    = flag.Int("input-size", 640, "square model input size")
		iouThreshold = flag.Float64("iou", 0.45, "per-class suppression IoU threshold")
		concurrency  = flag.Int("concurrency", 4, "parallel analyses in directory mode")
		noRetype     = flag.Bool("no-retype", false, "disable refinement reclassification")
		noDiag       = flag.Bool("no-diagnostics", false, "drop refinement trace notes")
		jsonOut      = flag.Bool("json", false, "emit JSON instead of text")
		verbose      = flag.Bool("verbose", false, "debug logging")
	)
	flag.Parse()

	log := logrus.New()
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	if *jsonOut {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <image-or-directory>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}
	target := flag.Arg(0)

	cfg := fileConfig{
		Model:        *modelPath,
		Library:      *libraryPath,
		ClassesFile:  *classesPath,
		Engine:       *engineName,
		InputSize:    *inputSize,
		IoUThreshold: float32(*iouThreshold),
		Concurrency:  *concurrency,
		Tolerances:   refine.DefaultTolerances(),
	}
	if *configPath != "" {
		if err := loadConfigFile(*configPath, &cfg); err != nil {
			log.WithError(err).Fatal("loading configuration file")
		}
	}

	table, err := loadClassTable(cfg.ClassesFile)
	if err != nil {
		log.WithError(err).Fatal("loading class table")
	}

	engine, err := buildEngine(cfg, table)
	if err != nil {
		log.WithError(err).Fatal("constructing inference engine")
	}
	defer engine.Close()

	a, err := analyzer.New(codec.Std{}, engine, analyzer.Config{
		Classes:         table,
		InputSize:       cfg.InputSize,
		IoUThreshold:    cfg.IoUThreshold,
		Tolerances:      cfg.Tolerances,
		AllowRetype:     !*noRetype,
		KeepDiagnostics: !*noDiag,
		Log:             log,
	})
	if err != nil {
		log.WithError(err).Fatal("constructing analyzer")
	}

	info, err := os.Stat(target)
	if err != nil {
		log.WithError(err).Fatal("reading input path")
	}

	if info.IsDir() {
		if err := analyzeDirectory(a, log, target, cfg.Concurrency, *jsonOut); err != nil {
			log.WithError(err).Fatal("directory analysis")
		}
		return
	}
	if err := analyzeFile(a, log, target, *jsonOut); err != nil {
		log.WithError(err).Fatal("analysis")
	}
}

func loadConfigFile(path string, cfg *fileConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func loadClassTable(path string) (*classes.Table, error) {
	if path == "" {
		return classes.Default(), nil
	}
	return classes.Load(path)
}

func buildEngine(cfg fileConfig, table *classes.Table) (inference.Engine, error) {
	engineCfg := inference.Config{
		ModelPath:   cfg.Model,
		LibraryPath: cfg.Library,
		InputSize:   cfg.InputSize,
		NumClasses:  table.Len(),
	}
	if cfg.NumClasses > 0 {
		engineCfg.NumClasses = cfg.NumClasses
	}

	switch cfg.Engine {
	case "opencv":
		engine, err := opencv.New(engineCfg)
		if err != nil {
			return nil, err
		}
		return engine, nil
	case "onnx", "":
		engine, err := inference.NewONNX(engineCfg)
		if err != nil {
			return nil, err
		}
		return engine, nil
	default:
		return nil, fmt.Errorf("unknown engine %q", cfg.Engine)
	}
}

func analyzeFile(a *analyzer.Analyzer, log *logrus.Logger, path string, asJSON bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	result, err := a.Analyze(context.Background(), data)
	if err != nil {
		return err
	}
	printResult(log, path, result, asJSON)
	return nil
}

// analyzeDirectory fans the batch out over a bounded worker group. One
// image's failure is logged and counted, never aborts the batch.
func analyzeDirectory(a *analyzer.Analyzer, log *logrus.Logger, dir string, concurrency int, asJSON bool) error {
	files, err := util.LoadDirectoryImageFiles(dir)
	if err != nil {
		return err
	}
	if concurrency < 1 {
		concurrency = 1
	}

	var g errgroup.Group
	g.SetLimit(concurrency)

	results := make([]*common.Result, len(files))
	failures := make([]error, len(files))

	for i, file := range files {
		g.Go(func() error {
			result, analyzeErr := a.Analyze(context.Background(), file.Data)
			if analyzeErr != nil {
				failures[i] = analyzeErr
				return nil
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	failed := 0
	for i, file := range files {
		if failures[i] != nil {
			failed++
			log.WithError(failures[i]).WithField("path", file.Path).Error("analysis failed")
			continue
		}
		printResult(log, file.Path, results[i], asJSON)
	}
	log.WithFields(logrus.Fields{
		"total":  len(files),
		"failed": failed,
	}).Info("batch complete")
	return nil
}

func printResult(log *logrus.Logger, path string, result *common.Result, asJSON bool) {
	if asJSON {
		out := struct {
			Path string `json:"path"`
			*common.Result
		}{Path: path, Result: result}
		encoded, err := json.Marshal(out)
		if err != nil {
			log.WithError(err).Error("encoding result")
			return
		}
		fmt.Println(string(encoded))
		return
	}

	fmt.Printf("%s: %s (confidence %.3f)\n", path, result.Summary.DocumentType, result.Summary.Confidence)
	if box := result.Summary.PrimaryBox; box != nil {
		fmt.Printf("  primary box: (%d,%d)-(%d,%d), partial=%t\n",
			box.X1, box.Y1, box.X2, box.Y2, result.Summary.Quality.IsPartial)
	}
	for _, d := range result.Detections {
		fmt.Printf("  %s\n", d)
	}
	for _, s := range result.Signals {
		fmt.Printf("  note: %s\n", s)
	}
}
