// =============================================================================
// sigrag 主入口
// =============================================================================
// 签名驱动的多跳 RAG 命令行工具
//
// 使用方法:
//
//	sigrag run "Predict(question -> answer)" "What is Go?"   # 运行推理模块
//	sigrag run --input context=docs --input question=... "ChainOfThought(context, question -> answer)"
//	sigrag index --collection docs notes.txt report.txt      # 索引文档
//	sigrag collections                                       # 列出集合
//	sigrag version                                           # 显示版本信息
// =============================================================================
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"sigrag/config"
	"sigrag/internal/cache"
	"sigrag/llm"
	"sigrag/module"
	"sigrag/rag"
	"sigrag/store"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runModule(os.Args[2:])
	case "index":
		runIndex(os.Args[2:])
	case "collections":
		runCollections(os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// inputFlags 收集重复出现的 --input name=value 选项.
type inputFlags map[string]string

func (f inputFlags) String() string { return fmt.Sprintf("%v", map[string]string(f)) }

func (f inputFlags) Set(value string) error {
	name, val, ok := strings.Cut(value, "=")
	if !ok || name == "" {
		return fmt.Errorf("expected name=value, got %q", value)
	}
	f[name] = val
	return nil
}

// =============================================================================
// 🚀 run 命令
// =============================================================================

func runModule(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	verbose := fs.Bool("verbose", false, "Enable verbose output")
	inputs := inputFlags{}
	fs.Var(inputs, "input", "Input field as name=value (repeatable)")
	fs.Parse(args)

	rest := fs.Args()
	if len(rest) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: sigrag run [options] \"ModuleName(inputs -> outputs)\" [positional input]")
		os.Exit(1)
	}

	name, sig, err := module.ParseSpec(rest[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid module spec: %v\n", err)
		os.Exit(1)
	}

	cfg := loadConfig(*configPath, *verbose)
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	if err := bindInputs(sig, inputs, rest[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	if *verbose {
		logger.Info("module resolved",
			zap.String("module", name),
			zap.Strings("inputs", sig.Inputs),
			zap.Strings("outputs", sig.Outputs))
	}

	provider, err := buildStore(cfg.Store, logger)
	if err != nil {
		logger.Fatal("failed to open collection store", zap.Error(err))
	}

	deps := module.Deps{
		Completions: buildCompletions(cfg.LLM, logger),
		Store:       provider,
		RAGConfig: rag.Config{
			K:                cfg.RAG.K,
			MaxHops:          cfg.RAG.MaxHops,
			MaxContextTokens: cfg.RAG.MaxContextTokens,
			Classifier: rag.ClassifierConfig{
				SpecificsTerms:     cfg.RAG.SpecificsTerms,
				ChronologicalTerms: cfg.RAG.ChronologicalTerms,
			},
		},
		Logger: logger,
	}
	if cfg.Cache.Enabled {
		answerCache := cache.New(cache.Config{
			Enabled:  true,
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
			TTL:      cfg.Cache.TTL,
		}, logger)
		defer answerCache.Close()
		deps.Cache = answerCache
	}

	// 输入值命名了已有集合时走 RAG 路径, 集合字段不再作为模型输入
	if det, ok := module.DetectCollection(provider, sig, inputs); ok {
		logger.Info("collection detected, using RAG pipeline",
			zap.String("field", det.Field),
			zap.String("collection", det.Collection))
		name = "EnhancedRAG"
		deps.Collection = det.Collection
		delete(inputs, det.Field)
		sig = dropInput(sig, det.Field)
	}

	mod, err := module.New(name, sig, deps)
	if err != nil {
		logger.Fatal("failed to build module", zap.Error(err))
	}

	pred, err := mod.Forward(context.Background(), inputs)
	if err != nil {
		logger.Fatal("module execution failed", zap.Error(err))
	}

	fmt.Println(pred.Answer())
}

// bindInputs 按原始输入来源补全输入字段: 命名选项 → 位置参数 → 标准输入.
// 取值为 "stdin" 的字段总是绑定到标准输入.
func bindInputs(sig module.Signature, inputs inputFlags, positional []string) error {
	stdinData, hasStdin := readStdin()

	if len(sig.Inputs) == 1 {
		field := sig.Inputs[0]
		switch {
		case inputs[field] == "stdin":
			if !hasStdin {
				return fmt.Errorf("--input %s=stdin set but no data provided via stdin", field)
			}
			inputs[field] = stdinData
		case inputs[field] != "":
		case len(positional) > 0:
			inputs[field] = positional[0]
		case hasStdin:
			inputs[field] = stdinData
		default:
			return fmt.Errorf("no input provided for field %q", field)
		}
		return nil
	}

	for _, field := range sig.Inputs {
		if inputs[field] == "" {
			return fmt.Errorf("missing required option --input %s=...", field)
		}
		if inputs[field] == "stdin" {
			if !hasStdin {
				return fmt.Errorf("--input %s=stdin set but no data provided via stdin", field)
			}
			inputs[field] = stdinData
		}
	}
	return nil
}

// readStdin 在有管道输入时读取标准输入.
func readStdin() (string, bool) {
	stat, err := os.Stdin.Stat()
	if err != nil || stat.Mode()&os.ModeCharDevice != 0 {
		return "", false
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(data)), true
}

func dropInput(sig module.Signature, field string) module.Signature {
	inputs := make([]string, 0, len(sig.Inputs))
	for _, name := range sig.Inputs {
		if name != field {
			inputs = append(inputs, name)
		}
	}
	return module.Signature{Inputs: inputs, Outputs: sig.Outputs}
}

// =============================================================================
// 📚 index 命令
// =============================================================================

func runIndex(args []string) {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	collection := fs.String("collection", "", "Collection name")
	fs.Parse(args)

	if *collection == "" {
		fmt.Fprintln(os.Stderr, "Usage: sigrag index --collection NAME file...")
		os.Exit(1)
	}
	files := fs.Args()
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "No files to index")
		os.Exit(1)
	}

	cfg := loadConfig(*configPath, false)
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	provider, err := buildStore(cfg.Store, logger)
	if err != nil {
		logger.Fatal("failed to open collection store", zap.Error(err))
	}
	indexer, ok := provider.(store.Indexer)
	if !ok {
		logger.Fatal("configured store does not support indexing", zap.String("driver", cfg.Store.Driver))
	}

	docs := make([]store.Document, 0, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Fatal("failed to read file", zap.String("path", path), zap.Error(err))
		}
		docs = append(docs, store.Document{
			ID:   filepath.Base(path),
			Text: string(data),
		})
	}

	if err := indexer.Index(context.Background(), *collection, docs); err != nil {
		logger.Fatal("indexing failed", zap.Error(err))
	}

	fmt.Printf("Indexed %d documents into %q\n", len(docs), *collection)
}

// =============================================================================
// 📂 collections 命令
// =============================================================================

func runCollections(args []string) {
	fs := flag.NewFlagSet("collections", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	cfg := loadConfig(*configPath, false)
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	provider, err := buildStore(cfg.Store, logger)
	if err != nil {
		logger.Fatal("failed to open collection store", zap.Error(err))
	}

	names, err := provider.List(context.Background())
	if err != nil {
		logger.Fatal("failed to list collections", zap.Error(err))
	}
	for _, name := range names {
		fmt.Println(name)
	}
}

// =============================================================================
// 🔧 装配
// =============================================================================

func loadConfig(path string, verbose bool) *config.Config {
	loader := config.NewLoader()
	if path != "" {
		loader = loader.WithConfigPath(path)
	}
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	return cfg
}

func buildCompletions(cfg config.LLMConfig, logger *zap.Logger) llm.CompletionProvider {
	var provider llm.CompletionProvider = llm.NewOpenAIProvider(llm.OpenAIConfig{
		BaseURL:     cfg.BaseURL,
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Timeout:     cfg.Timeout,
	}, logger)
	if cfg.RateLimitRPS > 0 {
		provider = llm.NewRateLimitedProvider(provider, cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	return provider
}

func buildStore(cfg config.StoreConfig, logger *zap.Logger) (store.Provider, error) {
	embedder, err := buildEmbedder(cfg.Embedder)
	if err != nil {
		return nil, err
	}
	switch cfg.Driver {
	case "memory":
		return store.NewMemoryStore(embedder, logger), nil
	case "sqlite":
		return store.OpenSQLiteStore(cfg.Path, embedder, logger)
	default:
		return nil, fmt.Errorf("unsupported store driver: %s (supported: memory, sqlite)", cfg.Driver)
	}
}

func buildEmbedder(cfg config.EmbedderConfig) (store.Embedder, error) {
	switch cfg.Provider {
	case "local":
		return store.NewLocalEmbedder(cfg.Dimensions), nil
	case "openai":
		return store.NewOpenAIEmbedder(store.OpenAIEmbedderConfig{
			BaseURL:    cfg.BaseURL,
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported embedder provider: %s (supported: local, openai)", cfg.Provider)
	}
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion() {
	fmt.Printf("sigrag %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`sigrag - signature-driven multi-hop RAG CLI

Usage:
  sigrag <command> [options]

Commands:
  run          Run an inference module against a signature
  index        Index text files into a collection
  collections  List stored collections
  version      Show version information
  help         Show this help message

Options for 'run':
  --config <path>        Path to configuration file (YAML)
  --input name=value     Bind an input field (repeatable; value "stdin" reads stdin)
  --verbose              Enable verbose output

Options for 'index':
  --config <path>        Path to configuration file (YAML)
  --collection <name>    Target collection

Examples:
  sigrag run "Predict(question -> answer)" "What is Go?"
  sigrag run --input context=docs --input question="How much revenue?" "ChainOfThought(context, question -> answer)"
  cat question.txt | sigrag run "ChainOfThought(question -> answer)"
  sigrag index --collection docs notes.txt report.txt
  sigrag collections
  sigrag version`)
}

// =============================================================================
// 🔧 日志初始化
// =============================================================================

func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoding = "console"
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      encoding == "console",
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := zapConfig.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		logger, _ = zap.NewProduction()
	}

	return logger
}
