package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	cfgpkg "pinvestigator/internal/config"
	"pinvestigator/internal/diag"
	"pinvestigator/internal/pipeline"
	"pinvestigator/pkg/contract"
)

var pipelineRun = pipeline.Run

// 默认子命令 run。
// 位置参数为输入（文件/目录 或 "-" 表示 STDIN，不能与其他根混用）；缺省为 ../input/input.txt。
func main() {
	os.Exit(run())
}

func run() int {
	start := time.Now()
	corrID := uuid.NewString()
	// 在任何 ENV 读取前加载 .env（不覆盖已有 ENV）
	_ = loadDotEnv(".env")
	logLevel := "info"
	// 先以默认等级占位，合并配置后重建
	logger := diag.NewLogger(corrID, logLevel)
	defer func() { _ = logger.Close() }()

	var (
		flagConfig    string
		flagOrder     string
		flagDedup     string
		flagSchedule  string
		flagPrefix    string
		flagRenderers string
		flagOut       string
		flagLogLevel  string
		flagInitDir   string
		flagStatus    bool
	)
	flag.StringVar(&flagConfig, "config", "", "配置文件路径（.json/.yaml）；缺省读取 ./config.json 或 ./config.yaml（若存在）")
	flag.StringVar(&flagOrder, "order", "", "报告顺序 insertion|sorted（覆盖配置）")
	flag.StringVar(&flagDedup, "dedup", "", "同键去重口径 body|line（覆盖配置）")
	flag.StringVar(&flagSchedule, "schedule", "", "cron 表达式；设置后按计划重复执行直到收到中断信号")
	flag.StringVar(&flagPrefix, "output-prefix", "", "报告文件名前缀（覆盖配置）")
	flag.StringVar(&flagRenderers, "renderers", "", "逗号分隔的渲染器列表，如 text,markdown（覆盖配置）")
	flag.StringVar(&flagOut, "out", "", "fs writer 的输出目录（覆盖 options.writer.output_dir）")
	flag.StringVar(&flagLogLevel, "log-level", "", "日志等级 debug|info|warn|error（覆盖配置）")
	flag.StringVar(&flagInitDir, "init-config", "", "在指定目录生成默认 config.json 和 .env 模板（已存在则不覆盖）；不带值时默认当前目录")
	flag.BoolVar(&flagStatus, "status", true, "终端状态提示（stderr）。TTY 动态刷新；非 TTY 打点输出")
	normalizeInitArg()
	flag.Parse()
	roots := flag.Args()

	// --init-config: 生成模板并退出
	if initDir := strings.TrimSpace(flagInitDir); initDir != "" {
		if err := initConfig(initDir); err != nil {
			fprintf(os.Stderr, "生成默认配置失败: %v\n", err)
			logger.Error("config", string(diag.Classify(err)), "init config", &start)
			return 3
		}
		return 0
	}

	cfg, err := loadConfig(flagConfig)
	if err != nil {
		fprintf(os.Stderr, "配置解析失败: %v\n", err)
		logger.Error("config", string(diag.Classify(err)), "load", &start)
		return 3
	}

	// CLI 覆盖
	var overCLI cfgpkg.Config
	overCLI.Order = flagOrder
	overCLI.Dedup = flagDedup
	overCLI.Schedule = flagSchedule
	overCLI.OutputPrefix = flagPrefix
	overCLI.Logging.Level = flagLogLevel
	if s := strings.TrimSpace(flagRenderers); s != "" {
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				overCLI.Components.Renderers = append(overCLI.Components.Renderers, p)
			}
		}
	}
	if len(roots) > 0 {
		overCLI.Inputs = roots
	}
	cfg = cfgpkg.Merge(cfg, overCLI)
	if strings.TrimSpace(flagOut) != "" {
		raw, err := withOutputDir(cfg.Options.Writer, strings.TrimSpace(flagOut))
		if err != nil {
			fprintf(os.Stderr, "参数 --out 无效: %v\n", err)
			logger.Error("config", string(diag.Classify(err)), "out flag", &start)
			return 3
		}
		cfg.Options.Writer = raw
	}
	defaulted := false
	if len(cfg.Inputs) == 0 {
		cfg.Inputs = []string{cfgpkg.DefaultInput}
		defaulted = true
	}

	if err := cfgpkg.Validate(cfg); err != nil {
		fprintf(os.Stderr, "配置校验失败: %v\n", err)
		_ = dumpConfig(cfg)
		logger.Error("config", string(diag.Classify(err)), "validate", &start)
		return 3
	}

	// 使用最终配置中的日志等级与目录重建 logger
	if strings.TrimSpace(cfg.Logging.Level) != "" {
		logLevel = strings.TrimSpace(cfg.Logging.Level)
	}
	_ = logger.Close()
	logDir := diag.DefaultLogDir
	if strings.TrimSpace(cfg.Logging.Dir) != "" {
		logDir = strings.TrimSpace(cfg.Logging.Dir)
	}
	logger = diag.NewLoggerAt(logDir, corrID, logLevel)
	if defaulted {
		logger.Info("config", "no input given, using default", map[string]string{"input": cfgpkg.DefaultInput})
	}

	if err := preflightCheckOutputDir(cfg); err != nil {
		fprintf(os.Stderr, "输出目录不可写或无法创建: %v\n", err)
		logger.Error("config", string(diag.Classify(err)), "preflight", &start)
		return 3
	}

	comp, set, err := cfgpkg.Assemble(cfg)
	if err != nil {
		fprintf(os.Stderr, "装配失败: %v\n", err)
		logger.Error("config", string(diag.Classify(err)), "assemble", &start)
		return 3
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := diag.SetupTracing(ctx, cfg.Tracing.Endpoint)
	if err != nil {
		fprintf(os.Stderr, "tracing 初始化失败: %v\n", err)
		logger.Error("config", string(diag.Classify(err)), "tracing", &start)
		return 3
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdown(sctx)
	}()

	term := diag.NewTerminal(os.Stderr, flagStatus)
	diag.SetTerminal(term)
	defer diag.SetTerminal(nil)

	logger.DebugStart("config", "effective", "", map[string]string{
		"inputs_count": fmt.Sprintf("%d", len(cfg.Inputs)),
		"order":        set.Investigate.Order.String(),
		"dedup":        set.Investigate.Dedup.String(),
		"schedule":     cfg.Schedule,
		"reader":       cfg.Components.Reader,
		"splitter":     cfg.Components.Splitter,
		"renderers":    strings.Join(cfg.Components.Renderers, ","),
		"writer":       cfg.Components.Writer,
	})

	mode := fmt.Sprintf("order=%s dedup=%s", set.Investigate.Order, set.Investigate.Dedup)
	job := func(ctx context.Context) error {
		jobStart := time.Now()
		term.RunStart(mode)
		t := logger.Start("pipeline", "run")
		res, err := pipelineRun(ctx, comp, set, logger)
		if err != nil {
			code := string(diag.Classify(err))
			logger.Error("pipeline", code, "first error", &jobStart)
			diag.IncOp("pipeline", "error", "error")
			if code != string(diag.CodeUnknown) {
				diag.IncError("pipeline", code)
			}
			switch {
			case errors.Is(err, context.Canceled):
			case errors.Is(err, contract.ErrEmptyInput):
				fprintf(os.Stderr, "输入为空: %v\n", err)
			default:
				fprintf(os.Stderr, "运行失败: %v\n", err)
			}
			term.RunFinish(false, time.Since(jobStart))
			return err
		}
		t.Finish("run", int64(len(res.Artifacts)))
		diag.IncOp("pipeline", "finish", "success")
		diag.ObserveDuration("pipeline", "finish", time.Since(jobStart).Milliseconds())
		term.RunFinish(true, time.Since(jobStart))
		return nil
	}

	if s := strings.TrimSpace(cfg.Schedule); s != "" {
		if err := runSchedule(ctx, s, job, logger); err != nil {
			fprintf(os.Stderr, "计划任务失败: %v\n", err)
			logger.Error("schedule", string(diag.Classify(err)), "schedule", &start)
			return 3
		}
		return 0
	}
	if err := job(ctx); err != nil {
		return 1
	}
	return 0
}

func fprintf(w *os.File, format string, a ...any) { _, _ = fmt.Fprintf(w, format, a...) }

// loadConfig 按 默认 < 配置文件 / PINV_CONFIG_JSON < ENV 合并。
func loadConfig(path string) (cfgpkg.Config, error) {
	cfg := cfgpkg.Defaults()
	if path == "" {
		path = os.Getenv(cfgpkg.EnvPrefix + "CONFIG_FILE")
	}
	if path == "" {
		for _, name := range []string{"config.json", "config.yaml", "config.yml"} {
			if _, err := os.Stat(name); err == nil {
				path = name
				break
			}
		}
	}
	if path != "" {
		base, err := cfgpkg.LoadFile(path)
		if err != nil {
			return cfg, err
		}
		cfg = cfgpkg.Merge(cfg, base)
	}
	if s := os.Getenv(cfgpkg.EnvPrefix + "CONFIG_JSON"); s != "" {
		base, err := cfgpkg.LoadJSON("", []byte(s))
		if err != nil {
			return cfg, fmt.Errorf("%sCONFIG_JSON: %w", cfgpkg.EnvPrefix, err)
		}
		cfg = cfgpkg.Merge(cfg, base)
	}
	over, err := cfgpkg.EnvOverlay(os.Environ())
	if err != nil {
		return cfg, err
	}
	return cfgpkg.Merge(cfg, over), nil
}

// withOutputDir 在 writer 原样选项中设置 output_dir，保留其他键。
func withOutputDir(raw json.RawMessage, dir string) (json.RawMessage, error) {
	m := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		if m == nil {
			m = map[string]any{}
		}
	}
	m["output_dir"] = dir
	return json.Marshal(m)
}

func dumpConfig(c cfgpkg.Config) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	_, _ = os.Stderr.Write(append([]byte("有效配置:\n"), b...))
	_, _ = os.Stderr.Write([]byte("\n"))
	return nil
}

func initConfig(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := writeConfig(filepath.Join(dir, "config.json"), cfgpkg.DefaultTemplateConfig()); err != nil {
		return err
	}
	if err := writeDotEnv(filepath.Join(dir, ".env")); err != nil {
		fprintf(os.Stderr, "提示：.env 生成失败（已跳过）：%v\n", err)
	}
	return nil
}

func writeConfig(path string, c cfgpkg.Config) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	if path == "-" {
		_, err = os.Stdout.Write(append(b, '\n'))
		return err
	}
	// 不覆盖已存在文件
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(append(b, '\n'))
	return err
}

// loadDotEnv 读取简单的 .env 文件并注入进程环境。
// 跳过空行与 # 注释，支持 "export " 前缀；成对引号去除，双引号内处理常见转义。
// 不覆盖已存在的环境变量。
func loadDotEnv(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, val, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		val = unquote(strings.TrimSpace(val))
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		_ = os.Setenv(key, val)
	}
	return s.Err()
}

func unquote(val string) string {
	if len(val) < 2 {
		return val
	}
	q := val[0]
	if (q != '\'' && q != '"') || val[len(val)-1] != q {
		return val
	}
	val = val[1 : len(val)-1]
	if q == '"' {
		val = strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\r`, "\r", `\"`, `"`, `\\`, `\`).Replace(val)
	}
	return val
}

// normalizeInitArg: --init-config 未带值（末尾或后随开关）时补 "."。
func normalizeInitArg() {
	args := os.Args
	if len(args) <= 1 {
		return
	}
	out := make([]string, 0, len(args)+1)
	out = append(out, args[0])
	for i := 1; i < len(args); i++ {
		a := args[i]
		out = append(out, a)
		if a != "--init-config" && a != "-init-config" {
			continue
		}
		if i == len(args)-1 || strings.HasPrefix(args[i+1], "-") {
			out = append(out, ".")
		}
	}
	os.Args = out
}

// writeDotEnv 生成 .env 模板；文件已存在则跳过。
func writeDotEnv(path string) error {
	p := cfgpkg.EnvPrefix
	var b strings.Builder
	b.WriteString("# pinvestigator .env 模板（由 --init-config 生成）\n")
	b.WriteString("# 优先级：CLI > ENV(.env) > 配置文件\n")
	b.WriteString("# 空值表示未设置。\n\n")
	b.WriteString("# 配置来源（可二选一）\n")
	fmt.Fprintf(&b, "%sCONFIG_FILE=\n%sCONFIG_JSON=\n\n", p, p)
	b.WriteString("# 运行参数覆盖\n")
	for _, k := range []string{"INPUTS", "ORDER", "DEDUP", "SCHEDULE", "OUTPUT_PREFIX", "LOGGING_LEVEL", "LOGGING_DIR", "TRACING_ENDPOINT"} {
		fmt.Fprintf(&b, "%s%s=\n", p, k)
	}
	b.WriteString("\n# 组件选择\n")
	for _, k := range []string{"COMPONENTS_READER", "COMPONENTS_SPLITTER", "COMPONENTS_RENDERERS", "COMPONENTS_WRITER"} {
		fmt.Fprintf(&b, "%s%s=\n", p, k)
	}
	b.WriteString("\n# 组件选项（原样 JSON）\n")
	for _, k := range []string{"OPTIONS__READER_JSON", "OPTIONS__SPLITTER_JSON", "OPTIONS__WRITER_JSON", "OPTIONS__RENDERER__TEXT_JSON"} {
		fmt.Fprintf(&b, "%s%s=\n", p, k)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	_, err = f.WriteString(b.String())
	return err
}

// preflightCheckOutputDir: fs writer 启动前检查输出目录可写性。
// 目录存在则试写临时文件；不存在则检查父目录。其他 writer 跳过。
func preflightCheckOutputDir(cfg cfgpkg.Config) error {
	name := strings.TrimSpace(cfg.Components.Writer)
	if name == "" {
		name = cfgpkg.Defaults().Components.Writer
	}
	if name != "fs" {
		return nil
	}
	var wopts struct {
		OutputDir string `json:"output_dir"`
	}
	if len(cfg.Options.Writer) > 0 {
		_ = json.Unmarshal(cfg.Options.Writer, &wopts)
	}
	dir := strings.TrimSpace(wopts.OutputDir)
	if dir == "" {
		dir = "."
	}
	st, err := os.Stat(dir)
	switch {
	case err == nil && st.IsDir():
		f, err := os.CreateTemp(dir, ".wcheck-*")
		if err != nil {
			return err
		}
		name := f.Name()
		_ = f.Close()
		return os.Remove(name)
	case err == nil:
		return fmt.Errorf("路径存在但不是目录: %s", dir)
	case !os.IsNotExist(err):
		return err
	}
	parent := filepath.Dir(filepath.Clean(dir))
	pst, err := os.Stat(parent)
	if err != nil {
		return err
	}
	if !pst.IsDir() {
		return fmt.Errorf("父路径不是目录: %s", parent)
	}
	tmpd, err := os.MkdirTemp(parent, ".wcheck-*")
	if err != nil {
		return err
	}
	return os.RemoveAll(tmpd)
}
