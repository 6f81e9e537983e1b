package config

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// PathConfig 沙箱路径配置，启动时构建，之后只读
type PathConfig struct {
	AllowedBasePaths    []string // 允许访问的根目录（绝对路径，保持配置顺序）
	MaxDepth            int      // 相对最深根目录允许再往下的层数
	EnforceAllowedPaths bool
	DefaultPath         string
}

// Config stores the application configuration.
type Config struct {
	Paths PathConfig

	HTTPAddr string

	FFmpegPath  string
	FFprobePath string

	SubtitleCacheDir         string   // 字幕缓存根目录
	ContainerExtensions      []string // 需要提取字幕的容器扩展名，如 .mkv
	ListAllowedExtensions    []string // 目录列表中展示的文件扩展名，空表示全部
	ExtractTimeout           time.Duration
	MaxConcurrentExtractions int

	// 探测结果缓存: bolt, redis 或 none
	ProbeCacheBackend string
	ProbeCachePath    string
	ProbeCacheTTL     time.Duration

	// Redis配置
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// MinIO配置，Endpoint 为空时不启用镜像
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioRegion    string
	MinioUseSSL    bool

	RateLimitRPS   float64
	RateLimitBurst int

	WatchEnabled  bool
	WatchDebounce time.Duration

	// OTLP 端点为空时不启用链路追踪
	OTLPEndpoint    string
	TraceSampleRate float64

	LogLevel      string
	LogFile       string
	LogMaxSize    int
	LogMaxBackups int
	LogMaxAge     int
	LogCompress   bool
}

// defaultListExtensions 目录列表默认展示的文件类型
var defaultListExtensions = []string{
	"txt", "pdf", "doc", "docx", "odt",
	"jpg", "jpeg", "png", "gif", "bmp", "svg", "webp",
	"mp4", "avi", "mkv", "mov", "wmv", "flv", "webm", "vtt",
	"mp3", "wav", "ogg", "flac", "m4a",
	"js", "ts", "jsx", "tsx", "html", "css", "scss", "json", "yaml", "yml",
	"py", "java", "cpp", "c", "cs", "php", "rb", "go", "rs",
	"zip", "rar", "7z", "tar", "gz",
}

func setDefaults(v *viper.Viper) {
	home := homeDir()

	v.SetDefault("ALLOWED_FILESYSTEM_PATHS", strings.Join([]string{
		filepath.Join(home, "documents"),
		filepath.Join(home, "downloads"),
	}, ","))
	v.SetDefault("FILESYSTEM_MAX_DEPTH", 3)
	v.SetDefault("FILESYSTEM_ENFORCE_PATHS", false)
	v.SetDefault("FILESYSTEM_DEFAULT_PATH", home)
	v.SetDefault("FILESYSTEM_ALLOWED_EXTENSIONS", strings.Join(defaultListExtensions, ","))

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("FFMPEG_PATH", "ffmpeg")
	v.SetDefault("FFPROBE_PATH", "")

	v.SetDefault("SUBTITLE_CACHE_DIR", filepath.Join("cache", "subtitles"))
	v.SetDefault("SUBTITLE_CONTAINER_EXTENSIONS", ".mkv")
	v.SetDefault("SUBTITLE_EXTRACT_TIMEOUT", 5*time.Minute)
	v.SetDefault("SUBTITLE_MAX_CONCURRENT", 2)

	v.SetDefault("PROBE_CACHE_BACKEND", "bolt")
	v.SetDefault("PROBE_CACHE_PATH", filepath.Join("cache", "probe.db"))
	v.SetDefault("PROBE_CACHE_TTL", 720*time.Hour)

	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "") // 默认无密码
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("MINIO_ENDPOINT", "")
	v.SetDefault("MINIO_ACCESS_KEY", "")
	v.SetDefault("MINIO_SECRET_KEY", "")
	v.SetDefault("MINIO_BUCKET", "mediashelf")
	v.SetDefault("MINIO_REGION", "us-east-1")
	v.SetDefault("MINIO_USE_SSL", false)

	v.SetDefault("RATE_LIMIT_RPS", 50.0)
	v.SetDefault("RATE_LIMIT_BURST", 100)

	v.SetDefault("WATCH_ENABLED", false)
	v.SetDefault("WATCH_DEBOUNCE", 5*time.Second)

	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_TRACE_SAMPLE_RATE", 0.1)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("LOG_MAX_SIZE_MB", 100)
	v.SetDefault("LOG_MAX_BACKUPS", 5)
	v.SetDefault("LOG_MAX_AGE_DAYS", 30)
	v.SetDefault("LOG_COMPRESS", true)
}

// Load loads configuration from environment variables (via .env file) or defaults.
// Command line flags bound into the global viper instance take precedence.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	v := viper.GetViper()
	v.AutomaticEnv()
	return loadFrom(v)
}

func loadFrom(v *viper.Viper) *Config {
	setDefaults(v)

	ffmpegPath := v.GetString("FFMPEG_PATH")
	ffprobePath := v.GetString("FFPROBE_PATH")
	if ffprobePath == "" {
		ffprobePath = deriveFFprobePath(ffmpegPath)
	}

	listExt := splitList(v.GetString("FILESYSTEM_ALLOWED_EXTENSIONS"))
	if len(listExt) == 1 && listExt[0] == "*" {
		listExt = nil
	}

	maxConcurrent := v.GetInt("SUBTITLE_MAX_CONCURRENT")
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	return &Config{
		Paths: PathConfig{
			AllowedBasePaths:    absPaths(splitList(v.GetString("ALLOWED_FILESYSTEM_PATHS"))),
			MaxDepth:            v.GetInt("FILESYSTEM_MAX_DEPTH"),
			EnforceAllowedPaths: v.GetBool("FILESYSTEM_ENFORCE_PATHS"),
			DefaultPath:         absPath(v.GetString("FILESYSTEM_DEFAULT_PATH")),
		},
		HTTPAddr:                 v.GetString("HTTP_ADDR"),
		FFmpegPath:               ffmpegPath,
		FFprobePath:              ffprobePath,
		SubtitleCacheDir:         v.GetString("SUBTITLE_CACHE_DIR"),
		ContainerExtensions:      normalizeExtensions(splitList(v.GetString("SUBTITLE_CONTAINER_EXTENSIONS"))),
		ListAllowedExtensions:    normalizeExtensions(listExt),
		ExtractTimeout:           v.GetDuration("SUBTITLE_EXTRACT_TIMEOUT"),
		MaxConcurrentExtractions: maxConcurrent,
		ProbeCacheBackend:        strings.ToLower(v.GetString("PROBE_CACHE_BACKEND")),
		ProbeCachePath:           v.GetString("PROBE_CACHE_PATH"),
		ProbeCacheTTL:            v.GetDuration("PROBE_CACHE_TTL"),
		RedisHost:                v.GetString("REDIS_HOST"),
		RedisPort:                v.GetString("REDIS_PORT"),
		RedisPassword:            v.GetString("REDIS_PASSWORD"),
		RedisDB:                  v.GetInt("REDIS_DB"),
		MinioEndpoint:            v.GetString("MINIO_ENDPOINT"),
		MinioAccessKey:           v.GetString("MINIO_ACCESS_KEY"),
		MinioSecretKey:           v.GetString("MINIO_SECRET_KEY"),
		MinioBucket:              v.GetString("MINIO_BUCKET"),
		MinioRegion:              v.GetString("MINIO_REGION"),
		MinioUseSSL:              v.GetBool("MINIO_USE_SSL"),
		RateLimitRPS:             v.GetFloat64("RATE_LIMIT_RPS"),
		RateLimitBurst:           v.GetInt("RATE_LIMIT_BURST"),
		WatchEnabled:             v.GetBool("WATCH_ENABLED"),
		WatchDebounce:            v.GetDuration("WATCH_DEBOUNCE"),
		OTLPEndpoint:             strings.TrimSpace(v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT")),
		TraceSampleRate:          v.GetFloat64("OTEL_TRACE_SAMPLE_RATE"),
		LogLevel:                 v.GetString("LOG_LEVEL"),
		LogFile:                  v.GetString("LOG_FILE"),
		LogMaxSize:               v.GetInt("LOG_MAX_SIZE_MB"),
		LogMaxBackups:            v.GetInt("LOG_MAX_BACKUPS"),
		LogMaxAge:                v.GetInt("LOG_MAX_AGE_DAYS"),
		LogCompress:              v.GetBool("LOG_COMPRESS"),
	}
}

// MinioEnabled reports whether the artifact mirror is configured.
func (c *Config) MinioEnabled() bool {
	return strings.TrimSpace(c.MinioEndpoint) != ""
}

// deriveFFprobePath 根据 ffmpeg 路径推导同目录下的 ffprobe
func deriveFFprobePath(ffmpegPath string) string {
	dir, name := filepath.Split(ffmpegPath)
	return dir + strings.Replace(name, "ffmpeg", "ffprobe", 1)
}

func homeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return string(filepath.Separator)
}

// splitList 拆分逗号分隔的配置项，去掉空白和空项
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func absPaths(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, absPath(p))
	}
	return out
}

// absPath 展开 ~ 并转换为清理过的绝对路径
func absPath(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		p = filepath.Join(homeDir(), strings.TrimPrefix(p, "~"))
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

func normalizeExtensions(exts []string) []string {
	if len(exts) == 0 {
		return nil
	}
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		out = append(out, normalizeExtension(e))
	}
	return out
}

func normalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
