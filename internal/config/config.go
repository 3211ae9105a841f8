package config

import (
	"os"
	"strconv"

	"curfew-report/internal/database"
)

// Config curfew-report 进程级配置
// 只放部署相关的设置；操作员可改的业务配置（门禁账号、楼栋映射、
// 学院简称表等）存放在 system_config 表，由 repository.ConfigRepository 提供
type Config struct {
	HTTP struct {
		Addr string
	}
	Database database.Config
	Redis    struct {
		Enabled  bool
		Addr     string
		Password string
		DB       int
	}
	Log struct {
		Level  string
		Format string
	}
	Portal  PortalConfig
	Results struct {
		Root string // 报表输出根目录，每个操作员一个子目录
	}
}

// PortalConfig 公寓门禁系统（外部第三方）配置
type PortalConfig struct {
	BaseURL  string // 门禁系统根地址
	LoginURL string // 登录页地址
	Headless bool   // 浏览器登录是否使用无头模式
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "curfew")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")

	// Redis 仅用于 Web 会话存储；未启用时退化为内存会话
	cfg.Redis.Enabled = getEnv("REDIS_ENABLED", "false") == "true"
	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = 0

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.Portal.BaseURL = getEnv("PORTAL_BASE_URL", "http://gygl.tust.edu.cn:8080/da-roadgate-resident")
	cfg.Portal.LoginURL = getEnv("PORTAL_LOGIN_URL", cfg.Portal.BaseURL+"/index")
	cfg.Portal.Headless = getEnv("PORTAL_HEADLESS", "true") == "true"

	cfg.Results.Root = getEnv("RESULTS_ROOT", "./result-files")

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
