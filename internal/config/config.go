// Package config 负责加载和管理应用程序的配置。
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Log       LogConfig       `mapstructure:"log"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Drive     DriveConfig     `mapstructure:"drive"`
	MinIO     MinIOConfig     `mapstructure:"minio"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Thumbnail ThumbnailConfig `mapstructure:"thumbnail"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
	// CORSOrigins 是逗号分隔的允许来源列表，"*" 表示允许所有来源。
	CORSOrigins string `mapstructure:"cors_origins"`
	// FileURLPrefix 是文件流接口的路径前缀，拼接文件 ID 即为文件引用地址。
	FileURLPrefix string `mapstructure:"file_url_prefix"`
	MaxUploadMB   int64  `mapstructure:"max_upload_mb"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	Driver string      `mapstructure:"driver"` // postgres 或 mysql
	DSN    string      `mapstructure:"dsn"`
	Redis  RedisConfig `mapstructure:"redis"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JWTConfig 存储 JWT 相关的配置。
type JWTConfig struct {
	Secret                  string `mapstructure:"secret"`
	AccessTokenExpireHours  int    `mapstructure:"access_token_expire_hours"`
	RefreshTokenExpireDays  int    `mapstructure:"refresh_token_expire_days"`
	AdminTokenExpireMinutes int    `mapstructure:"admin_token_expire_minutes"`
}

// AdminConfig 存储管理员登录凭证。
type AdminConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// StorageConfig 选择文件存储后端。
type StorageConfig struct {
	Backend string `mapstructure:"backend"` // drive 或 minio
}

// DriveConfig 存储 Google Drive OAuth 客户端及目标文件夹的配置。
type DriveConfig struct {
	ClientID          string `mapstructure:"client_id"`
	ClientSecret      string `mapstructure:"client_secret"`
	RedirectURI       string `mapstructure:"redirect_uri"`
	RefreshToken      string `mapstructure:"refresh_token"`
	FolderID          string `mapstructure:"folder_id"`
	ThumbnailFolderID string `mapstructure:"thumbnail_folder_id"`
}

// MinIOConfig 存储 MinIO 对象存储的配置。
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// KafkaConfig 存储 Kafka 相关的配置。
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

// ThumbnailConfig 存储视频缩略图生成相关的配置。
type ThumbnailConfig struct {
	PlaceholderURL         string `mapstructure:"placeholder_url"`
	PreviewSize            int    `mapstructure:"preview_size"`
	GenerateTimeoutSeconds int    `mapstructure:"generate_timeout_seconds"`
	TranscodeEnabled       bool   `mapstructure:"transcode_enabled"`
	FFmpegPath             string `mapstructure:"ffmpeg_path"`
}

// GenerateTimeout 返回单次缩略图生成的超时时间。
func (c ThumbnailConfig) GenerateTimeout() time.Duration {
	return time.Duration(c.GenerateTimeoutSeconds) * time.Second
}

// MaxUploadBytes 返回上传文件的最大字节数。
func (c ServerConfig) MaxUploadBytes() int64 {
	return c.MaxUploadMB * 1024 * 1024
}

// AllowedOrigins 将 CORSOrigins 拆分为来源列表。
func (c ServerConfig) AllowedOrigins() []string {
	if c.CORSOrigins == "" || c.CORSOrigins == "*" {
		return []string{"*"}
	}
	parts := strings.Split(c.CORSOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

// defaults 为每个配置项提供默认值，同时让 viper 知道所有键，从而使环境变量覆盖在 Unmarshal 时生效。
var defaults = map[string]interface{}{
	"server.port":                        "8080",
	"server.mode":                        "release",
	"server.cors_origins":                "*",
	"server.file_url_prefix":             "/api/file/",
	"server.max_upload_mb":               200,
	"database.driver":                    "postgres",
	"database.dsn":                       "",
	"database.redis.addr":                "localhost:6379",
	"database.redis.password":            "",
	"database.redis.db":                  0,
	"jwt.secret":                         "",
	"jwt.access_token_expire_hours":      24,
	"jwt.refresh_token_expire_days":      7,
	"jwt.admin_token_expire_minutes":     60,
	"admin.username":                     "",
	"admin.password":                     "",
	"log.level":                          "info",
	"log.format":                         "json",
	"log.output_path":                    "",
	"storage.backend":                    "drive",
	"drive.client_id":                    "",
	"drive.client_secret":                "",
	"drive.redirect_uri":                 "",
	"drive.refresh_token":                "",
	"drive.folder_id":                    "",
	"drive.thumbnail_folder_id":          "",
	"minio.endpoint":                     "localhost:9000",
	"minio.access_key_id":                "",
	"minio.secret_access_key":            "",
	"minio.use_ssl":                      false,
	"minio.bucket_name":                  "pog-gallery",
	"kafka.brokers":                      "localhost:9092",
	"kafka.topic":                        "video-thumbnails",
	"kafka.group_id":                     "pog-gallery-thumbnailer",
	"thumbnail.placeholder_url":          "/images/video-placeholder.png",
	"thumbnail.preview_size":             1280,
	"thumbnail.generate_timeout_seconds": 10,
	"thumbnail.transcode_enabled":        false,
	"thumbnail.ffmpeg_path":              "ffmpeg",
}

// Load 从指定路径读取 YAML 配置，并叠加 .env 与 POG_ 前缀的环境变量。
// 配置文件不存在时仅使用默认值和环境变量。
func Load(configPath string) (*Config, error) {
	// .env 是可选的，仅用于本地开发
	_ = godotenv.Load()

	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.SetEnvPrefix("POG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if _, err := os.Stat(configPath); err == nil {
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("读取配置文件失败: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 检查启动所必需的配置项。
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret 不能为空")
	}
	switch c.Storage.Backend {
	case "drive", "minio":
	default:
		return fmt.Errorf("不支持的存储后端: %q", c.Storage.Backend)
	}
	switch c.Database.Driver {
	case "postgres", "mysql":
	default:
		return fmt.Errorf("不支持的数据库驱动: %q", c.Database.Driver)
	}
	return nil
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
func Init(configPath string) {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	Conf = *cfg
}
