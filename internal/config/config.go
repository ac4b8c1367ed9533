package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	FilesystemLocal = "local"
	FilesystemS3    = "s3"
)

type Config struct {
	Port        int    `mapstructure:"port"`
	Host        string `mapstructure:"host"`
	Environment string `mapstructure:"environment"`
	PublicDir   string `mapstructure:"public_dir"`

	GatewayHome  string `mapstructure:"gateway_home"`
	WorkflowsDir string `mapstructure:"workflows_dir"`
	AssetsDir    string `mapstructure:"assets_dir"`

	// Base URL of the ComfyUI executor, e.g. http://127.0.0.1:8188
	ComfyURL string `mapstructure:"comfy_url"`

	Text2ImageTemplate string `mapstructure:"text2image_template"`
	Img2VidTemplate    string `mapstructure:"img2vid_template"`

	Filesystem string        `mapstructure:"filesystem_type"`
	DB         *DBConfig     `mapstructure:"db"`
	Pulsar     *PulsarConfig `mapstructure:"pulsar"`
	S3         *S3Config     `mapstructure:"s3"`
}

type DBConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type PulsarConfig struct {
	URL string `mapstructure:"url"`
}

type S3Config struct {
	Folder      string `mapstructure:"folder"`
	Region      string `mapstructure:"region_name"`
	Bucket      string `mapstructure:"bucket_name"`
	AccessKey   string `mapstructure:"access_key"`
	SecretKey   string `mapstructure:"secret_key"`
	EndpointUrl string `mapstructure:"endpoint_url"`
	VanityUrl   string `mapstructure:"vanity_url"`
}

// LoadEnvAndConfigFiles resolves the gateway home directory, loads the .env
// file if one exists, and points viper at config.yaml under the home dir.
func LoadEnvAndConfigFiles() error {
	home, err := getGatewayHome()
	if err != nil {
		return err
	}

	viper.Set("gateway_home", home)
	viper.SetDefault("workflows_dir", filepath.Join(home, "workflows"))
	viper.SetDefault("assets_dir", filepath.Join(home, "assets"))

	envFile := viper.GetString("env_file")
	if envFile == "" {
		envFile = filepath.Join(home, ".env")
	}
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("failed to load env file: %w", err)
		}
	}

	configFile := viper.GetString("config_file")
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
		viper.AddConfigPath(home)
	}

	return nil
}

// NewConfig reads the resolved viper state into a Config. The config file is
// optional; flag and env bindings alone are enough to run.
func NewConfig() (*Config, error) {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if _, statErr := os.Stat(viper.ConfigFileUsed()); statErr == nil || viper.ConfigFileUsed() == "" {
				if viper.ConfigFileUsed() != "" {
					return nil, fmt.Errorf("error reading config: %w", err)
				}
			}
		}
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	applyDefaults(cfg)
	return cfg, nil
}

// Returns the gateway home directory path, from the first of:
// 1. The `gateway_home` flag from viper.
// 2. The `COMFYGATE_HOME` environment variable.
// 3. The default home directory.
func getGatewayHome() (string, error) {
	home := viper.GetString("gateway_home")
	if home == "" {
		home = os.Getenv("COMFYGATE_HOME")
	}
	if home == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to resolve user home directory: %w", err)
		}
		home = filepath.Join(userHome, DefaultHomeDirName)
	}

	return home, nil
}
