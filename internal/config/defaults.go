package config

const DefaultHomeDirName = ".comfygate"

const (
	DefaultComfyURL = "http://127.0.0.1:8188"

	DefaultText2ImageTemplate = "instantid_workflow"
	DefaultImg2VidTemplate    = "wan22_image2video"
)

// Topic prefix for per-job status events; the job id is appended.
const DefaultJobEventsTopic = "comfygate/jobs"

func applyDefaults(cfg *Config) {
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Environment == "" {
		cfg.Environment = "dev"
	}
	if cfg.ComfyURL == "" {
		cfg.ComfyURL = DefaultComfyURL
	}
	if cfg.Text2ImageTemplate == "" {
		cfg.Text2ImageTemplate = DefaultText2ImageTemplate
	}
	if cfg.Img2VidTemplate == "" {
		cfg.Img2VidTemplate = DefaultImg2VidTemplate
	}
	if cfg.Filesystem == "" {
		cfg.Filesystem = FilesystemLocal
	}
	if cfg.DB == nil {
		cfg.DB = &DBConfig{Driver: "sqlite", DSN: "file:./data/main.db"}
	}
}
