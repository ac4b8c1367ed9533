package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/comfygate/comfy-gateway/internal/app"
	"github.com/comfygate/comfy-gateway/internal/config"
	"github.com/comfygate/comfy-gateway/internal/server"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var Cmd = &cobra.Command{
	Use:   "run",
	Short: "Start the comfy gateway",
	RunE:  runApp,
}

func init() {
	flags := Cmd.Flags()

	flags.Int("port", 8080, "Port to run the server on")
	flags.String("host", "localhost", "Host to run the server on")
	flags.String("environment", "dev", "Environment configuration")
	flags.String("comfy-url", config.DefaultComfyURL, "Base URL of the ComfyUI executor")
	flags.String("workflows-dir", "", "Directory containing workflow template files")
	flags.String("filesystem-type", "local", "Filesystem type: 'local' or 's3'")
	flags.String("public-dir", "", "Path where static files should be served from")

	flags.String("db-driver", "sqlite", "Database driver: 'sqlite' or 'pg'")
	flags.String("db-dsn", "file:./data/main.db", "Database DSN (Connection URL or Path)")
	flags.String("pulsar-url", "", "URL of the pulsar broker. Example: pulsar+ssl://my-cluster.streamnative.cloud:6651")

	flags.String("s3-access-key", "", "S3 access key")
	flags.String("s3-secret-key", "", "S3 secret key")
	flags.String("s3-region-name", "", "S3 region name")
	flags.String("s3-bucket-name", "", "S3 bucket name")
	flags.String("s3-folder", "", "S3 folder")
	flags.String("s3-endpoint-url", "", "S3 endpoint URL")
	flags.String("s3-vanity-url", "", "Public URL for S3 files")

	viper.BindPFlags(flags)
	bindEnvs()
}

func bindEnvs() {
	// Core settings, e.g. COMFYGATE_PORT
	viper.BindEnv("port")
	viper.BindEnv("host")
	viper.BindEnv("environment")
	viper.BindEnv("comfy_url")
	viper.BindEnv("workflows_dir")
	viper.BindEnv("filesystem_type")
	viper.BindEnv("public_dir")

	viper.BindEnv("db.driver")
	viper.BindEnv("db.dsn")
	viper.BindEnv("pulsar.url")

	// e.g. COMFYGATE_S3_ACCESS_KEY
	viper.BindEnv("s3.access_key")
	viper.BindEnv("s3.secret_key")
	viper.BindEnv("s3.region_name")
	viper.BindEnv("s3.bucket_name")
	viper.BindEnv("s3.folder")
	viper.BindEnv("s3.endpoint_url")
	viper.BindEnv("s3.vanity_url")
}

func runApp(_ *cobra.Command, _ []string) error {
	cfg, err := config.NewConfig()
	if err != nil {
		return err
	}

	app, err := app.NewApp(
		cfg,
		app.WithMQ(),
		app.WithDBInitialization(),
		app.WithFileUploader(),
	)
	if err != nil {
		return err
	}
	defer app.Close()

	srv, err := runServer(app)
	if err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			fmt.Println("Server stopped successfully")
			return nil
		}
		return err
	}

	signalc := make(chan os.Signal, 1)
	signal.Notify(signalc, os.Interrupt, syscall.SIGTERM)
	<-signalc

	return srv.Stop(app.Context())
}

func runServer(app *app.App) (*server.Server, error) {
	srv, err := server.NewServer(app.Config())
	if err != nil {
		return nil, err
	}

	srv.SetupRoutes(app)

	errc := make(chan error, 1)
	go func() {
		fmt.Printf("Gateway started on port %v\n", app.Config().Port)
		errc <- srv.Start()
	}()

	select {
	case err := <-errc:
		return nil, err
	default:
		return srv, nil
	}
}
