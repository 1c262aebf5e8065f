package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shelfd/shelf/internal/server"
)

const banner = `
 ___ _  _ ___ _    ___
/ __| || | __| |  | __|
\__ \ __ | _|| |__| _|
|___/_||_|___|____|_|
`

// Default credentials seeded on an empty database so the admin console is
// reachable on first run. Replace them immediately in any real deployment.
const (
	bootstrapEmail    = "admin@example.com"
	bootstrapPassword = "admin123"
)

func newServeCmd() *cobra.Command {
	var (
		port    int
		host    string
		baseURL string
		noUI    bool
		dev     bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Shelf catalog server",
		Long:  "Start the HTTP server that exposes the storefront, the admin console, and the catalog REST API.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(host, port, baseURL, noUI, dev)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Public base URL for image links (default: http://<host>:<port>)")
	cmd.Flags().BoolVar(&noUI, "no-ui", false, "Disable the storefront and admin console")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (verbose logging)")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))
	viper.BindPFlag("server.base_url", cmd.Flags().Lookup("base-url"))

	return cmd
}

func runServe(host string, port int, baseURL string, noUI, dev bool) error {
	fmt.Print(banner)
	fmt.Println()

	if dev {
		viper.Set("logging.level", "debug")
	}
	logger := newLogger()

	st, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	logger.Info("store opened", "driver", st.Driver())

	uploads, err := openUploads()
	if err != nil {
		st.Close()
		return fmt.Errorf("open upload store: %w", err)
	}
	logger.Info("upload store opened", "dir", uploads.Dir())

	authSvc := newAuthService(st, logger)

	// First run: seed a default admin so the console is usable immediately.
	hasAdmin, err := st.HasAnyAdmin(context.Background())
	if err != nil {
		logger.Warn("failed to check for admin", "error", err)
	}
	if !hasAdmin {
		if _, err := authSvc.Register(context.Background(), bootstrapEmail, bootstrapPassword, "Administrator"); err != nil {
			logger.Warn("failed to seed default admin", "error", err)
		} else {
			logger.Warn("seeded default admin account, change its password",
				"email", bootstrapEmail)
		}
	}

	if baseURL == "" {
		baseURL = viper.GetString("server.base_url")
	}
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://%s:%d", host, port)
	}

	corsOrigins := viper.GetStringSlice("server.cors_origins")
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	srvCfg := server.Config{
		Host:            host,
		Port:            port,
		BaseURL:         baseURL,
		ShutdownTimeout: 30 * time.Second,
		CORSOrigins:     corsOrigins,
		EnableUI:        !noUI,
		LoginRatePerMin: 30,
	}

	srv := server.New(srvCfg, st, authSvc, uploads, logger)

	fmt.Printf("→ Listening on http://%s:%d\n", host, port)
	if !noUI {
		fmt.Printf("→ Storefront: http://%s:%d/\n", host, port)
		fmt.Printf("→ Admin UI:   http://%s:%d/admin\n", host, port)
	}
	fmt.Printf("→ OpenAPI:    http://%s:%d/openapi.json\n", host, port)
	fmt.Printf("→ Health:     http://%s:%d/healthz\n", host, port)
	fmt.Println()

	return srv.ListenAndServe()
}
