// Package cli implements the docrag command line interface.
//
// Commands call the driving ports held in package-level variables. The
// binary installs a Bootstrap that builds them from the global flags
// before the first command runs; tests assign them directly.
package cli

import (
	"context"
	"os"
	"os/user"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docrag/internal/core/ports/driving"
	"github.com/custodia-labs/docrag/internal/logger"
)

// EnvUser overrides the operating-system user as the default owner.
const EnvUser = "DOCRAG_USER"

const shutdownTimeout = 30 * time.Second

// annotationNoServices marks commands that run without a Bootstrap.
const annotationNoServices = "docrag/no-services"

var version = "dev"

// Global flags.
var (
	verbose     bool
	ownerFlag   string
	dataDirFlag string
)

// Driving ports used by the commands.
var (
	ingestionService driving.IngestionService
	documentService  driving.DocumentService
	searchService    driving.SearchService
	settingsService  driving.SettingsService
)

// Services holds the driving ports the commands call.
type Services struct {
	Ingestion driving.IngestionService
	Document  driving.DocumentService
	Search    driving.SearchService
	Settings  driving.SettingsService
}

// Options carries global flag values to a Bootstrap.
type Options struct {
	// DataDir overrides the configured storage directory when non-empty.
	DataDir string
}

// Bootstrap builds the services for one invocation. The returned function
// releases them once the command has finished.
type Bootstrap func(ctx context.Context, opts Options) (*Services, func(context.Context) error, error)

var (
	bootstrap     Bootstrap
	closeServices func(context.Context) error
)

var rootCmd = &cobra.Command{
	Use:   "docrag",
	Short: "Document retrieval for RAG applications",
	Long: `docrag turns uploaded documents into embedded chunks and retrieves
the passages most similar to a query.

Upload files with 'docrag ingest', query them with 'docrag search', and
expose the same search to AI assistants with 'docrag mcp serve'.`,
	SilenceUsage:      true,
	PersistentPreRunE: persistentPreRun,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&ownerFlag, "user", "u", "",
		"owner id for uploads and searches (default $"+EnvUser+" or the OS user)")
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "directory for the database and uploaded files")
}

// SetVersion sets the version reported by 'docrag version'.
func SetVersion(v string) {
	version = v
}

// SetBootstrap installs the function that wires services on first use.
func SetBootstrap(fn Bootstrap) {
	bootstrap = fn
}

// SetServices installs ready-made services, bypassing any Bootstrap.
func SetServices(s *Services) {
	ingestionService = s.Ingestion
	documentService = s.Document
	searchService = s.Search
	settingsService = s.Settings
}

// Execute runs the root command and releases services afterwards.
func Execute(ctx context.Context) error {
	// cmd.Print* falls back to stderr unless an output is set.
	rootCmd.SetOut(os.Stdout)
	err := rootCmd.ExecuteContext(ctx)

	if closeServices != nil {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if cerr := closeServices(shutdownCtx); cerr != nil {
			logger.Warn("shutdown: %v", cerr)
		}
		closeServices = nil
	}
	return err
}

func persistentPreRun(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if bootstrap == nil || settingsService != nil || cmd.Annotations[annotationNoServices] != "" {
		return nil
	}
	services, closer, err := bootstrap(cmd.Context(), Options{DataDir: dataDirFlag})
	if err != nil {
		return err
	}
	SetServices(services)
	closeServices = closer
	return nil
}

// currentOwner resolves the acting owner: --user, then $DOCRAG_USER,
// then the OS account name.
func currentOwner() string {
	if ownerFlag != "" {
		return ownerFlag
	}
	if env := os.Getenv(EnvUser); env != "" {
		return env
	}
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "default"
}
