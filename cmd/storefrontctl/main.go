// storefrontctl drives the storefront services from a terminal.
// Each command performs a single operation against the store, with visitor
// state (cart id, session token, language) kept in a local SQLite file so
// commands compose across invocations.
//
// Examples:
//
//	storefrontctl search tee
//	storefrontctl cart add gid://shopify/ProductVariant/1 --qty 2
//	storefrontctl login ada@example.com --password secret
//	open "$(storefrontctl cart checkout -q)"
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"storefront/internal/catalog"
	"storefront/internal/locale"
	"storefront/internal/shopify"
	"storefront/internal/storage"
	"storefront/internal/storefront"
	"storefront/internal/transport"
)

// Global flags (apply to all commands)
var (
	storeDomain string
	accessToken string
	apiVersion  string
	chromeTLS   bool
	statePath   string
	visitorID   string
	language    string
	timeout     time.Duration
	quiet       bool
	noColor     bool
	verbose     bool
	jsonOutput  bool
)

var rootCmd = &cobra.Command{
	Use:   "storefrontctl",
	Short: "Browse a Shopify store and manage a cart from the terminal",
	Long: `storefrontctl runs the storefront services in-process.

Store credentials come from flags or SHOPIFY_STORE_DOMAIN and
SHOPIFY_STOREFRONT_TOKEN. Visitor state lives in --state so that a cart or
sign-in carries over between commands.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			disableColors()
		}
	},
}

func init() {
	if os.Getenv("NO_COLOR") != "" {
		disableColors()
	}

	home, _ := os.UserHomeDir()
	defaultState := filepath.Join(home, ".storefront", "state.db")

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&storeDomain, "store", os.Getenv("SHOPIFY_STORE_DOMAIN"), "Store domain, e.g. demo.myshopify.com")
	pf.StringVar(&accessToken, "token", os.Getenv("SHOPIFY_STOREFRONT_TOKEN"), "Storefront API access token")
	pf.StringVar(&apiVersion, "api-version", shopify.DefaultAPIVersion, "Storefront API version")
	pf.BoolVar(&chromeTLS, "chrome-tls", false, "Present a Chrome TLS fingerprint")
	pf.StringVar(&statePath, "state", defaultState, "SQLite file holding visitor state")
	pf.StringVar(&visitorID, "visitor", "cli", "Visitor whose state to use")
	pf.StringVarP(&language, "locale", "l", "", "Language for this command (en, es, fr); persisted")
	pf.DurationVar(&timeout, "timeout", 30*time.Second, "Operation timeout")
	pf.BoolVarP(&quiet, "quiet", "q", false, "Quiet mode - only print the essential value")
	pf.BoolVar(&noColor, "no-color", false, "Disable colored output")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	pf.BoolVar(&jsonOutput, "json", false, "Print raw JSON results")

	rootCmd.AddCommand(productsCmd, searchCmd, productCmd, collectionsCmd, menuCmd)
	rootCmd.AddCommand(cartCmd)
	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, whoamiCmd, ordersCmd)
	rootCmd.AddCommand(localeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fatal("%s", userMessage(err))
	}
}

// env is an opened session plus the resources behind it.
type env struct {
	ctx     context.Context
	cancel  context.CancelFunc
	store   storage.Backend
	session *storefront.Session
}

func (e *env) Close() {
	e.cancel()
	e.store.Close()
}

// openSession builds the services and starts the visitor session.
func openSession(cmd *cobra.Command) (*env, error) {
	if storeDomain == "" || accessToken == "" {
		return nil, fmt.Errorf("--store and --token (or SHOPIFY_STORE_DOMAIN and SHOPIFY_STOREFRONT_TOKEN) are required")
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	client, err := shopify.NewClient(shopify.Config{
		StoreDomain: storeDomain,
		AccessToken: accessToken,
		APIVersion:  apiVersion,
		HTTPClient:  transport.NewHTTPClient(transport.Options{Timeout: timeout, ChromeTLS: chromeTLS}),
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}
	sf := shopify.NewStorefront(client)

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)

	if err := os.MkdirAll(filepath.Dir(statePath), 0o700); err != nil {
		cancel()
		return nil, fmt.Errorf("creating state directory: %w", err)
	}
	store, err := storage.Open(ctx, storage.Options{Backend: storage.BackendSQLite, SQLitePath: statePath})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("opening state: %w", err)
	}

	s := storefront.NewSession(visitorID, storefront.Deps{
		Storefront: sf,
		Catalog:    catalog.NewService(sf, catalog.Config{Logger: logger}),
		Store:      store,
		Logger:     logger,
	})

	e := &env{ctx: ctx, cancel: cancel, store: store, session: s}
	if err := s.Start(ctx, locale.Default); err != nil {
		e.Close()
		return nil, err
	}
	if language != "" {
		l, err := locale.Parse(language)
		if err != nil {
			e.Close()
			return nil, err
		}
		if err := s.SetLocale(ctx, l); err != nil {
			e.Close()
			return nil, err
		}
	}
	return e, nil
}
