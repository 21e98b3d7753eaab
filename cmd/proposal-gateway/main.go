// ABOUTME: Entry point for the proposal-gateway server and CLI
// ABOUTME: Dispatches serve, init, chat, token and the read-only inspection subcommands

package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/2389/proposal-gateway/internal/auth"
	"github.com/2389/proposal-gateway/internal/client"
	"github.com/2389/proposal-gateway/internal/config"
	"github.com/2389/proposal-gateway/internal/gateway"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
                                           _
 _ __  _ __ ___  _ __   ___  ___  __ _| |
| '_ \| '__/ _ \| '_ \ / _ \/ __|/ _' | |
| |_) | | | (_) | |_) | (_) \__ \ (_| | |
| .__/|_|  \___/| .__/ \___/|___/\__,_|_|
|_|             |_|            gateway
`

func usage() {
	fmt.Println("Usage: proposal-gateway <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve                  Start the gateway server")
	fmt.Println("  init                   Create a new config file interactively")
	fmt.Println("  chat [--out FILE]      Co-author a proposal from the terminal")
	fmt.Println("  token --name NAME      Mint an API token (requires auth.jwt_secret)")
	fmt.Println("  health                 Check gateway health")
	fmt.Println("  status                 Show model service status")
	fmt.Println("  history <session-id>   Print a session's turn history")
	fmt.Println("  watch <session-id>     Follow a session's turns as they happen")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	args := os.Args[2:]
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "chat":
		err = runChat(ctx, args)
	case "token":
		err = runToken(args)
	case "health":
		err = runHealth(ctx)
	case "status":
		err = runStatus(ctx)
	case "history":
		err = runHistory(ctx, args)
	case "watch":
		err = runWatch(ctx, args)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file, falling back to MODEL_ENDPOINT, COOKIE
// and PORT when none exists.
func loadConfig() (*config.Config, string, error) {
	configPath := config.Path()
	cfg, fromFile, err := config.LoadOrEnv(configPath)
	if err != nil {
		return nil, "", fmt.Errorf("loading config: %w", err)
	}
	if !fromFile {
		configPath = "(environment)"
	}
	return cfg, configPath, nil
}

func runServe(ctx context.Context) error {
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, configPath, err := loadConfig()
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Store:     %s", cfg.Database.Driver)
	if cfg.Database.Driver == config.DriverSQLite {
		gray.Printf(" (%s)", cfg.Database.Path)
	}
	fmt.Println()
	green.Print("    ▶ ")
	fmt.Print("Model:     ")
	if cfg.Model.Endpoint != "" {
		cyan.Println(cfg.Model.Endpoint)
	} else {
		yellow.Println("not configured")
	}
	if cfg.Auth.JWTSecret != "" {
		green.Print("    ▶ ")
		fmt.Println("Auth:      bearer token required")
	}
	fmt.Println()

	logger.Info("starting proposal-gateway",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"store", cfg.Database.Driver,
	)

	gw, err := gateway.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}

	return gw.Run(ctx)
}

// newAPIClient builds a client for the configured server. PROPOSAL_SERVER
// overrides the address.
func newAPIClient() (*client.Client, error) {
	server := os.Getenv("PROPOSAL_SERVER")
	if server == "" {
		cfg, _, err := loadConfig()
		if err != nil {
			return nil, err
		}
		server = clientAddr(cfg.Server.HTTPAddr)
	}
	return client.New(server, getToken()), nil
}

// clientAddr turns a listen address into one a client can dial.
func clientAddr(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return listen
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "localhost"
	}
	return net.JoinHostPort(host, port)
}

// tokenPath returns where `token` saves the minted token.
func tokenPath() string {
	return filepath.Join(filepath.Dir(config.Path()), "token")
}

// getToken returns the API token from PROPOSAL_TOKEN or the saved token file.
func getToken() string {
	if token := os.Getenv("PROPOSAL_TOKEN"); token != "" {
		return token
	}
	data, err := os.ReadFile(tokenPath())
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func runHealth(ctx context.Context) error {
	c, err := newAPIClient()
	if err != nil {
		return err
	}
	if err := c.Health(ctx); err != nil {
		return err
	}
	fmt.Println("healthy")
	return nil
}

func runStatus(ctx context.Context) error {
	c, err := newAPIClient()
	if err != nil {
		return err
	}
	st, err := c.Status(ctx)
	if err != nil {
		return err
	}

	if st.Configured {
		color.New(color.FgGreen).Print("● ")
	} else {
		color.New(color.FgYellow).Print("● ")
	}
	fmt.Println(st.Message)
	return nil
}

func runHistory(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: proposal-gateway history <session-id>")
	}

	c, err := newAPIClient()
	if err != nil {
		return err
	}
	turns, err := c.History(ctx, args[0])
	if err != nil {
		return err
	}

	if len(turns) == 0 {
		fmt.Println("No turns recorded for this session.")
		return nil
	}
	for _, t := range turns {
		printTurn(t)
	}
	return nil
}

func runWatch(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: proposal-gateway watch <session-id>")
	}

	c, err := newAPIClient()
	if err != nil {
		return err
	}

	color.New(color.FgHiBlack).Printf("Watching %s (Ctrl+C to stop)\n", args[0])
	return c.StreamTurns(ctx, args[0], func(t client.Turn) error {
		printTurn(t)
		return nil
	})
}

func printTurn(t client.Turn) {
	gray := color.New(color.FgHiBlack)
	gray.Printf("[%s] ", t.Timestamp.Local().Format("15:04:05"))
	if t.Role == "user" {
		color.New(color.FgCyan, color.Bold).Print("You: ")
	} else {
		color.New(color.FgGreen, color.Bold).Print("Assistant: ")
	}
	fmt.Println(t.Content)
}

// parseNameFlag accepts both "--name value" and "--name=value".
func parseNameFlag(args []string) (string, error) {
	var name string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--name" || arg == "-n":
			if i+1 >= len(args) {
				return "", fmt.Errorf("--name requires a value")
			}
			name = args[i+1]
			i++
		case strings.HasPrefix(arg, "--name="):
			name = strings.TrimPrefix(arg, "--name=")
		case strings.HasPrefix(arg, "-n="):
			name = strings.TrimPrefix(arg, "-n=")
		case strings.HasPrefix(arg, "-"):
			return "", fmt.Errorf("unknown flag: %s", arg)
		default:
			return "", fmt.Errorf("unexpected argument: %s", arg)
		}
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("--name flag is required")
	}
	if len(name) > 100 {
		return "", fmt.Errorf("display name exceeds maximum length of 100 characters")
	}
	return name, nil
}

// runToken mints a 30 day API token signed with auth.jwt_secret and saves it
// next to the config file for the CLI to pick up.
func runToken(args []string) error {
	name, err := parseNameFlag(args)
	if err != nil {
		return err
	}

	cfg, configPath, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("jwt_secret not configured in %s", configPath)
	}

	verifier, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	if err != nil {
		return fmt.Errorf("creating JWT verifier: %w", err)
	}

	tokenTTL := 30 * 24 * time.Hour
	expiresAt := time.Now().Add(tokenTTL).UTC()
	subject := uuid.New().String()

	token, err := verifier.Generate(subject, name, tokenTTL)
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}

	path := tokenPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(token), 0600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}

	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)

	green.Printf("  ✓ Saved token: %s\n", path)
	fmt.Println()
	cyan.Println("  API Token")
	cyan.Println("  ---------")
	fmt.Printf("  Subject:      %s\n", subject)
	fmt.Printf("  Display Name: %s\n", name)
	fmt.Printf("  Expires:      %s\n", expiresAt.Format("Jan 02, 2006"))
	fmt.Println()
	fmt.Println(token)
	return nil
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("proposal-gateway configuration setup")
	fmt.Println("====================================")
	fmt.Println()

	outputFile := prompt(reader, "Config file path", config.Path())

	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, "File exists. Overwrite?", "no")
		if !isYes(overwrite) {
			fmt.Println("Aborted.")
			return nil
		}
	}

	cfg := config.Default()

	fmt.Println("\n--- Server Configuration ---")
	cfg.Server.HTTPAddr = prompt(reader, "HTTP address", config.DefaultHTTPAddr)

	fmt.Println("\n--- Model Configuration ---")
	cfg.Model.Endpoint = prompt(reader, "Model endpoint URL (use ${MODEL_ENDPOINT} to read the env)", "${MODEL_ENDPOINT}")
	cfg.Model.Cookie = prompt(reader, "Session cookie", "${COOKIE}")
	cfg.Model.TimeoutRaw = prompt(reader, "Request timeout", config.DefaultModelTimeout)

	fmt.Println("\n--- Database Configuration ---")
	cfg.Database.Driver = prompt(reader, "Session store (memory/sqlite)", config.DriverMemory)
	if cfg.Database.Driver == config.DriverSQLite {
		cfg.Database.Path = prompt(reader, "SQLite database path", filepath.Join(getDataPath(), "sessions.db"))
	}

	fmt.Println("\n--- Auth Configuration ---")
	if isYes(prompt(reader, "Require API tokens?", "no")) {
		secretBytes := make([]byte, 32)
		if _, err := rand.Read(secretBytes); err != nil {
			return fmt.Errorf("generating JWT secret: %w", err)
		}
		cfg.Auth.JWTSecret = base64.StdEncoding.EncodeToString(secretBytes)
	}

	fmt.Println("\n--- Logging Configuration ---")
	cfg.Logging.Level = prompt(reader, "Log level (debug/info/warn/error)", "info")
	cfg.Logging.Format = prompt(reader, "Log format (text/json)", "text")

	if err := cfg.Write(outputFile); err != nil {
		return err
	}

	fmt.Printf("\nConfig written to %s\n", outputFile)
	fmt.Println("\nTo start the server:")
	fmt.Printf("  proposal-gateway serve\n")
	if cfg.Auth.JWTSecret != "" {
		fmt.Println("\nTo mint an API token:")
		fmt.Printf("  proposal-gateway token --name \"Your Name\"\n")
	}

	return nil
}

// getDataPath returns the proposal data directory.
// Priority: XDG_DATA_HOME/proposal > ~/.local/share/proposal
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data"
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(dataDir, "proposal")
}

func isYes(s string) bool {
	s = strings.ToLower(s)
	return s == "yes" || s == "y"
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
