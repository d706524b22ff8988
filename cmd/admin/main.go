package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"banklink/internal/domain/bank"
	"banklink/internal/infrastructure/crypto"
	"banklink/internal/infrastructure/firebase"
	"banklink/internal/infrastructure/postgres"
	"banklink/internal/shared/auth"
	"banklink/internal/shared/config"
)

const defaultWorkers = 4

const usage = `Banklink Admin CLI - Support commands for linked bank accounts

Usage:
  admin <command> [options]

Commands:
  list-banks         List the linked bank accounts of one or more users
  find-account       Look up the linked bank account for a provider account id
  decode-shareable   Decode a shareable id back to its provider account id
  purge-sessions     Delete expired session revocations (postgres backend)

Examples:
  # List banks for a user
  admin list-banks --user-id=uid-1

  # List banks for several users concurrently
  admin list-banks --user-id=uid-1,uid-2,uid-3 --workers=8

  # Find the record behind a provider account id
  admin find-account --account-id=vzeNDwK7KQIm4yEog683uElbp9GRLEFXGK98D

  # Decode a shareable id without touching storage
  admin decode-shareable --id=<shareable id>

  # Purge revocations whose sessions have expired
  admin purge-sessions
`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "list-banks":
		runListBanks(os.Args[2:])
	case "find-account":
		runFindAccount(os.Args[2:])
	case "decode-shareable":
		runDecodeShareable(os.Args[2:])
	case "purge-sessions":
		runPurgeSessions(os.Args[2:])
	case "help", "-h", "--help":
		fmt.Println(usage)
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		fmt.Println(usage)
		os.Exit(1)
	}
}

type listBanksOptions struct {
	userIDs []string
	workers int
	timeout string
}

func parseListBanksArgs(args []string) (listBanksOptions, *flag.FlagSet, error) {
	fs := flag.NewFlagSet("list-banks", flag.ContinueOnError)

	userIDStr := fs.String("user-id", "", "User ID(s) to list (comma-separated for multiple)")
	workers := fs.Int("workers", defaultWorkers, "Number of concurrent lookups (at least 1)")
	timeoutStr := fs.String("timeout", "1m", "Timeout for the operation (e.g., 30s, 5m)")

	fs.Usage = func() {
		fmt.Println("Usage: admin list-banks [options]")
		fmt.Println("\nOptions:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return listBanksOptions{}, fs, err
	}

	opts := listBanksOptions{
		userIDs: splitIDs(*userIDStr),
		workers: *workers,
		timeout: *timeoutStr,
	}
	if len(opts.userIDs) == 0 {
		return opts, fs, errors.New("must specify --user-id")
	}
	// errgroup treats a negative limit as unbounded and zero as a deadlock.
	if opts.workers < 1 {
		return opts, fs, fmt.Errorf("--workers must be at least 1, got %d", opts.workers)
	}
	return opts, fs, nil
}

func runListBanks(args []string) {
	opts, fs, err := parseListBanksArgs(args)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		fs.Usage()
		os.Exit(1)
	}
	userIDs := opts.userIDs

	ctx, cancel := timeoutContext(opts.timeout)
	defer cancel()

	repo, closeRepo := openBankRepository(ctx)
	defer closeRepo()
	svc := bank.NewService(repo, nil)

	results := make([][]*bank.LinkedBankAccount, len(userIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers)
	for i, userID := range userIDs {
		g.Go(func() error {
			banks, err := svc.GetBanks(gctx, userID)
			if err != nil {
				return fmt.Errorf("user %s: %w", userID, err)
			}
			results[i] = banks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatalf("Failed to list banks: %v", err)
	}

	for i, userID := range userIDs {
		fmt.Printf("\n=== User %s (%d banks) ===\n", userID, len(results[i]))
		for _, b := range results[i] {
			printBank(b)
		}
	}
}

func runFindAccount(args []string) {
	fs := flag.NewFlagSet("find-account", flag.ExitOnError)

	accountID := fs.String("account-id", "", "Provider account id")
	timeoutStr := fs.String("timeout", "30s", "Timeout for the operation")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *accountID == "" {
		fmt.Println("Error: must specify --account-id")
		fs.Usage()
		os.Exit(1)
	}

	ctx, cancel := timeoutContext(*timeoutStr)
	defer cancel()

	repo, closeRepo := openBankRepository(ctx)
	defer closeRepo()

	b, err := bank.NewService(repo, nil).GetBankByAccountID(ctx, *accountID)
	switch {
	case errors.Is(err, bank.ErrNotFound):
		fmt.Println("No linked bank account for that account id")
		return
	case errors.Is(err, bank.ErrNotUnique):
		log.Fatalf("Account id %s is linked more than once", *accountID)
	case err != nil:
		log.Fatalf("Lookup failed: %v", err)
	}

	printBank(b)
}

func runDecodeShareable(args []string) {
	fs := flag.NewFlagSet("decode-shareable", flag.ExitOnError)

	shareableID := fs.String("id", "", "Shareable id to decode")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *shareableID == "" {
		fmt.Println("Error: must specify --id")
		fs.Usage()
		os.Exit(1)
	}

	accountID, err := crypto.DecodeShareableID(*shareableID)
	if err != nil {
		log.Fatalf("Invalid shareable id: %v", err)
	}
	fmt.Println(accountID)
}

func runPurgeSessions(args []string) {
	fs := flag.NewFlagSet("purge-sessions", flag.ExitOnError)

	timeoutStr := fs.String("timeout", "1m", "Timeout for the operation")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg := loadConfig()
	if cfg.Storage.Backend != config.StoragePostgres {
		log.Fatalf("purge-sessions requires STORAGE_BACKEND=%s", config.StoragePostgres)
	}

	ctx, cancel := timeoutContext(*timeoutStr)
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	store := postgres.NewCredentialStore(db, auth.NewJWT(cfg.Session.JWTSecret, cfg.Session.TTL))
	purged, err := store.PurgeExpiredRevocations(ctx)
	if err != nil {
		log.Fatalf("Purge failed: %v", err)
	}
	log.Printf("Purged %d expired session revocation(s)", purged)
}

// openBankRepository connects to whichever backend the environment selects.
// The returned func releases the connection.
func openBankRepository(ctx context.Context) (bank.Repository, func()) {
	cfg := loadConfig()

	encryptor, err := crypto.NewEncryptor(cfg.Encryption.Key)
	if err != nil {
		log.Fatalf("Failed to create encryptor: %v", err)
	}

	if cfg.Storage.Backend == config.StoragePostgres {
		db, err := postgres.New(ctx, cfg.Database.ConnectionString())
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		log.Println("Connected to database")
		return postgres.NewBankRepository(db, encryptor), func() { db.Close() }
	}

	app, err := firebase.NewApp(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		log.Fatalf("Failed to initialize firebase: %v", err)
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize firestore: %v", err)
	}
	log.Printf("Connected to firestore (project=%s)", cfg.Firebase.ProjectID)
	return firebase.NewBankRepository(client, cfg.Storage.BankCollection, encryptor), func() { client.Close() }
}

func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func timeoutContext(raw string) (context.Context, context.CancelFunc) {
	timeout, err := time.ParseDuration(raw)
	if err != nil {
		log.Fatalf("Invalid timeout format: %v", err)
	}
	return context.WithTimeout(context.Background(), timeout)
}

func splitIDs(raw string) []string {
	var ids []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}

// printBank never prints the access token.
func printBank(b *bank.LinkedBankAccount) {
	fmt.Printf("  %s\n", b.ID)
	fmt.Printf("    Bank:           %s\n", b.BankID)
	fmt.Printf("    Account:        %s\n", b.AccountID)
	fmt.Printf("    Shareable ID:   %s\n", b.ShareableID)
	fmt.Printf("    Funding source: %s\n", b.FundingSourceURL)
	fmt.Printf("    Linked at:      %s\n", b.CreatedAt.Format(time.RFC3339))
}
