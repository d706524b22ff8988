package main

import (
	"context"
	"fmt"
	"html/template"
	"log"
	"time"

	"banklink/internal/domain/bank"
	"banklink/internal/domain/linking"
	"banklink/internal/domain/user"
	"banklink/internal/infrastructure/cache"
	"banklink/internal/infrastructure/crypto"
	"banklink/internal/infrastructure/dwolla"
	"banklink/internal/infrastructure/firebase"
	"banklink/internal/infrastructure/plaid"
	"banklink/internal/infrastructure/postgres"
	"banklink/internal/infrastructure/postgres/listener"
	"banklink/internal/shared/auth"
	"banklink/internal/shared/config"
	"banklink/internal/shared/telemetry"
	"banklink/internal/web"
)

const identityToolkitTimeout = 10 * time.Second

// Dependencies holds all initialized application dependencies.
type Dependencies struct {
	// Services
	UserService    *user.Service
	BankService    *bank.Service
	LinkingService *linking.Service

	// Rendering
	Pages map[string]*template.Template

	// Lifecycle
	BankListener *listener.BankListener
	closers      []func() error
}

// storage is the backend-specific half of the wiring.
type storage struct {
	users       user.Repository
	banks       bank.Repository
	credentials user.CredentialStore
	notifier    linking.Notifier
}

// InitDependencies initializes all application dependencies.
func InitDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	deps := &Dependencies{}

	encryptor, err := crypto.NewEncryptor(cfg.Encryption.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to create encryptor: %w", err)
	}

	plaidClient, err := plaid.NewClient(cfg.Plaid.ClientID, cfg.Plaid.Secret, cfg.Plaid.Environment)
	if err != nil {
		return nil, fmt.Errorf("failed to create plaid client: %w", err)
	}

	dwollaClient, err := dwolla.NewClient(ctx, cfg.Dwolla.Key, cfg.Dwolla.Secret, cfg.Dwolla.Environment)
	if err != nil {
		return nil, fmt.Errorf("failed to create dwolla client: %w", err)
	}

	bankLists := cache.NewBankList(cfg.Cache.BankListTTL)

	var store *storage
	switch cfg.Storage.Backend {
	case config.StoragePostgres:
		store, err = deps.initPostgres(ctx, cfg, encryptor, bankLists)
	default:
		store, err = deps.initFirestore(ctx, cfg, encryptor)
	}
	if err != nil {
		deps.Close()
		return nil, err
	}

	deps.UserService = user.NewService(store.users, store.credentials, dwollaClient)
	deps.BankService = bank.NewService(store.banks, bankLists)

	revalidator := linking.NewBankListRevalidator(bankLists, deps.UserService, store.notifier)
	deps.LinkingService = linking.NewService(plaidClient, dwollaClient, deps.BankService, revalidator, linking.Config{
		Products:       cfg.Plaid.Products,
		CountryCodes:   cfg.Plaid.CountryCodes,
		Language:       cfg.Plaid.Language,
		RedirectURI:    cfg.Plaid.RedirectURI,
		Processor:      cfg.Plaid.ProcessorName,
		AllowAnonymous: cfg.Plaid.AllowAnonymousLink,
	})

	deps.Pages, err = web.ParsePages()
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to parse page templates: %w", err)
	}

	return deps, nil
}

func (d *Dependencies) initFirestore(ctx context.Context, cfg *config.Config, encryptor *crypto.Encryptor) (*storage, error) {
	app, err := firebase.NewApp(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		return nil, err
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase auth: %w", err)
	}

	fs, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firestore: %w", err)
	}
	d.closers = append(d.closers, fs.Close)

	users := firebase.NewUserRepository(fs, cfg.Storage.UserCollection, encryptor)
	store := &storage{
		users:       users,
		banks:       firebase.NewBankRepository(fs, cfg.Storage.BankCollection, encryptor),
		credentials: firebase.NewCredentialStore(authClient, cfg.Firebase.WebAPIKey, cfg.Session.TTL, telemetry.HTTPClient(identityToolkitTimeout)),
	}

	if cfg.Firebase.MessagingEnabled {
		messagingClient, err := app.Messaging(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize firebase messaging: %w", err)
		}
		store.notifier = firebase.NewMessenger(messagingClient, users.RemoveDeviceToken)
		log.Println("Firebase Cloud Messaging enabled")
	}

	log.Printf("Storage: firestore (project=%s)", cfg.Firebase.ProjectID)
	return store, nil
}

func (d *Dependencies) initPostgres(ctx context.Context, cfg *config.Config, encryptor *crypto.Encryptor, bankLists *cache.BankList) (*storage, error) {
	db, err := postgres.New(ctx, cfg.Database.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	d.closers = append(d.closers, db.Close)

	if err := db.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	d.BankListener = listener.NewBankListener(cfg.Database.ConnectionString(), bankLists)

	log.Printf("Storage: postgres (host=%s db=%s)", cfg.Database.Host, cfg.Database.DBName)
	return &storage{
		users:       postgres.NewUserRepository(db, encryptor),
		banks:       postgres.NewBankRepository(db, encryptor),
		credentials: postgres.NewCredentialStore(db, auth.NewJWT(cfg.Session.JWTSecret, cfg.Session.TTL)),
	}, nil
}

// Close releases storage clients in reverse order of creation.
func (d *Dependencies) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			log.Printf("Error closing dependency: %v", err)
		}
	}
	d.closers = nil
}
