package linking

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"banklink/internal/domain/bank"
	"banklink/internal/domain/user"
	"banklink/internal/infrastructure/crypto"
	"banklink/internal/shared/logger"
)

const defaultClientName = "User"

var (
	linkingTracer    = otel.Tracer("banklink/linking")
	linkingMeter     = otel.Meter("banklink/linking")
	exchangeTotal, _ = linkingMeter.Int64Counter("linking.exchange.total",
		metric.WithDescription("Public token exchanges by outcome"),
	)
)

type Config struct {
	Products       []string
	CountryCodes   []string
	Language       string
	RedirectURI    string
	Processor      string
	AllowAnonymous bool
}

type Service struct {
	aggregator  Aggregator
	funding     FundingProvisioner
	banks       BankStore
	revalidator Revalidator
	cfg         Config
	newID       func() string
}

// NewService wires the linking flow. revalidator may be nil.
func NewService(aggregator Aggregator, funding FundingProvisioner, banks BankStore, revalidator Revalidator, cfg Config) *Service {
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.Processor == "" {
		cfg.Processor = "dwolla"
	}
	return &Service{
		aggregator:  aggregator,
		funding:     funding,
		banks:       banks,
		revalidator: revalidator,
		cfg:         cfg,
		newID:       uuid.NewString,
	}
}

// CreateLinkToken opens an aggregator Link session for u. A user without
// an id is rejected unless anonymous linking is enabled, in which case
// each call gets a fresh anon_ id.
func (s *Service) CreateLinkToken(ctx context.Context, u *user.User) (string, error) {
	ctx, span := linkingTracer.Start(ctx, "linking.CreateLinkToken")
	defer span.End()

	req := LinkTokenRequest{
		ClientName:   defaultClientName,
		Products:     s.cfg.Products,
		Language:     s.cfg.Language,
		CountryCodes: s.cfg.CountryCodes,
		RedirectURI:  s.cfg.RedirectURI,
	}
	if u != nil {
		req.ClientUserID = u.ID
		if name := u.FullName(); name != "" {
			req.ClientName = name
		}
	}

	if req.ClientUserID == "" {
		if !s.cfg.AllowAnonymous {
			return "", &StepError{Step: StepLinkToken, Message: ErrMissingIdentity.Error(), Err: ErrMissingIdentity}
		}
		req.ClientUserID = "anon_" + s.newID()
		logger.Warn("creating link token for anonymous user", logger.Fields{"client_user_id": req.ClientUserID})
	}

	logger.Info("creating link token", logger.Fields{
		"client_user_id": req.ClientUserID,
		"products":       req.Products,
		"country_codes":  req.CountryCodes,
	})

	token, err := s.aggregator.CreateLinkToken(ctx, req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		logger.Error("link token creation failed", err, logger.Fields{"client_user_id": req.ClientUserID})
		return "", &StepError{Step: StepLinkToken, Message: MsgLinkTokenFailed, Err: err}
	}
	if token == "" {
		span.SetStatus(codes.Error, "empty link token")
		return "", &StepError{Step: StepLinkToken, Message: MsgLinkTokenFailed}
	}

	return token, nil
}

// ExchangePublicToken runs the linking chain in order: exchange, accounts,
// processor token, funding source, save, revalidate. The first failing
// step ends the chain; nothing after it runs and nothing before it is
// undone. Revalidation failures are logged only.
func (s *Service) ExchangePublicToken(ctx context.Context, req ExchangeRequest) (*LinkResult, error) {
	ctx, span := linkingTracer.Start(ctx, "linking.ExchangePublicToken")
	defer span.End()

	result, err := s.exchange(ctx, req)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		var stepErr *StepError
		if errors.As(err, &stepErr) {
			outcome = string(stepErr.Step)
		}
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(attribute.String("linking.outcome", outcome))
	exchangeTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))

	return result, err
}

func (s *Service) exchange(ctx context.Context, req ExchangeRequest) (*LinkResult, error) {
	if req.User == nil || req.User.ID == "" {
		return nil, &StepError{Step: StepExchange, Message: MsgExchangeFailed, Err: ErrMissingIdentity}
	}
	if req.PublicToken == "" {
		return nil, &StepError{Step: StepExchange, Message: MsgExchangeFailed, Err: errors.New("public token is required")}
	}
	fields := logger.Fields{"user_id": req.User.ID}

	logger.Info("exchanging public token", fields)
	exchanged, err := s.aggregator.ExchangePublicToken(ctx, req.PublicToken)
	if err != nil {
		logger.Error("public token exchange failed", err, fields)
		return nil, &StepError{Step: StepExchange, Message: MsgExchangeFailed, Err: err}
	}
	if exchanged == nil || exchanged.AccessToken == "" || exchanged.ItemID == "" {
		logger.Error("exchange returned no access token or item id", nil, fields)
		return nil, &StepError{Step: StepExchange, Message: MsgNoAccessToken}
	}
	fields["item_id"] = exchanged.ItemID

	accounts, err := s.aggregator.GetAccounts(ctx, exchanged.AccessToken)
	if err != nil {
		logger.Error("fetching accounts failed", err, fields)
		return nil, &StepError{Step: StepAccounts, Message: MsgAccountsFailed, Err: err}
	}
	logger.Info("accounts fetched", logger.Fields{"item_id": exchanged.ItemID, "count": len(accounts)})
	if len(accounts) == 0 || accounts[0].AccountID == "" {
		logger.Warn("no account data returned for item", fields)
		return nil, &StepError{Step: StepAccounts, Message: MsgNoAccounts}
	}
	first := accounts[0]
	fields["account_id"] = first.AccountID

	processorToken, err := s.aggregator.CreateProcessorToken(ctx, exchanged.AccessToken, first.AccountID, s.cfg.Processor)
	if err != nil {
		logger.Error("processor token creation failed", err, fields)
		return nil, &StepError{Step: StepProcessorToken, Message: MsgProcessorTokenFailed, Err: err}
	}
	if processorToken == "" {
		logger.Error("processor token missing from response", nil, fields)
		return nil, &StepError{Step: StepProcessorToken, Message: MsgProcessorTokenFailed}
	}
	logger.Info("processor token created", fields)

	if req.User.DwollaCustomerID == "" {
		logger.Error("user has no payments customer; processor token left unused", nil, fields)
		return nil, &StepError{Step: StepFundingSource, Message: MsgFundingSourceFailed, Err: errors.New("user has no payments customer id")}
	}
	fundingSourceURL, err := s.funding.AddFundingSource(ctx, FundingSourceParams{
		CustomerID:     req.User.DwollaCustomerID,
		ProcessorToken: processorToken,
		BankName:       first.Name,
	})
	if err != nil {
		logger.Error("funding source creation failed; processor token left unused", err, fields)
		return nil, &StepError{Step: StepFundingSource, Message: MsgFundingSourceFailed, Err: err}
	}
	if fundingSourceURL == "" {
		logger.Error("funding source url missing from response", nil, fields)
		return nil, &StepError{Step: StepFundingSource, Message: MsgFundingSourceFailed}
	}
	fields["funding_source_url"] = fundingSourceURL
	logger.Info("funding source created", fields)

	saved, err := s.banks.CreateBankAccount(ctx, bank.CreateParams{
		UserID:           req.User.ID,
		BankID:           exchanged.ItemID,
		AccountID:        first.AccountID,
		AccessToken:      exchanged.AccessToken,
		FundingSourceURL: fundingSourceURL,
		ShareableID:      crypto.EncodeShareableID(first.AccountID),
	})
	if err != nil {
		logger.Error("saving bank account failed; funding source is orphaned", err, fields)
		return nil, &StepError{Step: StepSave, Message: MsgSaveFailed, Err: err}
	}
	if saved == nil || saved.ID == "" {
		logger.Error("store returned no bank account id", nil, fields)
		return nil, &StepError{Step: StepSave, Message: MsgSaveFailed}
	}
	fields["saved_bank_id"] = saved.ID
	logger.Info("bank account linked", fields)

	if s.revalidator != nil {
		if err := s.revalidator.Revalidate(ctx, req.User.ID); err != nil {
			logger.Warn("revalidation failed", logger.Fields{"user_id": req.User.ID, "error": err.Error()})
		}
	}

	return &LinkResult{
		OK:               true,
		ItemID:           exchanged.ItemID,
		Accounts:         accounts,
		FundingSourceURL: fundingSourceURL,
		SavedBankID:      saved.ID,
	}, nil
}
