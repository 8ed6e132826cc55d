package tenantstore

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/memoryd/internal/ledger"
	"github.com/fyrsmithlabs/memoryd/internal/logging"
)

// storeBytecode is the registry contract creation code submitted when
// a tenant store is deployed.
var storeBytecode = []byte{0x60, 0x80, 0x60, 0x40, 0x52}

// Deployment identifies a freshly deployed tenant store.
type Deployment struct {
	// Handle is the deployed store's address; it becomes the tenant
	// handle for all later operations.
	Handle string

	// Owner is the account that deployed the store.
	Owner string
}

// DeployNew deploys a new tenant store on the ledger and returns its
// handle and owner.
//
// The owner's balance is checked first. A zero balance in production
// fails with ErrDeployment; in development the account is auto-funded
// through the dev faucet when it is enabled.
func DeployNew(ctx context.Context, shared *ledger.SharedConfig, production bool, logger *logging.Logger) (*Deployment, error) {
	ctx, span := tracer.Start(ctx, "DeployNew")
	defer span.End()

	if logger == nil {
		logger = logging.NewNop()
	}

	owner := shared.Address()
	client := shared.Client()
	span.SetAttributes(attribute.String("owner", owner))

	balance, err := client.BalanceAt(ctx, owner)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: reading balance of %s: %v", ErrDeployment, owner, err)
	}

	if balance.Sign() == 0 {
		if production {
			span.SetStatus(codes.Error, "zero balance in production")
			return nil, fmt.Errorf("%w: account %s has zero balance; fund it before deploying", ErrDeployment, owner)
		}
		if !shared.DevFaucet() {
			return nil, fmt.Errorf("%w: account %s has zero balance and the dev faucet is disabled", ErrDeployment, owner)
		}

		logger.Info(ctx, "auto-funding zero-balance account", zap.String("owner", owner))
		if err := client.DevFund(ctx, owner); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("%w: %v", ErrDeployment, err)
		}
	}

	receipt, err := client.Deploy(ctx, owner, storeBytecode)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	logger.Info(ctx, "tenant store deployed",
		zap.String("handle", receipt.ContractAddress),
		zap.String("owner", owner),
		zap.String("tx", receipt.TransactionHash))

	span.SetAttributes(attribute.String("tenant.handle", receipt.ContractAddress))
	return &Deployment{
		Handle: receipt.ContractAddress,
		Owner:  owner,
	}, nil
}
