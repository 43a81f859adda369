package reviews

import (
	"context"
	"errors"
	"fmt"

	"github.com/pario-ai/reviewd/pkg/models"
	"github.com/pario-ai/reviewd/pkg/upstream"
)

// Target is the account/location pair whose reviews are served.
type Target struct {
	Account  string
	Location string
}

// Resolver decides which location to list reviews for.
type Resolver interface {
	Resolve(ctx context.Context, ts models.TokenSet) (Target, error)
}

// StaticResolver always returns the configured pair.
type StaticResolver struct {
	Target Target
}

func (r StaticResolver) Resolve(context.Context, models.TokenSet) (Target, error) {
	return r.Target, nil
}

// DynamicResolver picks the first account and its first location.
type DynamicResolver struct {
	Source upstream.Source
}

var (
	errNoAccounts  = errors.New("no accounts visible to token")
	errNoLocations = errors.New("no locations in account")
)

func (r DynamicResolver) Resolve(ctx context.Context, ts models.TokenSet) (Target, error) {
	accounts, err := r.Source.ListAccounts(ctx, ts)
	if err != nil {
		return Target{}, err
	}
	if len(accounts) == 0 {
		return Target{}, errNoAccounts
	}
	account := accounts[0].Name

	locations, err := r.Source.ListLocations(ctx, ts, account)
	if err != nil {
		return Target{}, err
	}
	if len(locations) == 0 {
		return Target{}, fmt.Errorf("%w %s", errNoLocations, account)
	}
	return Target{Account: account, Location: locations[0].Name}, nil
}

// NewResolver returns a StaticResolver when both identifiers are set and a
// DynamicResolver otherwise.
func NewResolver(accountID, locationID string, source upstream.Source) Resolver {
	if accountID != "" && locationID != "" {
		return StaticResolver{Target: Target{
			Account:  upstream.AccountName(accountID),
			Location: upstream.LocationName(locationID),
		}}
	}
	return DynamicResolver{Source: source}
}
