package account

import (
	"go.uber.org/fx"

	"github.com/rideledger/rideledger/internal/account/repository"
	"github.com/rideledger/rideledger/internal/account/service"
)

var Module = fx.Module("account",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
