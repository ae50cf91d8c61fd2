package invoice

import (
	"go.uber.org/fx"

	"github.com/rideledger/rideledger/internal/invoice/repository"
	"github.com/rideledger/rideledger/internal/invoice/service"
)

var Module = fx.Module("invoice",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
