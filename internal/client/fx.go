package client

import (
	"github.com/smallbiznis/tradeledger/internal/client/repository"
	"github.com/smallbiznis/tradeledger/internal/client/service"
	"go.uber.org/fx"
)

var Module = fx.Module("client.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
