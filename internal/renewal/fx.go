package renewal

import (
	"github.com/smallbiznis/netbill/internal/renewal/service"
	"go.uber.org/fx"
)

var Module = fx.Module("renewal",
	fx.Provide(service.NewService),
)
