package app

import (
	"context"
	"time"

	"github.com/lspherd/lspherd/src/herd/gateway/langserver"
	"github.com/lspherd/lspherd/src/herd/handler"
	"github.com/lspherd/lspherd/src/herd/internal/clock"
	"github.com/lspherd/lspherd/src/herd/internal/core"
	"github.com/lspherd/lspherd/src/herd/internal/discovery"
	"github.com/lspherd/lspherd/src/herd/internal/executor"
	"github.com/lspherd/lspherd/src/herd/internal/fs"
	"github.com/lspherd/lspherd/src/herd/internal/jsonrpcfx"
	"github.com/lspherd/lspherd/src/herd/internal/rootdir"
	"github.com/lspherd/lspherd/src/herd/repository/process"
	"github.com/lspherd/lspherd/src/herd/repository/registry"
	tally "github.com/uber-go/tally"
	"go.uber.org/fx"
)

// Module defines the herd-daemon application module.
var Module = fx.Options(
	langserver.Module, // outbounds
	handler.Module,    // inbounds
	jsonrpcfx.Module,
	fs.Module,
	executor.Module,
	discovery.Module,
	rootdir.Module,
	registry.Module,
	core.ConfigModule,
	core.LoggerModule,
	fx.Provide(clock.New),
	fx.Provide(process.New),
	fx.Provide(func(lc fx.Lifecycle) tally.Scope {
		rs, closer := tally.NewRootScope(tally.ScopeOptions{
			Tags: map[string]string{
				"service": "herd-daemon",
			},
		}, 1*time.Second)

		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return closer.Close()
			},
		})

		return rs
	}),
	fx.Decorate(decorateEnvContext),
	fx.Decorate(decorateConfigProvider),
	fx.Provide(func() Context {
		return Context{
			Environment:        "local",
			RuntimeEnvironment: "local",
		}
	}),
)
