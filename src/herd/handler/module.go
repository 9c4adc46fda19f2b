package handler

import (
	controller "github.com/lspherd/lspherd/src/herd/controller"
	"github.com/lspherd/lspherd/src/herd/controller/dispatcher"
	herddaemon "github.com/lspherd/lspherd/src/herd/handler/herd-daemon"
	"github.com/lspherd/lspherd/src/herd/repository/session"
	"go.uber.org/fx"
)

// Module provides the herd-daemon server into an Fx application.
var Module = fx.Options(
	controller.Module,
	fx.Provide(session.New),
	fx.Provide(herddaemon.New),
	fx.Invoke(func(h herddaemon.Handler) {}),
	fx.Invoke(func(c dispatcher.Controller) {}),
)
