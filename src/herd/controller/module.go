package controller

import (
	"github.com/lspherd/lspherd/src/herd/controller/binder"
	"github.com/lspherd/lspherd/src/herd/controller/diagnostics"
	"github.com/lspherd/lspherd/src/herd/controller/dispatcher"
	"github.com/lspherd/lspherd/src/herd/controller/installer"
	"go.uber.org/fx"
)

// Module provides all controllers into an Fx application.
var Module = fx.Options(
	fx.Provide(binder.New),
	fx.Provide(diagnostics.New),
	fx.Provide(dispatcher.New),
	fx.Provide(installer.New),
)
