// Package autoload initializes the global logger from the environment
// as a side effect of being imported.
package autoload

import (
	configx "github.com/c1do1/whatsapp-support/pkg/config"
	logx "github.com/c1do1/whatsapp-support/pkg/logger"
)

func init() {
	logx.Init(*configx.MustLoad[logx.Config]("LOG"))
}
