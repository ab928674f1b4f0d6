//
//  Copyright © the Cedrus authors. All rights reserved.
//

package serve

import (
	"context"
	"os"
	"os/signal"

	"github.com/cedrus-authz/cedrus/cmd/cedrus/common"
	"github.com/cedrus-authz/cedrus/internal/logging"
	"github.com/cedrus-authz/cedrus/pkg/decisionpoint"
	"github.com/cedrus-authz/cedrus/pkg/decisionpoint/generic"
	"github.com/urfave/cli/v3"
)

var logger = logging.GetLogger("cedrus")

// Execute runs the serve command, starting a decision point server bound to
// the bundles named on the command line. It gracefully shuts down on
// interrupt signals.
func Execute(ctx context.Context, cmd *cli.Command) error {
	port := cmd.Int("port")

	authz, err := common.NewCliAuthorizer(cmd, os.Stdout)
	if err != nil {
		return err
	}
	defer authz.Close()

	var server decisionpoint.Server
	server, err = generic.CreateServer(authz, port)
	if err != nil {
		return err
	}

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	logger.Info("Shutting down server...")

	err = server.Stop(ctx)
	if err != nil {
		return err
	}

	logger.Info("Server exited gracefully.")
	return nil
}
