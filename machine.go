package pixelreduce

import (
	"context"
	"fmt"
	"os"

	"go.viam.com/rdk/cli"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/resource"
	"go.viam.com/rdk/robot"
	"go.viam.com/rdk/robot/client"
	"go.viam.com/rdk/robot/framesystem"
	"go.viam.com/rdk/utils"
	"go.viam.com/utils/rpc"
)

// NamespaceFamily is the model family of every resource this module registers.
var NamespaceFamily = resource.NewModelFamily("erh", "pixelreduce")

// MachineOptions selects how Connect reaches a machine.
type MachineOptions struct {
	Host     string
	APIKeyID string
	APIKey   string
}

// Connect picks a login method: an explicit api key, the viam cli token for a
// bare host, or the module environment when no host is given.
func Connect(ctx context.Context, opts MachineOptions, logger logging.Logger) (robot.Robot, error) {
	switch {
	case opts.Host == "":
		return ConnectToMachineFromEnv(ctx, logger)
	case opts.APIKeyID != "" || opts.APIKey != "":
		if opts.APIKeyID == "" || opts.APIKey == "" {
			return nil, fmt.Errorf("need both an api key id and an api key")
		}
		return ConnectToMachine(ctx, logger, opts.Host, opts.APIKeyID, opts.APIKey)
	default:
		return ConnectToHostFromCLIToken(ctx, opts.Host, logger)
	}
}

// RobotDependencies exposes every resource of a remote machine as local
// dependencies, so module resources can be built and run against it from the cli.
func RobotDependencies(client robot.Robot) (resource.Dependencies, error) {
	deps := resource.Dependencies{}

	for _, n := range client.ResourceNames() {
		r, err := client.ResourceByName(n)
		if err != nil {
			return nil, err
		}
		deps[n] = r
	}

	r, ok := client.(resource.Resource)
	if !ok {
		return nil, fmt.Errorf("client isn't a resource.Resource")
	}

	deps[framesystem.PublicServiceName] = r

	return deps, nil
}

func ConnectToMachineFromEnv(ctx context.Context, logger logging.Logger) (robot.Robot, error) {
	params := []string{}
	for _, pp := range []string{utils.MachineFQDNEnvVar, utils.APIKeyIDEnvVar, utils.APIKeyEnvVar} {
		x := os.Getenv(pp)
		if x == "" {
			return nil, fmt.Errorf("no environment variable for %s", pp)
		}
		params = append(params, x)
	}
	return ConnectToMachine(ctx, logger, params[0], params[1], params[2])
}

func ConnectToMachine(ctx context.Context, logger logging.Logger, host, apiKeyID, apiKey string) (robot.Robot, error) {
	return client.New(
		ctx,
		host,
		logger,
		client.WithDialOptions(rpc.WithEntityCredentials(
			apiKeyID,
			rpc.Credentials{
				Type:    rpc.CredentialsTypeAPIKey,
				Payload: apiKey,
			},
		)),
	)
}

// ConnectToHostFromCLIToken logs in with the token cached by "viam login".
func ConnectToHostFromCLIToken(ctx context.Context, host string, logger logging.Logger) (robot.Robot, error) {
	if host == "" {
		return nil, fmt.Errorf("need to specify host")
	}

	c, err := cli.ConfigFromCache(nil)
	if err != nil {
		return nil, err
	}

	dopts, err := c.DialOptions()
	if err != nil {
		return nil, err
	}

	return client.New(
		ctx,
		host,
		logger,
		client.WithDialOptions(dopts...),
	)
}

// FindDep looks a dependency up by its short name.
func FindDep(deps resource.Dependencies, n string) (resource.Resource, bool) {
	for nn, r := range deps {
		if nn.ShortName() == n {
			return r, true
		}
	}
	return nil, false
}
