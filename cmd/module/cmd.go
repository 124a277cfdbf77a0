package main

import (
	"go.viam.com/rdk/components/sensor"
	"go.viam.com/rdk/module"
	"go.viam.com/rdk/resource"

	"github.com/erh/pixelreduce/pixelsensor"
)

func main() {
	module.ModularMain(
		resource.APIModel{API: sensor.API, Model: pixelsensor.ChannelSumModel},
	)
}
