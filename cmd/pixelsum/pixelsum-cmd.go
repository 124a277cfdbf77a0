package main

import (
	"context"
	"flag"
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"go.viam.com/rdk/components/sensor"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/resource"
	"golang.org/x/sync/errgroup"

	"github.com/erh/pixelreduce"
	"github.com/erh/pixelreduce/imgutils"
	"github.com/erh/pixelreduce/pixelsensor"
	"github.com/erh/pixelreduce/reduce"
)

func main() {
	err := realMain()
	if err != nil {
		panic(err)
	}
}

func realMain() error {
	logger := logging.NewLogger("pixelsum")
	ctx := context.Background()

	cmd := flag.String("cmd", "sum", "sum, bench or camera")
	in := flag.String("in", "", "comma separated input images (positional args work too)")
	batchSize := flag.Int("batch-size", reduce.DefaultBatchSize, "pixels per task")
	channel := flag.String("channel", "red", "red, green, blue, alpha or gray")
	parallelism := flag.Int("parallelism", runtime.GOMAXPROCS(0), "worker count")

	batchSizes := flag.String("batch-sizes", "64,256,1024,4096,16384,65536", "batch sizes for bench")
	repeat := flag.Int("repeat", 5, "runs per batch size for bench")

	host := flag.String("host", "", "machine hostname")
	apiKeyID := flag.String("api-key-id", "", "")
	apiKey := flag.String("api-key", "", "")
	cameraName := flag.String("camera", "", "camera to reduce")
	sourceName := flag.String("source", "", "image source name within the camera")

	flag.Parse()

	sel, err := reduce.ChannelByName(*channel)
	if err != nil {
		return err
	}
	cfg := reduce.Config{BatchSize: *batchSize, Channel: sel, Parallelism: *parallelism}

	files := flag.Args()
	if *in != "" {
		files = append(strings.Split(*in, ","), files...)
	}

	switch *cmd {
	case "sum":
		if len(files) == 0 {
			return fmt.Errorf("need at least one input image")
		}
		return sumFiles(ctx, files, cfg, logger)

	case "bench":
		if len(files) != 1 {
			return fmt.Errorf("bench needs exactly one input image")
		}
		sizes, err := parseSizes(*batchSizes)
		if err != nil {
			return err
		}
		return bench(ctx, files[0], cfg, sizes, *repeat, logger)

	case "camera":
		if *cameraName == "" {
			return fmt.Errorf("need a camera")
		}
		machine, err := pixelreduce.Connect(ctx, pixelreduce.MachineOptions{Host: *host, APIKeyID: *apiKeyID, APIKey: *apiKey}, logger)
		if err != nil {
			return err
		}
		defer machine.Close(ctx)

		deps, err := pixelreduce.RobotDependencies(machine)
		if err != nil {
			return err
		}
		if _, ok := pixelreduce.FindDep(deps, *cameraName); !ok {
			return fmt.Errorf("machine has no resource named %s", *cameraName)
		}

		s, err := pixelsensor.NewChannelSum(ctx, deps, resource.Config{
			Name:  "pixelsum",
			API:   sensor.API,
			Model: pixelsensor.ChannelSumModel,
			ConvertedAttributes: &pixelsensor.ChannelSumConfig{
				Camera:      *cameraName,
				SourceName:  *sourceName,
				BatchSize:   *batchSize,
				Channel:     *channel,
				Parallelism: *parallelism,
			},
		}, logger)
		if err != nil {
			return err
		}
		defer s.Close(ctx)

		readings, err := s.Readings(ctx, nil)
		if err != nil {
			return err
		}
		logger.Infof("%s: channel sum: %v", readings["source"], readings["total"])
		logger.Infof("%s: execution time: %0.3f ms", readings["source"], readings["elapsed_ms"])
		logger.Infof("%s: pixels processed: %v", readings["source"], readings["element_count"])
		return nil
	}

	return fmt.Errorf("invalid command [%s]", *cmd)
}

// sumFiles decodes every file concurrently, then reduces them one after the
// other so each timing only covers its own reduction.
func sumFiles(ctx context.Context, files []string, cfg reduce.Config, logger logging.Logger) error {
	bufs := make([]reduce.PixelBuffer, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for idx, fn := range files {
		g.Go(func() error {
			buf, err := imgutils.ReadPixelBuffer(gctx, fn)
			if err != nil {
				return err
			}
			bufs[idx] = buf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	r, err := reduce.NewReducer(cfg, logger)
	if err != nil {
		return err
	}
	defer r.Close()

	for idx, fn := range files {
		res, err := r.Reduce(ctx, bufs[idx])
		if err != nil {
			return fmt.Errorf("cannot reduce (%s): %w", fn, err)
		}
		reduce.LogResult(logger, fn, res)
	}
	return nil
}

func bench(ctx context.Context, fn string, cfg reduce.Config, sizes []int, repeat int, logger logging.Logger) error {
	buf, err := imgutils.ReadPixelBuffer(ctx, fn)
	if err != nil {
		return err
	}
	logger.Infof("%s: %d pixels, %d workers", fn, len(buf), cfg.Parallelism)

	for _, size := range sizes {
		cfg.BatchSize = size
		r, err := reduce.NewReducer(cfg, logger)
		if err != nil {
			return err
		}

		var best reduce.Result
		for i := 0; i < max(repeat, 1); i++ {
			res, err := r.Reduce(ctx, buf)
			if err != nil {
				r.Close()
				return err
			}
			if i == 0 || res.Elapsed < best.Elapsed {
				best = res
			}
		}
		r.Close()

		logger.Infof("batch-size: %6d batches: %6d best: %v (%0.1f Mpixel/s) total: %d",
			size, best.BatchCount, best.Elapsed, best.Throughput()/1e6, best.Total)
	}
	return nil
}

func parseSizes(s string) ([]int, error) {
	sizes := []int{}
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("bad batch size %q: %w", p, err)
		}
		sizes = append(sizes, n)
	}
	if len(sizes) == 0 {
		return nil, fmt.Errorf("need at least one batch size")
	}
	return sizes, nil
}
