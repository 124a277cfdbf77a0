// Package pixelsensor exposes the channel reduction as a Viam sensor fed by a camera.
package pixelsensor

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"go.viam.com/rdk/components/camera"
	"go.viam.com/rdk/components/sensor"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/resource"

	"github.com/erh/pixelreduce"
	"github.com/erh/pixelreduce/imgutils"
	"github.com/erh/pixelreduce/reduce"
)

var ChannelSumModel = pixelreduce.NamespaceFamily.WithModel("channel-sum")

func init() {
	resource.RegisterComponent(
		sensor.API,
		ChannelSumModel,
		resource.Registration[sensor.Sensor, *ChannelSumConfig]{
			Constructor: NewChannelSum,
		})
}

type ChannelSumConfig struct {
	Camera      string `json:"camera"`
	SourceName  string `json:"source_name,omitempty"`
	BatchSize   int    `json:"batch_size,omitempty"`
	Channel     string `json:"channel,omitempty"`
	Parallelism int    `json:"parallelism,omitempty"`
}

func (c *ChannelSumConfig) Validate(path string) ([]string, []string, error) {
	if c.Camera == "" {
		return nil, nil, fmt.Errorf("need a camera")
	}
	if _, err := c.reduceConfig(); err != nil {
		return nil, nil, err
	}
	return []string{c.Camera}, nil, nil
}

// reduceConfig maps the attributes onto a reduce.Config. A missing batch size
// means the default; a negative one is rejected.
func (c *ChannelSumConfig) reduceConfig() (reduce.Config, error) {
	channel, err := reduce.ChannelByName(c.Channel)
	if err != nil {
		return reduce.Config{}, err
	}

	cfg := reduce.Config{
		BatchSize:   c.BatchSize,
		Channel:     channel,
		Parallelism: c.Parallelism,
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = reduce.DefaultBatchSize
	}
	return cfg, cfg.Validate()
}

func NewChannelSum(ctx context.Context, deps resource.Dependencies, config resource.Config, logger logging.Logger) (sensor.Sensor, error) {
	newConf, err := resource.NativeConfig[*ChannelSumConfig](config)
	if err != nil {
		return nil, err
	}

	rcfg, err := newConf.reduceConfig()
	if err != nil {
		return nil, err
	}

	src, err := camera.FromProvider(deps, newConf.Camera)
	if err != nil {
		return nil, err
	}

	r, err := reduce.NewReducer(rcfg, logger)
	if err != nil {
		return nil, err
	}

	return &channelSum{
		name:    config.ResourceName(),
		cfg:     newConf,
		logger:  logger,
		src:     src,
		reducer: r,
	}, nil
}

type channelSum struct {
	resource.AlwaysRebuild

	name   resource.Name
	cfg    *ChannelSumConfig
	logger logging.Logger

	src     camera.Camera
	reducer *reduce.Reducer

	lock         sync.Mutex
	lastReadings map[string]interface{}
	lastTime     time.Time
}

func (cs *channelSum) Name() resource.Name {
	return cs.name
}

func (cs *channelSum) Readings(ctx context.Context, extra map[string]interface{}) (map[string]interface{}, error) {
	var filter []string
	if cs.cfg.SourceName != "" {
		filter = []string{cs.cfg.SourceName}
	}

	imgs, _, err := cs.src.Images(ctx, filter, extra)
	if err != nil {
		return nil, err
	}
	if len(imgs) == 0 {
		return nil, fmt.Errorf("camera %s returned no images", cs.cfg.Camera)
	}

	ni := imgs[0]
	if cs.cfg.SourceName != "" {
		found := false
		for _, x := range imgs {
			if x.SourceName == cs.cfg.SourceName {
				ni = x
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("camera %s has no image named %s", cs.cfg.Camera, cs.cfg.SourceName)
		}
	}

	img, err := ni.Image(ctx)
	if err != nil {
		return nil, err
	}

	return cs.reduceImage(ctx, ni.SourceName, img)
}

func (cs *channelSum) reduceImage(ctx context.Context, source string, img image.Image) (map[string]interface{}, error) {
	res, err := cs.reducer.Reduce(ctx, imgutils.PixelBufferFromImage(img))
	if err != nil {
		return nil, err
	}

	if res.Elapsed > 250*time.Millisecond {
		cs.logger.Infof("channel sum of %s took %v for %d pixels", source, res.Elapsed, res.ElementCount)
	}

	readings := resultReadings(source, res)

	cs.lock.Lock()
	cs.lastReadings = readings
	cs.lastTime = time.Now()
	cs.lock.Unlock()

	return readings, nil
}

func resultReadings(source string, res reduce.Result) map[string]interface{} {
	return map[string]interface{}{
		"source":            source,
		"total":             res.Total,
		"element_count":     res.ElementCount,
		"batch_count":       res.BatchCount,
		"workers":           res.Workers,
		"elapsed_ms":        float64(res.Elapsed) / float64(time.Millisecond),
		"pixels_per_second": res.Throughput(),
	}
}

// DoCommand supports {"last": true} for the previous readings and
// {"file": "<path>"} to reduce an image on the machine's disk.
func (cs *channelSum) DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error) {
	if fn, ok := cmd["file"].(string); ok {
		img, err := imgutils.ReadImage(ctx, fn)
		if err != nil {
			return nil, err
		}
		return cs.reduceImage(ctx, fn, img)
	}

	if _, ok := cmd["last"]; ok {
		cs.lock.Lock()
		defer cs.lock.Unlock()
		if cs.lastReadings == nil {
			return nil, fmt.Errorf("no readings yet")
		}
		out := map[string]interface{}{"time": cs.lastTime.Format(time.RFC3339Nano)}
		for k, v := range cs.lastReadings {
			out[k] = v
		}
		return out, nil
	}

	return nil, fmt.Errorf("unknown command %v", cmd)
}

func (cs *channelSum) Close(ctx context.Context) error {
	cs.reducer.Close()
	return nil
}
