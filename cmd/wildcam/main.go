package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/thewriterben/wildcam/internal/adaptive"
	"github.com/thewriterben/wildcam/internal/api"
	"github.com/thewriterben/wildcam/internal/auth"
	"github.com/thewriterben/wildcam/internal/camera"
	"github.com/thewriterben/wildcam/internal/coordinator"
	"github.com/thewriterben/wildcam/internal/detect"
	"github.com/thewriterben/wildcam/internal/frame"
	"github.com/thewriterben/wildcam/internal/sensor"
	"github.com/thewriterben/wildcam/internal/store"
	"github.com/thewriterben/wildcam/internal/telemetry"
	"github.com/thewriterben/wildcam/internal/wildlife"
	"github.com/thewriterben/wildcam/internal/ws"
)

func main() {
	var (
		httpAddr    = flag.String("http", ":8080", "HTTP listen address")
		dbPath      = flag.String("db", "wildcam.db", "SQLite database path")
		capturesDir = flag.String("captures", "captures", "directory for annotated capture frames")
		interval    = flag.Duration("interval", 2*time.Second, "polling interval")
		zoneCount   = flag.Int("zones", 3, "presence zone count")
		simPeriod   = flag.Duration("sim-period", 60*time.Second, "simulated subject pass period (0 disables the simulator)")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "[wildcam] ", log.Ltime)

	st, err := store.Open(*dbPath)
	if err != nil {
		logger.Fatalf("opening store: %v", err)
	}
	defer st.Close()
	if err := st.Migrate(); err != nil {
		logger.Fatalf("migrating store: %v", err)
	}

	if err := os.MkdirAll(*capturesDir, 0o755); err != nil {
		logger.Fatalf("creating captures dir: %v", err)
	}

	// Sensing hardware: simulated camera plus memory-backed trigger lines.
	cam := camera.NewSim()

	primaryInput := sensor.NewMemoryInput(13)
	presence := sensor.NewPresenceSensor(primaryInput, sensor.PresenceConfig{Pin: 13, Sensitivity: 0.7})
	if err := presence.Initialize(); err != nil {
		logger.Fatalf("initializing presence sensor: %v", err)
	}

	zones := sensor.NewMultiZone()
	zoneInputs := make([]*sensor.MemoryInput, 0, *zoneCount)
	for i := 0; i < *zoneCount; i++ {
		in := sensor.NewMemoryInput(20 + i)
		if err := zones.AddZone(sensor.ZoneConfig{
			ID:          i,
			Name:        fmt.Sprintf("zone-%d", i),
			Input:       in,
			Sensitivity: 0.7,
			Priority:    i,
		}); err != nil {
			logger.Fatalf("configuring zone %d: %v", i, err)
		}
		zoneInputs = append(zoneInputs, in)
	}

	// Detection pipeline.
	fd := detect.NewFrameDetector(detect.FrameConfig{})
	adv := detect.NewAdvancedDetector(detect.DefaultAdvancedConfig())
	composer := detect.NewComposer(detect.ComposerConfig{}, cam, presence, zones, fd, adv)
	facade := detect.NewFacade(composer)
	controller := adaptive.NewController(adaptive.Config{})
	analyzer := wildlife.NewAnalyzer(wildlife.Config{})
	coordCfg := coordinator.DefaultConfig()
	// Area normalization and ROI clamping must match the sim's standard
	// capture profile, not the hardware default.
	coordCfg.FrameWidth = 640
	coordCfg.FrameHeight = 480
	coord := coordinator.New(coordCfg, facade, controller, analyzer)

	hub := ws.NewHub()
	authn := auth.NewAuthenticator(authConfigFromEnv())

	coord.OnDetection(func(res coordinator.Result) {
		persistEvent(logger, st, res)
		broadcastEvent(hub, res)
		if res.ShouldCapture {
			saveCapture(logger, cam, *capturesDir, res)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errc := make(chan error, 1)
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errc <- fmt.Errorf("%s", <-c)
	}()

	server := api.NewServer(*httpAddr, coord, st, hub, authn)
	go func() {
		if err := server.Start(); err != nil {
			errc <- err
		}
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		runLoop(ctx, logger, coord, hub, st, zones, cam, zoneInputs, primaryInput, *interval, *simPeriod)
	}()

	logger.Printf("exiting (%v)", <-errc)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("shutting down api: %v", err)
	}
	wg.Wait()
	logger.Println("exited")
}

// runLoop is the single polling goroutine driving the pipeline.
func runLoop(ctx context.Context, logger *log.Logger, coord *coordinator.Coordinator,
	hub *ws.Hub, st *store.Store, zones *sensor.MultiZone, cam *camera.Sim,
	zoneInputs []*sensor.MemoryInput, primary *sensor.MemoryInput,
	interval, simPeriod time.Duration) {

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	statusTick := time.NewTicker(30 * time.Second)
	defer statusTick.Stop()
	persistTick := time.NewTicker(time.Minute)
	defer persistTick.Stop()

	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return

		case now := <-ticker.C:
			simulate(cam, zoneInputs, primary, start, now, simPeriod)
			env := readTelemetry(start, now)
			if _, err := coord.ProcessCycle(env); err != nil {
				logger.Printf("cycle: %v", err)
			}

		case <-statusTick.C:
			broadcastStatus(hub, coord, start)

		case <-persistTick.C:
			persistZoneStats(logger, st, zones)
		}
	}
}

// simulate drives the bench scene: once per period a subject walks through
// the scene for a tenth of it, tripping the camera blob and all trigger
// lines.
func simulate(cam *camera.Sim, zoneInputs []*sensor.MemoryInput, primary *sensor.MemoryInput,
	start, now time.Time, period time.Duration) {
	if period <= 0 {
		return
	}
	phase := now.Sub(start) % period
	active := phase < period/10
	cam.SetSubject(active)
	if active {
		primary.Trigger()
		for _, in := range zoneInputs {
			in.Trigger()
		}
	}
}

// readTelemetry synthesizes plausible battery, temperature and light
// curves. On hardware this reads the power-management unit instead.
func readTelemetry(start, now time.Time) telemetry.Environment {
	elapsed := now.Sub(start).Hours()
	hour := now.Hour()

	// Light follows the sun, zero at night.
	light := math.Sin(float64(hour-6) / 12 * math.Pi)
	if light < 0 {
		light = 0
	}

	return telemetry.Environment{
		BatteryVoltage: 4.1 - 0.01*elapsed,
		TemperatureC:   12 + 8*light,
		LightLevel:     light,
		Hour:           hour,
	}
}

func persistEvent(logger *log.Logger, st *store.Store, res coordinator.Result) {
	rec := &store.DetectionEventRecord{
		ID:          res.EventID,
		Timestamp:   res.Timestamp,
		Method:      res.Method.String(),
		Confidence:  res.FusedConfidence,
		Adjustment:  res.Adjustment,
		Motion:      res.MotionDetected,
		Captured:    res.ShouldCapture,
		Transmitted: res.ShouldTransmit,
		Alerted:     res.ShouldAlert,
		Rationale:   res.Rationale,
		ProcessMs:   float64(res.ProcessTime.Microseconds()) / 1000,
		Bounds: store.BoundsRecord{
			X:      res.Detection.Bounds.Min.X,
			Y:      res.Detection.Bounds.Min.Y,
			Width:  res.Detection.Bounds.Dx(),
			Height: res.Detection.Bounds.Dy(),
		},
	}
	if res.Wildlife != nil {
		rec.Category = res.Wildlife.Category.String()
		rec.Likelihood = res.Wildlife.Likelihood
	}
	if err := st.SaveEvent(rec); err != nil {
		logger.Printf("persisting event %s: %v", res.EventID, err)
	}
}

func broadcastEvent(hub *ws.Hub, res coordinator.Result) {
	msg := ws.NewEventMessage(res.EventID)
	msg.Timestamp = res.Timestamp
	msg.Method = res.Method.String()
	msg.Confidence = res.FusedConfidence
	msg.Motion = res.MotionDetected
	msg.ShouldCapture = res.ShouldCapture
	msg.ShouldTransmit = res.ShouldTransmit
	msg.ShouldAlert = res.ShouldAlert
	msg.Rationale = res.Rationale
	if res.Wildlife != nil {
		msg.Category = res.Wildlife.Category.String()
		msg.Likelihood = res.Wildlife.Likelihood
	}
	if !res.Detection.Bounds.Empty() {
		b := res.Detection.Bounds
		msg.Bounds = []int{b.Min.X, b.Min.Y, b.Dx(), b.Dy()}
	}
	hub.BroadcastEvent(msg)
}

func broadcastStatus(hub *ws.Hub, coord *coordinator.Coordinator, start time.Time) {
	stats := coord.Stats()
	env := readTelemetry(start, time.Now())

	msg := ws.NewStatusMessage()
	msg.Cycles = stats.Cycles
	msg.Detections = stats.Detections
	msg.Captures = stats.Captures
	msg.Skipped = stats.Skipped
	msg.Faults = stats.Faults
	msg.BatteryVoltage = env.BatteryVoltage
	msg.TemperatureC = env.TemperatureC
	hub.BroadcastStatus(msg)
}

func persistZoneStats(logger *log.Logger, st *store.Store, zones *sensor.MultiZone) {
	for _, id := range zones.ZoneIDs() {
		z, ok := zones.Zone(id)
		if !ok {
			continue
		}
		stats := z.Stats()
		rec := &store.ZoneStatRecord{
			ZoneID:         z.ID,
			Name:           z.Name,
			Detections:     stats.Detections,
			FalsePositives: stats.FalsePositives,
			LastDetection:  stats.LastDetection,
			AvgConfidence:  stats.AvgConfidence,
		}
		if err := st.SaveZoneStat(rec); err != nil {
			logger.Printf("persisting zone %d: %v", id, err)
		}
	}
}

// saveCapture grabs a fresh frame, annotates it with the detection box and
// category label, and writes it next to the event id.
func saveCapture(logger *log.Logger, cam *camera.Sim, dir string, res coordinator.Result) {
	f, err := cam.Capture()
	if err != nil {
		logger.Printf("capture for event %s: %v", res.EventID, err)
		return
	}
	defer cam.Release(f)

	label := "motion"
	if res.Wildlife != nil {
		label = res.Wildlife.Category.String()
	}
	annotated, err := frame.Annotate(f, res.Detection.Bounds, label)
	if err != nil {
		logger.Printf("annotating event %s: %v", res.EventID, err)
		return
	}

	path := filepath.Join(dir, res.EventID+".jpg")
	if err := os.WriteFile(path, annotated, 0o644); err != nil {
		logger.Printf("writing capture %s: %v", path, err)
	}
}

func authConfigFromEnv() auth.Config {
	cfg := auth.Config{
		Enabled:  os.Getenv("AUTH_ENABLED") == "true",
		Username: os.Getenv("AUTH_USERNAME"),
		Password: os.Getenv("AUTH_PASSWORD"),
		Secret:   os.Getenv("JWT_SECRET"),
	}
	if exp := os.Getenv("JWT_EXPIRY"); exp != "" {
		if d, err := time.ParseDuration(exp); err == nil {
			cfg.Expiry = d
		}
	}
	return cfg
}
