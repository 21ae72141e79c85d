package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/mpatra/handrange/internal/alert"
	"github.com/mpatra/handrange/internal/capture"
	"github.com/mpatra/handrange/internal/console"
	"github.com/mpatra/handrange/internal/detector"
	"github.com/mpatra/handrange/internal/overlay"
	"github.com/mpatra/handrange/internal/ranging"
	"github.com/mpatra/handrange/internal/server"
	"github.com/mpatra/handrange/internal/session"
	"github.com/mpatra/handrange/internal/store"
	"github.com/mpatra/handrange/internal/tray"
)

type config struct {
	cameraID int
	fps      int
	addr     string
	hook     string
	useTray  bool
	focal    float64
	width    float64
}

// app bundles the long-lived components shared by every session run.
type app struct {
	config   config
	store    *store.Store
	detector detector.Detector
	frames   *server.FrameBuffer
	hub      *server.ReadingsHub
	notifier session.Notifier
}

func main() {
	var cfg config
	var dbPath string

	flag.IntVar(&cfg.cameraID, "camera", 0, "camera device ID")
	flag.IntVar(&cfg.fps, "fps", capture.DefaultFPS, "capture frame rate")
	flag.StringVar(&dbPath, "db", "", "measurement log database path (default ~/.handrange/handrange.db)")
	flag.StringVar(&cfg.addr, "addr", ":8080", "HTTP listen address")
	flag.StringVar(&cfg.hook, "hook", "", "executable to run when a reading enters near range")
	flag.BoolVar(&cfg.useTray, "tray", false, "run headless in the system tray (requires -focal and -width)")
	flag.Float64Var(&cfg.focal, "focal", 0, "previously calibrated focal length, for -tray")
	flag.Float64Var(&cfg.width, "width", 0, "real hand width in cm, for -tray")
	flag.Parse()

	fmt.Println("HandRange - Hand Distance Estimator")

	st, err := openStore(dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	a := &app{
		config: cfg,
		store:  st,
		frames: server.NewFrameBuffer(),
		hub:    server.NewReadingsHub(),
	}

	// Try MediaPipe first, fall back to mock detector
	if mp, err := detector.NewMediaPipeDetector(); err == nil {
		a.detector = mp
		log.Println("Using MediaPipe hand detection")
	} else {
		log.Printf("MediaPipe not available (%v), using mock detector", err)
		a.detector = detector.NewMockDetector()
	}
	defer a.detector.Close()

	if cfg.hook != "" {
		a.notifier = alert.NewHook(cfg.hook, alert.DefaultTimeout, alert.DefaultMinInterval)
	}

	srv := server.New(server.Config{Store: st, Frames: a.frames, Hub: a.hub})
	go func() {
		log.Printf("Starting server on %s", cfg.addr)
		if err := srv.ListenAndServe(cfg.addr); err != nil {
			log.Printf("Server failed: %v", err)
		}
	}()

	if cfg.useTray {
		a.runTray()
		return
	}
	a.runMenu()
}

// openStore opens the measurement log, defaulting to ~/.handrange.
func openStore(dbPath string) (*store.Store, error) {
	if dbPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}

		dbDir := filepath.Join(homeDir, ".handrange")
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, err
		}
		dbPath = filepath.Join(dbDir, "handrange.db")
	}

	return store.New(dbPath)
}

// runMenu is the interactive flow: calibrate, then measure, on demand.
func (a *app) runMenu() {
	cons := console.Stdio()
	var profile ranging.Profile

	for {
		cons.Printf("\n1) Calibrate\n2) Measure\n3) Exit\n")
		choice, err := cons.Line("Select an option: ")
		if err != nil {
			return
		}

		switch choice {
		case "1":
			p, err := a.calibrate(cons)
			if errors.Is(err, session.ErrAborted) {
				cons.Printf("Calibration aborted.\n")
				continue
			}
			if err != nil {
				log.Printf("Calibration failed: %v", err)
				continue
			}
			profile = p
		case "2":
			if !profile.Valid() {
				// No calibration this run: accept a previously derived
				// profile as the two scalars.
				p, err := promptProfile(cons)
				if err != nil {
					return
				}
				profile = p
			}
			if err := a.measure(cons, profile, a.hub); err != nil {
				log.Printf("Measurement failed: %v", err)
			}
		case "3":
			return
		default:
			cons.Printf("Unknown option %q.\n", choice)
		}
	}
}

// promptProfile reads a previously calibrated focal length and real hand
// width from the console.
func promptProfile(cons *console.Console) (ranging.Profile, error) {
	focal, err := cons.PositiveFloat("Enter the calibrated focal length: ")
	if err != nil {
		return ranging.Profile{}, err
	}
	width, err := cons.PositiveFloat("Enter your hand width in cm: ")
	if err != nil {
		return ranging.Profile{}, err
	}
	return ranging.FromScalars(focal, width)
}

func (a *app) calibrate(cons *console.Console) (ranging.Profile, error) {
	window := overlay.NewWindow("HandRange Calibration")
	defer window.Close()

	sess := session.New(session.Options{
		Camera:    capture.NewCamera(a.config.cameraID),
		Detector:  a.detector,
		Display:   window,
		Console:   cons,
		Stability: capture.NewStability(0),
		FPS:       a.config.fps,
	})

	return sess.Calibrate()
}

func (a *app) measure(cons *console.Console, profile ranging.Profile, publisher session.Publisher) error {
	recorder, err := store.NewRecorder(a.store, a.config.cameraID)
	if err != nil {
		return err
	}
	defer recorder.Close()

	window := overlay.NewWindow("HandRange")
	defer window.Close()

	sess := session.New(session.Options{
		Camera:    capture.NewCamera(a.config.cameraID),
		Detector:  a.detector,
		Display:   window,
		Console:   cons,
		Recorder:  recorder,
		Publisher: publisher,
		Notifier:  a.notifier,
		Frames:    a.frames,
		FPS:       a.config.fps,
	})

	return sess.Measure(profile)
}

// runTray runs the measurement loop headless, with the tray as the only
// local surface. The profile comes from a previous calibration via the
// -focal and -width flags.
func (a *app) runTray() {
	profile, err := ranging.FromScalars(a.config.focal, a.config.width)
	if err != nil {
		log.Fatalf("Tray mode needs a calibration profile: %v (pass -focal and -width)", err)
	}

	recorder, err := store.NewRecorder(a.store, a.config.cameraID)
	if err != nil {
		log.Fatalf("Failed to open a recording session: %v", err)
	}
	defer recorder.Close()

	t := tray.New()

	sess := session.New(session.Options{
		Camera:    capture.NewCamera(a.config.cameraID),
		Detector:  a.detector,
		Recorder:  recorder,
		Publisher: fanoutPublisher{a.hub, t},
		Notifier:  a.notifier,
		Frames:    a.frames,
		FPS:       a.config.fps,
	})

	t.OnQuit(sess.Stop)
	t.OnDashboard(func() {
		openBrowser(dashboardURL(a.config.addr))
	})

	go func() {
		if err := sess.Measure(profile); err != nil {
			log.Printf("Measurement failed: %v", err)
		}
		t.Quit()
	}()

	t.Run()
}

// fanoutPublisher delivers each estimate to every wired publisher.
type fanoutPublisher []session.Publisher

func (f fanoutPublisher) Publish(est ranging.Estimate) {
	for _, p := range f {
		p.Publish(est)
	}
}

// dashboardURL turns a listen address into something a browser can open.
func dashboardURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

// openBrowser opens the URL with the platform's default handler.
func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}

	if err := cmd.Start(); err != nil {
		log.Printf("Failed to open browser: %v", err)
	}
}
