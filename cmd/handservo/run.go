package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/ayusman/handservo/internal/app"
	"github.com/ayusman/handservo/internal/server"
	"github.com/ayusman/handservo/internal/store"
	"github.com/ayusman/handservo/internal/tray"
)

const connectTimeout = 10 * time.Second

type RunCommand struct {
	SerialOptions
	Camera   int    `long:"camera" default:"-1" description:"Camera device index (default: last used or 0)"`
	Addr     string `long:"addr" default:":8080" description:"Dashboard listen address"`
	NoMirror bool   `long:"no-mirror" description:"Do not flip camera frames horizontally"`
	NoTray   bool   `long:"no-tray" description:"Run without the system tray"`
	Demo     bool   `long:"demo" description:"Run without an arm; commands are not sent"`
}

func (c *RunCommand) Execute(args []string) error {
	fmt.Println("HandServo - Hand Gesture Arm Control")

	st, err := c.openStore()
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()

	dir, err := c.dataDir()
	if err != nil {
		return err
	}
	fileCfg, err := loadFileConfig(dir)
	if err != nil {
		return err
	}

	port, baud, err := c.resolve(st)
	if err != nil {
		return err
	}
	if c.Demo {
		port = ""
	}
	camera, err := c.camera(st)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := newSession(port, baud, fileCfg.sessionConfig())
	if err != nil {
		return err
	}
	if port == "" {
		log.Println("No serial port configured, running in demo mode")
	} else {
		connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		err := session.Connect(connectCtx)
		cancel()
		if err != nil {
			log.Printf("Failed to connect to arm: %v", err)
		} else {
			remember(st, port, baud)
		}
	}
	defer session.Disconnect()

	a := app.New(app.Config{
		Store:        st,
		Session:      session,
		CameraID:     camera,
		CameraWidth:  fileCfg.Camera.Width,
		CameraHeight: fileCfg.Camera.Height,
		Mirror:       !c.NoMirror,
		MotionThresh: fileCfg.MotionThreshold,
		Detector:     fileCfg.detectorConfig(),
	})
	if err := a.Start(); err != nil {
		return fmt.Errorf("failed to start camera %d: %w", camera, err)
	}
	defer a.Stop()

	webDir := findWebDir()
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}

	srv := server.New(server.Config{
		StaticDir:  webDir,
		Store:      st,
		Controller: a,
		Frames:     a.Frames(),
	})

	go func() {
		fmt.Printf("Starting server on %s\n", c.Addr)
		if err := srv.ListenAndServe(c.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Server failed: %v", err)
			stop()
		}
	}()

	if c.NoTray {
		<-ctx.Done()
	} else {
		c.runTray(ctx, stop, a)
	}

	log.Println("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// camera resolves the device index from the flag or saved settings.
func (c *RunCommand) camera(st *store.Store) (int, error) {
	if c.Camera >= 0 {
		if err := st.Settings().Set(store.SettingCamera, fmt.Sprint(c.Camera)); err != nil {
			log.Printf("Failed to save camera: %v", err)
		}
		return c.Camera, nil
	}
	return st.Settings().GetInt(store.SettingCamera, 0)
}

// runTray blocks in the tray loop until Quit is chosen or ctx ends.
func (c *RunCommand) runTray(ctx context.Context, stop context.CancelFunc, a *app.App) {
	t := tray.New()
	t.SetEnabled(a.IsEnabled())
	t.OnToggle(a.SetEnabled)
	t.OnHome(func() {
		if err := a.Home(ctx); err != nil {
			log.Printf("Home failed: %v", err)
		}
	})
	t.OnDashboard(func() {
		if err := openBrowser(dashboardURL(c.Addr)); err != nil {
			log.Printf("Failed to open dashboard: %v", err)
		}
	})
	t.OnQuit(stop)

	go t.Follow(ctx.Done(), a.Snapshot, a.IsEnabled)
	go func() {
		<-ctx.Done()
		t.Quit()
	}()

	t.Run()
}

func dashboardURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr
}

func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}
