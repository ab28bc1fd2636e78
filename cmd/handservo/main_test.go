package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jessevdk/go-flags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/handservo/internal/controller"
	"github.com/ayusman/handservo/internal/detector"
	"github.com/ayusman/handservo/internal/servo"
	"github.com/ayusman/handservo/internal/store"
	"github.com/ayusman/handservo/internal/transport"
)

func TestParseFlags(t *testing.T) {
	var o Options
	p := flags.NewParser(&o, flags.None)
	p.CommandHandler = func(flags.Commander, []string) error { return nil }

	_, err := p.ParseArgs([]string{"run", "--port", "/dev/ttyUSB0", "--baud", "9600", "--no-tray"})
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", o.Run.Port)
	assert.Equal(t, 9600, o.Run.Baud)
	assert.True(t, o.Run.NoTray)
	assert.Equal(t, ":8080", o.Run.Addr)
	assert.Equal(t, -1, o.Run.Camera)
}

func TestPlayRequiresName(t *testing.T) {
	var o Options
	p := flags.NewParser(&o, flags.None)
	p.CommandHandler = func(flags.Commander, []string) error { return nil }

	_, err := p.ParseArgs([]string{"play"})
	require.Error(t, err)

	var flagsErr *flags.Error
	require.ErrorAs(t, err, &flagsErr)
	assert.Equal(t, flags.ErrRequired, flagsErr.Type)
}

func TestSerialOptions_Resolve(t *testing.T) {
	o := SerialOptions{DataDir: t.TempDir()}
	st, err := o.openStore()
	require.NoError(t, err)
	defer st.Close()

	port, baud, err := o.resolve(st)
	require.NoError(t, err)
	assert.Empty(t, port)
	assert.Equal(t, transport.DefaultBaudRate, baud)

	remember(st, "/dev/ttyACM0", 57600)

	port, baud, err = o.resolve(st)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM0", port)
	assert.Equal(t, 57600, baud)

	o.Port = "/dev/ttyUSB1"
	port, _, err = o.resolve(st)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB1", port)

	saved, err := st.Settings().Get(store.SettingSerialPort)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM0", saved)
}

func TestPlay_UnknownSequence(t *testing.T) {
	c := &PlayCommand{SerialOptions: SerialOptions{DataDir: t.TempDir()}}
	c.Args.Name = "missing"

	err := c.Execute(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"missing" not found`)
}

func TestHome_NoPort(t *testing.T) {
	c := &HomeCommand{SerialOptions: SerialOptions{DataDir: t.TempDir()}}

	err := c.Execute(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no serial port")
}

func TestNewSession_Demo(t *testing.T) {
	session, err := newSession("", 0, controller.DefaultConfig())
	require.NoError(t, err)
	assert.False(t, session.Connected())
	assert.Nil(t, session.Transport())
}

func TestDashboardURL(t *testing.T) {
	assert.Equal(t, "http://localhost:8080", dashboardURL(":8080"))
	assert.Equal(t, "http://127.0.0.1:9000", dashboardURL("127.0.0.1:9000"))
}

func TestLoadFileConfig(t *testing.T) {
	dir := t.TempDir()

	cfg, err := loadFileConfig(dir)
	require.NoError(t, err, "a missing file is not an error")
	assert.Equal(t, detector.DefaultConfig().MinConfidence, cfg.detectorConfig().MinConfidence)
	assert.Equal(t, controller.DefaultThreshold, cfg.sessionConfig().Threshold)

	yaml := `
detector:
  min_detection_confidence: 0.5
  python: /opt/venv/bin/python
camera:
  width: 1280
  height: 720
motion_threshold: 2.5
change_threshold: 5
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(yaml), 0644))

	cfg, err = loadFileConfig(dir)
	require.NoError(t, err)

	det := cfg.detectorConfig()
	assert.Equal(t, 0.5, det.MinConfidence)
	assert.Equal(t, detector.DefaultConfig().MinTrackingConf, det.MinTrackingConf)
	assert.Equal(t, "/opt/venv/bin/python", det.PythonPath)
	assert.Equal(t, 1, det.MaxHands)
	assert.Equal(t, 1280, cfg.Camera.Width)
	assert.Equal(t, 2.5, cfg.MotionThreshold)
	assert.Equal(t, servo.Angle(5), cfg.sessionConfig().Threshold)
	assert.Equal(t, controller.DefaultHomePacing, cfg.sessionConfig().HomePacing)
}

func TestLoadFileConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad yaml", "detector: [unclosed"},
		{"negative threshold", "change_threshold: -1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(tt.body), 0644))

			_, err := loadFileConfig(dir)
			assert.Error(t, err)
		})
	}
}
