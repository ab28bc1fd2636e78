package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/ayusman/handservo/internal/controller"
	"github.com/ayusman/handservo/internal/store"
	"github.com/ayusman/handservo/internal/transport"
)

// SerialOptions are shared by every command that talks to the arm.
type SerialOptions struct {
	Port    string `long:"port" short:"p" description:"Serial port of the arm controller (default: last used)"`
	Baud    int    `long:"baud" description:"Serial baud rate (default: last used or 115200)"`
	DataDir string `long:"data-dir" description:"Directory holding the database (default: ~/.handservo)"`
}

// dataDir returns the data directory, creating it if needed.
func (o SerialOptions) dataDir() (string, error) {
	dir := o.DataDir
	if dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(homeDir, ".handservo")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return dir, nil
}

// openStore opens the database in the data directory.
func (o SerialOptions) openStore() (*store.Store, error) {
	dir, err := o.dataDir()
	if err != nil {
		return nil, err
	}
	return store.New(filepath.Join(dir, "handservo.db"))
}

// resolve fills port and baud from the saved settings when not given.
func (o SerialOptions) resolve(st *store.Store) (string, int, error) {
	port := o.Port
	if port == "" {
		saved, err := st.Settings().GetOr(store.SettingSerialPort, "")
		if err != nil {
			return "", 0, err
		}
		port = saved
	}

	baud := o.Baud
	if baud <= 0 {
		saved, err := st.Settings().GetInt(store.SettingBaudRate, transport.DefaultBaudRate)
		if err != nil {
			return "", 0, err
		}
		baud = saved
	}
	return port, baud, nil
}

// newSession builds a session over the serial port. An empty port yields a
// session with no transport.
func newSession(port string, baud int, config controller.Config) (*controller.Session, error) {
	if port == "" {
		return controller.NewSession(nil, config), nil
	}
	t, err := transport.NewSerial(port, transport.PortOptions{BaudRate: baud})
	if err != nil {
		return nil, err
	}
	return controller.NewSession(t, config), nil
}

// remember saves the connection settings for the next run.
func remember(st *store.Store, port string, baud int) {
	if err := st.Settings().Set(store.SettingSerialPort, port); err != nil {
		log.Printf("Failed to save port: %v", err)
	}
	if err := st.Settings().Set(store.SettingBaudRate, fmt.Sprint(baud)); err != nil {
		log.Printf("Failed to save baud rate: %v", err)
	}
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.handservo/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".handservo", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
