package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ayusman/handservo/internal/controller"
)

type HomeCommand struct {
	SerialOptions
}

func (c *HomeCommand) Execute(args []string) error {
	st, err := c.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	port, baud, err := c.resolve(st)
	if err != nil {
		return err
	}
	if port == "" {
		return errors.New("no serial port given and none saved; see 'handservo ports'")
	}

	session, err := newSession(port, baud, controller.DefaultConfig())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect homes every servo.
	if err := session.Connect(ctx); err != nil {
		return fmt.Errorf("failed to home arm: %w", err)
	}
	defer session.Disconnect()

	remember(st, port, baud)
	fmt.Println("All servos homed")
	return nil
}
