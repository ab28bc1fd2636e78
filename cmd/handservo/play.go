package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ayusman/handservo/internal/controller"
	"github.com/ayusman/handservo/internal/store"
)

type PlayCommand struct {
	SerialOptions
	Delay time.Duration `long:"delay" description:"Override the pause between poses (e.g. 300ms)"`

	Args struct {
		Name string `positional-arg-name:"name" description:"Name of the saved sequence"`
	} `positional-args:"yes" required:"yes"`
}

func (c *PlayCommand) Execute(args []string) error {
	st, err := c.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	seq, err := st.Sequences().GetByName(c.Args.Name)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("sequence %q not found", c.Args.Name)
	}
	if err != nil {
		return err
	}

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

	if err := session.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer session.Disconnect()
	remember(st, port, baud)

	delay := seq.Delay
	if c.Delay > 0 {
		delay = c.Delay
	}

	fmt.Printf("Playing %q: %d poses, %v apart\n", seq.Name, len(seq.Poses), delay)
	return session.PlaySequence(ctx, seq.Poses, delay)
}
